package projection

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/rental-engine/internal/domain/cart"
	"github.com/example/rental-engine/internal/domain/inventory"
	"github.com/example/rental-engine/internal/domain/shipment"
	"github.com/example/rental-engine/internal/domain/user"
	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/example/rental-engine/internal/readmodel"
)

// Projector consumes the event stream and maintains the read models
type Projector struct {
	readStore store.ReadStoreInterface
}

func NewProjector(readStore store.ReadStoreInterface) *Projector {
	return &Projector{readStore: readStore}
}

func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	log.Printf("[Projector] Received event: %s (aggregate: %s)", event.EventType, event.AggregateType)

	switch event.AggregateType {
	case inventory.AggregateType:
		return p.handleInventoryEvent(event)
	case cart.AggregateType:
		return p.handleCartEvent(event)
	case user.AggregateType:
		return p.handleUserEvent(event)
	case shipment.AggregateType:
		return p.handleShipmentEvent(event)
	}

	return nil
}

func (p *Projector) handleInventoryEvent(event store.Event) error {
	switch event.EventType {
	case inventory.EventUnitRegistered:
		var e inventory.UnitRegistered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionUnits, e.UnitID, &readmodel.UnitView{
			ID:        e.UnitID,
			ProductID: e.ProductID,
			OwnerID:   e.OwnerID,
			Status:    string(inventory.StatusNew),
			Condition: string(e.Condition),
			Points:    e.Points,
			CreatedAt: e.RegisteredAt,
			UpdatedAt: e.RegisteredAt,
		})
		p.adjustStock(e.ProductID, 0, 1)

	case inventory.EventUnitStatusChanged:
		var e inventory.UnitStatusChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		var productID string
		p.readStore.Update(readmodel.CollectionUnits, e.UnitID, func(current any) any {
			unit := current.(*readmodel.UnitView)
			productID = unit.ProductID
			unit.Status = string(e.To)
			unit.UpdatedAt = e.ChangedAt
			switch {
			case e.To == inventory.StatusShipmentPrep:
				unit.ReservedForID = e.MemberID
				unit.ReservedCartID = e.CartID
			case e.To == inventory.StatusEnrouteMember:
				unit.CurrentMemberID = e.MemberID
				if unit.CurrentMemberID == "" {
					unit.CurrentMemberID = unit.ReservedForID
				}
				unit.ReservedForID = ""
			case e.To == inventory.StatusWithMember || e.To == inventory.StatusReturning:
				if e.MemberID != "" {
					unit.CurrentMemberID = e.MemberID
				}
			default:
				unit.CurrentMemberID = ""
				unit.ReservedForID = ""
				unit.ReservedCartID = ""
			}
			return unit
		})

		// availability tracks INWAREHOUSE membership
		delta := 0
		if e.From == inventory.StatusInWarehouse {
			delta--
		}
		if e.To == inventory.StatusInWarehouse {
			delta++
		}
		if delta != 0 && productID != "" {
			p.adjustStock(productID, delta, 0)
		}

	case inventory.EventUnitInspected:
		var e inventory.UnitInspected
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionUnits, e.UnitID, func(current any) any {
			unit := current.(*readmodel.UnitView)
			unit.Condition = string(e.Condition)
			unit.BinLocation = e.BinLocation
			unit.MissingEssentials = e.MissingEssentials
			unit.UpdatedAt = e.InspectedAt
			return unit
		})
	}
	return nil
}

func (p *Projector) adjustStock(productID string, availableDelta, totalDelta int) {
	updated := p.readStore.Update(readmodel.CollectionStock, productID, func(current any) any {
		stock := current.(*readmodel.StockView)
		stock.Available += availableDelta
		stock.Total += totalDelta
		return stock
	})
	if !updated {
		p.readStore.Set(readmodel.CollectionStock, productID, &readmodel.StockView{
			ProductID: productID,
			Available: availableDelta,
			Total:     totalDelta,
		})
	}
}

func (p *Projector) handleCartEvent(event store.Event) error {
	switch event.EventType {
	case cart.EventCartOpened:
		var e cart.CartOpened
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionCarts, e.CartID, &readmodel.CartView{
			ID:       e.CartID,
			UserID:   e.UserID,
			Status:   readmodel.CartStatusOpen,
			OpenedAt: e.OpenedAt,
		})

	case cart.EventItemAdded:
		var e cart.ItemAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartView)
			for i, item := range c.Items {
				if item.ProductID == e.ProductID {
					c.Items[i].Quantity += e.Quantity
					return c
				}
			}
			c.Items = append(c.Items, readmodel.CartItemView{
				ProductID: e.ProductID,
				Quantity:  e.Quantity,
				Points:    e.Points,
			})
			return c
		})

	case cart.EventItemUpdated:
		var e cart.ItemUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartView)
			for i, item := range c.Items {
				if item.ProductID == e.ProductID {
					c.Items[i].Quantity = e.Quantity
				}
			}
			return c
		})

	case cart.EventItemRemoved:
		var e cart.ItemRemoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartView)
			items := c.Items[:0]
			for _, item := range c.Items {
				if item.ProductID != e.ProductID {
					items = append(items, item)
				}
			}
			c.Items = items
			return c
		})

	case cart.EventProtectionSet:
		var e cart.ProtectionSet
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartView)
			c.Protection = e.Enabled
			return c
		})

	case cart.EventCouponApplied:
		var e cart.CouponApplied
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartView)
			c.CouponCode = e.Code
			return c
		})

	case cart.EventCartCheckedOut:
		var e cart.CartCheckedOut
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartView)
			c.Status = readmodel.CartStatusCheckedOut
			c.ReservedUnitIDs = e.UnitIDs
			return c
		})

	case cart.EventCartCanceled:
		var e cart.CartCanceled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartView)
			c.Status = readmodel.CartStatusCanceled
			c.ReservedUnitIDs = nil
			return c
		})
	}
	return nil
}

func (p *Projector) handleUserEvent(event store.Event) error {
	switch event.EventType {
	case user.EventUserRegistered:
		var e user.UserRegistered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionUsers, e.UserID, &readmodel.UserView{
			ID:          e.UserID,
			Email:       e.Email,
			Name:        e.Name,
			PlanID:      e.PlanID,
			PlanMonthly: e.PlanMonthly,
			PlanLevel:   e.PlanLevel,
			Unlimited:   e.Unlimited,
			BillingHour: e.BillingHour,
			CreatedAt:   e.RegisteredAt,
		})

	case user.EventAddressAdded:
		var e user.AddressAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserView)
			u.Addresses = append(u.Addresses, readmodel.AddressView{
				ID:        e.AddressID,
				Street:    e.Street,
				City:      e.City,
				State:     e.State,
				Zip:       e.Zip,
				Primary:   e.Primary,
				CreatedAt: e.AddedAt,
			})
			return u
		})

	case user.EventPlanChanged:
		var e user.PlanChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserView)
			u.PlanID = e.PlanID
			u.PlanMonthly = e.PlanMonthly
			u.PlanLevel = e.PlanLevel
			u.Unlimited = e.Unlimited
			return u
		})

	case user.EventBillingAnchorSet:
		var e user.BillingAnchorSet
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserView)
			u.BillingAnchorDay = e.Day
			return u
		})

	case user.EventProtectionSet:
		var e user.ProtectionSet
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserView)
			u.ProtectionPlan = e.Enabled
			return u
		})
	}
	return nil
}

func (p *Projector) handleShipmentEvent(event store.Event) error {
	switch event.EventType {
	case shipment.EventShipmentCreated:
		var e shipment.ShipmentCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionShipments, e.ShipmentID, &readmodel.ShipmentView{
			ID:        e.ShipmentID,
			Direction: string(e.Direction),
			Type:      string(e.Type),
			Status:    string(shipment.StatusUnknown),
			UserID:    e.UserID,
			CartID:    e.CartID,
			UnitIDs:   e.UnitIDs,
			CreatedAt: e.CreatedAt,
		})

	case shipment.EventLabelPurchased:
		var e shipment.LabelPurchased
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionShipments, e.ShipmentID, func(current any) any {
			s := current.(*readmodel.ShipmentView)
			s.TrackingCode = e.TrackingCode
			s.Cost = e.Cost
			s.EstDeliveryDate = e.EstDeliveryDate
			s.Status = string(shipment.StatusPreTransit)
			return s
		})

	case shipment.EventTrackingEventRecorded:
		var e shipment.TrackingEventRecorded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionShipments, e.ShipmentID, func(current any) any {
			s := current.(*readmodel.ShipmentView)
			s.Status = string(e.DerivedStatus)
			switch e.MappedStatus {
			case shipment.StatusInTransit:
				if s.CarrierReceivedAt == nil {
					at := e.OccurredAt
					s.CarrierReceivedAt = &at
				}
			case shipment.StatusDelivered:
				if s.CarrierDeliveredAt == nil {
					at := e.OccurredAt
					s.CarrierDeliveredAt = &at
				}
			}
			return s
		})
	}
	return nil
}
