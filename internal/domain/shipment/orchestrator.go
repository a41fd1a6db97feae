package shipment

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/example/rental-engine/internal/domain/aggregate"
	"github.com/example/rental-engine/internal/domain/inventory"
	"github.com/example/rental-engine/internal/domain/user"
	"github.com/example/rental-engine/internal/infrastructure/kafka"
	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/example/rental-engine/internal/integration/carrier"
	"github.com/google/uuid"
)

// carrierIndexCollection maps carrier shipment ids back to aggregate ids so
// webhook ingestion can locate the shipment the payload refers to.
const carrierIndexCollection = "carrier_shipments"

const labelPurchaseTimeout = 20 * time.Second

// Enqueuer pushes named jobs onto the durable queue
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// Warehouse is the single default fulfillment location
type Warehouse struct {
	ID      string
	Address carrier.Address
}

// Orchestrator creates shipments, buys carrier labels, and reacts to
// tracking events to drive inventory transitions.
type Orchestrator struct {
	eventStore store.EventStoreInterface
	readStore  store.ReadStoreInterface
	carrierAPI carrier.API
	inventory  *inventory.Service
	users      *user.Service
	queue      Enqueuer
	warehouse  Warehouse
}

func NewOrchestrator(
	es store.EventStoreInterface,
	rs store.ReadStoreInterface,
	api carrier.API,
	inv *inventory.Service,
	users *user.Service,
	queue Enqueuer,
	warehouse Warehouse,
) *Orchestrator {
	return &Orchestrator{
		eventStore: es,
		readStore:  rs,
		carrierAPI: api,
		inventory:  inv,
		users:      users,
		queue:      queue,
		warehouse:  warehouse,
	}
}

// Get loads a shipment by replaying events
func (o *Orchestrator) Get(ctx context.Context, shipmentID string) (*Shipment, error) {
	sh, found, err := aggregate.Load(ctx, o.eventStore, shipmentID, func() *Shipment {
		return &Shipment{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrShipmentNotFound
	}
	return sh, nil
}

// CreateShipmentParams describes a shipment to create. At most one of
// CartID, RequestID, ShipKitID may be set.
type CreateShipmentParams struct {
	Direction    Direction
	Type         Type
	ServiceLevel string
	AddressID    string
	UserID       string
	CartID       string
	RequestID    string
	ShipKitID    string
	UnitIDs      []string
}

// CreateShipment resolves the destination address (falling back to the
// user's primary address) and the default warehouse, then persists the
// shipment.
func (o *Orchestrator) CreateShipment(ctx context.Context, params CreateShipmentParams) (*Shipment, error) {
	refs := 0
	for _, ref := range []string{params.CartID, params.RequestID, params.ShipKitID} {
		if ref != "" {
			refs++
		}
	}
	if refs > 1 {
		return nil, fmt.Errorf("%w: shipment may reference at most one of cart, request, ship kit", ErrValidation)
	}
	if len(params.UnitIDs) == 0 {
		return nil, fmt.Errorf("%w: shipment has no units", ErrValidation)
	}
	if o.warehouse.ID == "" {
		return nil, fmt.Errorf("%w: no warehouse configured", ErrValidation)
	}

	addressID := params.AddressID
	if addressID == "" {
		u, err := o.users.Get(ctx, params.UserID)
		if err != nil {
			return nil, err
		}
		addr, ok := u.PrimaryAddress()
		if !ok {
			return nil, fmt.Errorf("%w: user %s has no address", ErrValidation, params.UserID)
		}
		addressID = addr.ID
	}

	shipmentID := uuid.New().String()
	event := ShipmentCreated{
		ShipmentID:   shipmentID,
		Direction:    params.Direction,
		Type:         params.Type,
		ServiceLevel: params.ServiceLevel,
		AddressID:    addressID,
		WarehouseID:  o.warehouse.ID,
		UserID:       params.UserID,
		CartID:       params.CartID,
		RequestID:    params.RequestID,
		ShipKitID:    params.ShipKitID,
		UnitIDs:      params.UnitIDs,
		CreatedAt:    time.Now(),
	}

	if _, err := o.eventStore.Append(ctx, shipmentID, AggregateType, EventShipmentCreated, event); err != nil {
		return nil, err
	}

	log.Printf("[Shipment] Created %s %s shipment %s with %d units", params.Direction, params.Type, shipmentID, len(params.UnitIDs))
	return o.Get(ctx, shipmentID)
}

// PurchaseLabel buys a carrier label for the shipment if none has been
// purchased yet. A failed purchase leaves no carrier id recorded, so the
// call is safe to retry.
func (o *Orchestrator) PurchaseLabel(ctx context.Context, shipmentID string) error {
	sh, err := o.Get(ctx, shipmentID)
	if err != nil {
		return err
	}
	if sh.LabelPurchased() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, labelPurchaseTimeout)
	defer cancel()

	destination, err := o.resolveDestination(ctx, sh)
	if err != nil {
		return err
	}
	from, to := &o.warehouse.Address, destination
	if sh.Direction == DirectionInbound {
		from, to = destination, &o.warehouse.Address
	}

	parcel, err := o.carrierAPI.CreateParcel(ctx, buildParcel(len(sh.UnitIDs)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLabelPurchase, err)
	}

	carrierShipmentID, rates, err := o.carrierAPI.RateShipment(ctx, from, to, parcel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLabelPurchase, err)
	}

	selected, err := PickRate(rates, sh.ServiceLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLabelPurchase, err)
	}

	label, err := o.carrierAPI.BuyLabel(ctx, carrierShipmentID, selected.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLabelPurchase, err)
	}

	event := LabelPurchased{
		ShipmentID:        shipmentID,
		CarrierShipmentID: carrierShipmentID,
		RateID:            selected.ID,
		TrackingCode:      label.TrackingCode,
		LabelURL:          label.LabelURL,
		Cost:              label.Amount,
		EstDeliveryDate:   label.EstDeliveryDate,
		PurchasedAt:       time.Now(),
	}
	if _, err := o.eventStore.Append(ctx, shipmentID, AggregateType, EventLabelPurchased, event); err != nil {
		return err
	}
	o.readStore.Set(carrierIndexCollection, carrierShipmentID, shipmentID)

	if sh.Direction == DirectionOutbound && sh.Type == TypeAccess {
		o.prepareOutboundUnits(ctx, sh)
	}

	log.Printf("[Shipment] Purchased label for shipment %s (tracking %s, cost %.2f)", shipmentID, label.TrackingCode, label.Amount)
	return nil
}

func (o *Orchestrator) resolveDestination(ctx context.Context, sh *Shipment) (*carrier.Address, error) {
	u, err := o.users.Get(ctx, sh.UserID)
	if err != nil {
		return nil, err
	}
	for _, a := range u.Addresses {
		if a.ID == sh.AddressID {
			created, err := o.carrierAPI.CreateAddress(ctx, carrier.Address{
				Name:    u.Name,
				Street1: a.Street,
				City:    a.City,
				State:   a.State,
				Zip:     a.Zip,
				Country: "US",
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrLabelPurchase, err)
			}
			return created, nil
		}
	}
	return nil, fmt.Errorf("%w: address %s not found for user %s", ErrValidation, sh.AddressID, sh.UserID)
}

func buildParcel(unitCount int) carrier.Parcel {
	return carrier.Parcel{
		Length: 18,
		Width:  14,
		Height: 6,
		Weight: 16 * float64(unitCount),
	}
}

func (o *Orchestrator) prepareOutboundUnits(ctx context.Context, sh *Shipment) {
	for _, unitID := range sh.UnitIDs {
		u, err := o.inventory.Get(ctx, unitID)
		if err != nil {
			log.Printf("[Shipment] Failed to load unit %s for shipment %s: %v", unitID, sh.ID, err)
			continue
		}
		if u.Status == inventory.StatusShipmentPrep {
			continue
		}
		trigger := "label:" + sh.ID + ":" + unitID
		if err := o.inventory.Transition(ctx, unitID, inventory.StatusShipmentPrep, inventory.TriggerCartReserved, trigger, sh.UserID); err != nil {
			log.Printf("[Shipment] Failed to prep unit %s for shipment %s: %v", unitID, sh.ID, err)
		}
	}
}

// PickRate selects a purchasable rate for the requested service level.
// Expedited takes the fastest option. Standard groups rates by service
// tier and takes the cheapest rate of the second-cheapest tier, or of the
// only tier when the carrier quotes just one.
func PickRate(rates []carrier.Rate, serviceLevel string) (carrier.Rate, error) {
	if len(rates) == 0 {
		return carrier.Rate{}, fmt.Errorf("no rates returned")
	}

	sorted := make([]carrier.Rate, len(rates))
	copy(sorted, rates)

	if serviceLevel == "expedited" {
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].DeliveryDays != sorted[j].DeliveryDays {
				return sorted[i].DeliveryDays < sorted[j].DeliveryDays
			}
			return sorted[i].Amount < sorted[j].Amount
		})
		return sorted[0], nil
	}

	cheapestPerTier := make(map[string]carrier.Rate)
	for _, r := range sorted {
		best, seen := cheapestPerTier[r.Service]
		if !seen || r.Amount < best.Amount {
			cheapestPerTier[r.Service] = r
		}
	}
	tiers := make([]carrier.Rate, 0, len(cheapestPerTier))
	for _, r := range cheapestPerTier {
		tiers = append(tiers, r)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Amount < tiers[j].Amount
	})
	if len(tiers) > 1 {
		return tiers[1], nil
	}
	return tiers[0], nil
}

// IngestTrackingEvent records a carrier tracking webhook. Ingestion is
// idempotent by carrier shipment id plus mapped status, and the shipment
// status is re-derived from the full event history so an out-of-order
// redelivery cannot regress a delivered shipment.
func (o *Orchestrator) IngestTrackingEvent(ctx context.Context, payload carrier.WebhookPayload) error {
	carrierShipmentID := payload.Result.ShipmentID
	raw, exists := o.readStore.Get(carrierIndexCollection, carrierShipmentID)
	if !exists {
		log.Printf("[Shipment] Ignoring webhook for unknown carrier shipment %s", carrierShipmentID)
		return nil
	}
	shipmentID, ok := raw.(string)
	if !ok {
		log.Printf("[Shipment] Bad carrier index entry for %s", carrierShipmentID)
		return nil
	}

	sh, err := o.Get(ctx, shipmentID)
	if err != nil {
		return err
	}

	mapped := MapCarrierStatus(payload.Result.Status)
	eventKey := carrierShipmentID + ":" + string(mapped)
	if sh.RecordedEventKeys[eventKey] {
		return nil
	}

	occurredAt := time.Now()
	for _, detail := range payload.Result.TrackingDetails {
		if MapCarrierStatus(detail.Status) == mapped && !detail.DateTime.IsZero() {
			occurredAt = detail.DateTime
			break
		}
	}

	derived := DeriveStatus(append(append([]Status{}, sh.ObservedStatuses...), mapped))
	event := TrackingEventRecorded{
		ShipmentID:    shipmentID,
		EventKey:      eventKey,
		CarrierStatus: payload.Result.Status,
		MappedStatus:  mapped,
		DerivedStatus: derived,
		SignedBy:      payload.Result.SignedBy,
		OccurredAt:    occurredAt,
		RecordedAt:    time.Now(),
	}
	if _, err := o.eventStore.Append(ctx, shipmentID, AggregateType, EventTrackingEventRecorded, event); err != nil {
		return err
	}

	o.applyInventoryTransitions(ctx, sh, derived, eventKey)

	if mapped == StatusDelivered && sh.Direction == DirectionOutbound && sh.Type == TypeAccess {
		if err := o.users.SetBillingAnchor(ctx, sh.UserID, occurredAt.Day()); err != nil {
			log.Printf("[Shipment] Failed to set billing anchor for user %s: %v", sh.UserID, err)
		}
		notice := map[string]any{
			"shipment_id": shipmentID,
			"user_id":     sh.UserID,
			"unit_ids":    sh.UnitIDs,
		}
		if err := o.queue.Enqueue(ctx, kafka.JobDeliveryNotice, notice); err != nil {
			log.Printf("[Shipment] Failed to enqueue delivery notice for shipment %s: %v", shipmentID, err)
		}
	}

	return nil
}

// applyInventoryTransitions drives per-unit inventory from the re-derived
// shipment status, not the raw webhook event. Carriers can deliver scans out
// of order or skip one entirely, so a DELIVERED derivation walks the units
// through every hop up to its rank (en route first, then delivered). Hops
// already taken, and hops stale events would replay, fail CanTransition and
// are logged no-ops. Only ACCESS and RETURN shipments move units; EARN
// intake is advanced by warehouse receiving.
func (o *Orchestrator) applyInventoryTransitions(ctx context.Context, sh *Shipment, derived Status, eventKey string) {
	if sh.Type == TypeEarn {
		return
	}

	type hop struct {
		target  inventory.Status
		trigger inventory.Trigger
	}
	var chain []hop
	switch {
	case sh.Direction == DirectionOutbound && sh.Type == TypeAccess:
		chain = []hop{
			{inventory.StatusEnrouteMember, inventory.TriggerCarrierReceived},
			{inventory.StatusWithMember, inventory.TriggerCarrierDelivered},
		}
	case sh.Direction == DirectionInbound && sh.Type == TypeAccess:
		chain = []hop{
			{inventory.StatusEnrouteWarehouse, inventory.TriggerCarrierReceived},
			{inventory.StatusInspecting, inventory.TriggerCarrierDelivered},
		}
	case sh.Type == TypeReturn:
		chain = []hop{
			{inventory.StatusEnrouteOwner, inventory.TriggerCarrierReceived},
			{inventory.StatusReturned, inventory.TriggerCarrierDelivered},
		}
	default:
		return
	}

	switch derived {
	case StatusInTransit, StatusOutForDelivery:
		chain = chain[:1]
	case StatusDelivered:
	default:
		return
	}

	memberID := ""
	if sh.Direction == DirectionOutbound && sh.Type == TypeAccess {
		memberID = sh.UserID
	}

	for _, unitID := range sh.UnitIDs {
		for _, h := range chain {
			triggerID := eventKey + ":" + unitID + ":" + string(h.target)
			if err := o.inventory.Transition(ctx, unitID, h.target, h.trigger, triggerID, memberID); err != nil {
				log.Printf("[Shipment] Skipped transition of unit %s to %s for shipment %s: %v", unitID, h.target, sh.ID, err)
			}
		}
	}
}
