package shipment

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/example/rental-engine/internal/infrastructure/store"
)

const AggregateType = "Shipment"

var (
	ErrShipmentNotFound = errors.New("shipment not found")
	ErrValidation       = errors.New("validation error")
	ErrLabelPurchase    = errors.New("label purchase failed")
)

// Shipment is one carrier-tracked physical movement of one or more units.
// The unit set is frozen once a carrier label has been purchased.
type Shipment struct {
	ID                 string     `json:"id"`
	Direction          Direction  `json:"direction"`
	Type               Type       `json:"type"`
	Status             Status     `json:"status"`
	ServiceLevel       string     `json:"service_level"`
	AddressID          string     `json:"address_id"`
	WarehouseID        string     `json:"warehouse_id"`
	UserID             string     `json:"user_id"`
	CartID             string     `json:"cart_id,omitempty"`
	RequestID          string     `json:"request_id,omitempty"`
	ShipKitID          string     `json:"ship_kit_id,omitempty"`
	UnitIDs            []string   `json:"unit_ids"`
	CarrierShipmentID  string     `json:"carrier_shipment_id,omitempty"`
	TrackingCode       string     `json:"tracking_code,omitempty"`
	LabelURL           string     `json:"label_url,omitempty"`
	Cost               float64    `json:"cost"`
	EstDeliveryDate    *time.Time `json:"est_delivery_date,omitempty"`
	CarrierReceivedAt  *time.Time `json:"carrier_received_at,omitempty"`
	CarrierDeliveredAt *time.Time `json:"carrier_delivered_at,omitempty"`

	// RecordedEventKeys dedupes webhook deliveries; ObservedStatuses is the
	// full history the current status is re-derived from.
	RecordedEventKeys map[string]bool `json:"recorded_event_keys"`
	ObservedStatuses  []Status        `json:"observed_statuses"`

	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`
}

// LabelPurchased reports whether a carrier label has already been bought
func (sh *Shipment) LabelPurchased() bool {
	return sh.CarrierShipmentID != ""
}

// Aggregate interface implementation
func (sh *Shipment) GetID() string    { return sh.ID }
func (sh *Shipment) GetVersion() int  { return sh.Version }
func (sh *Shipment) SetVersion(v int) { sh.Version = v }

// ApplyEvent applies a single event to the shipment state
func (sh *Shipment) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventShipmentCreated:
		var data ShipmentCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		sh.ID = data.ShipmentID
		sh.Direction = data.Direction
		sh.Type = data.Type
		sh.ServiceLevel = data.ServiceLevel
		sh.AddressID = data.AddressID
		sh.WarehouseID = data.WarehouseID
		sh.UserID = data.UserID
		sh.CartID = data.CartID
		sh.RequestID = data.RequestID
		sh.ShipKitID = data.ShipKitID
		sh.UnitIDs = data.UnitIDs
		sh.Status = StatusUnknown
		sh.CreatedAt = data.CreatedAt
		sh.RecordedEventKeys = make(map[string]bool)
	case EventLabelPurchased:
		var data LabelPurchased
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		sh.CarrierShipmentID = data.CarrierShipmentID
		sh.TrackingCode = data.TrackingCode
		sh.LabelURL = data.LabelURL
		sh.Cost = data.Cost
		sh.EstDeliveryDate = data.EstDeliveryDate
		sh.Status = StatusPreTransit
	case EventTrackingEventRecorded:
		var data TrackingEventRecorded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if sh.RecordedEventKeys == nil {
			sh.RecordedEventKeys = make(map[string]bool)
		}
		sh.RecordedEventKeys[data.EventKey] = true
		sh.ObservedStatuses = append(sh.ObservedStatuses, data.MappedStatus)
		sh.Status = DeriveStatus(sh.ObservedStatuses)

		switch data.MappedStatus {
		case StatusInTransit:
			if sh.CarrierReceivedAt == nil {
				at := data.OccurredAt
				sh.CarrierReceivedAt = &at
			}
		case StatusDelivered:
			if sh.CarrierDeliveredAt == nil {
				at := data.OccurredAt
				sh.CarrierDeliveredAt = &at
			}
		}
	}
	sh.Version = event.Version
	return nil
}
