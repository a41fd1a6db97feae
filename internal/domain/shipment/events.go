package shipment

import "time"

// Event types for the Shipment aggregate
const (
	EventShipmentCreated       = "ShipmentCreated"
	EventLabelPurchased        = "LabelPurchased"
	EventTrackingEventRecorded = "TrackingEventRecorded"
)

// ShipmentCreated event data
type ShipmentCreated struct {
	ShipmentID   string    `json:"shipment_id"`
	Direction    Direction `json:"direction"`
	Type         Type      `json:"type"`
	ServiceLevel string    `json:"service_level"`
	AddressID    string    `json:"address_id"`
	WarehouseID  string    `json:"warehouse_id"`
	UserID       string    `json:"user_id"`
	CartID       string    `json:"cart_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	ShipKitID    string    `json:"ship_kit_id,omitempty"`
	UnitIDs      []string  `json:"unit_ids"`
	CreatedAt    time.Time `json:"created_at"`
}

// LabelPurchased event data
type LabelPurchased struct {
	ShipmentID        string     `json:"shipment_id"`
	CarrierShipmentID string     `json:"carrier_shipment_id"`
	RateID            string     `json:"rate_id"`
	TrackingCode      string     `json:"tracking_code"`
	LabelURL          string     `json:"label_url"`
	Cost              float64    `json:"cost"`
	EstDeliveryDate   *time.Time `json:"est_delivery_date,omitempty"`
	PurchasedAt       time.Time  `json:"purchased_at"`
}

// TrackingEventRecorded event data. EventKey is the idempotency key
// (carrier shipment id + mapped status) used to drop webhook redeliveries.
type TrackingEventRecorded struct {
	ShipmentID    string    `json:"shipment_id"`
	EventKey      string    `json:"event_key"`
	CarrierStatus string    `json:"carrier_status"`
	MappedStatus  Status    `json:"mapped_status"`
	DerivedStatus Status    `json:"derived_status"`
	SignedBy      string    `json:"signed_by,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	RecordedAt    time.Time `json:"recorded_at"`
}
