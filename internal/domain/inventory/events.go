package inventory

import "time"

const (
	EventUnitRegistered    = "UnitRegistered"
	EventUnitStatusChanged = "UnitStatusChanged"
	EventUnitInspected     = "UnitInspected"
)

type UnitRegistered struct {
	UnitID       string    `json:"unit_id"`
	ProductID    string    `json:"product_id"`
	OwnerID      string    `json:"owner_id"`
	Points       int       `json:"points"`
	Condition    Condition `json:"condition"`
	RegisteredAt time.Time `json:"registered_at"`
}

type UnitStatusChanged struct {
	UnitID    string    `json:"unit_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Trigger   Trigger   `json:"trigger"`
	TriggerID string    `json:"trigger_id"`
	MemberID  string    `json:"member_id,omitempty"`
	CartID    string    `json:"cart_id,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

type UnitInspected struct {
	UnitID            string    `json:"unit_id"`
	Passed            bool      `json:"passed"`
	Condition         Condition `json:"condition"`
	BinLocation       string    `json:"bin_location"`
	MissingEssentials []string  `json:"missing_essentials"`
	InspectedAt       time.Time `json:"inspected_at"`
}
