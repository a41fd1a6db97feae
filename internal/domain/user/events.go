package user

import "time"

const (
	EventUserRegistered   = "UserRegistered"
	EventAddressAdded     = "AddressAdded"
	EventPlanChanged      = "PlanChanged"
	EventBillingAnchorSet = "BillingAnchorSet"
	EventProtectionSet    = "ProtectionSet"
)

type UserRegistered struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PlanID       string    `json:"plan_id"`
	PlanMonthly  float64   `json:"plan_monthly"`
	PlanLevel    int       `json:"plan_level"`
	Unlimited    bool      `json:"unlimited"`
	BillingHour  int       `json:"billing_hour"`
	RegisteredAt time.Time `json:"registered_at"`
}

type AddressAdded struct {
	UserID    string    `json:"user_id"`
	AddressID string    `json:"address_id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Primary   bool      `json:"primary"`
	AddedAt   time.Time `json:"added_at"`
}

type PlanChanged struct {
	UserID        string    `json:"user_id"`
	PlanID        string    `json:"plan_id"`
	PlanMonthly   float64   `json:"plan_monthly"`
	PlanLevel     int       `json:"plan_level"`
	Unlimited     bool      `json:"unlimited"`
	ProratedDelta float64   `json:"prorated_delta"`
	ChangedAt     time.Time `json:"changed_at"`
}

type BillingAnchorSet struct {
	UserID string    `json:"user_id"`
	Day    int       `json:"day"`
	SetAt  time.Time `json:"set_at"`
}

type ProtectionSet struct {
	UserID  string `json:"user_id"`
	Enabled bool   `json:"enabled"`
}
