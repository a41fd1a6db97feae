// Package readmodel defines the denormalized views maintained by the
// projector and served by the query handler.
package readmodel

import "time"

// Collection names in the read store
const (
	CollectionUnits     = "inventory_units"
	CollectionUsers     = "users"
	CollectionCarts     = "carts"
	CollectionShipments = "shipments"
	CollectionStock     = "product_stock"
)

// UnitView is the current state of a physical inventory unit
type UnitView struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	OwnerID           string    `json:"owner_id"`
	Status            string    `json:"status"`
	Condition         string    `json:"condition"`
	Points            int       `json:"points"`
	CurrentMemberID   string    `json:"current_member_id,omitempty"`
	ReservedForID     string    `json:"reserved_for_id,omitempty"`
	ReservedCartID    string    `json:"reserved_cart_id,omitempty"`
	BinLocation       string    `json:"bin_location,omitempty"`
	MissingEssentials []string  `json:"missing_essentials,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AddressView is one shipping address on a user
type AddressView struct {
	ID        string    `json:"id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"created_at"`
}

// UserView is the account state the billing coordinator and queries read
type UserView struct {
	ID               string        `json:"id"`
	Email            string        `json:"email"`
	Name             string        `json:"name"`
	PlanID           string        `json:"plan_id"`
	PlanMonthly      float64       `json:"plan_monthly"`
	PlanLevel        int           `json:"plan_level"`
	Unlimited        bool          `json:"unlimited"`
	ProtectionPlan   bool          `json:"protection_plan"`
	BillingAnchorDay int           `json:"billing_anchor_day"`
	BillingHour      int           `json:"billing_hour"`
	Addresses        []AddressView `json:"addresses"`
	CreatedAt        time.Time     `json:"created_at"`
}

// CartItemView is one line in a cart
type CartItemView struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Points    int    `json:"points"`
}

// CartView is the state of a cart
type CartView struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Status          string         `json:"status"` // open, checked_out, canceled
	Items           []CartItemView `json:"items"`
	Protection      bool           `json:"protection"`
	CouponCode      string         `json:"coupon_code,omitempty"`
	ReservedUnitIDs []string       `json:"reserved_unit_ids,omitempty"`
	OpenedAt        time.Time      `json:"opened_at"`
}

// Cart view statuses
const (
	CartStatusOpen       = "open"
	CartStatusCheckedOut = "checked_out"
	CartStatusCanceled   = "canceled"
)

// ShipmentView is the tracking state of a shipment
type ShipmentView struct {
	ID                 string     `json:"id"`
	Direction          string     `json:"direction"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	UserID             string     `json:"user_id"`
	CartID             string     `json:"cart_id,omitempty"`
	UnitIDs            []string   `json:"unit_ids"`
	TrackingCode       string     `json:"tracking_code,omitempty"`
	Cost               float64    `json:"cost"`
	EstDeliveryDate    *time.Time `json:"est_delivery_date,omitempty"`
	CarrierReceivedAt  *time.Time `json:"carrier_received_at,omitempty"`
	CarrierDeliveredAt *time.Time `json:"carrier_delivered_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// StockView counts per-product availability
type StockView struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Total     int    `json:"total"`
}
