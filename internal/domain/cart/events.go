package cart

import "time"

const (
	EventCartOpened     = "CartOpened"
	EventItemAdded      = "CartItemAdded"
	EventItemUpdated    = "CartItemUpdated"
	EventItemRemoved    = "CartItemRemoved"
	EventProtectionSet  = "CartProtectionSet"
	EventCouponApplied  = "CartCouponApplied"
	EventCartCheckedOut = "CartCheckedOut"
	EventCartCanceled   = "CartCanceled"
)

type CartOpened struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	AddressID string    `json:"address_id"`
	PlanID    string    `json:"plan_id"`
	OpenedAt  time.Time `json:"opened_at"`
}

type ItemAdded struct {
	CartID    string    `json:"cart_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Points    int       `json:"points"`
	AddedAt   time.Time `json:"added_at"`
}

type ItemUpdated struct {
	CartID    string    `json:"cart_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ItemRemoved struct {
	CartID    string    `json:"cart_id"`
	ProductID string    `json:"product_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type ProtectionSet struct {
	CartID  string `json:"cart_id"`
	Enabled bool   `json:"enabled"`
}

type CouponApplied struct {
	CartID string `json:"cart_id"`
	Code   string `json:"code"`
}

type CartCheckedOut struct {
	CartID       string    `json:"cart_id"`
	UserID       string    `json:"user_id"`
	UnitIDs      []string  `json:"unit_ids"`
	ServiceLevel string    `json:"service_level"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

type CartCanceled struct {
	CartID     string    `json:"cart_id"`
	UnitIDs    []string  `json:"unit_ids"`
	CanceledAt time.Time `json:"canceled_at"`
}
