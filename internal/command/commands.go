package command

// User commands
type RegisterUser struct {
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	PlanID      string  `json:"plan_id"`
	PlanMonthly float64 `json:"plan_monthly"`
	PlanLevel   int     `json:"plan_level"`
	Unlimited   bool    `json:"unlimited"`
	BillingHour int     `json:"billing_hour"`
}

type AddAddress struct {
	UserID  string `json:"user_id"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Primary bool   `json:"primary"`
}

type ChangePlan struct {
	UserID      string  `json:"user_id"`
	PlanID      string  `json:"plan_id"`
	PlanMonthly float64 `json:"plan_monthly"`
	PlanLevel   int     `json:"plan_level"`
	Unlimited   bool    `json:"unlimited"`
}

type SetAccountProtection struct {
	UserID  string `json:"user_id"`
	Enabled bool   `json:"enabled"`
}

// ShipKit commands (contributor supply intake)
type ShipKitItem struct {
	ProductID string `json:"product_id"`
	Points    int    `json:"points"`
	Condition string `json:"condition"`
}

type SubmitShipKit struct {
	OwnerID string        `json:"owner_id"`
	Items   []ShipKitItem `json:"items"`
}

type ConfirmShipKit struct {
	ShipKitID string   `json:"ship_kit_id"`
	OwnerID   string   `json:"owner_id"`
	UnitIDs   []string `json:"unit_ids"`
}

// Warehouse commands
type ReceiveUnit struct {
	UnitID string `json:"unit_id"`
}

type InspectUnit struct {
	UnitID            string   `json:"unit_id"`
	Passed            bool     `json:"passed"`
	Condition         string   `json:"condition"`
	BinLocation       string   `json:"bin_location"`
	MissingEssentials []string `json:"missing_essentials"`
}

// Cart commands
type AddToCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItem struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

type SetCartProtection struct {
	UserID  string `json:"user_id"`
	Enabled bool   `json:"enabled"`
}

type ApplyCoupon struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type Checkout struct {
	CartID       string `json:"cart_id"`
	UserID       string `json:"user_id"`
	ServiceLevel string `json:"service_level"`
}

type CancelCart struct {
	CartID string `json:"cart_id"`
	UserID string `json:"user_id"`
}

// Inventory commands
type ReturnUnit struct {
	UnitID   string `json:"unit_id"`
	MemberID string `json:"member_id"`
}

type ReturnToOwner struct {
	UnitID string `json:"unit_id"`
}

type ReportLoss struct {
	UnitID   string `json:"unit_id"`
	Stolen   bool   `json:"stolen"`
	ReportID string `json:"report_id"`
}
