package carrier

import (
	"context"
	"errors"
	"time"
)

var ErrCarrier = errors.New("carrier error")

// Address is a carrier-side address record
type Address struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Parcel describes the physical package
type Parcel struct {
	ID     string  `json:"id"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

// Rate is one purchasable shipping option
type Rate struct {
	ID           string  `json:"id"`
	Carrier      string  `json:"carrier"`
	Service      string  `json:"service"`
	Amount       float64 `json:"rate"`
	DeliveryDays int     `json:"delivery_days"`
}

// Label is a purchased shipping label
type Label struct {
	ShipmentID      string     `json:"shipment_id"`
	TrackingCode    string     `json:"tracking_code"`
	LabelURL        string     `json:"label_url"`
	PublicURL       string     `json:"public_url"`
	Amount          float64    `json:"amount"`
	EstDeliveryDate *time.Time `json:"est_delivery_date,omitempty"`
}

// TrackingDetail is one sub-event within a tracking webhook
type TrackingDetail struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	DateTime time.Time `json:"datetime"`
}

// WebhookPayload is the tracking webhook body posted by the carrier
type WebhookPayload struct {
	Result struct {
		ShipmentID      string           `json:"shipment_id"`
		Status          string           `json:"status"`
		TrackingDetails []TrackingDetail `json:"tracking_details"`
		SignedBy        string           `json:"signed_by"`
		EstDeliveryDate *time.Time       `json:"est_delivery_date"`
		Weight          float64          `json:"weight"`
	} `json:"result"`
	Description string `json:"description"`
}

// API is the carrier operations the shipment orchestrator needs
type API interface {
	CreateAddress(ctx context.Context, addr Address) (*Address, error)
	CreateParcel(ctx context.Context, parcel Parcel) (*Parcel, error)
	RateShipment(ctx context.Context, from, to *Address, parcel *Parcel) (string, []Rate, error)
	BuyLabel(ctx context.Context, shipmentID, rateID string) (*Label, error)
}
