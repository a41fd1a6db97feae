// Package billing runs the hourly rental billing cycle against the
// external payment provider.
package billing

import (
	"context"
	"errors"
)

var ErrInvoice = errors.New("invoice error")

// InvoiceItem is one per-unit daily charge
type InvoiceItem struct {
	UserID      string
	UnitID      string
	Description string
	Amount      float64
	Currency    string
}

// Biller is the payment-provider surface the coordinator needs. Errors
// should wrap ErrInvoice so callers can classify failures as retryable
// integration problems.
type Biller interface {
	CreateInvoiceItem(ctx context.Context, item InvoiceItem) error
	CreateInvoice(ctx context.Context, userID string) (string, error)
	UpdateSubscription(ctx context.Context, userID, planID string, monthly float64) error
}
