// Package stripebilling implements the billing provider against Stripe.
package stripebilling

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v83"

	"github.com/example/rental-engine/internal/billing"
)

// Resolver maps internal user ids onto Stripe customer and subscription
// ids. Lookups are expected to be cheap (backed by a local mapping).
type Resolver interface {
	CustomerID(ctx context.Context, userID string) (string, error)
	SubscriptionID(ctx context.Context, userID string) (string, error)
}

// Client implements billing.Biller on the Stripe API
type Client struct {
	stripeClient *stripe.Client
	resolver     Resolver
}

func NewClient(apiKey string, resolver Resolver) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing stripe api key", billing.ErrInvoice)
	}
	return &Client{
		stripeClient: stripe.NewClient(apiKey),
		resolver:     resolver,
	}, nil
}

func (c *Client) CreateInvoiceItem(ctx context.Context, item billing.InvoiceItem) error {
	customerID, err := c.resolver.CustomerID(ctx, item.UserID)
	if err != nil {
		return fmt.Errorf("%w: resolve customer for user %s: %v", billing.ErrInvoice, item.UserID, err)
	}

	params := &stripe.InvoiceItemCreateParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(toCents(item.Amount)),
		Currency:    stripe.String(item.Currency),
		Description: stripe.String(item.Description),
	}
	if _, err := c.stripeClient.V1InvoiceItems.Create(ctx, params); err != nil {
		return fmt.Errorf("%w: create invoice item: %v", billing.ErrInvoice, err)
	}
	return nil
}

func (c *Client) CreateInvoice(ctx context.Context, userID string) (string, error) {
	customerID, err := c.resolver.CustomerID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: resolve customer for user %s: %v", billing.ErrInvoice, userID, err)
	}

	params := &stripe.InvoiceCreateParams{
		Customer:    stripe.String(customerID),
		AutoAdvance: stripe.Bool(true),
	}
	invoice, err := c.stripeClient.V1Invoices.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: create invoice: %v", billing.ErrInvoice, err)
	}
	return invoice.ID, nil
}

func (c *Client) UpdateSubscription(ctx context.Context, userID, planID string, monthly float64) error {
	subscriptionID, err := c.resolver.SubscriptionID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: resolve subscription for user %s: %v", billing.ErrInvoice, userID, err)
	}

	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{
			{Price: stripe.String(planID)},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	if _, err := c.stripeClient.V1Subscriptions.Update(ctx, subscriptionID, params); err != nil {
		return fmt.Errorf("%w: update subscription: %v", billing.ErrInvoice, err)
	}
	return nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
