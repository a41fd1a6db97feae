package billing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/example/rental-engine/internal/rate"
	"github.com/example/rental-engine/internal/readmodel"
	"golang.org/x/sync/errgroup"
)

// maxInvoiceItemsInFlight caps concurrent invoice-item calls per user
const maxInvoiceItemsInFlight = 5

// Summary totals one billing run
type Summary struct {
	Hour    int     `json:"hour"`
	Billed  float64 `json:"billed"`
	Failed  float64 `json:"failed"`
	Members int     `json:"members"`
	Items   int     `json:"items"`
}

// Coordinator bills every member whose billing hour matches the current
// hour for the units currently in their hands.
type Coordinator struct {
	readStore store.ReadStoreInterface
	biller    Biller
	cfg       rate.Config
	timeout   time.Duration
}

func NewCoordinator(rs store.ReadStoreInterface, biller Biller, cfg rate.Config) *Coordinator {
	return &Coordinator{
		readStore: rs,
		biller:    biller,
		cfg:       cfg,
		timeout:   30 * time.Second,
	}
}

// RunHour processes every user whose billing hour equals hour. A failure
// billing one user is counted and logged but never aborts the others.
func (c *Coordinator) RunHour(ctx context.Context, hour int) (*Summary, error) {
	summary := &Summary{Hour: hour}

	matches := c.readStore.Find(readmodel.CollectionUsers, func(item any) bool {
		u, ok := item.(*readmodel.UserView)
		return ok && u.BillingHour == hour
	})

	for _, item := range matches {
		u := item.(*readmodel.UserView)

		units := c.unitsInCirculation(u.ID)
		if len(units) == 0 {
			continue
		}
		summary.Members++

		if u.Unlimited {
			continue
		}

		total, count, err := c.billUser(ctx, u, units)
		if err != nil {
			log.Printf("[Billing] Failed to bill user %s: %v", u.ID, err)
			summary.Failed += total
			continue
		}
		summary.Billed += total
		summary.Items += count
	}

	log.Printf("[Billing] Hour %d summary: billed=%.2f failed=%.2f members=%d items=%d",
		hour, summary.Billed, summary.Failed, summary.Members, summary.Items)
	return summary, nil
}

func (c *Coordinator) unitsInCirculation(userID string) []*readmodel.UnitView {
	found := c.readStore.Find(readmodel.CollectionUnits, func(item any) bool {
		u, ok := item.(*readmodel.UnitView)
		if !ok || u.CurrentMemberID != userID {
			return false
		}
		return u.Status == "WITHMEMBER" || u.Status == "RETURNING"
	})
	units := make([]*readmodel.UnitView, 0, len(found))
	for _, item := range found {
		units = append(units, item.(*readmodel.UnitView))
	}
	return units
}

// billUser submits one invoice item per unit and issues the invoice. The
// whole invoice fails as a unit; there are no partial per-item retries.
func (c *Coordinator) billUser(ctx context.Context, u *readmodel.UserView, units []*readmodel.UnitView) (float64, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	items := make([]InvoiceItem, 0, len(units))
	total := 0.0
	for _, unit := range units {
		amount := float64(c.cfg.DailyRate(unit.Points))
		description := fmt.Sprintf("Daily rental for unit %s", unit.ID)
		if c.protectionApplies(u, unit) {
			amount += float64(c.cfg.ProtectionDailyRate(unit.Points))
			description += " (protected)"
		}
		total += amount
		items = append(items, InvoiceItem{
			UserID:      u.ID,
			UnitID:      unit.ID,
			Description: description,
			Amount:      amount,
			Currency:    "usd",
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInvoiceItemsInFlight)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := c.biller.CreateInvoiceItem(gctx, item); err != nil {
				return fmt.Errorf("%w: item for unit %s: %v", ErrInvoice, item.UnitID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, 0, err
	}

	invoiceID, err := c.biller.CreateInvoice(ctx, u.ID)
	if err != nil {
		return total, 0, fmt.Errorf("%w: invoice for user %s: %v", ErrInvoice, u.ID, err)
	}

	log.Printf("[Billing] Issued invoice %s for user %s (%d items, %.2f)", invoiceID, u.ID, len(items), total)
	return total, len(items), nil
}

// protectionApplies resolves the surcharge flag: the account-level plan
// wins, otherwise the cart-level flag captured at reservation time.
func (c *Coordinator) protectionApplies(u *readmodel.UserView, unit *readmodel.UnitView) bool {
	if u.ProtectionPlan {
		return true
	}
	if unit.ReservedCartID == "" {
		return false
	}
	raw, ok := c.readStore.Get(readmodel.CollectionCarts, unit.ReservedCartID)
	if !ok {
		return false
	}
	cartView, ok := raw.(*readmodel.CartView)
	return ok && cartView.Protection
}
