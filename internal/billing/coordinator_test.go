package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/rental-engine/internal/infrastructure/store/mocks"
	"github.com/example/rental-engine/internal/rate"
	"github.com/example/rental-engine/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBiller struct {
	mu            sync.Mutex
	items         []InvoiceItem
	invoices      []string // userIDs in call order
	itemErrFor    string   // userID whose invoice items fail
	invoiceErrFor string   // userID whose invoice creation fails
}

func (f *fakeBiller) CreateInvoiceItem(ctx context.Context, item InvoiceItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.UserID == f.itemErrFor {
		return errors.New("provider rejected item")
	}
	f.items = append(f.items, item)
	return nil
}

func (f *fakeBiller) CreateInvoice(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userID == f.invoiceErrFor {
		return "", errors.New("provider rejected invoice")
	}
	f.invoices = append(f.invoices, userID)
	return "inv-" + userID, nil
}

func (f *fakeBiller) UpdateSubscription(ctx context.Context, userID, planID string, monthly float64) error {
	return nil
}

func (f *fakeBiller) itemsForUser(userID string) []InvoiceItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []InvoiceItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out
}

func newTestCoordinator() (*Coordinator, *mocks.MockReadStore, *fakeBiller) {
	readStore := mocks.NewMockReadStore()
	biller := &fakeBiller{}
	return NewCoordinator(readStore, biller, rate.DefaultConfig()), readStore, biller
}

func seedUser(rs *mocks.MockReadStore, userID string, hour int, protection, unlimited bool) {
	rs.Set(readmodel.CollectionUsers, userID, &readmodel.UserView{
		ID:             userID,
		Email:          userID + "@example.com",
		BillingHour:    hour,
		ProtectionPlan: protection,
		Unlimited:      unlimited,
		CreatedAt:      time.Now(),
	})
}

func seedCirculatingUnit(rs *mocks.MockReadStore, unitID, memberID string, points int, cartID string) {
	rs.Set(readmodel.CollectionUnits, unitID, &readmodel.UnitView{
		ID:              unitID,
		ProductID:       "prod-1",
		OwnerID:         "owner-1",
		Status:          "WITHMEMBER",
		Points:          points,
		CurrentMemberID: memberID,
		ReservedCartID:  cartID,
		CreatedAt:       time.Now(),
	})
}

// ============================================
// Run Hour Tests
// ============================================

func TestCoordinator_RunHour_BillsMatchingUsers(t *testing.T) {
	c, rs, biller := newTestCoordinator()
	ctx := context.Background()

	seedUser(rs, "user-1", 9, false, false)
	seedUser(rs, "user-other-hour", 14, false, false)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "")
	seedCirculatingUnit(rs, "unit-2", "user-1", 500, "")
	seedCirculatingUnit(rs, "unit-3", "user-other-hour", 1000, "")

	summary, err := c.RunHour(ctx, 9)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Members)
	assert.Equal(t, 2, summary.Items)
	// Daily rates: 1000 points -> 14, 500 points -> 8
	assert.Equal(t, 22.0, summary.Billed)
	assert.Equal(t, 0.0, summary.Failed)

	assert.Len(t, biller.itemsForUser("user-1"), 2)
	assert.Empty(t, biller.itemsForUser("user-other-hour"))
	assert.Equal(t, []string{"user-1"}, biller.invoices)
}

func TestCoordinator_RunHour_SkipsUsersWithNothingOut(t *testing.T) {
	c, rs, biller := newTestCoordinator()

	seedUser(rs, "user-1", 9, false, false)

	summary, err := c.RunHour(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Members)
	assert.Empty(t, biller.invoices)
}

func TestCoordinator_RunHour_UnlimitedBilledBySubscription(t *testing.T) {
	c, rs, biller := newTestCoordinator()

	seedUser(rs, "user-1", 9, false, true)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "")

	summary, err := c.RunHour(context.Background(), 9)

	require.NoError(t, err)
	// Counted as an active member, but no per-unit charges
	assert.Equal(t, 1, summary.Members)
	assert.Equal(t, 0, summary.Items)
	assert.Equal(t, 0.0, summary.Billed)
	assert.Empty(t, biller.invoices)
}

func TestCoordinator_RunHour_FailureIsolation(t *testing.T) {
	c, rs, biller := newTestCoordinator()

	seedUser(rs, "user-bad", 9, false, false)
	seedUser(rs, "user-good", 9, false, false)
	seedCirculatingUnit(rs, "unit-bad", "user-bad", 1000, "")
	seedCirculatingUnit(rs, "unit-good", "user-good", 1000, "")
	biller.itemErrFor = "user-bad"

	summary, err := c.RunHour(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Members)
	assert.Equal(t, 14.0, summary.Billed)
	assert.Equal(t, 14.0, summary.Failed)
	assert.Equal(t, 1, summary.Items)
	assert.Equal(t, []string{"user-good"}, biller.invoices)
}

func TestCoordinator_RunHour_InvoiceFailureCountsWholeUser(t *testing.T) {
	c, rs, biller := newTestCoordinator()

	seedUser(rs, "user-1", 9, false, false)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "")
	seedCirculatingUnit(rs, "unit-2", "user-1", 500, "")
	biller.invoiceErrFor = "user-1"

	summary, err := c.RunHour(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.Billed)
	assert.Equal(t, 22.0, summary.Failed)
	assert.Equal(t, 0, summary.Items)
	assert.Empty(t, biller.invoices)
}

// ============================================
// Protection Surcharge Tests
// ============================================

func TestCoordinator_ProtectionFromAccountPlan(t *testing.T) {
	c, rs, biller := newTestCoordinator()

	seedUser(rs, "user-1", 9, true, false)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "")

	summary, err := c.RunHour(context.Background(), 9)

	require.NoError(t, err)
	// 14 daily rate + 2 protection surcharge
	assert.Equal(t, 16.0, summary.Billed)

	items := biller.itemsForUser("user-1")
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Description, "(protected)")
}

func TestCoordinator_ProtectionFromCartFlag(t *testing.T) {
	c, rs, biller := newTestCoordinator()

	seedUser(rs, "user-1", 9, false, false)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "cart-1")
	rs.Set(readmodel.CollectionCarts, "cart-1", &readmodel.CartView{
		ID:         "cart-1",
		UserID:     "user-1",
		Status:     readmodel.CartStatusCheckedOut,
		Protection: true,
	})

	summary, err := c.RunHour(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, 16.0, summary.Billed)

	items := biller.itemsForUser("user-1")
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Description, "(protected)")
}

func TestCoordinator_NoProtectionWithoutFlags(t *testing.T) {
	c, rs, biller := newTestCoordinator()

	seedUser(rs, "user-1", 9, false, false)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "cart-1")
	rs.Set(readmodel.CollectionCarts, "cart-1", &readmodel.CartView{
		ID:     "cart-1",
		UserID: "user-1",
		Status: readmodel.CartStatusCheckedOut,
	})

	summary, err := c.RunHour(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, 14.0, summary.Billed)

	items := biller.itemsForUser("user-1")
	require.Len(t, items, 1)
	assert.NotContains(t, items[0].Description, "(protected)")
}
