package user

import (
	"context"
	"testing"
	"time"

	"github.com/example/rental-engine/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

// ============================================
// Primary Address Tests
// ============================================

func TestUser_PrimaryAddress(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name      string
		addresses []Address
		expected  string
		found     bool
	}{
		{"no addresses", nil, "", false},
		{
			"single non-primary",
			[]Address{{ID: "a", CreatedAt: base}},
			"a", true,
		},
		{
			"primary wins over newer non-primary",
			[]Address{
				{ID: "a", Primary: true, CreatedAt: base},
				{ID: "b", CreatedAt: base.Add(time.Hour)},
			},
			"a", true,
		},
		{
			"newest primary wins",
			[]Address{
				{ID: "a", Primary: true, CreatedAt: base},
				{ID: "b", Primary: true, CreatedAt: base.Add(time.Hour)},
			},
			"b", true,
		},
		{
			"no primary falls back to newest",
			[]Address{
				{ID: "a", CreatedAt: base},
				{ID: "b", CreatedAt: base.Add(time.Hour)},
			},
			"b", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Addresses: tt.addresses}
			addr, found := u.PrimaryAddress()
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.expected, addr.ID)
			}
		})
	}
}

// ============================================
// Registration Tests
// ============================================

func TestService_Register(t *testing.T) {
	service, eventStore := newTestUserService()
	ctx := context.Background()

	u, err := service.Register(ctx, "pat@example.com", "Pat", "plan-2", 49, 2, 9, false)

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "pat@example.com", u.Email)
	assert.Equal(t, 2, u.PlanLevel)
	assert.Equal(t, 9, u.BillingHour)
	assert.Equal(t, 0, u.BillingAnchorDay)

	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventUserRegistered, eventStore.AppendCalls[0].EventType)
}

func TestService_Get_NotFound(t *testing.T) {
	service, _ := newTestUserService()

	_, err := service.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_AddAddress(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()

	u, err := service.Register(ctx, "pat@example.com", "Pat", "plan-2", 49, 2, 9, false)
	require.NoError(t, err)

	addrID, err := service.AddAddress(ctx, u.ID, "500 Main St", "Portland", "OR", "97201", true)
	require.NoError(t, err)
	assert.NotEmpty(t, addrID)

	loaded, err := service.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Addresses, 1)
	assert.Equal(t, addrID, loaded.Addresses[0].ID)
	assert.True(t, loaded.Addresses[0].Primary)
}

// ============================================
// Plan Change Tests
// ============================================

func TestService_ChangePlan_NoAnchorNoProration(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()

	u, err := service.Register(ctx, "pat@example.com", "Pat", "plan-2", 49, 2, 9, false)
	require.NoError(t, err)

	delta, err := service.ChangePlan(ctx, u.ID, "plan-3", 79, 3, false)

	require.NoError(t, err)
	assert.Equal(t, 0.0, delta)

	loaded, err := service.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "plan-3", loaded.PlanID)
	assert.Equal(t, 79.0, loaded.PlanMonthly)
	assert.Equal(t, 3, loaded.PlanLevel)
}

func TestService_ChangePlan_ProratesFromAnchor(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()

	u, err := service.Register(ctx, "pat@example.com", "Pat", "plan-2", 49, 2, 9, false)
	require.NoError(t, err)
	require.NoError(t, service.SetBillingAnchor(ctx, u.ID, 15))

	delta, err := service.ChangePlan(ctx, u.ID, "plan-3", 79, 3, false)

	require.NoError(t, err)
	// An upgrade mid-cycle charges a positive remainder (zero only on the
	// anchor day itself)
	assert.GreaterOrEqual(t, delta, 0.0)
	cycleCap := 79.0 - 49.0
	assert.LessOrEqual(t, delta, cycleCap)
}

// ============================================
// Billing Anchor Tests
// ============================================

func TestService_SetBillingAnchor(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()

	u, err := service.Register(ctx, "pat@example.com", "Pat", "plan-2", 49, 2, 9, false)
	require.NoError(t, err)

	require.NoError(t, service.SetBillingAnchor(ctx, u.ID, 17))

	loaded, err := service.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, loaded.BillingAnchorDay)
}

func TestService_SetBillingAnchor_OnlyFirstDeliveryCounts(t *testing.T) {
	service, eventStore := newTestUserService()
	ctx := context.Background()

	u, err := service.Register(ctx, "pat@example.com", "Pat", "plan-2", 49, 2, 9, false)
	require.NoError(t, err)

	require.NoError(t, service.SetBillingAnchor(ctx, u.ID, 17))
	eventStore.AppendCalls = nil

	// A later delivery must not move the cycle
	require.NoError(t, service.SetBillingAnchor(ctx, u.ID, 23))

	assert.Empty(t, eventStore.AppendCalls)
	loaded, err := service.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, loaded.BillingAnchorDay)
}

// ============================================
// Protection Tests
// ============================================

func TestService_SetProtection(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()

	u, err := service.Register(ctx, "pat@example.com", "Pat", "plan-2", 49, 2, 9, false)
	require.NoError(t, err)

	require.NoError(t, service.SetProtection(ctx, u.ID, true))

	loaded, err := service.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, loaded.ProtectionPlan)

	require.NoError(t, service.SetProtection(ctx, u.ID, false))

	loaded, err = service.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, loaded.ProtectionPlan)
}
