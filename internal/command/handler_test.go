package command

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/rental-engine/internal/billing"
	"github.com/example/rental-engine/internal/domain/cart"
	"github.com/example/rental-engine/internal/domain/inventory"
	"github.com/example/rental-engine/internal/domain/shipment"
	"github.com/example/rental-engine/internal/domain/user"
	"github.com/example/rental-engine/internal/infrastructure/idempotency"
	"github.com/example/rental-engine/internal/infrastructure/kafka"
	"github.com/example/rental-engine/internal/infrastructure/store/mocks"
	"github.com/example/rental-engine/internal/integration/carrier"
	"github.com/example/rental-engine/internal/query"
	"github.com/example/rental-engine/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enqueuedJob struct {
	name    string
	payload any
}

type fakeEnqueuer struct {
	jobs []enqueuedJob
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, name string, payload any) error {
	f.jobs = append(f.jobs, enqueuedJob{name: name, payload: payload})
	return nil
}

type fakeBiller struct {
	subscriptionCalls []string // planIDs in call order
}

func (f *fakeBiller) CreateInvoiceItem(ctx context.Context, item billing.InvoiceItem) error {
	return nil
}

func (f *fakeBiller) CreateInvoice(ctx context.Context, userID string) (string, error) {
	return "inv-1", nil
}

func (f *fakeBiller) UpdateSubscription(ctx context.Context, userID, planID string, monthly float64) error {
	f.subscriptionCalls = append(f.subscriptionCalls, planID)
	return nil
}

type fakeCarrierAPI struct{}

func (f *fakeCarrierAPI) CreateAddress(ctx context.Context, addr carrier.Address) (*carrier.Address, error) {
	a := addr
	return &a, nil
}

func (f *fakeCarrierAPI) CreateParcel(ctx context.Context, parcel carrier.Parcel) (*carrier.Parcel, error) {
	p := parcel
	return &p, nil
}

func (f *fakeCarrierAPI) RateShipment(ctx context.Context, from, to *carrier.Address, parcel *carrier.Parcel) (string, []carrier.Rate, error) {
	return "carrier-ship-1", []carrier.Rate{{ID: "rate-1", Amount: 7.95, DeliveryDays: 4}}, nil
}

func (f *fakeCarrierAPI) BuyLabel(ctx context.Context, shipmentID, rateID string) (*carrier.Label, error) {
	return &carrier.Label{ShipmentID: shipmentID, TrackingCode: "TRK123", Amount: 7.95}, nil
}

type handlerFixture struct {
	handler    *Handler
	eventStore *mocks.MockEventStore
	readStore  *mocks.MockReadStore
	queue      *fakeEnqueuer
	inventory  *inventory.Service
	users      *user.Service
	carts      *cart.Service
	biller     *fakeBiller
}

func newTestHandler() *handlerFixture {
	eventStore := mocks.NewMockEventStore()
	readStore := mocks.NewMockReadStore()
	queue := &fakeEnqueuer{}
	biller := &fakeBiller{}

	userSvc := user.NewService(eventStore)
	cartSvc := cart.NewService(eventStore)
	inventorySvc := inventory.NewService(eventStore)
	queries := query.NewHandler(readStore)
	orchestrator := shipment.NewOrchestrator(eventStore, readStore, &fakeCarrierAPI{}, inventorySvc, userSvc, queue, shipment.Warehouse{
		ID:      "wh-1",
		Address: carrier.Address{Street1: "1 Warehouse Way", City: "Reno", State: "NV", Zip: "89502", Country: "US"},
	})

	return &handlerFixture{
		handler:    NewHandler(userSvc, cartSvc, inventorySvc, orchestrator, queries, queue, idempotency.NewMemoryGuard(), biller),
		eventStore: eventStore,
		readStore:  readStore,
		queue:      queue,
		inventory:  inventorySvc,
		users:      userSvc,
		carts:      cartSvc,
		biller:     biller,
	}
}

func registerMember(t *testing.T, f *handlerFixture, planLevel int, unlimited bool) string {
	t.Helper()
	u, err := f.users.Register(context.Background(), "member@example.com", "Pat Member", "plan-member", 49, planLevel, 9, unlimited)
	require.NoError(t, err)
	_, err = f.users.AddAddress(context.Background(), u.ID, "500 Main St", "Portland", "OR", "97201", true)
	require.NoError(t, err)
	return u.ID
}

// seedAvailableUnit writes an INWAREHOUSE unit into both the event store and
// the read model, the way the projector would have left it
func seedAvailableUnit(t *testing.T, f *handlerFixture, unitID, productID string, points int, registeredAt time.Time) {
	t.Helper()
	err := f.eventStore.AddEventAt(unitID, inventory.AggregateType, inventory.EventUnitRegistered, inventory.UnitRegistered{
		UnitID:       unitID,
		ProductID:    productID,
		OwnerID:      "owner-1",
		Points:       points,
		Condition:    inventory.ConditionGood,
		RegisteredAt: registeredAt,
	}, registeredAt)
	require.NoError(t, err)
	err = f.eventStore.AddEvent(unitID, inventory.AggregateType, inventory.EventUnitStatusChanged, inventory.UnitStatusChanged{
		UnitID:    unitID,
		From:      inventory.StatusNew,
		To:        inventory.StatusInWarehouse,
		ChangedAt: time.Now(),
	})
	require.NoError(t, err)

	f.readStore.Set(readmodel.CollectionUnits, unitID, &readmodel.UnitView{
		ID:        unitID,
		ProductID: productID,
		OwnerID:   "owner-1",
		Status:    string(inventory.StatusInWarehouse),
		Points:    points,
		CreatedAt: registeredAt,
	})
}

func openCartWithItem(t *testing.T, f *handlerFixture, userID, productID string, quantity, points int) *cart.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Open(ctx, userID, "", "plan-member")
	require.NoError(t, err)
	require.NoError(t, f.carts.AddItem(ctx, c.ID, productID, quantity, points))
	return c
}

// ============================================
// User Command Tests
// ============================================

func TestHandler_RegisterUser_Validation(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()

	_, err := f.handler.RegisterUser(ctx, RegisterUser{Name: "No Email", BillingHour: 9})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.handler.RegisterUser(ctx, RegisterUser{Email: "a@b.com", BillingHour: 24})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandler_ChangePlan_SyncsSubscription(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)

	_, err := f.handler.ChangePlan(ctx, ChangePlan{UserID: userID, PlanID: "plan-3", PlanMonthly: 79, PlanLevel: 3})

	require.NoError(t, err)
	assert.Equal(t, []string{"plan-3"}, f.biller.subscriptionCalls)
}

// ============================================
// Ship Kit Tests
// ============================================

func TestHandler_SubmitShipKit(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	ownerID := registerMember(t, f, 2, false)

	shipKitID, unitIDs, err := f.handler.SubmitShipKit(ctx, SubmitShipKit{
		OwnerID: ownerID,
		Items: []ShipKitItem{
			{ProductID: "prod-1", Points: 800, Condition: "GOOD"},
			{ProductID: "prod-2", Points: 2200, Condition: "NEW"},
		},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, shipKitID)
	require.Len(t, unitIDs, 2)

	unit, err := f.inventory.Get(ctx, unitIDs[0])
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusNew, unit.Status)
	assert.Equal(t, ownerID, unit.OwnerID)
}

func TestHandler_SubmitShipKit_PointsOutOfRange(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	ownerID := registerMember(t, f, 2, false)

	_, _, err := f.handler.SubmitShipKit(ctx, SubmitShipKit{
		OwnerID: ownerID,
		Items:   []ShipKitItem{{ProductID: "prod-1", Points: 9000, Condition: "GOOD"}},
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandler_ConfirmShipKit(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	ownerID := registerMember(t, f, 2, false)

	_, unitIDs, err := f.handler.SubmitShipKit(ctx, SubmitShipKit{
		OwnerID: ownerID,
		Items:   []ShipKitItem{{ProductID: "prod-1", Points: 800, Condition: "GOOD"}},
	})
	require.NoError(t, err)

	err = f.handler.ConfirmShipKit(ctx, ConfirmShipKit{ShipKitID: "kit-1", OwnerID: ownerID, UnitIDs: unitIDs})
	require.NoError(t, err)

	unit, err := f.inventory.Get(ctx, unitIDs[0])
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusAccepted, unit.Status)

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, kafka.JobShipKitConfirmed, f.queue.jobs[0].name)
}

func TestHandler_ReceiveUnit(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	ownerID := registerMember(t, f, 2, false)

	_, unitIDs, err := f.handler.SubmitShipKit(ctx, SubmitShipKit{
		OwnerID: ownerID,
		Items:   []ShipKitItem{{ProductID: "prod-1", Points: 800, Condition: "GOOD"}},
	})
	require.NoError(t, err)
	require.NoError(t, f.handler.ConfirmShipKit(ctx, ConfirmShipKit{ShipKitID: "kit-1", OwnerID: ownerID, UnitIDs: unitIDs}))

	err = f.handler.ReceiveUnit(ctx, ReceiveUnit{UnitID: unitIDs[0]})
	require.NoError(t, err)

	unit, err := f.inventory.Get(ctx, unitIDs[0])
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInspecting, unit.Status)
}

// ============================================
// Cart Tests
// ============================================

func TestHandler_AddToCart(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now().Add(-time.Hour))

	err := f.handler.AddToCart(ctx, AddToCart{UserID: userID, ProductID: "prod-1", Quantity: 1})

	require.NoError(t, err)
}

func TestHandler_AddToCart_NotEnoughUnits(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now().Add(-time.Hour))

	err := f.handler.AddToCart(ctx, AddToCart{UserID: userID, ProductID: "prod-1", Quantity: 3})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandler_GetOpenCart_ClampsToStock(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now().Add(-time.Hour))
	c := openCartWithItem(t, f, userID, "prod-1", 3, 800)
	f.readStore.Set(readmodel.CollectionCarts, c.ID, &readmodel.CartView{
		ID: c.ID, UserID: userID, Status: readmodel.CartStatusOpen,
	})

	healed, err := f.handler.GetOpenCart(ctx, userID)

	require.NoError(t, err)
	require.Contains(t, healed.Items, "prod-1")
	assert.Equal(t, 1, healed.Items["prod-1"].Quantity)
}

func TestHandler_GetOpenCart_DropsZeroStockLines(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	c := openCartWithItem(t, f, userID, "prod-gone", 1, 800)
	f.readStore.Set(readmodel.CollectionCarts, c.ID, &readmodel.CartView{
		ID: c.ID, UserID: userID, Status: readmodel.CartStatusOpen,
	})

	healed, err := f.handler.GetOpenCart(ctx, userID)

	require.NoError(t, err)
	assert.NotContains(t, healed.Items, "prod-gone")
}

func TestHandler_GetOpenCart_NoOpenCart(t *testing.T) {
	f := newTestHandler()

	_, err := f.handler.GetOpenCart(context.Background(), "user-none")

	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

// ============================================
// Checkout Tests
// ============================================

func TestHandler_Checkout(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	base := time.Now().Add(-3 * time.Hour)
	seedAvailableUnit(t, f, "unit-old", "prod-1", 800, base)
	seedAvailableUnit(t, f, "unit-new", "prod-1", 800, base.Add(time.Hour))
	c := openCartWithItem(t, f, userID, "prod-1", 1, 800)

	claimed, err := f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: userID, ServiceLevel: "standard"})

	require.NoError(t, err)
	// Oldest available unit is claimed first
	assert.Equal(t, []string{"unit-old"}, claimed)

	unit, err := f.inventory.Get(ctx, "unit-old")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusShipmentPrep, unit.Status)
	assert.Equal(t, userID, unit.ReservedForID)

	loaded, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Open())
	assert.Equal(t, []string{"unit-old"}, loaded.ReservedUnitIDs)

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, kafka.JobCreateShipment, f.queue.jobs[0].name)
	job := f.queue.jobs[0].payload.(ShipmentJob)
	assert.Equal(t, c.ID, job.CartID)
	assert.Equal(t, []string{"unit-old"}, job.UnitIDs)
}

func TestHandler_Checkout_WrongUser(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now())
	c := openCartWithItem(t, f, userID, "prod-1", 1, 800)

	_, err := f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: "someone-else", ServiceLevel: "standard"})

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHandler_Checkout_EmptyCart(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	c, err := f.carts.Open(ctx, userID, "", "plan-member")
	require.NoError(t, err)

	_, err = f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: userID, ServiceLevel: "standard"})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandler_Checkout_LevelCap(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 1, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 3000, time.Now())
	c := openCartWithItem(t, f, userID, "prod-1", 1, 3000)

	_, err := f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: userID, ServiceLevel: "standard"})

	assert.ErrorIs(t, err, ErrValidation)

	// Nothing was reserved
	unit, err := f.inventory.Get(ctx, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInWarehouse, unit.Status)
}

func TestHandler_Checkout_InsufficientStockReleasesClaims(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-a", "prod-a", 800, time.Now().Add(-time.Hour))
	// prod-b has a view entry but the unit was already claimed by another cart
	seedAvailableUnit(t, f, "unit-b", "prod-b", 900, time.Now().Add(-time.Hour))
	require.NoError(t, f.inventory.Claim(ctx, "unit-b", "other-member", "other-cart"))

	c := openCartWithItem(t, f, userID, "prod-a", 1, 800)
	require.NoError(t, f.carts.AddItem(ctx, c.ID, "prod-b", 1, 900))

	_, err := f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: userID, ServiceLevel: "standard"})

	assert.ErrorIs(t, err, ErrInsufficientStock)

	// The claim on prod-a was rolled back
	unit, err := f.inventory.Get(ctx, "unit-a")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInWarehouse, unit.Status)

	// And the cart stays open for another attempt
	loaded, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Open())
}

func TestHandler_Checkout_SkipsContestedUnit(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	base := time.Now().Add(-3 * time.Hour)
	seedAvailableUnit(t, f, "unit-contested", "prod-1", 800, base)
	seedAvailableUnit(t, f, "unit-free", "prod-1", 800, base.Add(time.Hour))
	// Another checkout won the oldest unit; the read model is still stale
	require.NoError(t, f.inventory.Claim(ctx, "unit-contested", "other-member", "other-cart"))

	c := openCartWithItem(t, f, userID, "prod-1", 1, 800)

	claimed, err := f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: userID, ServiceLevel: "standard"})

	require.NoError(t, err)
	assert.Equal(t, []string{"unit-free"}, claimed)
}

func TestHandler_Checkout_UnlimitedTierChange(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 3, true)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 3600, time.Now())
	c := openCartWithItem(t, f, userID, "prod-1", 1, 3600)

	_, err := f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: userID, ServiceLevel: "standard"})

	require.NoError(t, err)

	u, err := f.users.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "unlimited-3500", u.PlanID)
	assert.Equal(t, []string{"unlimited-3500"}, f.biller.subscriptionCalls)
}

func TestHandler_CancelCart(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now())
	c := openCartWithItem(t, f, userID, "prod-1", 1, 800)

	claimed, err := f.handler.Checkout(ctx, Checkout{CartID: c.ID, UserID: userID, ServiceLevel: "standard"})
	require.NoError(t, err)
	require.Equal(t, []string{"unit-1"}, claimed)

	// A checked-out cart cannot be canceled
	err = f.handler.CancelCart(ctx, CancelCart{CartID: c.ID, UserID: userID})
	assert.ErrorIs(t, err, cart.ErrCartClosed)
}

func TestHandler_CancelCart_OpenCart(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now())
	c := openCartWithItem(t, f, userID, "prod-1", 1, 800)

	err := f.handler.CancelCart(ctx, CancelCart{CartID: c.ID, UserID: userID})

	require.NoError(t, err)

	loaded, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Open())
}

func TestHandler_CancelCart_WrongUser(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now())
	c := openCartWithItem(t, f, userID, "prod-1", 1, 800)

	err := f.handler.CancelCart(ctx, CancelCart{CartID: c.ID, UserID: "someone-else"})

	assert.ErrorIs(t, err, ErrUnauthorized)
}

// ============================================
// Return Tests
// ============================================

func seedUnitWithMember(t *testing.T, f *handlerFixture, unitID, memberID string) {
	t.Helper()
	err := f.eventStore.AddEvent(unitID, inventory.AggregateType, inventory.EventUnitRegistered, inventory.UnitRegistered{
		UnitID:       unitID,
		ProductID:    "prod-1",
		OwnerID:      "owner-1",
		Points:       800,
		Condition:    inventory.ConditionGood,
		RegisteredAt: time.Now(),
	})
	require.NoError(t, err)
	err = f.eventStore.AddEvent(unitID, inventory.AggregateType, inventory.EventUnitStatusChanged, inventory.UnitStatusChanged{
		UnitID:    unitID,
		From:      inventory.StatusNew,
		To:        inventory.StatusWithMember,
		MemberID:  memberID,
		ChangedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestHandler_ReturnUnit(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	seedUnitWithMember(t, f, "unit-1", "member-1")

	err := f.handler.ReturnUnit(ctx, ReturnUnit{UnitID: "unit-1", MemberID: "member-1"})

	require.NoError(t, err)

	unit, err := f.inventory.Get(ctx, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusReturning, unit.Status)

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, kafka.JobCreateShipment, f.queue.jobs[0].name)
	job := f.queue.jobs[0].payload.(ShipmentJob)
	assert.Equal(t, string(shipment.DirectionInbound), job.Direction)
	assert.NotEmpty(t, job.RequestID)
}

func TestHandler_ReturnUnit_WrongMember(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	seedUnitWithMember(t, f, "unit-1", "member-1")

	err := f.handler.ReturnUnit(ctx, ReturnUnit{UnitID: "unit-1", MemberID: "member-2"})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, f.queue.jobs)
}

func TestHandler_ReturnToOwner_RequiresWarehousedUnit(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	seedUnitWithMember(t, f, "unit-1", "member-1")

	err := f.handler.ReturnToOwner(ctx, ReturnToOwner{UnitID: "unit-1"})

	assert.ErrorIs(t, err, inventory.ErrInvalidTransition)
	assert.Empty(t, f.queue.jobs)
}

func TestHandler_ReportLoss_RequiresReportID(t *testing.T) {
	f := newTestHandler()

	err := f.handler.ReportLoss(context.Background(), ReportLoss{UnitID: "unit-1"})

	assert.ErrorIs(t, err, ErrValidation)
}

// ============================================
// Shipment Job Tests
// ============================================

func shipmentJobMessage(t *testing.T, payload ShipmentJob) kafka.Job {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafka.Job{ID: "job-1", Name: kafka.JobCreateShipment, Payload: data, EnqueuedAt: time.Now()}
}

func TestHandler_HandleShipmentJob(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now())
	require.NoError(t, f.inventory.Claim(ctx, "unit-1", userID, "cart-1"))

	job := shipmentJobMessage(t, ShipmentJob{
		Direction:    string(shipment.DirectionOutbound),
		Type:         string(shipment.TypeAccess),
		ServiceLevel: "standard",
		UserID:       userID,
		CartID:       "cart-1",
		UnitIDs:      []string{"unit-1"},
	})

	require.NoError(t, f.handler.HandleShipmentJob(ctx, job))

	created := 0
	for _, call := range f.eventStore.AppendCalls {
		if call.EventType == shipment.EventShipmentCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestHandler_HandleShipmentJob_RedeliveryDropped(t *testing.T) {
	f := newTestHandler()
	ctx := context.Background()
	userID := registerMember(t, f, 2, false)
	seedAvailableUnit(t, f, "unit-1", "prod-1", 800, time.Now())
	require.NoError(t, f.inventory.Claim(ctx, "unit-1", userID, "cart-1"))

	job := shipmentJobMessage(t, ShipmentJob{
		Direction:    string(shipment.DirectionOutbound),
		Type:         string(shipment.TypeAccess),
		ServiceLevel: "standard",
		UserID:       userID,
		CartID:       "cart-1",
		UnitIDs:      []string{"unit-1"},
	})

	require.NoError(t, f.handler.HandleShipmentJob(ctx, job))
	require.NoError(t, f.handler.HandleShipmentJob(ctx, job))

	created := 0
	for _, call := range f.eventStore.AppendCalls {
		if call.EventType == shipment.EventShipmentCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}
