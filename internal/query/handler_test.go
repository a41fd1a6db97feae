package query

import (
	"testing"
	"time"

	"github.com/example/rental-engine/internal/infrastructure/store/mocks"
	"github.com/example/rental-engine/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*Handler, *mocks.MockReadStore) {
	readStore := mocks.NewMockReadStore()
	return NewHandler(readStore), readStore
}

// ============================================
// Unit Query Tests
// ============================================

func TestHandler_GetUnit(t *testing.T) {
	handler, readStore := newTestHandler()

	readStore.Set(readmodel.CollectionUnits, "unit-1", &readmodel.UnitView{
		ID: "unit-1", ProductID: "prod-1", Status: "INWAREHOUSE",
	})

	unit, ok := handler.GetUnit("unit-1")
	require.True(t, ok)
	assert.Equal(t, "prod-1", unit.ProductID)

	_, ok = handler.GetUnit("unit-missing")
	assert.False(t, ok)
}

func TestHandler_ListUnitsByOwner(t *testing.T) {
	handler, readStore := newTestHandler()

	readStore.Set(readmodel.CollectionUnits, "unit-1", &readmodel.UnitView{ID: "unit-1", OwnerID: "owner-1"})
	readStore.Set(readmodel.CollectionUnits, "unit-2", &readmodel.UnitView{ID: "unit-2", OwnerID: "owner-2"})
	readStore.Set(readmodel.CollectionUnits, "unit-3", &readmodel.UnitView{ID: "unit-3", OwnerID: "owner-1"})

	units := handler.ListUnitsByOwner("owner-1")
	assert.Len(t, units, 2)
}

func TestHandler_ListUnitsByMember(t *testing.T) {
	handler, readStore := newTestHandler()

	readStore.Set(readmodel.CollectionUnits, "unit-1", &readmodel.UnitView{ID: "unit-1", CurrentMemberID: "member-1"})
	readStore.Set(readmodel.CollectionUnits, "unit-2", &readmodel.UnitView{ID: "unit-2", CurrentMemberID: ""})

	units := handler.ListUnitsByMember("member-1")
	require.Len(t, units, 1)
	assert.Equal(t, "unit-1", units[0].ID)
}

func TestHandler_AvailableUnits_FIFOOrder(t *testing.T) {
	handler, readStore := newTestHandler()
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	readStore.Set(readmodel.CollectionUnits, "unit-newer", &readmodel.UnitView{
		ID: "unit-newer", ProductID: "prod-1", Status: "INWAREHOUSE", CreatedAt: base.AddDate(0, 0, 5),
	})
	readStore.Set(readmodel.CollectionUnits, "unit-older", &readmodel.UnitView{
		ID: "unit-older", ProductID: "prod-1", Status: "INWAREHOUSE", CreatedAt: base,
	})
	readStore.Set(readmodel.CollectionUnits, "unit-reserved", &readmodel.UnitView{
		ID: "unit-reserved", ProductID: "prod-1", Status: "SHIPMENTPREP", CreatedAt: base.AddDate(0, 0, -5),
	})
	readStore.Set(readmodel.CollectionUnits, "unit-other-product", &readmodel.UnitView{
		ID: "unit-other-product", ProductID: "prod-2", Status: "INWAREHOUSE", CreatedAt: base,
	})

	units := handler.AvailableUnits("prod-1")
	require.Len(t, units, 2)
	assert.Equal(t, "unit-older", units[0].ID)
	assert.Equal(t, "unit-newer", units[1].ID)
}

func TestHandler_GetStock(t *testing.T) {
	handler, readStore := newTestHandler()

	readStore.Set(readmodel.CollectionStock, "prod-1", &readmodel.StockView{
		ProductID: "prod-1", Available: 3, Total: 5,
	})

	stock, ok := handler.GetStock("prod-1")
	require.True(t, ok)
	assert.Equal(t, 3, stock.Available)
	assert.Equal(t, 5, stock.Total)

	_, ok = handler.GetStock("prod-missing")
	assert.False(t, ok)
}

// ============================================
// Cart Query Tests
// ============================================

func TestHandler_OpenCartForUser(t *testing.T) {
	handler, readStore := newTestHandler()

	readStore.Set(readmodel.CollectionCarts, "cart-closed", &readmodel.CartView{
		ID: "cart-closed", UserID: "user-1", Status: readmodel.CartStatusCheckedOut,
	})
	readStore.Set(readmodel.CollectionCarts, "cart-open", &readmodel.CartView{
		ID: "cart-open", UserID: "user-1", Status: readmodel.CartStatusOpen,
	})

	c, ok := handler.OpenCartForUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "cart-open", c.ID)

	_, ok = handler.OpenCartForUser("user-2")
	assert.False(t, ok)
}

// ============================================
// Shipment Query Tests
// ============================================

func TestHandler_ListShipmentsByUser_NewestFirst(t *testing.T) {
	handler, readStore := newTestHandler()
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	readStore.Set(readmodel.CollectionShipments, "ship-old", &readmodel.ShipmentView{
		ID: "ship-old", UserID: "user-1", CreatedAt: base,
	})
	readStore.Set(readmodel.CollectionShipments, "ship-new", &readmodel.ShipmentView{
		ID: "ship-new", UserID: "user-1", CreatedAt: base.AddDate(0, 0, 10),
	})
	readStore.Set(readmodel.CollectionShipments, "ship-other", &readmodel.ShipmentView{
		ID: "ship-other", UserID: "user-2", CreatedAt: base,
	})

	shipments := handler.ListShipmentsByUser("user-1")
	require.Len(t, shipments, 2)
	assert.Equal(t, "ship-new", shipments[0].ID)
	assert.Equal(t, "ship-old", shipments[1].ID)
}

func TestHandler_GetShipment_NotFound(t *testing.T) {
	handler, _ := newTestHandler()

	_, ok := handler.GetShipment("ship-missing")
	assert.False(t, ok)
}
