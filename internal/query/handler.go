package query

import (
	"sort"

	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/example/rental-engine/internal/readmodel"
)

// Handler serves the read side from projected view models
type Handler struct {
	readStore store.ReadStoreInterface
}

func NewHandler(readStore store.ReadStoreInterface) *Handler {
	return &Handler{readStore: readStore}
}

// Inventory
func (h *Handler) GetUnit(id string) (*readmodel.UnitView, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionUnits, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.UnitView), true
}

func (h *Handler) ListUnitsByOwner(ownerID string) []*readmodel.UnitView {
	return h.findUnits(func(u *readmodel.UnitView) bool {
		return u.OwnerID == ownerID
	})
}

func (h *Handler) ListUnitsByMember(memberID string) []*readmodel.UnitView {
	return h.findUnits(func(u *readmodel.UnitView) bool {
		return u.CurrentMemberID == memberID
	})
}

// AvailableUnits returns INWAREHOUSE units of a product in FIFO order of
// registration, which is the order checkout claims them in.
func (h *Handler) AvailableUnits(productID string) []*readmodel.UnitView {
	units := h.findUnits(func(u *readmodel.UnitView) bool {
		return u.ProductID == productID && u.Status == "INWAREHOUSE"
	})
	sort.Slice(units, func(i, j int) bool {
		return units[i].CreatedAt.Before(units[j].CreatedAt)
	})
	return units
}

func (h *Handler) findUnits(match func(*readmodel.UnitView) bool) []*readmodel.UnitView {
	items := h.readStore.Find(readmodel.CollectionUnits, func(item any) bool {
		u, ok := item.(*readmodel.UnitView)
		return ok && match(u)
	})
	units := make([]*readmodel.UnitView, 0, len(items))
	for _, item := range items {
		units = append(units, item.(*readmodel.UnitView))
	}
	return units
}

func (h *Handler) GetStock(productID string) (*readmodel.StockView, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionStock, productID)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.StockView), true
}

// Carts
func (h *Handler) GetCart(id string) (*readmodel.CartView, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionCarts, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.CartView), true
}

// OpenCartForUser returns the user's open cart, if any. Each user has at
// most one.
func (h *Handler) OpenCartForUser(userID string) (*readmodel.CartView, bool) {
	items := h.readStore.Find(readmodel.CollectionCarts, func(item any) bool {
		c, ok := item.(*readmodel.CartView)
		return ok && c.UserID == userID && c.Status == readmodel.CartStatusOpen
	})
	if len(items) == 0 {
		return nil, false
	}
	return items[0].(*readmodel.CartView), true
}

// Users
func (h *Handler) GetUser(id string) (*readmodel.UserView, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionUsers, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.UserView), true
}

// Shipments
func (h *Handler) GetShipment(id string) (*readmodel.ShipmentView, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionShipments, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.ShipmentView), true
}

func (h *Handler) ListShipmentsByUser(userID string) []*readmodel.ShipmentView {
	items := h.readStore.Find(readmodel.CollectionShipments, func(item any) bool {
		s, ok := item.(*readmodel.ShipmentView)
		return ok && s.UserID == userID
	})
	shipments := make([]*readmodel.ShipmentView, 0, len(items))
	for _, item := range items {
		shipments = append(shipments, item.(*readmodel.ShipmentView))
	}
	sort.Slice(shipments, func(i, j int) bool {
		return shipments[i].CreatedAt.After(shipments[j].CreatedAt)
	})
	return shipments
}
