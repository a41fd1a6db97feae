package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/example/rental-engine/internal/command"
	"github.com/example/rental-engine/internal/domain/cart"
	"github.com/example/rental-engine/internal/domain/inventory"
	"github.com/example/rental-engine/internal/domain/shipment"
	"github.com/example/rental-engine/internal/domain/user"
	"github.com/example/rental-engine/internal/income"
	"github.com/example/rental-engine/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	inventorySvc *inventory.Service
	ledger       *income.Ledger
	orchestrator *shipment.Orchestrator
}

func NewHandlers(
	cmdHandler *command.Handler,
	queryHandler *query.Handler,
	inventorySvc *inventory.Service,
	ledger *income.Ledger,
	orchestrator *shipment.Orchestrator,
) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		inventorySvc: inventorySvc,
		ledger:       ledger,
		orchestrator: orchestrator,
	}
}

// User Handlers

func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var cmd command.RegisterUser
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.cmdHandler.RegisterUser(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/users/")
	u, ok := h.queryHandler.GetUser(id)
	if !ok {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (h *Handlers) AddAddress(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/users/"), "/addresses")

	var cmd command.AddAddress
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.UserID = userID

	addressID, err := h.cmdHandler.AddAddress(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"address_id": addressID})
}

func (h *Handlers) ChangePlan(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/users/"), "/plan")

	var cmd command.ChangePlan
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.UserID = userID

	delta, err := h.cmdHandler.ChangePlan(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{"prorated_delta": delta})
}

func (h *Handlers) SetAccountProtection(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/users/"), "/protection")

	var cmd command.SetAccountProtection
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.UserID = userID

	if err := h.cmdHandler.SetAccountProtection(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Protection updated"})
}

// ShipKit Handlers

func (h *Handlers) SubmitShipKit(w http.ResponseWriter, r *http.Request) {
	var cmd command.SubmitShipKit
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.OwnerID = getUserID(r, cmd.OwnerID)

	shipKitID, unitIDs, err := h.cmdHandler.SubmitShipKit(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"ship_kit_id": shipKitID,
		"unit_ids":    unitIDs,
	})
}

func (h *Handlers) ConfirmShipKit(w http.ResponseWriter, r *http.Request) {
	var cmd command.ConfirmShipKit
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.OwnerID = getUserID(r, cmd.OwnerID)

	if err := h.cmdHandler.ConfirmShipKit(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Ship kit confirmed"})
}

// Warehouse Handlers

func (h *Handlers) ReceiveUnit(w http.ResponseWriter, r *http.Request) {
	var cmd command.ReceiveUnit
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.cmdHandler.ReceiveUnit(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Unit received"})
}

func (h *Handlers) InspectUnit(w http.ResponseWriter, r *http.Request) {
	var cmd command.InspectUnit
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.cmdHandler.InspectUnit(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Inspection recorded"})
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r, "")
	c, err := h.cmdHandler.GetOpenCart(r.Context(), userID)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			respondJSON(w, http.StatusOK, map[string]any{"items": []any{}})
			return
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd := command.AddToCart{
		UserID:    getUserID(r, ""),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}
	if err := h.cmdHandler.AddToCart(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item added"})
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/cart/items/")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd := command.UpdateCartItem{
		UserID:    getUserID(r, ""),
		ProductID: productID,
		Quantity:  req.Quantity,
	}
	if err := h.cmdHandler.UpdateCartItem(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item updated"})
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/cart/items/")

	cmd := command.RemoveFromCart{
		UserID:    getUserID(r, ""),
		ProductID: productID,
	}
	if err := h.cmdHandler.RemoveFromCart(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}

func (h *Handlers) SetCartProtection(w http.ResponseWriter, r *http.Request) {
	var cmd command.SetCartProtection
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.UserID = getUserID(r, cmd.UserID)

	if err := h.cmdHandler.SetCartProtection(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Protection updated"})
}

func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var cmd command.ApplyCoupon
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.UserID = getUserID(r, cmd.UserID)

	if err := h.cmdHandler.ApplyCoupon(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Coupon applied"})
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartID       string `json:"cart_id"`
		ServiceLevel string `json:"service_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ServiceLevel == "" {
		req.ServiceLevel = "standard"
	}

	cmd := command.Checkout{
		CartID:       req.CartID,
		UserID:       getUserID(r, ""),
		ServiceLevel: req.ServiceLevel,
	}
	unitIDs, err := h.cmdHandler.Checkout(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reserved_unit_ids": unitIDs})
}

func (h *Handlers) CancelCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartID string `json:"cart_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd := command.CancelCart{
		CartID: req.CartID,
		UserID: getUserID(r, ""),
	}
	if err := h.cmdHandler.CancelCart(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart canceled"})
}

// Inventory Handlers

func (h *Handlers) GetUnit(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/units/")
	unit, ok := h.queryHandler.GetUnit(id)
	if !ok {
		http.Error(w, "Unit not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

func (h *Handlers) GetUnitIncome(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/units/"), "/income")

	unit, err := h.inventorySvc.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	history, err := h.ledger.ComputeHistory(r.Context(), unit, time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handlers) ReturnUnit(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/units/"), "/return")

	cmd := command.ReturnUnit{
		UnitID:   id,
		MemberID: getUserID(r, ""),
	}
	if err := h.cmdHandler.ReturnUnit(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Return started"})
}

func (h *Handlers) ReturnToOwner(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/units/"), "/return-to-owner")

	if err := h.cmdHandler.ReturnToOwner(r.Context(), command.ReturnToOwner{UnitID: id}); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Owner return started"})
}

func (h *Handlers) ReportLoss(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/units/"), "/loss")

	var cmd command.ReportLoss
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.UnitID = id

	if err := h.cmdHandler.ReportLoss(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Loss recorded"})
}

func (h *Handlers) GetStock(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/stock/")
	stock, ok := h.queryHandler.GetStock(productID)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// Shipment Handlers

func (h *Handlers) GetShipment(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/shipments/")
	sh, ok := h.queryHandler.GetShipment(id)
	if !ok {
		http.Error(w, "Shipment not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, sh)
}

func (h *Handlers) ListShipments(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r, "")
	respondJSON(w, http.StatusOK, h.queryHandler.ListShipmentsByUser(userID))
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, command.ErrValidation), errors.Is(err, shipment.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, command.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, command.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, inventory.ErrInvalidTransition), errors.Is(err, cart.ErrCartClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, inventory.ErrUnitNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, shipment.ErrShipmentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// getUserID reads the authenticated user from the X-User-ID header set by
// the gateway, falling back to the value supplied in the request body.
func getUserID(r *http.Request, fallback string) string {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return userID
	}
	return fallback
}
