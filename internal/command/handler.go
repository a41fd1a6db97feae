package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/example/rental-engine/internal/billing"
	"github.com/example/rental-engine/internal/domain/cart"
	"github.com/example/rental-engine/internal/domain/inventory"
	"github.com/example/rental-engine/internal/domain/shipment"
	"github.com/example/rental-engine/internal/domain/user"
	"github.com/example/rental-engine/internal/infrastructure/idempotency"
	"github.com/example/rental-engine/internal/infrastructure/kafka"
	"github.com/example/rental-engine/internal/query"
	"github.com/example/rental-engine/internal/rate"
	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ShipmentJob is the payload for shipment-creation jobs. Exactly one of
// CartID, RequestID, ShipKitID identifies why the shipment exists and keys
// the idempotency guard.
type ShipmentJob struct {
	Direction    string   `json:"direction"`
	Type         string   `json:"type"`
	ServiceLevel string   `json:"service_level"`
	UserID       string   `json:"user_id"`
	CartID       string   `json:"cart_id,omitempty"`
	RequestID    string   `json:"request_id,omitempty"`
	ShipKitID    string   `json:"ship_kit_id,omitempty"`
	UnitIDs      []string `json:"unit_ids"`
}

type Handler struct {
	userSvc      *user.Service
	cartSvc      *cart.Service
	inventorySvc *inventory.Service
	orchestrator *shipment.Orchestrator
	queries      *query.Handler
	queue        shipment.Enqueuer
	guard        idempotency.Guard
	biller       billing.Biller
}

func NewHandler(
	userSvc *user.Service,
	cartSvc *cart.Service,
	inventorySvc *inventory.Service,
	orchestrator *shipment.Orchestrator,
	queries *query.Handler,
	queue shipment.Enqueuer,
	guard idempotency.Guard,
	biller billing.Biller,
) *Handler {
	return &Handler{
		userSvc:      userSvc,
		cartSvc:      cartSvc,
		inventorySvc: inventorySvc,
		orchestrator: orchestrator,
		queries:      queries,
		queue:        queue,
		guard:        guard,
		biller:       biller,
	}
}

// Users

func (h *Handler) RegisterUser(ctx context.Context, cmd RegisterUser) (*user.User, error) {
	if cmd.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if cmd.BillingHour < 0 || cmd.BillingHour > 23 {
		return nil, fmt.Errorf("%w: billing hour must be 0-23", ErrValidation)
	}
	return h.userSvc.Register(ctx, cmd.Email, cmd.Name, cmd.PlanID, cmd.PlanMonthly, cmd.PlanLevel, cmd.BillingHour, cmd.Unlimited)
}

func (h *Handler) AddAddress(ctx context.Context, cmd AddAddress) (string, error) {
	if cmd.Street == "" || cmd.City == "" || cmd.Zip == "" {
		return "", fmt.Errorf("%w: incomplete address", ErrValidation)
	}
	return h.userSvc.AddAddress(ctx, cmd.UserID, cmd.Street, cmd.City, cmd.State, cmd.Zip, cmd.Primary)
}

func (h *Handler) ChangePlan(ctx context.Context, cmd ChangePlan) (float64, error) {
	delta, err := h.userSvc.ChangePlan(ctx, cmd.UserID, cmd.PlanID, cmd.PlanMonthly, cmd.PlanLevel, cmd.Unlimited)
	if err != nil {
		return 0, err
	}
	if h.biller != nil {
		if err := h.biller.UpdateSubscription(ctx, cmd.UserID, cmd.PlanID, cmd.PlanMonthly); err != nil {
			log.Printf("[Command] Failed to sync subscription for user %s: %v", cmd.UserID, err)
		}
	}
	return delta, nil
}

func (h *Handler) SetAccountProtection(ctx context.Context, cmd SetAccountProtection) error {
	return h.userSvc.SetProtection(ctx, cmd.UserID, cmd.Enabled)
}

// ShipKits

// SubmitShipKit registers one NEW inventory unit per submitted item and
// returns the ship kit id with the created unit ids.
func (h *Handler) SubmitShipKit(ctx context.Context, cmd SubmitShipKit) (string, []string, error) {
	if len(cmd.Items) == 0 {
		return "", nil, fmt.Errorf("%w: ship kit has no items", ErrValidation)
	}
	if _, err := h.userSvc.Get(ctx, cmd.OwnerID); err != nil {
		return "", nil, err
	}

	shipKitID := uuid.New().String()
	unitIDs := make([]string, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		if _, err := rate.ItemLevel(item.Points); err != nil {
			return "", nil, fmt.Errorf("%w: product %s: %v", ErrValidation, item.ProductID, err)
		}
		unit, err := h.inventorySvc.Register(ctx, item.ProductID, cmd.OwnerID, item.Points, inventory.Condition(item.Condition))
		if err != nil {
			return "", nil, err
		}
		unitIDs = append(unitIDs, unit.ID)
	}
	return shipKitID, unitIDs, nil
}

// ConfirmShipKit accepts the submitted units and enqueues the inbound
// intake shipment.
func (h *Handler) ConfirmShipKit(ctx context.Context, cmd ConfirmShipKit) error {
	for _, unitID := range cmd.UnitIDs {
		triggerID := "shipkit:" + cmd.ShipKitID + ":" + unitID
		if err := h.inventorySvc.Transition(ctx, unitID, inventory.StatusAccepted, inventory.TriggerShipKitConfirmed, triggerID, ""); err != nil {
			return err
		}
	}
	return h.queue.Enqueue(ctx, kafka.JobShipKitConfirmed, ShipmentJob{
		Direction:    string(shipment.DirectionInbound),
		Type:         string(shipment.TypeEarn),
		ServiceLevel: "standard",
		UserID:       cmd.OwnerID,
		ShipKitID:    cmd.ShipKitID,
		UnitIDs:      cmd.UnitIDs,
	})
}

// Warehouse

// ReceiveUnit records physical arrival of an intake unit and moves it to
// inspection.
func (h *Handler) ReceiveUnit(ctx context.Context, cmd ReceiveUnit) error {
	unit, err := h.inventorySvc.Get(ctx, cmd.UnitID)
	if err != nil {
		return err
	}
	if unit.Status == inventory.StatusAccepted {
		triggerID := "receive:" + cmd.UnitID
		if err := h.inventorySvc.Transition(ctx, cmd.UnitID, inventory.StatusEnrouteWarehouse, inventory.TriggerCarrierReceived, triggerID, ""); err != nil {
			return err
		}
	}
	triggerID := "intake:" + cmd.UnitID
	return h.inventorySvc.Transition(ctx, cmd.UnitID, inventory.StatusInspecting, inventory.TriggerCarrierDelivered, triggerID, "")
}

func (h *Handler) InspectUnit(ctx context.Context, cmd InspectUnit) error {
	return h.inventorySvc.Inspect(ctx, cmd.UnitID, cmd.Passed, inventory.Condition(cmd.Condition), cmd.BinLocation, cmd.MissingEssentials)
}

// Carts

// openCart returns the user's open cart, creating one lazily
func (h *Handler) openCart(ctx context.Context, userID string) (*cart.Cart, error) {
	if view, ok := h.queries.OpenCartForUser(userID); ok {
		return h.cartSvc.Get(ctx, view.ID)
	}
	u, err := h.userSvc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.cartSvc.Open(ctx, userID, "", u.PlanID)
}

// GetOpenCart returns the user's open cart with line quantities clamped to
// currently available stock. Lines whose product has no units left are
// dropped, so a cart viewed after stock moved elsewhere heals itself.
func (h *Handler) GetOpenCart(ctx context.Context, userID string) (*cart.Cart, error) {
	view, ok := h.queries.OpenCartForUser(userID)
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	c, err := h.cartSvc.Get(ctx, view.ID)
	if err != nil {
		return nil, err
	}

	changed := false
	for productID, item := range c.Items {
		available := len(h.queries.AvailableUnits(productID))
		switch {
		case available == 0:
			if err := h.cartSvc.RemoveItem(ctx, c.ID, productID); err != nil {
				return nil, err
			}
			changed = true
		case item.Quantity > available:
			if err := h.cartSvc.UpdateItem(ctx, c.ID, productID, available); err != nil {
				return nil, err
			}
			changed = true
		}
	}
	if !changed {
		return c, nil
	}
	return h.cartSvc.Get(ctx, c.ID)
}

func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	if cmd.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	available := h.queries.AvailableUnits(cmd.ProductID)
	if len(available) < cmd.Quantity {
		return fmt.Errorf("%w: product %s has %d units available", ErrValidation, cmd.ProductID, len(available))
	}
	points := available[0].Points

	c, err := h.openCart(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return h.cartSvc.AddItem(ctx, c.ID, cmd.ProductID, cmd.Quantity, points)
}

func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) error {
	c, err := h.openCart(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if cmd.Quantity <= 0 {
		return h.cartSvc.RemoveItem(ctx, c.ID, cmd.ProductID)
	}
	available := h.queries.AvailableUnits(cmd.ProductID)
	if len(available) < cmd.Quantity {
		return fmt.Errorf("%w: product %s has %d units available", ErrValidation, cmd.ProductID, len(available))
	}
	return h.cartSvc.UpdateItem(ctx, c.ID, cmd.ProductID, cmd.Quantity)
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	c, err := h.openCart(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return h.cartSvc.RemoveItem(ctx, c.ID, cmd.ProductID)
}

func (h *Handler) SetCartProtection(ctx context.Context, cmd SetCartProtection) error {
	c, err := h.openCart(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return h.cartSvc.SetProtection(ctx, c.ID, cmd.Enabled)
}

func (h *Handler) ApplyCoupon(ctx context.Context, cmd ApplyCoupon) error {
	c, err := h.openCart(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return h.cartSvc.ApplyCoupon(ctx, c.ID, cmd.Code)
}

// Checkout validates level caps, reserves concrete units FIFO with
// conditional claims, and enqueues outbound shipment creation. Reservation
// is all-or-nothing: a failed claim releases everything already claimed.
func (h *Handler) Checkout(ctx context.Context, cmd Checkout) ([]string, error) {
	c, err := h.cartSvc.Get(ctx, cmd.CartID)
	if err != nil {
		return nil, err
	}
	if c.UserID != cmd.UserID {
		return nil, ErrUnauthorized
	}
	if !c.Open() {
		return nil, cart.ErrCartClosed
	}
	if len(c.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	u, err := h.userSvc.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	productIDs := make([]string, 0, len(c.Items))
	totalPoints := 0
	for productID, item := range c.Items {
		level, err := rate.ItemLevel(item.Points)
		if err != nil {
			return nil, fmt.Errorf("%w: product %s: %v", ErrValidation, productID, err)
		}
		if level > u.PlanLevel {
			return nil, fmt.Errorf("%w: product %s requires membership level %d", ErrValidation, productID, level)
		}
		productIDs = append(productIDs, productID)
		totalPoints += item.Points * item.Quantity
	}
	sort.Strings(productIDs)

	claimed, err := h.claimUnits(ctx, c, productIDs)
	if err != nil {
		return nil, err
	}

	h.updateSubscription(ctx, u, totalPoints)

	if err := h.cartSvc.MarkCheckedOut(ctx, c.ID, cmd.ServiceLevel, claimed); err != nil {
		h.releaseUnits(ctx, claimed, c.ID)
		return nil, err
	}

	job := ShipmentJob{
		Direction:    string(shipment.DirectionOutbound),
		Type:         string(shipment.TypeAccess),
		ServiceLevel: cmd.ServiceLevel,
		UserID:       cmd.UserID,
		CartID:       c.ID,
		UnitIDs:      claimed,
	}
	if err := h.queue.Enqueue(ctx, kafka.JobCreateShipment, job); err != nil {
		log.Printf("[Command] Failed to enqueue shipment for cart %s: %v", c.ID, err)
	}
	return claimed, nil
}

// claimUnits reserves inventory FIFO per line item. Conditional claims make
// concurrent checkouts race-safe: a unit lost to another cart is skipped and
// the next candidate is tried.
func (h *Handler) claimUnits(ctx context.Context, c *cart.Cart, productIDs []string) ([]string, error) {
	var claimed []string
	for _, productID := range productIDs {
		item := c.Items[productID]
		needed := item.Quantity

		for _, candidate := range h.queries.AvailableUnits(productID) {
			if needed == 0 {
				break
			}
			err := h.inventorySvc.Claim(ctx, candidate.ID, c.UserID, c.ID)
			if errors.Is(err, inventory.ErrUnitClaimed) || errors.Is(err, inventory.ErrInvalidTransition) {
				continue
			}
			if err != nil {
				h.releaseUnits(ctx, claimed, c.ID)
				return nil, err
			}
			claimed = append(claimed, candidate.ID)
			needed--
		}

		if needed > 0 {
			h.releaseUnits(ctx, claimed, c.ID)
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
		}
	}
	return claimed, nil
}

func (h *Handler) releaseUnits(ctx context.Context, unitIDs []string, cartID string) {
	for _, unitID := range unitIDs {
		if err := h.inventorySvc.Release(ctx, unitID, cartID); err != nil {
			log.Printf("[Command] Failed to release unit %s for cart %s: %v", unitID, cartID, err)
		}
	}
}

// updateSubscription moves an unlimited member to the tier matching their
// requested point total. Provider sync failures are logged and retried on
// the next plan change, never failing the checkout.
func (h *Handler) updateSubscription(ctx context.Context, u *user.User, totalPoints int) {
	if !u.Unlimited {
		return
	}
	tier := rate.UnlimitedTier(totalPoints)
	planID := fmt.Sprintf("unlimited-%d", tier)
	if planID == u.PlanID {
		return
	}
	if _, err := h.userSvc.ChangePlan(ctx, u.ID, planID, u.PlanMonthly, u.PlanLevel, true); err != nil {
		log.Printf("[Command] Failed to record tier change for user %s: %v", u.ID, err)
		return
	}
	if h.biller != nil {
		if err := h.biller.UpdateSubscription(ctx, u.ID, planID, u.PlanMonthly); err != nil {
			log.Printf("[Command] Failed to sync subscription for user %s: %v", u.ID, err)
		}
	}
}

// CancelCart releases reserved units back to the warehouse and marks the
// cart canceled.
func (h *Handler) CancelCart(ctx context.Context, cmd CancelCart) error {
	c, err := h.cartSvc.Get(ctx, cmd.CartID)
	if err != nil {
		return err
	}
	if c.UserID != cmd.UserID {
		return ErrUnauthorized
	}
	if !c.Open() {
		return cart.ErrCartClosed
	}

	h.releaseUnits(ctx, c.ReservedUnitIDs, c.ID)
	return h.cartSvc.MarkCanceled(ctx, c.ID, c.ReservedUnitIDs)
}

// Inventory

// ReturnUnit starts a member-initiated return. Invalid transitions surface
// to the caller since this is an explicit user action.
func (h *Handler) ReturnUnit(ctx context.Context, cmd ReturnUnit) error {
	unit, err := h.inventorySvc.Get(ctx, cmd.UnitID)
	if err != nil {
		return err
	}
	if unit.CurrentMemberID != cmd.MemberID {
		return ErrUnauthorized
	}

	requestID := uuid.New().String()
	triggerID := "return:" + requestID
	if err := h.inventorySvc.Transition(ctx, cmd.UnitID, inventory.StatusReturning, inventory.TriggerMemberReturn, triggerID, cmd.MemberID); err != nil {
		return err
	}

	return h.queue.Enqueue(ctx, kafka.JobCreateShipment, ShipmentJob{
		Direction:    string(shipment.DirectionInbound),
		Type:         string(shipment.TypeAccess),
		ServiceLevel: "standard",
		UserID:       cmd.MemberID,
		RequestID:    requestID,
		UnitIDs:      []string{cmd.UnitID},
	})
}

// ReturnToOwner sends a warehoused unit back to its contributor
func (h *Handler) ReturnToOwner(ctx context.Context, cmd ReturnToOwner) error {
	unit, err := h.inventorySvc.Get(ctx, cmd.UnitID)
	if err != nil {
		return err
	}
	if unit.Status != inventory.StatusInWarehouse && unit.Status != inventory.StatusOutOfService {
		return fmt.Errorf("%w: unit %s is %s", inventory.ErrInvalidTransition, cmd.UnitID, unit.Status)
	}

	return h.queue.Enqueue(ctx, kafka.JobCreateShipment, ShipmentJob{
		Direction:    string(shipment.DirectionOutbound),
		Type:         string(shipment.TypeReturn),
		ServiceLevel: "standard",
		UserID:       unit.OwnerID,
		RequestID:    uuid.New().String(),
		UnitIDs:      []string{cmd.UnitID},
	})
}

func (h *Handler) ReportLoss(ctx context.Context, cmd ReportLoss) error {
	if cmd.ReportID == "" {
		return fmt.Errorf("%w: report id is required", ErrValidation)
	}
	return h.inventorySvc.ReportLoss(ctx, cmd.UnitID, cmd.Stolen, cmd.ReportID)
}

// Job handlers

// HandleShipmentJob consumes shipment-creation jobs. Delivery is
// at-least-once; the guard keyed by the business reference drops replays.
func (h *Handler) HandleShipmentJob(ctx context.Context, job kafka.Job) error {
	var payload ShipmentJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	ref := payload.CartID
	if ref == "" {
		ref = payload.RequestID
	}
	if ref == "" {
		ref = payload.ShipKitID
	}
	first, err := h.guard.First(ctx, "create-shipment:"+ref)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	sh, err := h.orchestrator.CreateShipment(ctx, shipment.CreateShipmentParams{
		Direction:    shipment.Direction(payload.Direction),
		Type:         shipment.Type(payload.Type),
		ServiceLevel: payload.ServiceLevel,
		UserID:       payload.UserID,
		CartID:       payload.CartID,
		RequestID:    payload.RequestID,
		ShipKitID:    payload.ShipKitID,
		UnitIDs:      payload.UnitIDs,
	})
	if err != nil {
		return err
	}
	return h.orchestrator.PurchaseLabel(ctx, sh.ID)
}
