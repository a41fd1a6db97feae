package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/rental-engine/internal/domain/cart"
	"github.com/example/rental-engine/internal/domain/inventory"
	"github.com/example/rental-engine/internal/email"
	"github.com/example/rental-engine/internal/infrastructure/kafka"
	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/example/rental-engine/internal/rate"
	"github.com/example/rental-engine/internal/readmodel"
)

// Handler processes events and jobs that result in member emails
type Handler struct {
	emailService *email.Service
	readStore    store.ReadStoreInterface
	cfg          rate.Config
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service, readStore store.ReadStoreInterface, cfg rate.Config) *Handler {
	return &Handler{
		emailService: emailSvc,
		readStore:    readStore,
		cfg:          cfg,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.EventType {
	case cart.EventCartCheckedOut:
		return h.handleCartCheckedOut(event)
	case inventory.EventUnitStatusChanged:
		return h.handleUnitStatusChanged(event)
	}

	return nil
}

func (h *Handler) handleCartCheckedOut(event store.Event) error {
	var e cart.CartCheckedOut
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal CartCheckedOut event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing CartCheckedOut for cart %s, user %s", e.CartID, e.UserID)

	userView, ok := h.userView(e.UserID)
	if !ok {
		return nil
	}

	if err := h.emailService.SendCheckoutConfirmation(userView.Email, e.CartID, h.rentalItems(e.UnitIDs)); err != nil {
		log.Printf("[Notifier] Failed to send checkout confirmation to %s: %v", userView.Email, err)
	}
	return nil
}

// handleUnitStatusChanged emails the member when the warehouse takes a
// returned unit back
func (h *Handler) handleUnitStatusChanged(event store.Event) error {
	var e inventory.UnitStatusChanged
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	if e.From != inventory.StatusReturning || e.To != inventory.StatusEnrouteWarehouse || e.MemberID == "" {
		return nil
	}

	userView, ok := h.userView(e.MemberID)
	if !ok {
		return nil
	}

	name := e.UnitID
	if raw, exists := h.readStore.Get(readmodel.CollectionUnits, e.UnitID); exists {
		if unit, ok := raw.(*readmodel.UnitView); ok {
			name = unit.ProductID
		}
	}

	if err := h.emailService.SendReturnReceived(userView.Email, name); err != nil {
		log.Printf("[Notifier] Failed to send return receipt to %s: %v", userView.Email, err)
	}
	return nil
}

// HandleDeliveryNotice consumes delivery-notice jobs enqueued by the
// shipment orchestrator
func (h *Handler) HandleDeliveryNotice(ctx context.Context, job kafka.Job) error {
	var payload struct {
		ShipmentID string   `json:"shipment_id"`
		UserID     string   `json:"user_id"`
		UnitIDs    []string `json:"unit_ids"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	log.Printf("[Notifier] Processing delivery notice for shipment %s, user %s", payload.ShipmentID, payload.UserID)

	userView, ok := h.userView(payload.UserID)
	if !ok {
		return nil
	}

	if err := h.emailService.SendDeliveryNotice(userView.Email, h.rentalItems(payload.UnitIDs)); err != nil {
		log.Printf("[Notifier] Failed to send delivery notice to %s: %v", userView.Email, err)
	}
	return nil
}

func (h *Handler) userView(userID string) (*readmodel.UserView, bool) {
	raw, exists := h.readStore.Get(readmodel.CollectionUsers, userID)
	if !exists {
		log.Printf("[Notifier] User not found: %s", userID)
		return nil, false
	}
	userView, ok := raw.(*readmodel.UserView)
	if !ok {
		log.Printf("[Notifier] Invalid user data type for user: %s", userID)
		return nil, false
	}
	return userView, true
}

func (h *Handler) rentalItems(unitIDs []string) []email.RentalItem {
	items := make([]email.RentalItem, 0, len(unitIDs))
	for _, unitID := range unitIDs {
		item := email.RentalItem{UnitID: unitID}
		if raw, exists := h.readStore.Get(readmodel.CollectionUnits, unitID); exists {
			if unit, ok := raw.(*readmodel.UnitView); ok {
				item.Name = unit.ProductID
				item.DailyRate = h.cfg.DailyRate(unit.Points)
			}
		}
		items = append(items, item)
	}
	return items
}
