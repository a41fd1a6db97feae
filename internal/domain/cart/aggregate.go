package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/rental-engine/internal/domain/aggregate"
	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "Cart"

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartClosed      = errors.New("cart is completed or canceled")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrItemNotInCart   = errors.New("item not in cart")
)

type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Points    int    `json:"points"`
}

// Cart is a member's in-progress rental selection. It becomes immutable once
// checked out or canceled.
type Cart struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	AddressID       string          `json:"address_id"`
	PlanID          string          `json:"plan_id"`
	Protection      bool            `json:"protection"`
	ServiceLevel    string          `json:"service_level"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	Items           map[string]Item `json:"items"` // productID -> item
	ReservedUnitIDs []string        `json:"reserved_unit_ids,omitempty"`
	OpenedAt        time.Time       `json:"opened_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CanceledAt      *time.Time      `json:"canceled_at,omitempty"`
	Version         int             `json:"version"`
}

// Open reports whether the cart can still be mutated
func (c *Cart) Open() bool {
	return c.CompletedAt == nil && c.CanceledAt == nil
}

// Aggregate interface implementation
func (c *Cart) GetID() string    { return c.ID }
func (c *Cart) GetVersion() int  { return c.Version }
func (c *Cart) SetVersion(v int) { c.Version = v }

// ApplyEvent applies a single event to the cart state
func (c *Cart) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventCartOpened:
		var data CartOpened
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ID = data.CartID
		c.UserID = data.UserID
		c.AddressID = data.AddressID
		c.PlanID = data.PlanID
		c.Items = make(map[string]Item)
		c.OpenedAt = data.OpenedAt
	case EventItemAdded:
		var data ItemAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if c.Items == nil {
			c.Items = make(map[string]Item)
		}
		if existing, ok := c.Items[data.ProductID]; ok {
			existing.Quantity += data.Quantity
			c.Items[data.ProductID] = existing
		} else {
			c.Items[data.ProductID] = Item{
				ProductID: data.ProductID,
				Quantity:  data.Quantity,
				Points:    data.Points,
			}
		}
	case EventItemUpdated:
		var data ItemUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if existing, ok := c.Items[data.ProductID]; ok {
			existing.Quantity = data.Quantity
			c.Items[data.ProductID] = existing
		}
	case EventItemRemoved:
		var data ItemRemoved
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		delete(c.Items, data.ProductID)
	case EventProtectionSet:
		var data ProtectionSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.Protection = data.Enabled
	case EventCouponApplied:
		var data CouponApplied
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.CouponCode = data.Code
	case EventCartCheckedOut:
		var data CartCheckedOut
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ReservedUnitIDs = data.UnitIDs
		c.ServiceLevel = data.ServiceLevel
		t := data.CheckedOutAt
		c.CompletedAt = &t
	case EventCartCanceled:
		var data CartCanceled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		t := data.CanceledAt
		c.CanceledAt = &t
	}
	c.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get loads a cart by replaying events
func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	c, found, err := aggregate.Load(ctx, s.eventStore, cartID, func() *Cart {
		return &Cart{Items: make(map[string]Item)}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCartNotFound
	}
	return c, nil
}

// Open creates a fresh cart for a user. Single-open-cart is enforced one
// level up by the command handler, which consults the open-cart read model
// before calling Open.
func (s *Service) Open(ctx context.Context, userID, addressID, planID string) (*Cart, error) {
	cartID := uuid.New().String()
	now := time.Now()

	event := CartOpened{
		CartID:    cartID,
		UserID:    userID,
		AddressID: addressID,
		PlanID:    planID,
		OpenedAt:  now,
	}

	storedEvent, err := s.eventStore.Append(ctx, cartID, AggregateType, EventCartOpened, event)
	if err != nil {
		return nil, err
	}

	c := &Cart{
		ID:        cartID,
		UserID:    userID,
		AddressID: addressID,
		PlanID:    planID,
		Items:     make(map[string]Item),
		OpenedAt:  now,
	}
	if storedEvent != nil {
		c.Version = storedEvent.Version
	}
	return c, nil
}

// AddItem adds quantity of a product to an open cart
func (s *Service) AddItem(ctx context.Context, cartID, productID string, quantity, points int) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c, err := s.mutableCart(ctx, cartID)
	if err != nil {
		return err
	}

	event := ItemAdded{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		Points:    points,
		AddedAt:   time.Now(),
	}
	return s.appendAndSnapshot(ctx, c, EventItemAdded, event)
}

// UpdateItem sets the quantity of a product already in the cart
func (s *Service) UpdateItem(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c, err := s.mutableCart(ctx, cartID)
	if err != nil {
		return err
	}
	if _, ok := c.Items[productID]; !ok {
		return ErrItemNotInCart
	}

	event := ItemUpdated{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		UpdatedAt: time.Now(),
	}
	return s.appendAndSnapshot(ctx, c, EventItemUpdated, event)
}

// RemoveItem drops a product from the cart
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) error {
	c, err := s.mutableCart(ctx, cartID)
	if err != nil {
		return err
	}
	if _, ok := c.Items[productID]; !ok {
		return ErrItemNotInCart
	}

	event := ItemRemoved{
		CartID:    cartID,
		ProductID: productID,
		RemovedAt: time.Now(),
	}
	return s.appendAndSnapshot(ctx, c, EventItemRemoved, event)
}

// SetProtection toggles the cart-level protection plan flag
func (s *Service) SetProtection(ctx context.Context, cartID string, enabled bool) error {
	c, err := s.mutableCart(ctx, cartID)
	if err != nil {
		return err
	}
	return s.appendAndSnapshot(ctx, c, EventProtectionSet, ProtectionSet{CartID: cartID, Enabled: enabled})
}

// ApplyCoupon records a coupon code on the cart
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) error {
	c, err := s.mutableCart(ctx, cartID)
	if err != nil {
		return err
	}
	return s.appendAndSnapshot(ctx, c, EventCouponApplied, CouponApplied{CartID: cartID, Code: code})
}

// MarkCheckedOut freezes the cart with its reserved units. Called by the
// command handler only after every unit claim succeeded.
func (s *Service) MarkCheckedOut(ctx context.Context, cartID, serviceLevel string, unitIDs []string) error {
	c, err := s.mutableCart(ctx, cartID)
	if err != nil {
		return err
	}

	event := CartCheckedOut{
		CartID:       cartID,
		UserID:       c.UserID,
		UnitIDs:      unitIDs,
		ServiceLevel: serviceLevel,
		CheckedOutAt: time.Now(),
	}
	return s.appendAndSnapshot(ctx, c, EventCartCheckedOut, event)
}

// MarkCanceled closes the cart after its reservations were released
func (s *Service) MarkCanceled(ctx context.Context, cartID string, unitIDs []string) error {
	c, err := s.mutableCart(ctx, cartID)
	if err != nil {
		return err
	}

	event := CartCanceled{
		CartID:     cartID,
		UnitIDs:    unitIDs,
		CanceledAt: time.Now(),
	}
	return s.appendAndSnapshot(ctx, c, EventCartCanceled, event)
}

func (s *Service) mutableCart(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !c.Open() {
		return nil, ErrCartClosed
	}
	return c, nil
}

func (s *Service) appendAndSnapshot(ctx context.Context, c *Cart, eventType string, data any) error {
	storedEvent, err := s.eventStore.Append(ctx, c.ID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	if storedEvent != nil {
		c.Version = storedEvent.Version
	}
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, c, AggregateType); err != nil {
		log.Printf("[Cart] Failed to create snapshot for cart %s: %v", c.ID, err)
	}
	return nil
}
