package user

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/rental-engine/internal/domain/aggregate"
	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/example/rental-engine/internal/rate"
	"github.com/google/uuid"
)

const AggregateType = "User"

var ErrUserNotFound = errors.New("user not found")

type Address struct {
	ID        string    `json:"id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a member or contributor account. BillingAnchorDay is zero until
// the first outbound delivery anchors the billing cycle.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	PlanID           string    `json:"plan_id"`
	PlanMonthly      float64   `json:"plan_monthly"`
	PlanLevel        int       `json:"plan_level"`
	Unlimited        bool      `json:"unlimited"`
	ProtectionPlan   bool      `json:"protection_plan"`
	BillingAnchorDay int       `json:"billing_anchor_day"`
	BillingHour      int       `json:"billing_hour"`
	Addresses        []Address `json:"addresses"`
	CreatedAt        time.Time `json:"created_at"`
	Version          int       `json:"version"`
}

// PrimaryAddress returns the most recently created primary address, falling
// back to the most recent address of any kind.
func (u *User) PrimaryAddress() (Address, bool) {
	var best Address
	var found bool
	for _, a := range u.Addresses {
		if !found || betterAddress(a, best) {
			best = a
			found = true
		}
	}
	return best, found
}

func betterAddress(a, b Address) bool {
	if a.Primary != b.Primary {
		return a.Primary
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Aggregate interface implementation
func (u *User) GetID() string    { return u.ID }
func (u *User) GetVersion() int  { return u.Version }
func (u *User) SetVersion(v int) { u.Version = v }

// ApplyEvent applies a single event to the user state
func (u *User) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventUserRegistered:
		var data UserRegistered
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.ID = data.UserID
		u.Email = data.Email
		u.Name = data.Name
		u.PlanID = data.PlanID
		u.PlanMonthly = data.PlanMonthly
		u.PlanLevel = data.PlanLevel
		u.Unlimited = data.Unlimited
		u.BillingHour = data.BillingHour
		u.CreatedAt = data.RegisteredAt
	case EventAddressAdded:
		var data AddressAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.Addresses = append(u.Addresses, Address{
			ID:        data.AddressID,
			Street:    data.Street,
			City:      data.City,
			State:     data.State,
			Zip:       data.Zip,
			Primary:   data.Primary,
			CreatedAt: data.AddedAt,
		})
	case EventPlanChanged:
		var data PlanChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.PlanID = data.PlanID
		u.PlanMonthly = data.PlanMonthly
		u.PlanLevel = data.PlanLevel
		u.Unlimited = data.Unlimited
	case EventBillingAnchorSet:
		var data BillingAnchorSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.BillingAnchorDay = data.Day
	case EventProtectionSet:
		var data ProtectionSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.ProtectionPlan = data.Enabled
	}
	u.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get loads a user by replaying events
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, found, err := aggregate.Load(ctx, s.eventStore, userID, func() *User {
		return &User{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Register creates a new account
func (s *Service) Register(ctx context.Context, email, name, planID string, planMonthly float64, planLevel, billingHour int, unlimited bool) (*User, error) {
	userID := uuid.New().String()
	now := time.Now()

	event := UserRegistered{
		UserID:       userID,
		Email:        email,
		Name:         name,
		PlanID:       planID,
		PlanMonthly:  planMonthly,
		PlanLevel:    planLevel,
		Unlimited:    unlimited,
		BillingHour:  billingHour,
		RegisteredAt: now,
	}

	storedEvent, err := s.eventStore.Append(ctx, userID, AggregateType, EventUserRegistered, event)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:          userID,
		Email:       email,
		Name:        name,
		PlanID:      planID,
		PlanMonthly: planMonthly,
		PlanLevel:   planLevel,
		Unlimited:   unlimited,
		BillingHour: billingHour,
		CreatedAt:   now,
	}
	if storedEvent != nil {
		u.Version = storedEvent.Version
	}
	return u, nil
}

// AddAddress records a shipping address
func (s *Service) AddAddress(ctx context.Context, userID, street, city, state, zip string, primary bool) (string, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	event := AddressAdded{
		UserID:    userID,
		AddressID: uuid.New().String(),
		Street:    street,
		City:      city,
		State:     state,
		Zip:       zip,
		Primary:   primary,
		AddedAt:   time.Now(),
	}
	return event.AddressID, s.appendAndSnapshot(ctx, u, EventAddressAdded, event)
}

// ChangePlan moves the user to a new plan and records the mid-cycle
// prorated delta computed from the billing anchor day
func (s *Service) ChangePlan(ctx context.Context, userID, planID string, planMonthly float64, planLevel int, unlimited bool) (float64, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	delta := 0.0
	if u.BillingAnchorDay > 0 {
		delta = rate.Prorate(planMonthly, u.PlanMonthly, u.BillingAnchorDay, time.Now())
	}

	event := PlanChanged{
		UserID:        userID,
		PlanID:        planID,
		PlanMonthly:   planMonthly,
		PlanLevel:     planLevel,
		Unlimited:     unlimited,
		ProratedDelta: delta,
		ChangedAt:     time.Now(),
	}
	return delta, s.appendAndSnapshot(ctx, u, EventPlanChanged, event)
}

// SetBillingAnchor sets the billing anchor day once; later calls are no-ops
func (s *Service) SetBillingAnchor(ctx context.Context, userID string, day int) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.BillingAnchorDay > 0 {
		return nil
	}

	event := BillingAnchorSet{
		UserID: userID,
		Day:    day,
		SetAt:  time.Now(),
	}
	return s.appendAndSnapshot(ctx, u, EventBillingAnchorSet, event)
}

// SetProtection toggles the account-level protection plan
func (s *Service) SetProtection(ctx context.Context, userID string, enabled bool) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	return s.appendAndSnapshot(ctx, u, EventProtectionSet, ProtectionSet{UserID: userID, Enabled: enabled})
}

func (s *Service) appendAndSnapshot(ctx context.Context, u *User, eventType string, data any) error {
	storedEvent, err := s.eventStore.Append(ctx, u.ID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	if storedEvent != nil {
		u.Version = storedEvent.Version
	}
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, u, AggregateType); err != nil {
		log.Printf("[User] Failed to create snapshot for user %s: %v", u.ID, err)
	}
	return nil
}
