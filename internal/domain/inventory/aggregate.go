package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/rental-engine/internal/domain/aggregate"
	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "InventoryUnit"

var (
	ErrUnitNotFound      = errors.New("inventory unit not found")
	ErrInvalidTransition = errors.New("invalid inventory transition")
	ErrUnitClaimed       = errors.New("inventory unit already claimed")
)

// Unit is one physical rentable item instance. Status changes are driven
// exclusively through Service.Transition and Service.Claim; owner never
// changes after registration.
type Unit struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	OwnerID           string    `json:"owner_id"`
	CurrentMemberID   string    `json:"current_member_id,omitempty"`
	ReservedForID     string    `json:"reserved_for_id,omitempty"`
	ReservedCartID    string    `json:"reserved_cart_id,omitempty"`
	Status            Status    `json:"status"`
	Condition         Condition `json:"condition"`
	Points            int       `json:"points"`
	BinLocation       string    `json:"bin_location,omitempty"`
	MissingEssentials []string  `json:"missing_essentials,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	// AppliedTriggers guarantees at-most-once application per
	// (unit, triggering event) pair across webhook redeliveries.
	AppliedTriggers map[string]bool `json:"applied_triggers,omitempty"`

	Version int `json:"version"`
}

// Aggregate interface implementation
func (u *Unit) GetID() string    { return u.ID }
func (u *Unit) GetVersion() int  { return u.Version }
func (u *Unit) SetVersion(v int) { u.Version = v }

// ApplyEvent applies a single event to the unit state
func (u *Unit) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventUnitRegistered:
		var data UnitRegistered
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.ID = data.UnitID
		u.ProductID = data.ProductID
		u.OwnerID = data.OwnerID
		u.Points = data.Points
		u.Condition = data.Condition
		u.Status = StatusNew
		u.CreatedAt = data.RegisteredAt
	case EventUnitStatusChanged:
		var data UnitStatusChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.Status = data.To
		if data.TriggerID != "" {
			if u.AppliedTriggers == nil {
				u.AppliedTriggers = make(map[string]bool)
			}
			u.AppliedTriggers[data.TriggerID] = true
		}
		switch {
		case data.To == StatusShipmentPrep:
			u.ReservedForID = data.MemberID
			u.ReservedCartID = data.CartID
		case data.To.holdsMember():
			if data.MemberID != "" {
				u.CurrentMemberID = data.MemberID
			} else if u.CurrentMemberID == "" {
				u.CurrentMemberID = u.ReservedForID
			}
			u.ReservedForID = ""
		default:
			u.CurrentMemberID = ""
			u.ReservedForID = ""
			u.ReservedCartID = ""
		}
	case EventUnitInspected:
		var data UnitInspected
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.Condition = data.Condition
		u.BinLocation = data.BinLocation
		u.MissingEssentials = data.MissingEssentials
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

// Register creates a new unit in NEW for a contributor submission
func (s *Service) Register(ctx context.Context, productID, ownerID string, points int, condition Condition) (*Unit, error) {
	unitID := uuid.New().String()
	now := time.Now()

	event := UnitRegistered{
		UnitID:       unitID,
		ProductID:    productID,
		OwnerID:      ownerID,
		Points:       points,
		Condition:    condition,
		RegisteredAt: now,
	}

	storedEvent, err := s.eventStore.Append(ctx, unitID, AggregateType, EventUnitRegistered, event)
	if err != nil {
		return nil, err
	}

	unit := &Unit{
		ID:        unitID,
		ProductID: productID,
		OwnerID:   ownerID,
		Points:    points,
		Condition: condition,
		Status:    StatusNew,
		CreatedAt: now,
	}
	if storedEvent != nil {
		unit.Version = storedEvent.Version
	}
	return unit, nil
}

// Get loads a unit by replaying its events
func (s *Service) Get(ctx context.Context, unitID string) (*Unit, error) {
	unit, found, err := aggregate.Load(ctx, s.eventStore, unitID, func() *Unit {
		return &Unit{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnitNotFound
	}
	return unit, nil
}

// Transition moves a unit to a new status. Redelivered triggers (same
// triggerID) are silently absorbed; invalid transitions are rejected with
// ErrInvalidTransition and the unit keeps its prior state.
func (s *Service) Transition(ctx context.Context, unitID string, to Status, trigger Trigger, triggerID, memberID string) error {
	unit, err := s.Get(ctx, unitID)
	if err != nil {
		return err
	}

	if triggerID != "" && unit.AppliedTriggers[triggerID] {
		log.Printf("[Inventory] Trigger %s already applied to unit %s, skipping", triggerID, unitID)
		return nil
	}

	if !CanTransition(unit.Status, to) {
		log.Printf("[Inventory] Rejected transition %s -> %s for unit %s (trigger %s)", unit.Status, to, unitID, trigger)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, unit.Status, to)
	}

	event := UnitStatusChanged{
		UnitID:    unitID,
		From:      unit.Status,
		To:        to,
		Trigger:   trigger,
		TriggerID: triggerID,
		MemberID:  memberID,
		ChangedAt: time.Now(),
	}

	storedEvent, err := s.eventStore.Append(ctx, unitID, AggregateType, EventUnitStatusChanged, event)
	if err != nil {
		return err
	}

	unit.Status = to
	if storedEvent != nil {
		unit.Version = storedEvent.Version
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, unit, AggregateType); err != nil {
		log.Printf("[Inventory] Failed to create snapshot for unit %s: %v", unitID, err)
	}

	return nil
}

// Claim reserves an INWAREHOUSE unit for a checkout. The append is
// conditional on the version observed at load time, so two concurrent
// checkouts racing for the last unit cannot both win: the loser gets
// ErrUnitClaimed and retries against the remaining pool.
func (s *Service) Claim(ctx context.Context, unitID, memberID, cartID string) error {
	unit, err := s.Get(ctx, unitID)
	if err != nil {
		return err
	}

	if unit.Status != StatusInWarehouse {
		return ErrUnitClaimed
	}

	event := UnitStatusChanged{
		UnitID:    unitID,
		From:      unit.Status,
		To:        StatusShipmentPrep,
		Trigger:   TriggerCartReserved,
		TriggerID: "cart:" + cartID + ":" + unitID,
		MemberID:  memberID,
		CartID:    cartID,
		ChangedAt: time.Now(),
	}

	_, err = s.eventStore.AppendWithVersion(ctx, unitID, AggregateType, EventUnitStatusChanged, event, unit.Version)
	if errors.Is(err, store.ErrVersionConflict) {
		return ErrUnitClaimed
	}
	return err
}

// Release returns a SHIPMENTPREP unit to the warehouse pool after a cart
// cancellation. The trigger id is fresh per attempt: a cart can claim and
// release the same unit more than once, so release must never be absorbed
// as a redelivery of an earlier one.
func (s *Service) Release(ctx context.Context, unitID, cartID string) error {
	return s.Transition(ctx, unitID, StatusInWarehouse, TriggerCartCanceled, "cancel:"+cartID+":"+uuid.New().String(), "")
}

// Inspect records an inspection outcome and moves the unit to INWAREHOUSE or
// OUTOFSERVICE
func (s *Service) Inspect(ctx context.Context, unitID string, passed bool, condition Condition, binLocation string, missing []string) error {
	unit, err := s.Get(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.Status != StatusInspecting {
		return fmt.Errorf("%w: inspection outcome for unit in %s", ErrInvalidTransition, unit.Status)
	}

	inspection := UnitInspected{
		UnitID:            unitID,
		Passed:            passed,
		Condition:         condition,
		BinLocation:       binLocation,
		MissingEssentials: missing,
		InspectedAt:       time.Now(),
	}
	if _, err := s.eventStore.Append(ctx, unitID, AggregateType, EventUnitInspected, inspection); err != nil {
		return err
	}

	target := StatusInWarehouse
	trigger := TriggerInspectionPassed
	if !passed {
		target = StatusOutOfService
		trigger = TriggerInspectionFailed
	}
	return s.Transition(ctx, unitID, target, trigger, "", "")
}

// ReportLoss marks a unit LOST or STOLEN from any non-terminal state
func (s *Service) ReportLoss(ctx context.Context, unitID string, stolen bool, reportID string) error {
	target := StatusLost
	if stolen {
		target = StatusStolen
	}
	return s.Transition(ctx, unitID, target, TriggerLossReported, reportID, "")
}
