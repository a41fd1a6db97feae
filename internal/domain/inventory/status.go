package inventory

// Status is the lifecycle position of a physical unit
type Status string

const (
	StatusNew              Status = "NEW"
	StatusPending          Status = "PENDING"
	StatusAccepted         Status = "ACCEPTED"
	StatusEnrouteWarehouse Status = "ENROUTEWAREHOUSE"
	StatusInspecting       Status = "INSPECTING"
	StatusInWarehouse      Status = "INWAREHOUSE"
	StatusShipmentPrep     Status = "SHIPMENTPREP"
	StatusEnrouteMember    Status = "ENROUTEMEMBER"
	StatusWithMember       Status = "WITHMEMBER"
	StatusReturning        Status = "RETURNING"
	StatusOutOfService     Status = "OUTOFSERVICE"
	StatusEnrouteOwner     Status = "ENROUTEOWNER"
	StatusReturned         Status = "RETURNED"
	StatusStolen           Status = "STOLEN"
	StatusLost             Status = "LOST"
)

// Condition is the graded physical condition of a unit
type Condition string

const (
	ConditionNew  Condition = "NEW"
	ConditionGood Condition = "GOOD"
	ConditionFair Condition = "FAIR"
	ConditionPoor Condition = "POOR"
)

// Trigger names the business event that caused a transition. Triggers are
// recorded on every status change so webhook redelivery can be detected.
type Trigger string

const (
	TriggerShipKitConfirmed Trigger = "shipkit_confirmed"
	TriggerCarrierReceived  Trigger = "carrier_received"
	TriggerCarrierDelivered Trigger = "carrier_delivered"
	TriggerInspectionPassed Trigger = "inspection_passed"
	TriggerInspectionFailed Trigger = "inspection_failed"
	TriggerCartReserved     Trigger = "cart_reserved"
	TriggerCartCanceled     Trigger = "cart_canceled"
	TriggerMemberReturn     Trigger = "member_return"
	TriggerReturnToOwner    Trigger = "return_to_owner"
	TriggerLossReported     Trigger = "loss_reported"
	TriggerBackInService    Trigger = "back_in_service"
)

// validTransitions defines allowed state transitions. Loss and theft are
// handled separately: any non-terminal status may move to LOST or STOLEN.
var validTransitions = map[Status][]Status{
	StatusNew:              {StatusPending, StatusAccepted},
	StatusPending:          {StatusAccepted},
	StatusAccepted:         {StatusEnrouteWarehouse},
	StatusEnrouteWarehouse: {StatusInspecting},
	StatusInspecting:       {StatusInWarehouse, StatusOutOfService},
	StatusInWarehouse:      {StatusShipmentPrep, StatusEnrouteOwner, StatusOutOfService},
	StatusShipmentPrep:     {StatusEnrouteMember, StatusInWarehouse},
	StatusEnrouteMember:    {StatusWithMember},
	StatusWithMember:       {StatusReturning, StatusInWarehouse},
	StatusReturning:        {StatusEnrouteWarehouse, StatusEnrouteOwner},
	StatusOutOfService:     {StatusInWarehouse, StatusEnrouteOwner},
	StatusEnrouteOwner:     {StatusReturned},
	StatusReturned:         {}, // terminal
	StatusStolen:           {}, // terminal
	StatusLost:             {}, // terminal
}

// terminal statuses mark end-of-life; units are never hard-deleted
var terminalStatuses = map[Status]bool{
	StatusReturned: true,
	StatusStolen:   true,
	StatusLost:     true,
}

// IsTerminal reports whether the status ends the unit's lifecycle
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// holdsMember reports whether a unit in this status is in a member's hands
// (or on its way there/back). currentMemberID is non-empty exactly for these.
func (s Status) holdsMember() bool {
	return s == StatusEnrouteMember || s == StatusWithMember || s == StatusReturning
}

// CanTransition reports whether from may move to target
func CanTransition(from, target Status) bool {
	if target == StatusLost || target == StatusStolen {
		return !from.IsTerminal()
	}
	for _, s := range validTransitions[from] {
		if s == target {
			return true
		}
	}
	return false
}
