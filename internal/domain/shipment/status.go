package shipment

import "strings"

// Status mirrors the carrier tracking lifecycle
type Status string

const (
	StatusUnknown        Status = "UNKNOWN"
	StatusPreTransit     Status = "PRETRANSIT"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusReturned       Status = "RETURNED"
	StatusFailure        Status = "FAILURE"
)

// Direction of physical movement relative to the warehouse
type Direction string

const (
	DirectionOutbound Direction = "OUTBOUND"
	DirectionInbound  Direction = "INBOUND"
)

// Type is the business reason for the shipment
type Type string

const (
	TypeAccess Type = "ACCESS" // member rental traffic
	TypeEarn   Type = "EARN"   // contributor ship-kit intake
	TypeReturn Type = "RETURN" // unit going back to its owner
)

// carrierStatusMap maps normalized carrier status strings onto the enum.
// Unmapped strings fall back to UNKNOWN rather than producing an invalid
// status value.
var carrierStatusMap = map[string]Status{
	"PRETRANSIT":         StatusPreTransit,
	"UNKNOWN":            StatusUnknown,
	"INTRANSIT":          StatusInTransit,
	"OUTFORDELIVERY":     StatusOutForDelivery,
	"DELIVERED":          StatusDelivered,
	"AVAILABLEFORPICKUP": StatusOutForDelivery,
	"RETURNTOSENDER":     StatusReturned,
	"RETURNED":           StatusReturned,
	"FAILURE":            StatusFailure,
	"ERROR":              StatusFailure,
	"CANCELLED":          StatusFailure,
}

// MapCarrierStatus normalizes a raw carrier status string (upper-cased,
// underscores stripped) and maps it to a Status, defaulting to UNKNOWN.
func MapCarrierStatus(raw string) Status {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "_", ""))
	if s, ok := carrierStatusMap[normalized]; ok {
		return s
	}
	return StatusUnknown
}

// progressionRank orders the forward tracking lifecycle. Terminal outcomes
// (DELIVERED, RETURNED, FAILURE) outrank all in-progress states so a stale
// redelivery can never regress a settled shipment.
var progressionRank = map[Status]int{
	StatusUnknown:        0,
	StatusPreTransit:     1,
	StatusInTransit:      2,
	StatusOutForDelivery: 3,
	StatusFailure:        4,
	StatusReturned:       5,
	StatusDelivered:      6,
}

// DeriveStatus recomputes the shipment status from the full accumulated
// event history rather than trusting the latest payload alone.
func DeriveStatus(observed []Status) Status {
	best := StatusUnknown
	for _, s := range observed {
		if progressionRank[s] > progressionRank[best] {
			best = s
		}
	}
	return best
}
