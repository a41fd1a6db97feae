package shipment

import (
	"testing"

	"github.com/example/rental-engine/internal/integration/carrier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Carrier Status Mapping Tests
// ============================================

func TestMapCarrierStatus(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Status
	}{
		{"lowercase with underscore", "in_transit", StatusInTransit},
		{"uppercase no underscore", "INTRANSIT", StatusInTransit},
		{"mixed case", "Out_For_Delivery", StatusOutForDelivery},
		{"pre transit", "pre_transit", StatusPreTransit},
		{"delivered", "delivered", StatusDelivered},
		{"available for pickup counts as out for delivery", "available_for_pickup", StatusOutForDelivery},
		{"return to sender", "return_to_sender", StatusReturned},
		{"error is a failure", "error", StatusFailure},
		{"cancelled is a failure", "cancelled", StatusFailure},
		{"surrounding whitespace", "  delivered  ", StatusDelivered},
		{"unmapped falls back to unknown", "teleported", StatusUnknown},
		{"empty string", "", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapCarrierStatus(tt.raw))
		})
	}
}

// ============================================
// Status Derivation Tests
// ============================================

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		observed []Status
		expected Status
	}{
		{"empty history", nil, StatusUnknown},
		{"single status", []Status{StatusInTransit}, StatusInTransit},
		{"normal progression", []Status{StatusPreTransit, StatusInTransit, StatusOutForDelivery, StatusDelivered}, StatusDelivered},
		{"stale redelivery cannot regress", []Status{StatusDelivered, StatusInTransit}, StatusDelivered},
		{"out of order arrival", []Status{StatusOutForDelivery, StatusPreTransit}, StatusOutForDelivery},
		{"delivered beats returned", []Status{StatusReturned, StatusDelivered}, StatusDelivered},
		{"failure beats in progress", []Status{StatusInTransit, StatusFailure, StatusOutForDelivery}, StatusFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveStatus(tt.observed))
		})
	}
}

// ============================================
// Rate Selection Tests
// ============================================

func TestPickRate_Standard(t *testing.T) {
	rates := []carrier.Rate{
		{ID: "rate-fast", Service: "Priority", Amount: 14.50, DeliveryDays: 1},
		{ID: "rate-cheap", Service: "ParcelSelect", Amount: 5.10, DeliveryDays: 6},
		{ID: "rate-mid", Service: "Ground", Amount: 7.95, DeliveryDays: 4},
	}

	selected, err := PickRate(rates, "standard")

	require.NoError(t, err)
	assert.Equal(t, "rate-mid", selected.ID)
}

func TestPickRate_Standard_GroupsByServiceTier(t *testing.T) {
	// Two quotes in the cheapest tier must not shadow the next tier up
	rates := []carrier.Rate{
		{ID: "rate-cheap", Service: "ParcelSelect", Amount: 5.10, DeliveryDays: 6},
		{ID: "rate-cheap-alt", Service: "ParcelSelect", Amount: 5.60, DeliveryDays: 6},
		{ID: "rate-mid", Service: "Ground", Amount: 7.95, DeliveryDays: 4},
	}

	selected, err := PickRate(rates, "standard")

	require.NoError(t, err)
	assert.Equal(t, "rate-mid", selected.ID)
}

func TestPickRate_Standard_SingleTierManyRates(t *testing.T) {
	rates := []carrier.Rate{
		{ID: "rate-a", Service: "Ground", Amount: 8.40, DeliveryDays: 4},
		{ID: "rate-b", Service: "Ground", Amount: 7.95, DeliveryDays: 4},
	}

	selected, err := PickRate(rates, "standard")

	require.NoError(t, err)
	assert.Equal(t, "rate-b", selected.ID)
}

func TestPickRate_Standard_SingleRate(t *testing.T) {
	rates := []carrier.Rate{
		{ID: "rate-only", Amount: 9.99, DeliveryDays: 3},
	}

	selected, err := PickRate(rates, "standard")

	require.NoError(t, err)
	assert.Equal(t, "rate-only", selected.ID)
}

func TestPickRate_Expedited(t *testing.T) {
	rates := []carrier.Rate{
		{ID: "rate-cheap", Amount: 5.10, DeliveryDays: 6},
		{ID: "rate-fast", Amount: 14.50, DeliveryDays: 1},
		{ID: "rate-fast-cheaper", Amount: 12.00, DeliveryDays: 1},
	}

	selected, err := PickRate(rates, "expedited")

	require.NoError(t, err)
	assert.Equal(t, "rate-fast-cheaper", selected.ID)
}

func TestPickRate_NoRates(t *testing.T) {
	_, err := PickRate(nil, "standard")
	assert.Error(t, err)
}
