package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Rate Percent Tests
// ============================================

func TestConfig_RatePercent(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		points   int
		expected float64
	}{
		{"zero points", 0, 45},
		{"just under first step", 999, 45},
		{"first step", 1000, 41.5},
		{"two steps", 2999, 38},
		{"five steps", 5000, 27.5},
		{"decay hits floor", 6000, 25},
		{"far past floor", 10000, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cfg.RatePercent(tt.points))
		})
	}
}

// ============================================
// Daily Rate Tests
// ============================================

func TestConfig_DailyRate(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		points   int
		expected int
	}{
		{"500 points", 500, 8},
		{"1000 points", 1000, 14},
		{"2500 points", 2500, 32},
		{"6000 points at floor percent", 6000, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cfg.DailyRate(tt.points))
		})
	}
}

func TestConfig_DailyRate_RoundsUp(t *testing.T) {
	cfg := DefaultConfig()

	// 100 points at 45%: 45 / 30.1 = 1.495..., rounds up to 2
	assert.Equal(t, 2, cfg.DailyRate(100))
}

// ============================================
// Commission Tests
// ============================================

func TestConfig_DailyCommission(t *testing.T) {
	cfg := DefaultConfig()

	// 1000 / 30.1 * 30% = 9.9667..., rounded to cents
	assert.InDelta(t, 9.97, cfg.DailyCommission(1000), 0.001)
}

func TestConfig_DailyCommissionAt_ScheduleSelection(t *testing.T) {
	cfg := DefaultConfig()

	legacyCreated := time.Date(2018, time.June, 30, 23, 59, 59, 0, time.UTC)
	currentCreated := time.Date(2018, time.July, 1, 0, 0, 0, 0, time.UTC)

	// Legacy units keep the 25% schedule for life
	assert.InDelta(t, 8.31, cfg.DailyCommissionAt(1000, legacyCreated), 0.001)

	// Units created at or after the cutoff use the current 30% schedule
	assert.InDelta(t, 9.97, cfg.DailyCommissionAt(1000, currentCreated), 0.001)
	assert.Equal(t, cfg.DailyCommission(1000), cfg.DailyCommissionAt(1000, time.Now()))
}

// ============================================
// Protection Surcharge Tests
// ============================================

func TestConfig_ProtectionDailyRate(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		points   int
		expected int
	}{
		{"rounds up", 1000, 2},   // daily rate 14 * 10% = 1.4 -> 2
		{"exact dollar", 100, 1}, // daily rate 2 * 10% = 0.2 -> 1
		{"never below one dollar", 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cfg.ProtectionDailyRate(tt.points))
		})
	}
}

// ============================================
// Unlimited Tier Tests
// ============================================

func TestUnlimitedTier(t *testing.T) {
	tests := []struct {
		name        string
		totalPoints int
		expected    int
	}{
		{"zero points", 0, 750},
		{"base tier boundary", 1240, 750},
		{"just above base boundary", 1241, 1500},
		{"top of 1500 tier", 3499, 1500},
		{"bottom of 3500 tier", 3500, 3500},
		{"top of 3500 tier", 4899, 3500},
		{"bottom of 7500 tier", 4900, 7500},
		{"huge cart", 20000, 7500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UnlimitedTier(tt.totalPoints))
		})
	}
}

// ============================================
// Item Level Tests
// ============================================

func TestItemLevel(t *testing.T) {
	tests := []struct {
		name     string
		points   int
		expected int
	}{
		{"zero points", 0, 1},
		{"top of level one", 1000, 1},
		{"bottom of level two", 1001, 2},
		{"top of level two", 2500, 2},
		{"bottom of level three", 2501, 3},
		{"top of level three", 5500, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ItemLevel(tt.points)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestItemLevel_OutOfRange(t *testing.T) {
	_, err := ItemLevel(5501)
	assert.ErrorIs(t, err, ErrPointsOutOfRange)

	_, err = ItemLevel(-1)
	assert.ErrorIs(t, err, ErrPointsOutOfRange)
}

// ============================================
// Proration Tests
// ============================================

func TestProrate_MidCycleUpgrade(t *testing.T) {
	// March cycle: Mar 1 -> Apr 1, 31 days; 22 days remain on Mar 10
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	delta := Prorate(60, 30, 1, now)

	assert.InDelta(t, 21.29, delta, 0.001)
}

func TestProrate_Downgrade_NegativeDelta(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	delta := Prorate(30, 60, 1, now)

	assert.InDelta(t, -21.29, delta, 0.001)
}

func TestProrate_SamePlan(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, Prorate(45, 45, 1, now))
}

func TestProrate_Day31AnchorClampsInFebruary(t *testing.T) {
	// Anchor day 31 bills on Feb 28 in a non-leap year: the cycle runs
	// Jan 31 -> Feb 28 (28 days), with 18 days remaining on Feb 10.
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	delta := Prorate(56, 0, 31, now)

	assert.InDelta(t, 36.0, delta, 0.001)
}

func TestCalendarDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		a, b     time.Time
		expected int
	}{
		{
			"same day",
			time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC),
			time.Date(2026, time.May, 1, 23, 0, 0, 0, time.UTC),
			0,
		},
		{
			"time of day ignored",
			time.Date(2026, time.May, 1, 23, 0, 0, 0, time.UTC),
			time.Date(2026, time.May, 2, 1, 0, 0, 0, time.UTC),
			1,
		},
		{
			"ten day span",
			time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.May, 11, 0, 0, 0, 0, time.UTC),
			10,
		},
		{
			"negative span clamps to zero",
			time.Date(2026, time.May, 11, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalendarDaysBetween(tt.a, tt.b))
		})
	}
}
