// Package rate holds the pricing math for the rental marketplace: daily
// rental rates, contributor commission, protection-plan surcharge, and the
// tier/level bucketing driven by product point values. Every function is
// deterministic and side-effect free; rounding modes are part of the billing
// contract and must not be changed casually.
package rate

import (
	"errors"
	"math"
	"time"
)

// ErrPointsOutOfRange is returned for items whose point value has no level
// bucket (negative or above the level-3 cap).
var ErrPointsOutOfRange = errors.New("point value outside rentable range")

// CommissionCutoff is the moment the contributor commission schedule changed.
// Units created before it earn the legacy percent for their whole life.
var CommissionCutoff = time.Date(2018, time.July, 1, 0, 0, 0, 0, time.UTC)

// billingDaysPerMonth is the divisor that converts a monthly point value into
// a daily figure. 30.1 rather than 30: carried over from the original
// schedule, and invoices depend on it.
const billingDaysPerMonth = 30.1

// Config carries the configured pricing constants
type Config struct {
	MinPercent               float64 // floor of the monthly rate percent
	MaxPercent               float64 // ceiling of the monthly rate percent
	ContributorPercent       float64 // current commission schedule
	LegacyContributorPercent float64 // schedule for units created before CommissionCutoff
	InsurancePercent         float64 // protection plan surcharge percent
}

// DefaultConfig returns the production pricing constants
func DefaultConfig() Config {
	return Config{
		MinPercent:               25,
		MaxPercent:               45,
		ContributorPercent:       30,
		LegacyContributorPercent: 25,
		InsurancePercent:         10,
	}
}

// RatePercent returns the effective monthly rate percent for a point value.
// The percent decays 3.5 points per 1000 points, floored at MinPercent.
func (c Config) RatePercent(points int) float64 {
	p := c.MaxPercent - math.Floor(float64(points)/1000)*3.5
	return math.Max(c.MinPercent, p)
}

// DailyRate returns the member's daily rental rate in whole dollars,
// rounded up.
func (c Config) DailyRate(points int) int {
	return int(math.Ceil(float64(points) * c.RatePercent(points) / 100 / billingDaysPerMonth))
}

// DailyCommission returns the contributor's daily commission in dollars under
// the current schedule, rounded half-even to cents.
func (c Config) DailyCommission(points int) float64 {
	return round2(float64(points) / billingDaysPerMonth * c.ContributorPercent / 100)
}

// DailyCommissionAt returns the daily commission for a unit created at the
// given time, selecting the legacy or current schedule.
func (c Config) DailyCommissionAt(points int, unitCreatedAt time.Time) float64 {
	percent := c.ContributorPercent
	if unitCreatedAt.Before(CommissionCutoff) {
		percent = c.LegacyContributorPercent
	}
	return round2(float64(points) / billingDaysPerMonth * percent / 100)
}

// ProtectionDailyRate returns the daily protection-plan surcharge in whole
// dollars, never below 1.
func (c Config) ProtectionDailyRate(points int) int {
	surcharge := int(math.Ceil(float64(c.DailyRate(points)) * c.InsurancePercent / 100))
	if surcharge < 1 {
		return 1
	}
	return surcharge
}

// UnlimitedTier buckets a member's total point value into one of the four
// unlimited plan tiers (the tier's point allowance is the bucket name).
// Exactly 1240 points lands in the base tier: the source schedule compares
// with strict > and product has not signed off on moving the boundary.
func UnlimitedTier(totalPoints int) int {
	switch {
	case totalPoints > 4899:
		return 7500
	case totalPoints > 3499:
		return 3500
	case totalPoints > 1240:
		return 1500
	default:
		return 750
	}
}

// ItemLevel returns the membership level required to rent an item with the
// given point value. Items above 5500 points are not rentable at any level.
func ItemLevel(points int) (int, error) {
	switch {
	case points < 0 || points > 5500:
		return 0, ErrPointsOutOfRange
	case points <= 1000:
		return 1, nil
	case points <= 2500:
		return 2, nil
	default:
		return 3, nil
	}
}

// round2 rounds to cents using round-half-even
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
