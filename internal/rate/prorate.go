package rate

import "time"

// Prorate computes the dollar delta charged for a mid-cycle plan change:
// the remaining days of the current cycle priced at the difference between
// the new and old monthly amounts. The cycle boundary is the next occurrence
// of the user's billing day of month (clamped for short months).
func Prorate(newMonthly, oldMonthly float64, billingDayOfMonth int, now time.Time) float64 {
	next := nextBillingDate(billingDayOfMonth, now)
	prev := prevBillingDate(billingDayOfMonth, now)

	cycleDays := calendarDays(prev, next)
	if cycleDays == 0 {
		return 0
	}
	remaining := calendarDays(now, next)

	return round2(float64(remaining) * (newMonthly - oldMonthly) / float64(cycleDays))
}

// CalendarDaysBetween returns the number of whole calendar days from a to b,
// ignoring time of day. Negative spans return 0.
func CalendarDaysBetween(a, b time.Time) int {
	d := calendarDays(a, b)
	if d < 0 {
		return 0
	}
	return d
}

func calendarDays(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

func nextBillingDate(day int, now time.Time) time.Time {
	candidate := billingDateIn(now.Year(), now.Month(), day)
	if candidate.After(now) {
		return candidate
	}
	return billingDateIn(now.Year(), now.Month()+1, day)
}

func prevBillingDate(day int, now time.Time) time.Time {
	candidate := billingDateIn(now.Year(), now.Month(), day)
	if candidate.After(now) {
		return billingDateIn(now.Year(), now.Month()-1, day)
	}
	return candidate
}

// billingDateIn clamps the billing day to the month's length (a day-31
// anchor bills on Feb 28).
func billingDateIn(year int, month time.Month, day int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
