package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// upper bound on generated periods per call (100 years)
const maxPeriods = 1200

// EnsurePeriods appends the missing monthly periods of r, from its start date
// up to and including the period that contains now. Existing periods are left
// untouched. It returns how many periods were created.
func EnsurePeriods(r *Rental, now time.Time) int {
	if r.StartDate.IsZero() || !r.MonthlyRent.IsPositive() {
		return 0
	}
	start := dateOf(r.StartDate.Time)
	today := dateOf(now)

	existing := make(map[string]bool, len(r.Payments))
	for _, p := range r.Payments {
		existing[dateKey(p.PeriodStart.Time)] = true
	}

	created := 0
	for k := 0; k < maxPeriods; k++ {
		periodStart := addMonths(start, k)
		if periodStart.After(today) {
			break
		}
		if existing[dateKey(periodStart)] {
			continue
		}
		periodEnd := addMonths(start, k+1).AddDate(0, 0, -1)
		r.Payments = append(r.Payments, MonthlyPayment{
			ID:          NewID(PrefixPeriod),
			RentalID:    r.ID,
			PeriodStart: NewTimestamp(periodStart),
			PeriodEnd:   NewTimestamp(periodEnd),
			DueDate:     NewTimestamp(periodEnd.AddDate(0, 0, GraceDays)),
			Amount:      r.MonthlyRent,
			PaidAmount:  decimal.Zero,
			Payments:    []PaymentRecord{},
		})
		created++
	}
	if created > 0 {
		slices.SortStableFunc(r.Payments, func(a, b MonthlyPayment) int {
			return a.PeriodStart.Compare(b.PeriodStart.Time)
		})
		r.Refresh(now)
	}
	return created
}

// addMonths keeps the start day-of-month, clamped to the target month length.
func addMonths(start time.Time, k int) time.Time {
	y, m := start.Year(), start.Month()+time.Month(k)
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(start.Day(), last)-1)
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
