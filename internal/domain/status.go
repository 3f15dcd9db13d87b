package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GraceDays is the window after a period ends before an unpaid period is late.
const GraceDays = 5

// DeriveStatus evaluates, in order: fully paid, partially paid, past due,
// unpaid. A period is late only strictly after its due date.
func DeriveStatus(amount, paid decimal.Decimal, due, now time.Time) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	case now.After(due):
		return StatusLate
	default:
		return StatusUnpaid
	}
}

// DepositStatus is DeriveStatus without a due date.
func DepositStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// AggregateStatus folds period statuses: any unpaid or late period makes the
// whole set unpaid, otherwise any partial makes it partial.
func AggregateStatus(statuses []PaymentStatus) PaymentStatus {
	partial := false
	for _, s := range statuses {
		switch s {
		case StatusUnpaid, StatusLate:
			return StatusUnpaid
		case StatusPartial:
			partial = true
		}
	}
	if partial {
		return StatusPartial
	}
	return StatusPaid
}

// Refresh recomputes every derived status against now.
func (m *MonthlyPayment) Refresh(now time.Time) {
	m.Status = DeriveStatus(m.Amount, m.PaidAmount, m.DueDate.Time, now)
}

// Refresh recomputes the period and deposit statuses of the rental.
func (r *Rental) Refresh(now time.Time) {
	for i := range r.Payments {
		r.Payments[i].Refresh(now)
	}
	if r.Deposit != nil {
		r.Deposit.Status = DepositStatus(r.Deposit.Total, r.Deposit.Paid)
	}
}

// Statuses lists the period statuses of the rental in order.
func (r *Rental) Statuses() []PaymentStatus {
	out := make([]PaymentStatus, 0, len(r.Payments))
	for _, p := range r.Payments {
		out = append(out, p.Status)
	}
	return out
}

// Refresh recomputes all statuses of the client, including the aggregate.
func (c *Client) Refresh(now time.Time) {
	var all []PaymentStatus
	for i := range c.Rentals {
		c.Rentals[i].Refresh(now)
		all = append(all, c.Rentals[i].Statuses()...)
	}
	c.PaymentStatus = AggregateStatus(all)
}
