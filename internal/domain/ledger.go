package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record applies a rent payment to the period. The cumulative paid amount is
// clamped to the amount owed while the appended record keeps the submitted
// amount.
func (m *MonthlyPayment) Record(amount decimal.Decimal, now time.Time) (PaymentRecord, error) {
	if !amount.IsPositive() {
		return PaymentRecord{}, ErrInvalidAmount
	}
	m.PaidAmount = decimal.Min(m.PaidAmount.Add(amount), m.Amount)
	rec := PaymentRecord{
		ID:            NewID(PrefixRecord),
		Amount:        amount,
		Date:          NewTimestamp(now),
		ReceiptNumber: NewReceiptNumber(ReceiptRent, now),
	}
	m.Payments = append(m.Payments, rec)
	m.Refresh(now)
	return rec, nil
}

// RecordDeposit adds amount to the rental's deposit, creating an empty deposit
// first when none exists. Deposits are not clamped against their total.
func (r *Rental) RecordDeposit(amount decimal.Decimal, now time.Time) (PaymentRecord, error) {
	if !amount.IsPositive() {
		return PaymentRecord{}, ErrInvalidAmount
	}
	if r.Deposit == nil {
		r.Deposit = &Deposit{Total: decimal.Zero, Paid: decimal.Zero, Payments: []PaymentRecord{}}
	}
	r.Deposit.Paid = r.Deposit.Paid.Add(amount)
	rec := PaymentRecord{
		ID:            NewID(PrefixDeposit),
		Amount:        amount,
		Date:          NewTimestamp(now),
		ReceiptNumber: NewReceiptNumber(ReceiptDeposit, now),
	}
	r.Deposit.Payments = append(r.Deposit.Payments, rec)
	r.Deposit.Status = DepositStatus(r.Deposit.Total, r.Deposit.Paid)
	return rec, nil
}

// FindReceipt looks a receipt number up among the rental's rent and deposit
// records. period is nil for deposit receipts.
func (r *Rental) FindReceipt(number string) (rec PaymentRecord, period *MonthlyPayment, ok bool) {
	for i := range r.Payments {
		for _, p := range r.Payments[i].Payments {
			if p.ReceiptNumber == number {
				return p, &r.Payments[i], true
			}
		}
	}
	if r.Deposit != nil {
		for _, p := range r.Deposit.Payments {
			if p.ReceiptNumber == number {
				return p, nil, true
			}
		}
	}
	return PaymentRecord{}, nil, false
}
