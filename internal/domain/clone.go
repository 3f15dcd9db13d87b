package domain

import "slices"

// Clone returns a deep copy. Decimals and timestamps are values and are
// shared safely.
func (c Client) Clone() Client {
	out := c
	out.Rentals = make([]Rental, len(c.Rentals))
	for i, r := range c.Rentals {
		out.Rentals[i] = r.Clone()
	}
	return out
}

// Clone returns a deep copy of the rental.
func (r Rental) Clone() Rental {
	out := r
	if r.Deposit != nil {
		dep := *r.Deposit
		dep.Payments = slices.Clone(r.Deposit.Payments)
		out.Deposit = &dep
	}
	out.Payments = make([]MonthlyPayment, len(r.Payments))
	for i, p := range r.Payments {
		p.Payments = slices.Clone(p.Payments)
		out.Payments[i] = p
	}
	out.Documents = slices.Clone(r.Documents)
	return out
}
