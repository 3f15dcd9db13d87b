package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Describe turns validator output into readable problems.
func Describe(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s: must satisfy %s", fe.Namespace(), fe.Tag()))
	}
	return out
}

// Validate checks the stored shape of a client: enumerations, identifiers and
// the ledger invariants of every rental.
func (c *Client) Validate() error {
	var problems []string
	if err := validate.Struct(c); err != nil {
		problems = append(problems, Describe(err)...)
	}
	for i := range c.Rentals {
		problems = append(problems, c.Rentals[i].check()...)
	}
	return NewValidationError(problems)
}

func (r *Rental) check() []string {
	var problems []string
	if !r.MonthlyRent.IsPositive() {
		problems = append(problems, fmt.Sprintf("rental %s: monthlyRent must be positive", r.ID))
	}
	if d := r.Deposit; d != nil {
		if d.Total.IsNegative() {
			problems = append(problems, fmt.Sprintf("rental %s: deposit total is negative", r.ID))
		}
		if !d.Paid.Equal(Sum(d.Payments)) {
			problems = append(problems, fmt.Sprintf("rental %s: deposit paid %s does not match its payments", r.ID, d.Paid))
		}
		problems = append(problems, checkRecords(r.ID, d.Payments)...)
	}
	for _, p := range r.Payments {
		if !p.Amount.IsPositive() {
			problems = append(problems, fmt.Sprintf("period %s: amount must be positive", p.ID))
		}
		if p.PaidAmount.IsNegative() || p.PaidAmount.GreaterThan(p.Amount) {
			problems = append(problems, fmt.Sprintf("period %s: paidAmount out of range", p.ID))
		}
		if want := Sum(p.Payments); !p.PaidAmount.Equal(want) && !(want.GreaterThan(p.Amount) && p.PaidAmount.Equal(p.Amount)) {
			problems = append(problems, fmt.Sprintf("period %s: paidAmount %s does not match its payments", p.ID, p.PaidAmount))
		}
		problems = append(problems, checkRecords(p.ID, p.Payments)...)
	}
	return problems
}

func checkRecords(owner string, records []PaymentRecord) []string {
	var problems []string
	for _, rec := range records {
		if !rec.Amount.IsPositive() {
			problems = append(problems, fmt.Sprintf("%s: record %s amount must be positive", owner, rec.ID))
		}
	}
	return problems
}

// Validate checks a document's shape. Only contracts can be signed.
func (d *Document) Validate() error {
	var problems []string
	if err := validate.Struct(d); err != nil {
		problems = append(problems, Describe(err)...)
	}
	if d.Signed && d.Type != DocumentContract {
		problems = append(problems, "signed: only contracts can be signed")
	}
	return NewValidationError(problems)
}

// Check validates the struct tags of v and reports every failure as a
// *ValidationError.
func Check(v any) error {
	if err := validate.Struct(v); err != nil {
		return NewValidationError(Describe(err))
	}
	return nil
}
