package domain

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as plain JSON numbers, as the front end sends them.
	decimal.MarshalJSONWithoutQuotes = true
}

// Sum adds up record amounts.
func Sum(records []PaymentRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
