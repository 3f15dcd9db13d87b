package main

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/models"
)

func paymentRequest(rentalID, paymentID string, amount decimal.Decimal) models.PaymentRequest {
	return models.PaymentRequest{RentalID: rentalID, PaymentID: paymentID, Amount: amount}
}

// depositRequest pays the whole deposit or half of it.
func depositRequest(r domain.Rental, rng *rand.Rand) models.DepositRequest {
	amount := r.Deposit.Total
	if rng.Intn(3) == 0 {
		amount = amount.Div(decimal.NewFromInt(2)).Round(0)
	}
	return models.DepositRequest{RentalID: r.ID, Amount: amount}
}
