// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/importer"
)

// PaymentRequest is the payload of POST /api/payments.
type PaymentRequest struct {
	RentalID  string          `json:"rentalId" validate:"required"`
	PaymentID string          `json:"paymentId" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// DepositRequest is the payload of POST /api/deposits.
type DepositRequest struct {
	RentalID string          `json:"rentalId" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ClientResponse struct {
	Success bool           `json:"success"`
	Client  *domain.Client `json:"client"`
}

type RentalResponse struct {
	Success bool           `json:"success"`
	Rental  *domain.Rental `json:"rental"`
}

type DocumentResponse struct {
	Success  bool             `json:"success"`
	Document *domain.Document `json:"document"`
}

// PaymentResponse returns the updated period and the record just appended.
type PaymentResponse struct {
	Success bool                   `json:"success"`
	Payment *domain.MonthlyPayment `json:"payment"`
	Record  domain.PaymentRecord   `json:"record"`
}

type DepositResponse struct {
	Success bool                 `json:"success"`
	Deposit *domain.Deposit      `json:"deposit"`
	Record  domain.PaymentRecord `json:"record"`
}

// ClientSummary aggregates the ledger of one client.
type ClientSummary struct {
	ClientID      string               `json:"clientId"`
	FullName      string               `json:"fullName"`
	Status        domain.ClientStatus  `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Rentals       int                  `json:"rentals"`
	Periods       int                  `json:"periods"`
	LatePeriods   int                  `json:"latePeriods"`
	TotalDue      decimal.Decimal      `json:"totalDue"`
	TotalPaid     decimal.Decimal      `json:"totalPaid"`
	Outstanding   decimal.Decimal      `json:"outstanding"`
	DepositTotal  decimal.Decimal      `json:"depositTotal"`
	DepositPaid   decimal.Decimal      `json:"depositPaid"`
}

// ImportPreview is the body of POST /api/import/preview.
type ImportPreview struct {
	Headers []string `json:"headers"`
	*importer.Result
}

// ImportCommitResponse is the body of POST /api/import/commit.
type ImportCommitResponse struct {
	Success   bool           `json:"success"`
	Imported  int            `json:"imported"`
	ClientIDs []string       `json:"clientIds"`
	Invalid   []importer.Row `json:"invalid"`
	// Error is set when the commit stopped early; Imported and ClientIDs
	// still describe the rows that were written.
	Error string `json:"error,omitempty"`
}
