package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is the root of every lookup failure; match it with errors.Is.
var ErrNotFound = errors.New("not found")

var (
	ErrClientNotFound   = fmt.Errorf("client %w", ErrNotFound)
	ErrRentalNotFound   = fmt.Errorf("rental %w", ErrNotFound)
	ErrPaymentNotFound  = fmt.Errorf("payment period %w", ErrNotFound)
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)
	ErrReceiptNotFound  = fmt.Errorf("receipt %w", ErrNotFound)

	ErrInvalidAmount = errors.New("amount must be positive")
)

// ValidationError carries every problem found, not just the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// NewValidationError returns nil when problems is empty.
func NewValidationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
