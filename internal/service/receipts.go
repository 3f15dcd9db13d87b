package service

import (
	"context"
	"time"

	"github.com/punchamoorthee/rentledger/internal/config"
	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/receipt"
	"github.com/punchamoorthee/rentledger/internal/store"
)

// ReceiptService finds payment records and prepares them for printing.
type ReceiptService struct {
	store        store.Store
	businessName string
	currency     string
}

func NewReceiptService(s store.Store, cfg *config.Config) *ReceiptService {
	return &ReceiptService{store: s, businessName: cfg.BusinessName, currency: cfg.Currency}
}

// Lookup returns what a receipt of the rental prints.
func (s *ReceiptService) Lookup(ctx context.Context, rentalID, number string) (receipt.Data, error) {
	c, r, err := findRental(ctx, s.store, rentalID)
	if err != nil {
		return receipt.Data{}, err
	}
	rec, period, ok := r.FindReceipt(number)
	if !ok {
		return receipt.Data{}, domain.ErrReceiptNotFound
	}

	data := receipt.Data{
		BusinessName: s.businessName,
		Currency:     s.currency,
		Number:       rec.ReceiptNumber,
		Date:         rec.Date.Time,
		ClientName:   c.FullName(),
		ClientPhone:  c.Phone,
		PropertyName: r.PropertyName,
		Amount:       rec.Amount,
	}
	if period != nil {
		data.Kind = receipt.KindRent
		data.PeriodStart = period.PeriodStart.Time
		data.PeriodEnd = period.PeriodEnd.Time
		data.Owed = period.Amount
		data.PaidToDate = period.PaidAmount
	} else {
		data.Kind = receipt.KindDeposit
		data.Owed = r.Deposit.Total
		data.PaidToDate = r.Deposit.Paid
	}
	if data.Date.IsZero() {
		data.Date = time.Now()
	}
	return data, nil
}

// findRental scans the clients for a rental.
func findRental(ctx context.Context, s store.Store, rentalID string) (*domain.Client, *domain.Rental, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return nil, nil, err
	}
	for i := range clients {
		if r := clients[i].FindRental(rentalID); r != nil {
			return &clients[i], r, nil
		}
	}
	return nil, nil, domain.ErrRentalNotFound
}
