package service

import (
	"context"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/models"
	"github.com/punchamoorthee/rentledger/internal/store"
)

var (
	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_recorded_total",
		Help: "Payments recorded, labeled by kind (rent or deposit)",
	}, []string{"kind"})

	amountRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payment_amount_total",
		Help: "Sum of submitted payment amounts, labeled by kind",
	}, []string{"kind"})
)

var errAmountNotPositive = &domain.ValidationError{Problems: []string{"amount: must be positive"}}

type LedgerService struct {
	store store.Store
	Now   func() time.Time
}

func NewLedgerService(s store.Store) *LedgerService {
	return &LedgerService{store: s, Now: time.Now}
}

// RecordPayment applies a rent payment to one period of a rental. The paid
// amount of the period is capped at the amount owed; the appended record
// keeps what was submitted.
func (s *LedgerService) RecordPayment(ctx context.Context, req models.PaymentRequest) (*domain.MonthlyPayment, domain.PaymentRecord, error) {
	if err := domain.Check(req); err != nil {
		return nil, domain.PaymentRecord{}, err
	}
	if !req.Amount.IsPositive() {
		return nil, domain.PaymentRecord{}, errAmountNotPositive
	}

	now := s.Now()
	var (
		period domain.MonthlyPayment
		rec    domain.PaymentRecord
	)
	_, err := s.store.UpdateRental(ctx, req.RentalID, func(c *domain.Client, r *domain.Rental) error {
		domain.EnsurePeriods(r, now)
		p := r.FindPayment(req.PaymentID)
		if p == nil {
			return domain.ErrPaymentNotFound
		}
		var err error
		if rec, err = p.Record(req.Amount, now); err != nil {
			return err
		}
		period = *p
		period.Payments = slices.Clone(p.Payments)
		c.Refresh(now)
		return nil
	})
	if err != nil {
		return nil, domain.PaymentRecord{}, err
	}

	observe(domain.ReceiptRent, req.Amount)
	logging.Logger.WithFields(logrus.Fields{
		"rental_id":  req.RentalID,
		"payment_id": req.PaymentID,
		"amount":     req.Amount.String(),
		"paid":       period.PaidAmount.String(),
		"status":     period.Status,
		"receipt":    rec.ReceiptNumber,
	}).Info("Rent payment recorded")
	return &period, rec, nil
}

// RecordDeposit adds a payment to the deposit of a rental. Deposits are not
// capped at their total.
func (s *LedgerService) RecordDeposit(ctx context.Context, req models.DepositRequest) (*domain.Deposit, domain.PaymentRecord, error) {
	if err := domain.Check(req); err != nil {
		return nil, domain.PaymentRecord{}, err
	}
	if !req.Amount.IsPositive() {
		return nil, domain.PaymentRecord{}, errAmountNotPositive
	}

	now := s.Now()
	var (
		deposit domain.Deposit
		rec     domain.PaymentRecord
	)
	_, err := s.store.UpdateRental(ctx, req.RentalID, func(c *domain.Client, r *domain.Rental) error {
		var err error
		if rec, err = r.RecordDeposit(req.Amount, now); err != nil {
			return err
		}
		deposit = *r.Deposit
		deposit.Payments = slices.Clone(r.Deposit.Payments)
		c.Refresh(now)
		return nil
	})
	if err != nil {
		return nil, domain.PaymentRecord{}, err
	}

	observe(domain.ReceiptDeposit, req.Amount)
	logging.Logger.WithFields(logrus.Fields{
		"rental_id": req.RentalID,
		"amount":    req.Amount.String(),
		"paid":      deposit.Paid.String(),
		"status":    deposit.Status,
		"receipt":   rec.ReceiptNumber,
	}).Info("Deposit payment recorded")
	return &deposit, rec, nil
}

func observe(kind string, amount decimal.Decimal) {
	label := "rent"
	if kind == domain.ReceiptDeposit {
		label = "deposit"
	}
	paymentsRecorded.WithLabelValues(label).Inc()
	amountRecorded.WithLabelValues(label).Add(amount.InexactFloat64())
}
