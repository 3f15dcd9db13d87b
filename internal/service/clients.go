package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/importer"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/models"
	"github.com/punchamoorthee/rentledger/internal/store"
)

// ClientFilter narrows ListClients. Empty fields match everything.
type ClientFilter struct {
	AdminID string
	Status  domain.ClientStatus
}

type ClientService struct {
	store store.Store
	Now   func() time.Time
}

func NewClientService(s store.Store) *ClientService {
	return &ClientService{store: s, Now: time.Now}
}

// List returns clients with freshly derived statuses.
func (s *ClientService) List(ctx context.Context, f ClientFilter) ([]domain.Client, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if f.AdminID != "" && c.AdminID != f.AdminID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		c.Refresh(now)
		out = append(out, c)
	}
	return out, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Refresh(s.Now())
	return c, nil
}

// Create stores a new client. The server assigns id and createdAt when they
// are absent, generates rental ids and the periods due so far.
func (s *ClientService) Create(ctx context.Context, c domain.Client) (*domain.Client, error) {
	now := s.Now()
	if c.ID == "" {
		c.ID = domain.NewID(domain.PrefixClient)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = domain.NewTimestamp(now)
	}
	if err := prepareClient(&c, now); err != nil {
		return nil, err
	}
	if err := s.store.CreateClient(ctx, &c); err != nil {
		return nil, err
	}
	logging.Logger.WithFields(logrus.Fields{
		"client_id": c.ID,
		"rentals":   len(c.Rentals),
	}).Info("Client created")
	return &c, nil
}

// Update shallow-merges patch, a JSON object of client fields, into the
// stored client. id and createdAt cannot be changed.
func (s *ClientService) Update(ctx context.Context, id string, patch map[string]json.RawMessage) (*domain.Client, error) {
	now := s.Now()
	updated, err := s.store.UpdateClient(ctx, id, func(c *domain.Client) error {
		current, err := json.Marshal(c)
		if err != nil {
			return err
		}
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(current, &fields); err != nil {
			return err
		}
		for k, v := range patch {
			switch k {
			case "id", "createdAt", "paymentStatus":
				continue
			}
			fields[k] = v
		}
		merged, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		var next domain.Client
		if err := json.Unmarshal(merged, &next); err != nil {
			return domain.NewValidationError([]string{err.Error()})
		}
		next.ID, next.CreatedAt = c.ID, c.CreatedAt
		if err := prepareClient(&next, now); err != nil {
			return err
		}
		*c = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Logger.WithField("client_id", id).Info("Client updated")
	return updated, nil
}

// Delete removes the client with its rentals and their documents.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return err
	}
	logging.Logger.WithField("client_id", id).Info("Client deleted")
	return nil
}

// AddRental attaches a new rental to an existing client.
func (s *ClientService) AddRental(ctx context.Context, clientID string, r domain.Rental) (*domain.Rental, error) {
	now := s.Now()
	r.ID = ""
	var added domain.Rental
	_, err := s.store.UpdateClient(ctx, clientID, func(c *domain.Client) error {
		rental := r.Clone()
		if problems := prepareRental(&rental, c.ID, now, fmt.Sprintf("rentals[%d]", len(c.Rentals))); len(problems) > 0 {
			return domain.NewValidationError(problems)
		}
		c.Rentals = append(c.Rentals, rental)
		c.Refresh(now)
		added = rental.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Logger.WithFields(logrus.Fields{
		"client_id": clientID,
		"rental_id": added.ID,
		"periods":   len(added.Payments),
	}).Info("Rental added")
	return &added, nil
}

// Summary totals the periods and deposits of a client.
func (s *ClientService) Summary(ctx context.Context, id string) (*models.ClientSummary, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := &models.ClientSummary{
		ClientID:      c.ID,
		FullName:      c.FullName(),
		Status:        c.Status,
		PaymentStatus: c.PaymentStatus,
		Rentals:       len(c.Rentals),
		TotalDue:      decimal.Zero,
		TotalPaid:     decimal.Zero,
		DepositTotal:  decimal.Zero,
		DepositPaid:   decimal.Zero,
	}
	for _, r := range c.Rentals {
		for _, p := range r.Payments {
			sum.Periods++
			sum.TotalDue = sum.TotalDue.Add(p.Amount)
			sum.TotalPaid = sum.TotalPaid.Add(p.PaidAmount)
			if p.Status == domain.StatusLate {
				sum.LatePeriods++
			}
		}
		if r.Deposit != nil {
			sum.DepositTotal = sum.DepositTotal.Add(r.Deposit.Total)
			sum.DepositPaid = sum.DepositPaid.Add(r.Deposit.Paid)
		}
	}
	sum.Outstanding = sum.TotalDue.Sub(sum.TotalPaid)
	return sum, nil
}

// prepareClient fills defaults and checks what the storage schema cannot.
func prepareClient(c *domain.Client, now time.Time) error {
	var problems []string
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	if !importer.ValidName(c.FirstName) {
		problems = append(problems, "firstName: must contain at least two characters including a letter")
	}
	if !importer.ValidName(c.LastName) {
		problems = append(problems, "lastName: must contain at least two characters including a letter")
	}
	if c.Status == "" {
		c.Status = domain.ClientActive
	}
	if c.Rentals == nil {
		c.Rentals = []domain.Rental{}
	}
	for i := range c.Rentals {
		problems = append(problems, prepareRental(&c.Rentals[i], c.ID, now, fmt.Sprintf("rentals[%d]", i))...)
	}
	if len(problems) > 0 {
		return domain.NewValidationError(problems)
	}
	c.Refresh(now)
	return nil
}

// prepareRental assigns ids, opens the deposit ledger and generates periods.
func prepareRental(r *domain.Rental, clientID string, now time.Time, path string) []string {
	if r.ID == "" {
		r.ID = domain.NewID(domain.PrefixRental)
	}
	r.ClientID = clientID
	if r.StartDate.IsZero() {
		return []string{path + ".startDate: required"}
	}
	if r.Payments == nil {
		r.Payments = []domain.MonthlyPayment{}
	}
	if r.Documents == nil {
		r.Documents = []domain.Document{}
	}
	for i := range r.Payments {
		if r.Payments[i].ID == "" {
			r.Payments[i].ID = domain.NewID(domain.PrefixPeriod)
		}
		r.Payments[i].RentalID = r.ID
		if r.Payments[i].Payments == nil {
			r.Payments[i].Payments = []domain.PaymentRecord{}
		}
	}
	if d := r.Deposit; d != nil {
		if d.Payments == nil {
			d.Payments = []domain.PaymentRecord{}
		}
		// an opening balance without records becomes the first record
		if d.Paid.IsPositive() && len(d.Payments) == 0 {
			d.Payments = append(d.Payments, domain.PaymentRecord{
				ID:            domain.NewID(domain.PrefixDeposit),
				Amount:        d.Paid,
				Date:          domain.NewTimestamp(now),
				ReceiptNumber: domain.NewReceiptNumber(domain.ReceiptDeposit, now),
			})
		}
	}
	domain.EnsurePeriods(r, now)
	r.Refresh(now)
	return nil
}
