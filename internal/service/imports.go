package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/importer"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/models"
	"github.com/punchamoorthee/rentledger/internal/store"
)

// ImportRequest is one uploaded sheet with an optional explicit mapping of
// field names to header texts.
type ImportRequest struct {
	Filename string
	File     io.Reader
	Mapping  map[string]string
	AdminID  string
}

type ImportService struct {
	store      store.Store
	aliases    importer.Aliases
	requireCNI bool
	Now        func() time.Time
}

func NewImportService(s store.Store, aliases importer.Aliases, requireCNI bool) *ImportService {
	if aliases == nil {
		aliases = importer.DefaultAliases()
	}
	return &ImportService{store: s, aliases: aliases, requireCNI: requireCNI, Now: time.Now}
}

// Preview parses and validates a sheet without writing anything.
func (s *ImportService) Preview(ctx context.Context, req ImportRequest) (*models.ImportPreview, error) {
	sheet, err := importer.Read(req.Filename, req.File)
	if err != nil {
		return nil, domain.NewValidationError([]string{err.Error()})
	}
	m := importer.Guess(sheet.Headers, s.aliases)
	if err := m.Override(sheet.Headers, req.Mapping); err != nil {
		return nil, domain.NewValidationError([]string{"mapping: " + err.Error()})
	}
	existing, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	res := importer.Validate(sheet, m, importer.Options{RequireCNI: s.requireCNI, Existing: existing})
	return &models.ImportPreview{Headers: sheet.Headers, Result: res}, nil
}

// Commit inserts every valid row as a client and reports the rest.
func (s *ImportService) Commit(ctx context.Context, req ImportRequest) (*models.ImportCommitResponse, error) {
	preview, err := s.Preview(ctx, req)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	resp := &models.ImportCommitResponse{Success: true, ClientIDs: []string{}, Invalid: preview.Invalid}
	for _, row := range preview.Valid {
		c := ClientFromRecord(row.Record, req.AdminID, now)
		err := s.store.CreateClient(ctx, &c)
		var verr *domain.ValidationError
		switch {
		case err == nil:
			resp.Imported++
			resp.ClientIDs = append(resp.ClientIDs, c.ID)
		case errors.As(err, &verr):
			row.Errors = append(row.Errors, verr.Problems...)
			resp.Invalid = append(resp.Invalid, row)
		case errors.Is(err, store.ErrExists):
			row.Errors = append(row.Errors, err.Error())
			resp.Invalid = append(resp.Invalid, row)
		default:
			// rows before this one stay imported; resp says which
			resp.Success = false
			resp.Error = fmt.Sprintf("row %d: %v", row.Row, err)
			return resp, fmt.Errorf("importing row %d: %w", row.Row, err)
		}
	}
	logging.Logger.WithFields(logrus.Fields{
		"file":     req.Filename,
		"imported": resp.Imported,
		"invalid":  len(resp.Invalid),
	}).Info("Import committed")
	return resp, nil
}

// ClientFromRecord builds a client from an import row. A rental is created
// when the row has a positive rent, with its deposit and periods.
func ClientFromRecord(rec importer.Record, adminID string, now time.Time) domain.Client {
	c := domain.Client{
		ID:        domain.NewID(domain.PrefixClient),
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Phone:     rec.Phone,
		Email:     rec.Email,
		CNI:       rec.CNI,
		Status:    rec.Status,
		CreatedAt: domain.NewTimestamp(now),
		AdminID:   adminID,
		Rentals:   []domain.Rental{},
	}
	if c.Status == "" {
		c.Status = domain.ClientActive
	}
	if !rec.MonthlyRent.IsPositive() {
		return c
	}

	r := domain.Rental{
		ID:           domain.NewID(domain.PrefixRental),
		ClientID:     c.ID,
		PropertyType: rec.PropertyType,
		PropertyName: rec.PropertyName,
		MonthlyRent:  rec.MonthlyRent,
		StartDate:    rec.StartDate,
		Payments:     []domain.MonthlyPayment{},
		Documents:    []domain.Document{},
	}
	if rec.DepositTotal.IsPositive() || rec.DepositPaid.IsPositive() {
		r.Deposit = &domain.Deposit{Total: rec.DepositTotal, Paid: decimal.Zero, Payments: []domain.PaymentRecord{}}
		if rec.DepositPaid.IsPositive() {
			// cannot fail: amount is positive
			_, _ = r.RecordDeposit(rec.DepositPaid, now)
		}
	}
	domain.EnsurePeriods(&r, now)
	c.Rentals = append(c.Rentals, r)
	c.Refresh(now)
	return c
}
