package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/store"
)

// DocumentService keeps the top-level documents collection and the copies
// embedded in rentals in step.
type DocumentService struct {
	store store.Store
	Now   func() time.Time
}

func NewDocumentService(s store.Store) *DocumentService {
	return &DocumentService{store: s, Now: time.Now}
}

// List returns every document, or those of one rental.
func (s *DocumentService) List(ctx context.Context, rentalID string) ([]domain.Document, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if rentalID == "" {
		return docs, nil
	}
	return slices.DeleteFunc(docs, func(d domain.Document) bool { return d.RentalID != rentalID }), nil
}

// Create stores a document. A document naming a rental is also attached to
// that rental, and inherits its client.
func (s *DocumentService) Create(ctx context.Context, doc domain.Document) (*domain.Document, error) {
	doc.ID = domain.NewID(domain.PrefixDoc)
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = domain.NewTimestamp(s.Now())
	}
	if doc.Type == "" {
		doc.Type = domain.DocumentOther
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	switch {
	case doc.RentalID != "":
		_, err := s.store.UpdateRental(ctx, doc.RentalID, func(c *domain.Client, r *domain.Rental) error {
			doc.ClientID = c.ID
			r.Documents = append(r.Documents, doc)
			return nil
		})
		if err != nil {
			return nil, err
		}
	case doc.ClientID != "":
		if _, err := s.store.GetClient(ctx, doc.ClientID); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateDocument(ctx, &doc); err != nil {
		if doc.RentalID != "" {
			s.detach(ctx, doc)
		}
		return nil, err
	}
	logging.Logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"rental_id":   doc.RentalID,
		"type":        doc.Type,
	}).Info("Document created")
	return &doc, nil
}

// Delete removes the document from the collection and from its rental.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.store.DeleteDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.RentalID != "" {
		s.detach(ctx, *doc)
	}
	logging.Logger.WithField("document_id", id).Info("Document deleted")
	return nil
}

func (s *DocumentService) detach(ctx context.Context, doc domain.Document) {
	_, err := s.store.UpdateRental(ctx, doc.RentalID, func(_ *domain.Client, r *domain.Rental) error {
		r.Documents = slices.DeleteFunc(r.Documents, func(d domain.Document) bool { return d.ID == doc.ID })
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.Logger.WithError(err).WithField("document_id", doc.ID).Error("Failed to detach document from rental")
	}
}
