// Package store persists clients, with their embedded rentals, and the
// top-level documents collection.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/punchamoorthee/rentledger/internal/config"
	"github.com/punchamoorthee/rentledger/internal/domain"
)

var (
	ErrConflict = errors.New("store: too much contention")
	ErrExists   = errors.New("store: record already exists")
)

// Store is implemented by every driver. Mutations go through UpdateClient
// and UpdateRental: mutate works on a private copy and nothing is written
// when it returns an error or the result fails domain validation.
type Store interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	CreateClient(ctx context.Context, c *domain.Client) error
	UpdateClient(ctx context.Context, id string, mutate func(*domain.Client) error) (*domain.Client, error)
	UpdateRental(ctx context.Context, rentalID string, mutate func(*domain.Client, *domain.Rental) error) (*domain.Client, error)
	// DeleteClient removes the client and every document attached to it or
	// to one of its rentals.
	DeleteClient(ctx context.Context, id string) error

	ListDocuments(ctx context.Context) ([]domain.Document, error)
	CreateDocument(ctx context.Context, doc *domain.Document) error
	DeleteDocument(ctx context.Context, id string) (*domain.Document, error)

	Close() error
}

// Open returns the driver selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverJSON:
		return OpenFileStore(cfg.StorePath)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.DBSource)
	case config.DriverSQLite:
		return OpenSQLiteStore(ctx, cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// rentalMutation adapts an UpdateRental callback to UpdateClient.
func rentalMutation(rentalID string, mutate func(*domain.Client, *domain.Rental) error) func(*domain.Client) error {
	return func(c *domain.Client) error {
		r := c.FindRental(rentalID)
		if r == nil {
			return domain.ErrRentalNotFound
		}
		return mutate(c, r)
	}
}

func rentalIDs(c *domain.Client) []string {
	ids := make([]string, 0, len(c.Rentals))
	for _, r := range c.Rentals {
		ids = append(ids, r.ID)
	}
	return ids
}

// rentalTaken is returned when a write would give a rental id to a second
// client, or list it twice in one client.
func rentalTaken(rentalID string) error {
	return fmt.Errorf("%w: rental %q", ErrExists, rentalID)
}

// repeatedRentalID reports a rental id listed more than once in c.
func repeatedRentalID(c *domain.Client) error {
	seen := make(map[string]bool, len(c.Rentals))
	for _, r := range c.Rentals {
		if seen[r.ID] {
			return rentalTaken(r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
