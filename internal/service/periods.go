package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/store"
)

// PeriodService generates the monthly periods that have come due.
type PeriodService struct {
	store store.Store
	Now   func() time.Time
}

func NewPeriodService(s store.Store) *PeriodService {
	return &PeriodService{store: s, Now: time.Now}
}

// RollForward creates the missing periods of every rental and returns how
// many were created. Clients with nothing to add are not rewritten.
func (s *PeriodService) RollForward(ctx context.Context) (int, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return 0, err
	}
	now := s.Now()
	total := 0
	for _, c := range clients {
		if pending(c, now) == 0 {
			continue
		}
		created := 0
		_, err := s.store.UpdateClient(ctx, c.ID, func(fresh *domain.Client) error {
			created = 0
			for i := range fresh.Rentals {
				created += domain.EnsurePeriods(&fresh.Rentals[i], now)
			}
			fresh.Refresh(now)
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("rolling periods of client %q: %w", c.ID, err)
		}
		total += created
	}
	return total, nil
}

// pending counts the periods EnsurePeriods would create, on a copy.
func pending(c domain.Client, now time.Time) int {
	c = c.Clone()
	n := 0
	for i := range c.Rentals {
		n += domain.EnsurePeriods(&c.Rentals[i], now)
	}
	return n
}

// Schedule returns a cron runner that calls RollForward on the cron
// expression expr. The caller starts and stops it.
func (s *PeriodService) Schedule(expr string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		n, err := s.RollForward(context.Background())
		if err != nil {
			logging.Logger.WithError(err).Error("Period roll-forward failed")
			return
		}
		logging.Logger.WithField("created", n).Info("Period roll-forward complete")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid PERIODS_CRON %q: %w", expr, err)
	}
	return c, nil
}
