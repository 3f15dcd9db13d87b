package store

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/rentledger/internal/domain"
)

const maxRetries = 3

type loadVersioned func(ctx context.Context) (*domain.Client, int64, error)

// saveIfVersion reports false when another writer bumped the version first.
type saveIfVersion func(ctx context.Context, c *domain.Client, expected int64) (bool, error)

// updateWithRetry runs a read-mutate-update loop with optimistic locking.
func updateWithRetry(
	ctx context.Context,
	id string,
	load loadVersioned,
	save saveIfVersion,
	mutate func(*domain.Client) error,
) (*domain.Client, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		current, version, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := mutate(current); err != nil {
			return nil, err
		}
		if err := current.Validate(); err != nil {
			return nil, err
		}
		ok, err := save(ctx, current, version)
		if err != nil {
			return nil, err
		}
		if ok {
			return current, nil
		}
		// someone else updated first, retry
	}
	return nil, fmt.Errorf("%w updating %q", ErrConflict, id)
}
