package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsurePeriods_EndOfMonthStart(t *testing.T) {
	r := Rental{
		ID:          "rental_1",
		MonthlyRent: d(150000),
		StartDate:   NewTimestamp(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)),
	}
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	created := EnsurePeriods(&r, now)

	require.Equal(t, 2, created)
	require.Len(t, r.Payments, 2)

	first := r.Payments[0]
	assert.Equal(t, "2024-01-31T00:00:00.000Z", first.PeriodStart.String())
	assert.Equal(t, "2024-02-28T00:00:00.000Z", first.PeriodEnd.String())
	assert.Equal(t, "2024-03-04T00:00:00.000Z", first.DueDate.String())
	assert.True(t, first.Amount.Equal(d(150000)))
	assert.Equal(t, "rental_1", first.RentalID)
	assert.Equal(t, StatusLate, first.Status)

	second := r.Payments[1]
	assert.Equal(t, "2024-02-29T00:00:00.000Z", second.PeriodStart.String())
	assert.Equal(t, "2024-03-30T00:00:00.000Z", second.PeriodEnd.String())
	assert.Equal(t, StatusUnpaid, second.Status)
}

func TestEnsurePeriods_Idempotent(t *testing.T) {
	r := Rental{
		ID:          "rental_1",
		MonthlyRent: d(1000),
		StartDate:   NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, 6, EnsurePeriods(&r, now))
	ids := []string{r.Payments[0].ID, r.Payments[5].ID}

	assert.Equal(t, 0, EnsurePeriods(&r, now))
	assert.Equal(t, 1, EnsurePeriods(&r, now.AddDate(0, 1, 0)))
	assert.Len(t, r.Payments, 7)
	assert.Equal(t, ids[0], r.Payments[0].ID)
	assert.Equal(t, ids[1], r.Payments[5].ID)
}

func TestEnsurePeriods_SkipsIncompleteRentals(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0, EnsurePeriods(&Rental{ID: "r", MonthlyRent: d(1000)}, now))
	assert.Equal(t, 0, EnsurePeriods(&Rental{ID: "r", StartDate: NewTimestamp(now)}, now))
	assert.Equal(t, 0, EnsurePeriods(&Rental{ID: "r", MonthlyRent: d(1000), StartDate: NewTimestamp(now.AddDate(0, 1, 0))}, now))
}
