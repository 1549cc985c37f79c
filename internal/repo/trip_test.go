package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo/repotest"
	"github.com/pkordes/roadtrip-planner/backend/testutil"
)

func TestContract_Postgres(t *testing.T) {
	repotest.RunAll(t, func(t *testing.T) repotest.Stores {
		tx := testutil.NewTx(t)
		return repotest.Stores{
			Trips:  repo.NewTripRepo(tx),
			Stops:  repo.NewStopRepo(tx),
			Shares: repo.NewShareRepo(tx),
			Places: repo.NewPlaceRepo(tx),
			Locker: repo.NewTripLocker(tx),
		}
	})
}

func TestTripRepo_Create_RejectsOutOfRangeEfficiency(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))

	_, err := r.Create(context.Background(), domain.Trip{
		OwnerID:          uuid.New(),
		Name:             "Bad",
		FuelEfficiency:   1,
		FuelPricePerUnit: 3.5,
	})

	// The CHECK constraint is the last line of defence behind Trip.Validate.
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestTripRepo_Update_BumpsUpdatedAt(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))
	ctx := context.Background()
	trip := repotest.MustCreateTrip(t, r, uuid.New(), "Original")

	trip.Name = "Renamed"
	got, err := r.Update(ctx, trip)

	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.UpdatedAt.Before(trip.UpdatedAt))
	assert.True(t, got.CreatedAt.Equal(trip.CreatedAt))
}
