package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/clock"
	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo/memory"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo/repotest"
)

func stores(s *memory.Store) repotest.Stores {
	return repotest.Stores{
		Trips:  s.Trips(),
		Stops:  s.Stops(),
		Shares: s.Shares(),
		Places: s.Places(),
		Locker: s,
	}
}

func TestContract_Memory(t *testing.T) {
	repotest.RunAll(t, func(t *testing.T) repotest.Stores {
		t.Helper()
		return stores(memory.New(clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	})
}

func TestWithTripLock_DuplicateOrderIsConflict(t *testing.T) {
	s := memory.New(nil)
	ctx := context.Background()
	trip := repotest.MustCreateTrip(t, s.Trips(), uuid.New(), "t")
	a, err := s.Stops().Create(ctx, repotest.StopFixture(trip.ID, "a", 1))
	require.NoError(t, err)
	_, err = s.Stops().Create(ctx, repotest.StopFixture(trip.ID, "b", 2))
	require.NoError(t, err)

	err = s.WithTripLock(ctx, trip.ID, func(ctx context.Context, tx repo.TripTx) error {
		a.Order = 2
		_, err := tx.Stops.Update(ctx, a)
		return err
	})

	assert.ErrorIs(t, err, domain.ErrConflict)
	got, err := s.Stops().GetByID(ctx, trip.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Order)
}

func TestWithTripLock_WritesInvisibleUntilCommit(t *testing.T) {
	s := memory.New(nil)
	ctx := context.Background()
	trip := repotest.MustCreateTrip(t, s.Trips(), uuid.New(), "t")

	err := s.WithTripLock(ctx, trip.ID, func(ctx context.Context, tx repo.TripTx) error {
		_, err := tx.Stops.Create(ctx, repotest.StopFixture(trip.ID, "a", 1))
		require.NoError(t, err)

		outside, err := s.Stops().ListByTripID(ctx, trip.ID)
		require.NoError(t, err)
		assert.Empty(t, outside)
		return nil
	})
	require.NoError(t, err)

	after, err := s.Stops().ListByTripID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestWithTripLock_CancelledContextDiscardsWrites(t *testing.T) {
	s := memory.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	trip := repotest.MustCreateTrip(t, s.Trips(), uuid.New(), "t")

	err := s.WithTripLock(ctx, trip.ID, func(ctx context.Context, tx repo.TripTx) error {
		_, err := tx.Stops.Create(ctx, repotest.StopFixture(trip.ID, "a", 1))
		cancel()
		return err
	})

	assert.ErrorIs(t, err, context.Canceled)
	stops, err := s.Stops().ListByTripID(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Empty(t, stops)
}

func TestWithTripLock_SerializesWriters(t *testing.T) {
	s := memory.New(nil)
	ctx := context.Background()
	trip := repotest.MustCreateTrip(t, s.Trips(), uuid.New(), "t")

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTripLock(ctx, trip.ID, func(ctx context.Context, tx repo.TripTx) error {
				existing, err := tx.Stops.ListByTripID(ctx, trip.ID)
				if err != nil {
					return err
				}
				// Read-then-write: only safe because writers are serialized.
				_, err = tx.Stops.Create(ctx, repotest.StopFixture(trip.ID, "s", len(existing)+1))
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stops, err := s.Stops().ListByTripID(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, stops, writers)
	for i, st := range stops {
		assert.Equal(t, i+1, st.Order)
	}
}

func TestWithTripLock_WaitGivesUpOnContext(t *testing.T) {
	s := memory.New(nil)
	trip := repotest.MustCreateTrip(t, s.Trips(), uuid.New(), "t")

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.WithTripLock(context.Background(), trip.ID, func(context.Context, repo.TripTx) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithTripLock(ctx, trip.ID, func(context.Context, repo.TripTx) error { return nil })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
