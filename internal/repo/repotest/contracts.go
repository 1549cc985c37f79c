// Package repotest holds behavioural suites every repo implementation must
// pass. The Postgres repos and the in-memory store both run them.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

// Stores bundles the repos under test. Implementations must share state:
// a trip created through Trips is visible to Stops, Shares and Locker.
type Stores struct {
	Trips  repo.TripRepo
	Stops  repo.StopRepo
	Shares repo.ShareRepo
	Places repo.PlaceRepo
	Locker repo.TripLocker
}

// Factory returns fresh, empty Stores for one test.
type Factory func(t *testing.T) Stores

// RunAll runs every suite against newStores.
func RunAll(t *testing.T, newStores Factory) {
	t.Run("TripRepo", func(t *testing.T) { RunTripRepo(t, newStores) })
	t.Run("StopRepo", func(t *testing.T) { RunStopRepo(t, newStores) })
	t.Run("ShareRepo", func(t *testing.T) { RunShareRepo(t, newStores) })
	t.Run("PlaceRepo", func(t *testing.T) { RunPlaceRepo(t, newStores) })
	t.Run("TripLocker", func(t *testing.T) { RunTripLocker(t, newStores) })
}

// ---- fixtures --------------------------------------------------------------

// MustCreateTrip inserts a trip owned by owner and fails the test on error.
func MustCreateTrip(t *testing.T, r repo.TripRepo, owner uuid.UUID, name string) domain.Trip {
	t.Helper()
	trip := domain.Trip{OwnerID: owner, Name: name}
	trip.ApplyDefaults()
	got, err := r.Create(context.Background(), trip)
	require.NoError(t, err, "create trip")
	return got
}

// StopFixture returns a stop ready for insertion under tripID.
func StopFixture(tripID uuid.UUID, name string, order int) domain.Stop {
	return domain.Stop{
		ID:          uuid.New(),
		TripID:      tripID,
		Name:        name,
		Address:     "1 Main St",
		Coordinates: domain.Coordinates{Latitude: 36.1, Longitude: -115.1},
		Order:       order,
		StopType:    domain.StopTypeWaypoint,
	}
}

func ptr[T any](v T) *T { return &v }

// ---- TripRepo --------------------------------------------------------------

func RunTripRepo(t *testing.T, newStores Factory) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStores(t)
		start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		in := domain.Trip{
			OwnerID:          uuid.New(),
			Name:             "Route 66",
			Description:      "Chicago to Santa Monica",
			StartDate:        &start,
			VehicleMake:      "Ford",
			VehicleYear:      "2019",
			FuelEfficiency:   22,
			FuelPricePerUnit: 3.9,
		}

		created, err := s.Trips.Create(ctx, in)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.Trips.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, in.OwnerID, got.OwnerID)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.Description, got.Description)
		require.NotNil(t, got.StartDate)
		assert.True(t, got.StartDate.Equal(start))
		assert.Nil(t, got.EndDate)
		assert.Equal(t, "Ford", got.VehicleMake)
		assert.InDelta(t, 22.0, got.FuelEfficiency, 1e-9)
		assert.InDelta(t, 3.9, got.FuelPricePerUnit, 1e-9)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStores(t)
		_, err := s.Trips.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list by owner pages", func(t *testing.T) {
		s := newStores(t)
		owner := uuid.New()
		for _, name := range []string{"a", "b", "c"} {
			MustCreateTrip(t, s.Trips, owner, name)
		}
		MustCreateTrip(t, s.Trips, uuid.New(), "someone else")

		page1, total, err := s.Trips.ListByOwner(ctx, owner, domain.PaginationParams{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, page1, 2)

		page2, _, err := s.Trips.ListByOwner(ctx, owner, domain.PaginationParams{Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page2, 1)

		seen := map[uuid.UUID]bool{}
		for _, tr := range append(page1, page2...) {
			assert.Equal(t, owner, tr.OwnerID)
			seen[tr.ID] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("update leaves statistics alone", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "before")
		trip.TotalDistance = 10
		require.NoError(t, s.Trips.SaveStatistics(ctx, trip))

		trip.Name = "after"
		trip.TotalDistance = 999
		got, err := s.Trips.Update(ctx, trip)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Name)
		assert.InDelta(t, 10.0, got.TotalDistance, 1e-9)
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStores(t)
		_, err := s.Trips.Update(ctx, domain.Trip{ID: uuid.New(), Name: "x", FuelEfficiency: 25, FuelPricePerUnit: 3.5})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save statistics", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "stats")
		trip.TotalDistance, trip.TotalTime, trip.EstimatedFuelCost = 120, 2, 16.8

		require.NoError(t, s.Trips.SaveStatistics(ctx, trip))

		got, err := s.Trips.GetByID(ctx, trip.ID)
		require.NoError(t, err)
		assert.InDelta(t, 120.0, got.TotalDistance, 1e-9)
		assert.InDelta(t, 2.0, got.TotalTime, 1e-9)
		assert.InDelta(t, 16.8, got.EstimatedFuelCost, 1e-9)

		assert.ErrorIs(t, s.Trips.SaveStatistics(ctx, domain.Trip{ID: uuid.New()}), domain.ErrNotFound)
	})

	t.Run("delete cascades", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "doomed")
		stop, err := s.Stops.Create(ctx, StopFixture(trip.ID, "A", 1))
		require.NoError(t, err)
		_, err = s.Shares.Upsert(ctx, domain.TripShare{TripID: trip.ID, SharedWith: uuid.New(), SharedBy: trip.OwnerID, Permission: domain.PermissionView})
		require.NoError(t, err)

		require.NoError(t, s.Trips.Delete(ctx, trip.ID))

		_, err = s.Trips.GetByID(ctx, trip.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.Stops.GetByID(ctx, trip.ID, stop.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		shares, err := s.Shares.ListByTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Empty(t, shares)

		assert.ErrorIs(t, s.Trips.Delete(ctx, trip.ID), domain.ErrNotFound)
	})

	t.Run("list shared with", func(t *testing.T) {
		s := newStores(t)
		owner, friend := uuid.New(), uuid.New()
		shared := MustCreateTrip(t, s.Trips, owner, "shared")
		revoked := MustCreateTrip(t, s.Trips, owner, "revoked")
		MustCreateTrip(t, s.Trips, owner, "private")

		for _, tr := range []domain.Trip{shared, revoked} {
			_, err := s.Shares.Upsert(ctx, domain.TripShare{TripID: tr.ID, SharedWith: friend, SharedBy: owner, Permission: domain.PermissionView})
			require.NoError(t, err)
		}
		require.NoError(t, s.Shares.Deactivate(ctx, revoked.ID, friend))

		got, err := s.Trips.ListSharedWith(ctx, friend)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, shared.ID, got[0].ID)
	})
}

// ---- StopRepo --------------------------------------------------------------

func RunStopRepo(t *testing.T, newStores Factory) {
	ctx := context.Background()

	t.Run("create keeps id and fields", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		in := StopFixture(trip.ID, "Hoover Dam", 1)
		in.PlaceID = "ChIJ-dam"
		in.DurationMinutes = ptr(90)
		in.EstimatedCost = ptr(12.5)
		in.SetLeg(31.4, 0.6)

		got, err := s.Stops.Create(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, trip.ID, got.TripID)
		assert.Equal(t, "Hoover Dam", got.Name)
		assert.Equal(t, 1, got.Order)
		assert.Equal(t, "ChIJ-dam", got.PlaceID)
		assert.Equal(t, domain.StopTypeWaypoint, got.StopType)
		require.NotNil(t, got.DurationMinutes)
		assert.Equal(t, 90, *got.DurationMinutes)
		require.NotNil(t, got.EstimatedCost)
		assert.InDelta(t, 12.5, *got.EstimatedCost, 1e-9)
		require.True(t, got.HasLeg())
		assert.InDelta(t, 31.4, *got.TravelDistanceToNext, 1e-9)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("create under missing trip", func(t *testing.T) {
		s := newStores(t)
		_, err := s.Stops.Create(ctx, StopFixture(uuid.New(), "orphan", 1))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list ordered by stop order", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		for _, o := range []int{5, 1, 3} {
			_, err := s.Stops.Create(ctx, StopFixture(trip.ID, "s", o))
			require.NoError(t, err)
		}

		got, err := s.Stops.ListByTripID(ctx, trip.ID)

		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 3, 5}, []int{got[0].Order, got[1].Order, got[2].Order})
	})

	t.Run("list empty trip", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		got, err := s.Stops.ListByTripID(ctx, trip.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("get scoped by trip", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		other := MustCreateTrip(t, s.Trips, uuid.New(), "o")
		st, err := s.Stops.Create(ctx, StopFixture(trip.ID, "s", 1))
		require.NoError(t, err)

		_, err = s.Stops.GetByID(ctx, other.ID, st.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update clears leg", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		in := StopFixture(trip.ID, "s", 1)
		in.SetLeg(10, 1)
		st, err := s.Stops.Create(ctx, in)
		require.NoError(t, err)

		st.Name = "renamed"
		st.Order = 4
		st.ClearLeg()
		got, err := s.Stops.Update(ctx, st)

		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, 4, got.Order)
		assert.False(t, got.HasLeg())
	})

	t.Run("update and delete missing", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")

		_, err := s.Stops.Update(ctx, StopFixture(trip.ID, "ghost", 1))
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.Stops.Delete(ctx, trip.ID, uuid.New()), domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		st, err := s.Stops.Create(ctx, StopFixture(trip.ID, "s", 1))
		require.NoError(t, err)

		require.NoError(t, s.Stops.Delete(ctx, trip.ID, st.ID))

		_, err = s.Stops.GetByID(ctx, trip.ID, st.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// ---- ShareRepo -------------------------------------------------------------

func RunShareRepo(t *testing.T, newStores Factory) {
	ctx := context.Background()

	t.Run("upsert reactivates and overwrites", func(t *testing.T) {
		s := newStores(t)
		owner, friend := uuid.New(), uuid.New()
		trip := MustCreateTrip(t, s.Trips, owner, "t")

		first, err := s.Shares.Upsert(ctx, domain.TripShare{TripID: trip.ID, SharedWith: friend, SharedBy: owner, Permission: domain.PermissionView})
		require.NoError(t, err)
		assert.True(t, first.IsActive)
		require.NoError(t, s.Shares.Deactivate(ctx, trip.ID, friend))

		second, err := s.Shares.Upsert(ctx, domain.TripShare{TripID: trip.ID, SharedWith: friend, SharedBy: owner, Permission: domain.PermissionEdit, Message: "drive with me"})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.IsActive)
		assert.Equal(t, domain.PermissionEdit, second.Permission)
		assert.Equal(t, "drive with me", second.Message)

		list, err := s.Shares.ListByTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("get and deactivate", func(t *testing.T) {
		s := newStores(t)
		owner, friend := uuid.New(), uuid.New()
		trip := MustCreateTrip(t, s.Trips, owner, "t")

		_, err := s.Shares.Get(ctx, trip.ID, friend)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.Shares.Upsert(ctx, domain.TripShare{TripID: trip.ID, SharedWith: friend, SharedBy: owner, Permission: domain.PermissionAdmin})
		require.NoError(t, err)
		require.NoError(t, s.Shares.Deactivate(ctx, trip.ID, friend))

		got, err := s.Shares.Get(ctx, trip.ID, friend)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		assert.ErrorIs(t, s.Shares.Deactivate(ctx, trip.ID, friend), domain.ErrNotFound)
	})

	t.Run("upsert on missing trip", func(t *testing.T) {
		s := newStores(t)
		_, err := s.Shares.Upsert(ctx, domain.TripShare{TripID: uuid.New(), SharedWith: uuid.New(), SharedBy: uuid.New(), Permission: domain.PermissionView})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// ---- PlaceRepo -------------------------------------------------------------

func RunPlaceRepo(t *testing.T, newStores Factory) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	place := domain.Place{
		PlaceID:          "ChIJ-griffith",
		Name:             "Griffith Observatory",
		FormattedAddress: "2800 E Observatory Rd, Los Angeles, CA",
		Coordinates:      domain.Coordinates{Latitude: 34.1184, Longitude: -118.3004},
		PlaceType:        domain.PlaceTypeMuseum,
		Types:            []string{"museum", "point_of_interest"},
		Rating:           ptr(4.8),
		UserRatingsTotal: ptr(51234),
		OpeningHours:     &domain.OpeningHours{OpenNow: ptr(true), WeekdayText: []string{"Monday: Closed"}},
		Photos:           []string{"photo-ref-1"},
		Reviews:          []domain.Review{{AuthorName: "Ann", Rating: 5, Text: "Stars!", Time: 1700000000}},
		BusinessStatus:   "OPERATIONAL",
		LastUpdated:      now,
		CacheExpiresAt:   now.Add(7 * 24 * time.Hour),
	}

	t.Run("place round trip", func(t *testing.T) {
		s := newStores(t)
		require.NoError(t, s.Places.UpsertPlace(ctx, place))

		got, err := s.Places.GetPlace(ctx, place.PlaceID)

		require.NoError(t, err)
		assert.Equal(t, place.Name, got.Name)
		assert.Equal(t, place.Types, got.Types)
		assert.Equal(t, place.Photos, got.Photos)
		assert.Equal(t, place.Reviews, got.Reviews)
		require.NotNil(t, got.OpeningHours)
		assert.Equal(t, place.OpeningHours.WeekdayText, got.OpeningHours.WeekdayText)
		require.NotNil(t, got.Rating)
		assert.InDelta(t, 4.8, *got.Rating, 1e-9)
		assert.Nil(t, got.PriceLevel)
		assert.True(t, got.CacheExpiresAt.Equal(place.CacheExpiresAt))
	})

	t.Run("upsert replaces", func(t *testing.T) {
		s := newStores(t)
		require.NoError(t, s.Places.UpsertPlace(ctx, place))
		changed := place
		changed.Name = "Griffith Park Observatory"
		changed.OpeningHours = nil
		require.NoError(t, s.Places.UpsertPlace(ctx, changed))

		got, err := s.Places.GetPlace(ctx, place.PlaceID)
		require.NoError(t, err)
		assert.Equal(t, "Griffith Park Observatory", got.Name)
		assert.Nil(t, got.OpeningHours)
	})

	t.Run("get places skips missing", func(t *testing.T) {
		s := newStores(t)
		require.NoError(t, s.Places.UpsertPlace(ctx, place))

		got, err := s.Places.GetPlaces(ctx, []string{place.PlaceID, "missing"})

		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Contains(t, got, place.PlaceID)

		_, err = s.Places.GetPlace(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("search query round trip", func(t *testing.T) {
		s := newStores(t)
		q := domain.SearchQuery{
			Key:          "nearby|9q5ctr|1500|restaurant",
			Kind:         domain.SearchKindNearby,
			Location:     &domain.Coordinates{Latitude: 34.05, Longitude: -118.24},
			Radius:       1500,
			PlaceType:    "restaurant",
			PlaceIDs:     []string{"b", "a"},
			TotalResults: 2,
			CreatedAt:    now,
			ExpiresAt:    now.Add(30 * time.Minute),
		}
		require.NoError(t, s.Places.UpsertSearchQuery(ctx, q))

		got, err := s.Places.GetSearchQuery(ctx, q.Key)

		require.NoError(t, err)
		assert.Equal(t, domain.SearchKindNearby, got.Kind)
		assert.Equal(t, []string{"b", "a"}, got.PlaceIDs, "result order is preserved")
		require.NotNil(t, got.Location)
		assert.InDelta(t, 34.05, got.Location.Latitude, 1e-9)
		assert.True(t, got.ExpiresAt.Equal(q.ExpiresAt))

		_, err = s.Places.GetSearchQuery(ctx, "absent")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty result set", func(t *testing.T) {
		s := newStores(t)
		q := domain.SearchQuery{Key: "text|nowhere|0|all", Kind: domain.SearchKindText, Query: "nowhere", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, s.Places.UpsertSearchQuery(ctx, q))

		got, err := s.Places.GetSearchQuery(ctx, q.Key)
		require.NoError(t, err)
		assert.Empty(t, got.PlaceIDs)
		assert.Nil(t, got.Location)
	})
}

// ---- TripLocker ------------------------------------------------------------

var errBoom = errors.New("boom")

func RunTripLocker(t *testing.T, newStores Factory) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")

		err := s.Locker.WithTripLock(ctx, trip.ID, func(ctx context.Context, tx repo.TripTx) error {
			if _, err := tx.Stops.Create(ctx, StopFixture(trip.ID, "a", 1)); err != nil {
				return err
			}
			trip.TotalDistance = 5
			return tx.Trips.SaveStatistics(ctx, trip)
		})
		require.NoError(t, err)

		stops, err := s.Stops.ListByTripID(ctx, trip.ID)
		require.NoError(t, err)
		assert.Len(t, stops, 1)
		got, err := s.Trips.GetByID(ctx, trip.ID)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, got.TotalDistance, 1e-9)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		kept, err := s.Stops.Create(ctx, StopFixture(trip.ID, "kept", 1))
		require.NoError(t, err)

		err = s.Locker.WithTripLock(ctx, trip.ID, func(ctx context.Context, tx repo.TripTx) error {
			if _, err := tx.Stops.Create(ctx, StopFixture(trip.ID, "b", 2)); err != nil {
				return err
			}
			if err := tx.Stops.Delete(ctx, trip.ID, kept.ID); err != nil {
				return err
			}
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)

		stops, err := s.Stops.ListByTripID(ctx, trip.ID)
		require.NoError(t, err)
		require.Len(t, stops, 1)
		assert.Equal(t, kept.ID, stops[0].ID)
	})

	t.Run("swap inside one unit", func(t *testing.T) {
		s := newStores(t)
		trip := MustCreateTrip(t, s.Trips, uuid.New(), "t")
		a, err := s.Stops.Create(ctx, StopFixture(trip.ID, "a", 1))
		require.NoError(t, err)
		b, err := s.Stops.Create(ctx, StopFixture(trip.ID, "b", 2))
		require.NoError(t, err)

		err = s.Locker.WithTripLock(ctx, trip.ID, func(ctx context.Context, tx repo.TripTx) error {
			a.Order, b.Order = 2, 1
			if _, err := tx.Stops.Update(ctx, a); err != nil {
				return err
			}
			_, err := tx.Stops.Update(ctx, b)
			return err
		})
		require.NoError(t, err)

		stops, err := s.Stops.ListByTripID(ctx, trip.ID)
		require.NoError(t, err)
		require.Len(t, stops, 2)
		assert.Equal(t, b.ID, stops[0].ID)
		assert.Equal(t, a.ID, stops[1].ID)
	})

	t.Run("missing trip", func(t *testing.T) {
		s := newStores(t)
		called := false
		err := s.Locker.WithTripLock(ctx, uuid.New(), func(context.Context, repo.TripTx) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, called)
	})
}
