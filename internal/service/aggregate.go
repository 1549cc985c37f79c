// Package service contains the business logic for the road trip planner.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

// LegRouter estimates the travel between two points. An error means the leg
// is unknown; it is stored as nil and contributes nothing to the totals.
type LegRouter interface {
	Leg(ctx context.Context, from, to domain.Coordinates) (domain.Leg, error)
}

// conflictRetries bounds how often a mutation is replayed after losing a
// commit race on the same trip.
const conflictRetries = 3

// aggregate runs mutations of one trip as a single unit of work:
// load, mutate, re-route changed legs, recompute, persist.
type aggregate struct {
	locker  repo.TripLocker
	router  LegRouter
	log     *slog.Logger
	backoff func() retry.Backoff
}

func newAggregate(locker repo.TripLocker, router LegRouter, log *slog.Logger) *aggregate {
	if log == nil {
		log = slog.Default()
	}
	return &aggregate{
		locker: locker,
		router: router,
		log:    log,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(conflictRetries, retry.NewExponential(20*time.Millisecond))
		},
	}
}

// mutate applies fn to the loaded trip and persists the outcome. Statistics
// are recomputed exactly once, after fn and leg routing. When fn fails
// nothing is written. domain.ErrConflict is retried with backoff.
func (a *aggregate) mutate(ctx context.Context, tripID uuid.UUID, fn func(trip *domain.Trip) error) (domain.Trip, error) {
	var result domain.Trip
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		err := a.locker.WithTripLock(ctx, tripID, func(ctx context.Context, tx repo.TripTx) error {
			trip, err := loadTrip(ctx, tx.Trips, tx.Stops, tripID)
			if err != nil {
				return err
			}
			before := indexStops(trip.Stops)
			legs := legSignatures(&trip)

			if err := fn(&trip); err != nil {
				return err
			}
			a.refreshLegs(ctx, &trip, legs)
			trip.RecomputeStatistics()

			saved, err := persist(ctx, tx, before, trip)
			if err != nil {
				return err
			}
			result = saved
			return nil
		})
		if errors.Is(err, domain.ErrConflict) {
			a.log.WarnContext(ctx, "trip write conflict, retrying", "trip_id", tripID, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return result, nil
}

// loadTrip reads the trip with its stops in order.
func loadTrip(ctx context.Context, trips repo.TripRepo, stops repo.StopRepo, tripID uuid.UUID) (domain.Trip, error) {
	trip, err := trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	trip.Stops, err = stops.ListByTripID(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	return trip, nil
}

// legKey identifies a leg by its endpoints. A leg whose key is unchanged
// after a mutation keeps its routed values.
type legKey struct {
	to       uuid.UUID
	from, at domain.Coordinates
}

func legSignatures(trip *domain.Trip) map[uuid.UUID]legKey {
	out := make(map[uuid.UUID]legKey)
	for _, p := range trip.LegPairs() {
		out[p.From.ID] = legKey{to: p.To.ID, from: p.From.Coordinates, at: p.To.Coordinates}
	}
	return out
}

// refreshLegs routes every leg whose endpoints changed or that has no value
// yet, and clears the leg of the last stop.
func (a *aggregate) refreshLegs(ctx context.Context, trip *domain.Trip, before map[uuid.UUID]legKey) {
	for _, p := range trip.LegPairs() {
		key := legKey{to: p.To.ID, from: p.From.Coordinates, at: p.To.Coordinates}
		if prev, ok := before[p.From.ID]; ok && prev == key && p.From.HasLeg() {
			continue
		}
		if a.router == nil {
			trip.SetLeg(p.From.ID, nil, nil)
			continue
		}
		leg, err := a.router.Leg(ctx, p.From.Coordinates, p.To.Coordinates)
		if err != nil {
			a.log.WarnContext(ctx, "leg routing unavailable",
				"trip_id", trip.ID, "from_stop", p.From.ID, "to_stop", p.To.ID, "err", err)
			trip.SetLeg(p.From.ID, nil, nil)
			continue
		}
		trip.SetLeg(p.From.ID, &leg.Distance, &leg.Hours)
	}
	if last, ok := trip.LastStopID(); ok {
		trip.SetLeg(last, nil, nil)
	}
}

func indexStops(stops []domain.Stop) map[uuid.UUID]domain.Stop {
	out := make(map[uuid.UUID]domain.Stop, len(stops))
	for _, s := range stops {
		out[s.ID] = s
	}
	return out
}

// persist writes the difference between before and trip, then the trip row.
// Stop rows come back from the repo so timestamps are current.
func persist(ctx context.Context, tx repo.TripTx, before map[uuid.UUID]domain.Stop, trip domain.Trip) (domain.Trip, error) {
	after := indexStops(trip.Stops)
	for id := range before {
		if _, kept := after[id]; !kept {
			if err := tx.Stops.Delete(ctx, trip.ID, id); err != nil {
				return domain.Trip{}, fmt.Errorf("delete stop %s: %w", id, err)
			}
		}
	}

	saved := make([]domain.Stop, 0, len(trip.Stops))
	for _, s := range trip.SortedStops() {
		prev, existed := before[s.ID]
		switch {
		case !existed:
			created, err := tx.Stops.Create(ctx, s)
			if err != nil {
				return domain.Trip{}, fmt.Errorf("create stop %s: %w", s.ID, err)
			}
			s = created
		case !sameStop(prev, s):
			updated, err := tx.Stops.Update(ctx, s)
			if err != nil {
				return domain.Trip{}, fmt.Errorf("update stop %s: %w", s.ID, err)
			}
			s = updated
		}
		saved = append(saved, s)
	}

	updated, err := tx.Trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("update trip: %w", err)
	}
	if err := tx.Trips.SaveStatistics(ctx, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("save statistics: %w", err)
	}
	updated.TotalDistance = trip.TotalDistance
	updated.TotalTime = trip.TotalTime
	updated.EstimatedFuelCost = trip.EstimatedFuelCost
	updated.Stops = saved
	return updated, nil
}

// sameStop compares the persisted fields of two versions of a stop.
func sameStop(a, b domain.Stop) bool {
	return a.Name == b.Name &&
		a.Address == b.Address &&
		a.Coordinates == b.Coordinates &&
		a.Order == b.Order &&
		a.PlaceID == b.PlaceID &&
		a.StopType == b.StopType &&
		a.Notes == b.Notes &&
		equalPtr(a.DurationMinutes, b.DurationMinutes) &&
		equalPtr(a.EstimatedCost, b.EstimatedCost) &&
		equalPtr(a.TravelTimeToNext, b.TravelTimeToNext) &&
		equalPtr(a.TravelDistanceToNext, b.TravelDistanceToNext)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
