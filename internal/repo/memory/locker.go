package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

var errOutsideTrip = errors.New("operation not available inside a trip lock")

// WithTripLock implements repo.TripLocker. fn works on a private copy of the
// trip row and its stops; the copy replaces the stored rows only when fn
// succeeds and ctx is still live. Stop order uniqueness is checked at that
// point, mirroring the deferred constraint of the Postgres schema.
func (s *Store) WithTripLock(ctx context.Context, tripID uuid.UUID, fn func(ctx context.Context, tx repo.TripTx) error) error {
	release, err := s.acquire(ctx, tripID)
	if err != nil {
		return fmt.Errorf("memory.TripLocker.WithTripLock: %w", err)
	}
	defer release()

	s.mu.RLock()
	trip, ok := s.trips[tripID]
	u := &unit{s: s, trip: trip, stops: map[uuid.UUID]domain.Stop{}}
	for _, st := range s.stopsOf(tripID) {
		u.stops[st.ID] = st
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("memory.TripLocker.WithTripLock: %w", domain.ErrNotFound)
	}

	if err := fn(ctx, repo.TripTx{Trips: &unitTrips{u: u}, Stops: &unitStops{u: u}}); err != nil {
		return fmt.Errorf("memory.TripLocker.WithTripLock: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory.TripLocker.WithTripLock: %w", err)
	}
	if err := u.commit(); err != nil {
		return fmt.Errorf("memory.TripLocker.WithTripLock: %w", err)
	}
	return nil
}

// unit is the staged state of one trip inside WithTripLock.
type unit struct {
	s     *Store
	trip  domain.Trip
	stops map[uuid.UUID]domain.Stop
}

func (u *unit) commit() error {
	holder := make(map[int]uuid.UUID, len(u.stops))
	for id, st := range u.stops {
		if other, clash := holder[st.Order]; clash {
			return fmt.Errorf("%w: stop order %d held by %s and %s", domain.ErrConflict, st.Order, other, id)
		}
		holder[st.Order] = id
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.trips[u.trip.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, st := range u.s.stops {
		if st.TripID == u.trip.ID {
			delete(u.s.stops, id)
		}
	}
	for id, st := range u.stops {
		u.s.stops[id] = st
	}
	u.s.trips[u.trip.ID] = u.trip
	return nil
}

func (u *unit) owns(tripID uuid.UUID) bool { return tripID == u.trip.ID }

type unitTrips struct {
	u *unit
}

func (t *unitTrips) Create(context.Context, domain.Trip) (domain.Trip, error) {
	return domain.Trip{}, errOutsideTrip
}

func (t *unitTrips) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	if !t.u.owns(id) {
		return domain.Trip{}, errOutsideTrip
	}
	return t.u.trip, nil
}

func (t *unitTrips) ListByOwner(context.Context, uuid.UUID, domain.PaginationParams) ([]domain.Trip, int64, error) {
	return nil, 0, errOutsideTrip
}

func (t *unitTrips) ListSharedWith(context.Context, uuid.UUID) ([]domain.Trip, error) {
	return nil, errOutsideTrip
}

func (t *unitTrips) Update(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	if !t.u.owns(trip.ID) {
		return domain.Trip{}, errOutsideTrip
	}
	t.u.trip = withEditable(t.u.trip, trip)
	t.u.trip.UpdatedAt = t.u.s.clock.Now()
	return t.u.trip, nil
}

func (t *unitTrips) SaveStatistics(_ context.Context, trip domain.Trip) error {
	if !t.u.owns(trip.ID) {
		return errOutsideTrip
	}
	t.u.trip = withStatistics(t.u.trip, trip, t.u.s.clock.Now())
	return nil
}

func (t *unitTrips) Delete(context.Context, uuid.UUID) error {
	return errOutsideTrip
}

type unitStops struct {
	u *unit
}

func (r *unitStops) Create(_ context.Context, stop domain.Stop) (domain.Stop, error) {
	if !r.u.owns(stop.TripID) {
		return domain.Stop{}, fmt.Errorf("trip %s: %w", stop.TripID, domain.ErrNotFound)
	}
	if stop.ID == uuid.Nil {
		stop.ID = uuid.New()
	}
	if _, dup := r.u.stops[stop.ID]; dup {
		return domain.Stop{}, fmt.Errorf("stop %s: %w", stop.ID, domain.ErrConflict)
	}
	now := r.u.s.clock.Now()
	stop.CreatedAt, stop.UpdatedAt = now, now
	r.u.stops[stop.ID] = stop
	return stop, nil
}

func (r *unitStops) GetByID(_ context.Context, tripID, stopID uuid.UUID) (domain.Stop, error) {
	st, ok := r.u.stops[stopID]
	if !ok || !r.u.owns(tripID) {
		return domain.Stop{}, domain.ErrNotFound
	}
	return st, nil
}

func (r *unitStops) ListByTripID(_ context.Context, tripID uuid.UUID) ([]domain.Stop, error) {
	if !r.u.owns(tripID) {
		return []domain.Stop{}, nil
	}
	out := make([]domain.Stop, 0, len(r.u.stops))
	for _, st := range r.u.stops {
		out = append(out, st)
	}
	return sortedStops(out), nil
}

func (r *unitStops) Update(_ context.Context, stop domain.Stop) (domain.Stop, error) {
	cur, ok := r.u.stops[stop.ID]
	if !ok || !r.u.owns(stop.TripID) {
		return domain.Stop{}, domain.ErrNotFound
	}
	stop.CreatedAt = cur.CreatedAt
	stop.UpdatedAt = r.u.s.clock.Now()
	r.u.stops[stop.ID] = stop
	return stop, nil
}

func (r *unitStops) Delete(_ context.Context, tripID, stopID uuid.UUID) error {
	if _, ok := r.u.stops[stopID]; !ok || !r.u.owns(tripID) {
		return domain.ErrNotFound
	}
	delete(r.u.stops, stopID)
	return nil
}
