package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

type stopRepo struct {
	s *Store
}

// Create inserts stop. Outside a trip lock every write is its own unit of
// work, so an order clash is reported immediately as domain.ErrConflict.
func (r *stopRepo) Create(_ context.Context, stop domain.Stop) (domain.Stop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[stop.TripID]; !ok {
		return domain.Stop{}, fmt.Errorf("memory.StopRepo.Create: trip %s: %w", stop.TripID, domain.ErrNotFound)
	}
	if stop.ID == uuid.Nil {
		stop.ID = uuid.New()
	}
	if _, dup := r.s.stops[stop.ID]; dup {
		return domain.Stop{}, fmt.Errorf("memory.StopRepo.Create: stop %s: %w", stop.ID, domain.ErrConflict)
	}
	if other, taken := r.s.orderHolder(stop.TripID, stop.Order, stop.ID); taken {
		return domain.Stop{}, fmt.Errorf("memory.StopRepo.Create: order %d held by %s: %w", stop.Order, other, domain.ErrConflict)
	}
	now := r.s.clock.Now()
	stop.CreatedAt, stop.UpdatedAt = now, now
	r.s.stops[stop.ID] = stop
	return stop, nil
}

func (r *stopRepo) GetByID(_ context.Context, tripID, stopID uuid.UUID) (domain.Stop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.stops[stopID]
	if !ok || st.TripID != tripID {
		return domain.Stop{}, fmt.Errorf("memory.StopRepo.GetByID: %w", domain.ErrNotFound)
	}
	return st, nil
}

func (r *stopRepo) ListByTripID(_ context.Context, tripID uuid.UUID) ([]domain.Stop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return sortedStops(r.s.stopsOf(tripID)), nil
}

func (r *stopRepo) Update(_ context.Context, stop domain.Stop) (domain.Stop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.stops[stop.ID]
	if !ok || cur.TripID != stop.TripID {
		return domain.Stop{}, fmt.Errorf("memory.StopRepo.Update: %w", domain.ErrNotFound)
	}
	if other, taken := r.s.orderHolder(stop.TripID, stop.Order, stop.ID); taken {
		return domain.Stop{}, fmt.Errorf("memory.StopRepo.Update: order %d held by %s: %w", stop.Order, other, domain.ErrConflict)
	}
	stop.CreatedAt = cur.CreatedAt
	stop.UpdatedAt = r.s.clock.Now()
	r.s.stops[stop.ID] = stop
	return stop, nil
}

func (r *stopRepo) Delete(_ context.Context, tripID, stopID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.stops[stopID]
	if !ok || st.TripID != tripID {
		return fmt.Errorf("memory.StopRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.s.stops, stopID)
	return nil
}

func sortedStops(stops []domain.Stop) []domain.Stop {
	out := append([]domain.Stop{}, stops...)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
