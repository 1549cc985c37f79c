package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

type tripRepo struct {
	s *Store
}

func (r *tripRepo) Create(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.clock.Now()
	trip.ID = uuid.New()
	trip.Stops = nil
	trip.CreatedAt, trip.UpdatedAt = now, now
	r.s.trips[trip.ID] = trip
	return trip, nil
}

func (r *tripRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.trips[id]
	if !ok {
		return domain.Trip{}, fmt.Errorf("memory.TripRepo.GetByID: %w", domain.ErrNotFound)
	}
	return t, nil
}

func (r *tripRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var all []domain.Trip
	for _, t := range r.s.trips {
		if t.OwnerID == ownerID {
			all = append(all, t)
		}
	}
	sortByRecent(all)

	total := int64(len(all))
	start, end := p.Bounds(len(all))
	page := append([]domain.Trip{}, all[start:end]...)
	return page, total, nil
}

func (r *tripRepo) ListSharedWith(_ context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Trip{}
	for k, sh := range r.s.shares {
		if k.userID != userID || !sh.IsActive {
			continue
		}
		if t, ok := r.s.trips[k.tripID]; ok {
			out = append(out, t)
		}
	}
	sortByRecent(out)
	return out, nil
}

func (r *tripRepo) Update(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	updated, err := r.s.updateTrip(trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("memory.TripRepo.Update: %w", err)
	}
	return updated, nil
}

func (r *tripRepo) SaveStatistics(_ context.Context, trip domain.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.trips[trip.ID]
	if !ok {
		return fmt.Errorf("memory.TripRepo.SaveStatistics: %w", domain.ErrNotFound)
	}
	r.s.trips[trip.ID] = withStatistics(cur, trip, r.s.clock.Now())
	return nil
}

// Delete waits for any writer holding the trip lock, then removes the trip
// with its stops and shares.
func (r *tripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	release, err := r.s.acquire(ctx, id)
	if err != nil {
		return fmt.Errorf("memory.TripRepo.Delete: %w", err)
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[id]; !ok {
		return fmt.Errorf("memory.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.s.trips, id)
	for sid, st := range r.s.stops {
		if st.TripID == id {
			delete(r.s.stops, sid)
		}
	}
	for k := range r.s.shares {
		if k.tripID == id {
			delete(r.s.shares, k)
		}
	}
	return nil
}

// updateTrip copies the editable fields of trip onto the stored row.
// Callers hold s.mu.
func (s *Store) updateTrip(trip domain.Trip) (domain.Trip, error) {
	cur, ok := s.trips[trip.ID]
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	cur = withEditable(cur, trip)
	cur.UpdatedAt = s.clock.Now()
	s.trips[trip.ID] = cur
	return cur, nil
}

func withEditable(cur, in domain.Trip) domain.Trip {
	cur.Name = in.Name
	cur.Description = in.Description
	cur.StartDate = in.StartDate
	cur.EndDate = in.EndDate
	cur.IsPublic = in.IsPublic
	cur.VehicleMake = in.VehicleMake
	cur.VehicleModel = in.VehicleModel
	cur.VehicleYear = in.VehicleYear
	cur.FuelEfficiency = in.FuelEfficiency
	cur.FuelPricePerUnit = in.FuelPricePerUnit
	return cur
}

func withStatistics(cur, in domain.Trip, now time.Time) domain.Trip {
	cur.TotalDistance = in.TotalDistance
	cur.TotalTime = in.TotalTime
	cur.EstimatedFuelCost = in.EstimatedFuelCost
	cur.UpdatedAt = now
	return cur
}

func sortByRecent(trips []domain.Trip) {
	sort.Slice(trips, func(i, j int) bool {
		if !trips[i].UpdatedAt.Equal(trips[j].UpdatedAt) {
			return trips[i].UpdatedAt.After(trips[j].UpdatedAt)
		}
		return trips[i].ID.String() < trips[j].ID.String()
	})
}
