package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

type placeRepo struct {
	s *Store
}

func (r *placeRepo) GetPlace(_ context.Context, placeID string) (domain.Place, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.places[placeID]
	if !ok {
		return domain.Place{}, fmt.Errorf("memory.PlaceRepo.GetPlace: %w", domain.ErrNotFound)
	}
	return clonePlace(p), nil
}

func (r *placeRepo) GetPlaces(_ context.Context, ids []string) (map[string]domain.Place, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]domain.Place, len(ids))
	for _, id := range ids {
		if p, ok := r.s.places[id]; ok {
			out[id] = clonePlace(p)
		}
	}
	return out, nil
}

func (r *placeRepo) UpsertPlace(_ context.Context, place domain.Place) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.places[place.PlaceID] = clonePlace(place)
	return nil
}

func (r *placeRepo) GetSearchQuery(_ context.Context, key string) (domain.SearchQuery, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q, ok := r.s.queries[key]
	if !ok {
		return domain.SearchQuery{}, fmt.Errorf("memory.PlaceRepo.GetSearchQuery: %w", domain.ErrNotFound)
	}
	q.PlaceIDs = slices.Clone(q.PlaceIDs)
	return q, nil
}

func (r *placeRepo) UpsertSearchQuery(_ context.Context, q domain.SearchQuery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	q.PlaceIDs = slices.Clone(q.PlaceIDs)
	if q.Location != nil {
		loc := *q.Location
		q.Location = &loc
	}
	r.s.queries[q.Key] = q
	return nil
}

func clonePlace(p domain.Place) domain.Place {
	p.Types = slices.Clone(p.Types)
	p.Photos = slices.Clone(p.Photos)
	p.Reviews = slices.Clone(p.Reviews)
	return p
}
