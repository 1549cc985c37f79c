package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

type shareRepo struct {
	s *Store
}

func (r *shareRepo) Upsert(_ context.Context, share domain.TripShare) (domain.TripShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[share.TripID]; !ok {
		return domain.TripShare{}, fmt.Errorf("memory.ShareRepo.Upsert: trip %s: %w", share.TripID, domain.ErrNotFound)
	}
	k := shareKey{tripID: share.TripID, userID: share.SharedWith}
	if cur, ok := r.s.shares[k]; ok {
		share.ID = cur.ID
	} else {
		share.ID = uuid.New()
	}
	share.IsActive = true
	share.SharedAt = r.s.clock.Now()
	r.s.shares[k] = share
	return share, nil
}

func (r *shareRepo) Get(_ context.Context, tripID, userID uuid.UUID) (domain.TripShare, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sh, ok := r.s.shares[shareKey{tripID: tripID, userID: userID}]
	if !ok {
		return domain.TripShare{}, fmt.Errorf("memory.ShareRepo.Get: %w", domain.ErrNotFound)
	}
	return sh, nil
}

func (r *shareRepo) ListByTrip(_ context.Context, tripID uuid.UUID) ([]domain.TripShare, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.TripShare{}
	for k, sh := range r.s.shares {
		if k.tripID == tripID && sh.IsActive {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SharedAt.Equal(out[j].SharedAt) {
			return out[i].SharedAt.Before(out[j].SharedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *shareRepo) Deactivate(_ context.Context, tripID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := shareKey{tripID: tripID, userID: userID}
	sh, ok := r.s.shares[k]
	if !ok || !sh.IsActive {
		return fmt.Errorf("memory.ShareRepo.Deactivate: %w", domain.ErrNotFound)
	}
	sh.IsActive = false
	r.s.shares[k] = sh
	return nil
}
