// Package memory is an in-process implementation of the repo interfaces.
// It backs STORAGE_BACKEND=memory and the service tests, and passes the same
// contract suite as the Postgres repos.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/clock"
	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

type shareKey struct {
	tripID uuid.UUID
	userID uuid.UUID
}

// Store holds every table in maps guarded by one RWMutex. Writers of one trip
// are additionally serialized by a per-trip lock, see WithTripLock.
type Store struct {
	clock clock.Clock

	mu      sync.RWMutex
	trips   map[uuid.UUID]domain.Trip
	stops   map[uuid.UUID]domain.Stop
	shares  map[shareKey]domain.TripShare
	places  map[string]domain.Place
	queries map[string]domain.SearchQuery

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}
}

// New returns an empty Store. A nil clock means clock.System.
func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.System{}
	}
	return &Store{
		clock:   c,
		trips:   map[uuid.UUID]domain.Trip{},
		stops:   map[uuid.UUID]domain.Stop{},
		shares:  map[shareKey]domain.TripShare{},
		places:  map[string]domain.Place{},
		queries: map[string]domain.SearchQuery{},
		locks:   map[uuid.UUID]chan struct{}{},
	}
}

func (s *Store) Trips() repo.TripRepo   { return &tripRepo{s: s} }
func (s *Store) Stops() repo.StopRepo   { return &stopRepo{s: s} }
func (s *Store) Shares() repo.ShareRepo { return &shareRepo{s: s} }
func (s *Store) Places() repo.PlaceRepo { return &placeRepo{s: s} }

// acquire takes the per-trip lock, giving up when ctx is done.
func (s *Store) acquire(ctx context.Context, tripID uuid.UUID) (release func(), err error) {
	s.locksMu.Lock()
	ch, ok := s.locks[tripID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[tripID] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// stopsOf returns the stops of tripID. Callers hold s.mu.
func (s *Store) stopsOf(tripID uuid.UUID) []domain.Stop {
	var out []domain.Stop
	for _, st := range s.stops {
		if st.TripID == tripID {
			out = append(out, st)
		}
	}
	return out
}

// orderHolder returns the stop of tripID holding order, other than except.
// Callers hold s.mu.
func (s *Store) orderHolder(tripID uuid.UUID, order int, except uuid.UUID) (uuid.UUID, bool) {
	for id, st := range s.stops {
		if st.TripID == tripID && st.Order == order && id != except {
			return id, true
		}
	}
	return uuid.Nil, false
}

var _ repo.TripLocker = (*Store)(nil)
