package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

// TripService implements business logic for Trip operations.
type TripService struct {
	trips repo.TripRepo
	stops repo.StopRepo
	agg   *aggregate
}

// NewTripService constructs a TripService. router and log may be nil.
func NewTripService(trips repo.TripRepo, stops repo.StopRepo, locker repo.TripLocker, router LegRouter, log *slog.Logger) *TripService {
	return &TripService{trips: trips, stops: stops, agg: newAggregate(locker, router, log)}
}

// Create applies the vehicle defaults, validates, and persists a new trip.
// A new trip has no stops, so its totals start at zero.
// Returns domain.ErrValidation if input violates business rules.
func (s *TripService) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	trip.ApplyDefaults()
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	trip.Stops = nil
	trip.RecomputeStatistics()

	result, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	result.Stops = []domain.Stop{}
	return result, nil
}

// Get returns a trip with its stops in order.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *TripService) Get(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	trip, err := loadTrip(ctx, s.trips, s.stops, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	if trip.Stops == nil {
		trip.Stops = []domain.Stop{}
	}
	return trip, nil
}

// ListByOwner returns one page of the owner's trips and the total count.
// Trips in the list do not carry their stops.
func (s *TripService) ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, total, err := s.trips.ListByOwner(ctx, ownerID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.ListByOwner: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, total, nil
}

// ListSharedWith returns the trips other users have shared with userID.
func (s *TripService) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	trips, err := s.trips.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListSharedWith: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, nil
}

// Update patches the editable trip fields. Fuel settings feed the cost
// estimate, so the totals are recomputed in the same unit of work.
// Returns domain.ErrValidation for invalid input, domain.ErrNotFound if the
// trip does not exist.
func (s *TripService) Update(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	trip, err := s.agg.mutate(ctx, id, func(trip *domain.Trip) error {
		return trip.Apply(patch)
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return trip, nil
}

// RecomputeStatistics re-routes any missing legs and recomputes the totals.
// Every mutation already does this; the explicit call repairs trips whose
// legs could not be routed earlier.
func (s *TripService) RecomputeStatistics(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.agg.mutate(ctx, id, func(*domain.Trip) error { return nil })
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.RecomputeStatistics: %w", err)
	}
	return trip, nil
}

// Delete removes a trip together with its stops and shares.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}
