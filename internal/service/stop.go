package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

// StopService implements business logic for Stop operations.
// Every mutation runs through the trip aggregate under the trip's lock, so
// stop order stays unique and the trip totals always match its stops.
type StopService struct {
	trips repo.TripRepo
	stops repo.StopRepo
	agg   *aggregate
}

// NewStopService constructs a StopService. router may be nil, in which case
// legs are never routed and totals stay at zero. log may be nil.
func NewStopService(trips repo.TripRepo, stops repo.StopRepo, locker repo.TripLocker, router LegRouter, log *slog.Logger) *StopService {
	return &StopService{trips: trips, stops: stops, agg: newAggregate(locker, router, log)}
}

// Add appends a stop to the trip. A zero Order means "after the last stop".
// Returns domain.ErrValidation if input violates business rules.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *StopService) Add(ctx context.Context, tripID uuid.UUID, stop domain.Stop) (domain.Stop, error) {
	var added domain.Stop
	trip, err := s.agg.mutate(ctx, tripID, func(trip *domain.Trip) error {
		var err error
		added, err = trip.AddStop(stop)
		return err
	})
	if err != nil {
		return domain.Stop{}, fmt.Errorf("service.StopService.Add: %w", err)
	}
	return stopIn(trip, added.ID)
}

// Get returns a single stop by ID, scoped to the given tripID.
// Returns domain.ErrNotFound if no stop with that ID exists under that trip.
func (s *StopService) Get(ctx context.Context, tripID, stopID uuid.UUID) (domain.Stop, error) {
	result, err := s.stops.GetByID(ctx, tripID, stopID)
	if err != nil {
		return domain.Stop{}, fmt.Errorf("service.StopService.Get: %w", err)
	}
	return result, nil
}

// List returns all stops for a trip ordered by stop order.
// Always returns a non-nil slice so callers can safely range over it.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *StopService) List(ctx context.Context, tripID uuid.UUID) ([]domain.Stop, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, fmt.Errorf("service.StopService.List: %w", err)
	}
	stops, err := s.stops.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.StopService.List: %w", err)
	}
	if stops == nil {
		return []domain.Stop{}, nil
	}
	return stops, nil
}

// Update applies patch to one stop. A change of order or coordinates
// re-routes the legs around the stop.
// Returns domain.ErrValidation for invalid input or an order held by a
// sibling, domain.ErrNotFound if the stop does not exist under the trip.
func (s *StopService) Update(ctx context.Context, tripID, stopID uuid.UUID, patch domain.StopPatch) (domain.Stop, error) {
	trip, err := s.agg.mutate(ctx, tripID, func(trip *domain.Trip) error {
		_, err := trip.UpdateStop(stopID, patch)
		return err
	})
	if err != nil {
		return domain.Stop{}, fmt.Errorf("service.StopService.Update: %w", err)
	}
	return stopIn(trip, stopID)
}

// Remove deletes a stop. Remaining stops keep their orders; the predecessor's
// leg is re-routed to the new successor.
// Returns domain.ErrNotFound if the stop does not exist under the given trip.
func (s *StopService) Remove(ctx context.Context, tripID, stopID uuid.UUID) error {
	_, err := s.agg.mutate(ctx, tripID, func(trip *domain.Trip) error {
		_, err := trip.RemoveStop(stopID)
		return err
	})
	if err != nil {
		return fmt.Errorf("service.StopService.Remove: %w", err)
	}
	return nil
}

// Reorder applies a batch of order assignments atomically and returns the
// trip's stops in their new order. Either the whole batch is applied or none
// of it. Concurrent reorders of one trip are serialized.
func (s *StopService) Reorder(ctx context.Context, tripID uuid.UUID, batch []domain.OrderAssignment) ([]domain.Stop, error) {
	if err := domain.ValidateReorder(batch); err != nil {
		return nil, fmt.Errorf("service.StopService.Reorder: %w", err)
	}
	trip, err := s.agg.mutate(ctx, tripID, func(trip *domain.Trip) error {
		return trip.Reorder(batch)
	})
	if err != nil {
		return nil, fmt.Errorf("service.StopService.Reorder: %w", err)
	}
	return trip.Stops, nil
}

func stopIn(trip domain.Trip, id uuid.UUID) (domain.Stop, error) {
	st, ok := trip.StopByID(id)
	if !ok {
		return domain.Stop{}, fmt.Errorf("stop %s: %w", id, domain.ErrNotFound)
	}
	return st, nil
}
