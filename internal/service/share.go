package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

// ShareService grants and checks access to trips. Owners always have full
// access; other users need an active share.
type ShareService struct {
	trips  repo.TripRepo
	shares repo.ShareRepo
}

// NewShareService constructs a ShareService backed by the provided repos.
func NewShareService(trips repo.TripRepo, shares repo.ShareRepo) *ShareService {
	return &ShareService{trips: trips, shares: shares}
}

// Grant shares a trip with share.SharedWith, or updates and reactivates an
// existing share. Only the owner or an admin grantee may grant.
// Returns domain.ErrForbidden when share.SharedBy lacks that right and
// domain.ErrValidation when sharing with the owner.
func (s *ShareService) Grant(ctx context.Context, share domain.TripShare) (domain.TripShare, error) {
	if err := share.Validate(); err != nil {
		return domain.TripShare{}, fmt.Errorf("service.ShareService.Grant: %w", err)
	}
	trip, err := s.trips.GetByID(ctx, share.TripID)
	if err != nil {
		return domain.TripShare{}, fmt.Errorf("service.ShareService.Grant: %w", err)
	}
	if share.SharedWith == trip.OwnerID {
		return domain.TripShare{}, fmt.Errorf("service.ShareService.Grant: %w: cannot share a trip with its owner", domain.ErrValidation)
	}
	if err := s.requireAdmin(ctx, trip, share.SharedBy); err != nil {
		return domain.TripShare{}, fmt.Errorf("service.ShareService.Grant: %w", err)
	}

	result, err := s.shares.Upsert(ctx, share)
	if err != nil {
		return domain.TripShare{}, fmt.Errorf("service.ShareService.Grant: %w", err)
	}
	return result, nil
}

// Revoke deactivates the share of userID. The owner, an admin grantee, or
// the grantee itself may revoke.
func (s *ShareService) Revoke(ctx context.Context, tripID, userID, callerID uuid.UUID) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return fmt.Errorf("service.ShareService.Revoke: %w", err)
	}
	if callerID != userID {
		if err := s.requireAdmin(ctx, trip, callerID); err != nil {
			return fmt.Errorf("service.ShareService.Revoke: %w", err)
		}
	}
	if err := s.shares.Deactivate(ctx, tripID, userID); err != nil {
		return fmt.Errorf("service.ShareService.Revoke: %w", err)
	}
	return nil
}

// List returns the active shares of a trip.
func (s *ShareService) List(ctx context.Context, tripID uuid.UUID) ([]domain.TripShare, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, fmt.Errorf("service.ShareService.List: %w", err)
	}
	shares, err := s.shares.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ShareService.List: %w", err)
	}
	return shares, nil
}

// CanView reports whether userID may read the trip: owner, public trip, or
// any active share.
func (s *ShareService) CanView(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return false, fmt.Errorf("service.ShareService.CanView: %w", err)
	}
	if trip.OwnerID == userID || trip.IsPublic {
		return true, nil
	}
	perm, err := s.activePermission(ctx, tripID, userID)
	if err != nil {
		return false, fmt.Errorf("service.ShareService.CanView: %w", err)
	}
	return perm != "", nil
}

// CanEdit reports whether userID may change the trip or its stops: owner,
// or an active edit or admin share.
func (s *ShareService) CanEdit(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return false, fmt.Errorf("service.ShareService.CanEdit: %w", err)
	}
	if trip.OwnerID == userID {
		return true, nil
	}
	perm, err := s.activePermission(ctx, tripID, userID)
	if err != nil {
		return false, fmt.Errorf("service.ShareService.CanEdit: %w", err)
	}
	return perm.CanEdit(), nil
}

func (s *ShareService) requireAdmin(ctx context.Context, trip domain.Trip, userID uuid.UUID) error {
	if trip.OwnerID == userID {
		return nil
	}
	perm, err := s.activePermission(ctx, trip.ID, userID)
	if err != nil {
		return err
	}
	if perm != domain.PermissionAdmin {
		return fmt.Errorf("%w: only the owner or an admin may manage shares", domain.ErrForbidden)
	}
	return nil
}

// activePermission returns the permission of an active share, or "" when
// the user has none.
func (s *ShareService) activePermission(ctx context.Context, tripID, userID uuid.UUID) (domain.Permission, error) {
	sh, err := s.shares.Get(ctx, tripID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !sh.IsActive {
		return "", nil
	}
	return sh.Permission, nil
}
