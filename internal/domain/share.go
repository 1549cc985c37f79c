package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Permission is the access level a share grants on a trip.
type Permission string

const (
	PermissionView  Permission = "view"
	PermissionEdit  Permission = "edit"
	PermissionAdmin Permission = "admin"
)

// Valid reports whether p is a known permission level.
func (p Permission) Valid() bool {
	switch p {
	case PermissionView, PermissionEdit, PermissionAdmin:
		return true
	}
	return false
}

// CanEdit reports whether p allows stop and trip mutations.
func (p Permission) CanEdit() bool {
	return p == PermissionEdit || p == PermissionAdmin
}

// TripShare grants SharedWith access to a trip. Shares are unique per
// (trip, grantee) and are deactivated rather than deleted so the grant
// history stays visible.
type TripShare struct {
	ID         uuid.UUID
	TripID     uuid.UUID
	SharedWith uuid.UUID
	SharedBy   uuid.UUID
	Permission Permission
	Message    string
	IsActive   bool
	SharedAt   time.Time
}

// Validate checks the share before it is persisted.
func (s TripShare) Validate() error {
	if s.SharedWith == uuid.Nil {
		return fmt.Errorf("%w: shared_with is required", ErrValidation)
	}
	if !s.Permission.Valid() {
		return fmt.Errorf("%w: unknown permission level %q", ErrValidation, s.Permission)
	}
	return nil
}
