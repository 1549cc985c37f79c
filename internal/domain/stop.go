package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate reports ErrValidation when either component is out of range.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", ErrValidation)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", ErrValidation)
	}
	return nil
}

// StopType classifies a stop within its trip.
type StopType string

const (
	StopTypeStart       StopType = "start"
	StopTypeWaypoint    StopType = "waypoint"
	StopTypeDestination StopType = "destination"
)

// Valid reports whether t is one of the known stop types.
func (t StopType) Valid() bool {
	switch t {
	case StopTypeStart, StopTypeWaypoint, StopTypeDestination:
		return true
	}
	return false
}

// Stop is a single waypoint of a trip.
//
// Order is unique among the stops of one trip; gaps are legal. The two
// travel fields describe the leg from this stop to the next stop in order.
// They are produced by the routing collaborator and are nil for the last
// stop or when the leg has not been routed.
type Stop struct {
	ID              uuid.UUID
	TripID          uuid.UUID
	Name            string
	Address         string
	Coordinates     Coordinates
	Order           int
	PlaceID         string
	StopType        StopType
	DurationMinutes *int
	Notes           string
	EstimatedCost   *float64

	TravelTimeToNext     *float64 // hours
	TravelDistanceToNext *float64 // miles

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasLeg reports whether both travel values are present.
func (s Stop) HasLeg() bool {
	return s.TravelTimeToNext != nil && s.TravelDistanceToNext != nil
}

// ClearLeg drops the routed leg.
func (s *Stop) ClearLeg() {
	s.TravelTimeToNext = nil
	s.TravelDistanceToNext = nil
}

// SetLeg stores a routed leg.
func (s *Stop) SetLeg(distance, hours float64) {
	s.TravelDistanceToNext = &distance
	s.TravelTimeToNext = &hours
}

// StopPatch carries a partial update to a stop. Nil pointers and unspecified
// nullables leave the field unchanged; a null nullable clears the field.
type StopPatch struct {
	Name            *string
	Address         *string
	Coordinates     *Coordinates
	Order           *int
	StopType        *StopType
	Notes           *string
	PlaceID         nullable.Nullable[string]
	DurationMinutes nullable.Nullable[int]
	EstimatedCost   nullable.Nullable[float64]
}

// TouchesGeometry reports whether the patch changes order or position, which
// invalidates the legs around the stop.
func (p StopPatch) TouchesGeometry() bool {
	return p.Order != nil || p.Coordinates != nil
}

// apply returns s with the patch applied. It does not validate.
func (p StopPatch) apply(s Stop) Stop {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.Coordinates != nil {
		s.Coordinates = *p.Coordinates
	}
	if p.Order != nil {
		s.Order = *p.Order
	}
	if p.StopType != nil {
		s.StopType = *p.StopType
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.PlaceID.IsSpecified() {
		s.PlaceID = ""
		if v, err := p.PlaceID.Get(); err == nil {
			s.PlaceID = v
		}
	}
	if p.DurationMinutes.IsSpecified() {
		s.DurationMinutes = nil
		if v, err := p.DurationMinutes.Get(); err == nil {
			s.DurationMinutes = &v
		}
	}
	if p.EstimatedCost.IsSpecified() {
		s.EstimatedCost = nil
		if v, err := p.EstimatedCost.Get(); err == nil {
			s.EstimatedCost = &v
		}
	}
	return s
}

// validateStop enforces the per-stop rules shared by add and update.
// Order 0 is accepted here because AddStop assigns it afterwards.
func validateStop(s Stop) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := s.Coordinates.Validate(); err != nil {
		return err
	}
	if s.Order < 0 {
		return fmt.Errorf("%w: order must be a positive integer", ErrValidation)
	}
	if !s.StopType.Valid() {
		return fmt.Errorf("%w: unknown stop type %q", ErrValidation, s.StopType)
	}
	if s.DurationMinutes != nil && *s.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration_minutes must not be negative", ErrValidation)
	}
	if s.EstimatedCost != nil && *s.EstimatedCost < 0 {
		return fmt.Errorf("%w: estimated_cost must not be negative", ErrValidation)
	}
	return nil
}

// Leg is the routed travel from one stop to the next.
type Leg struct {
	Distance float64 // miles
	Hours    float64
}
