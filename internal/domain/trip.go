// Package domain contains the core data types for the road trip planner.
// Trip and its Stops form one aggregate: every stop mutation goes through a
// Trip method so the ordering invariant and the derived statistics stay
// consistent. This package performs no I/O.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
)

// Default vehicle settings applied to new trips when none are supplied.
const (
	DefaultFuelEfficiency   = 25.0 // miles per gallon
	DefaultFuelPricePerUnit = 3.50 // USD per gallon
)

// Trip is a road trip owned by one user.
//
// TotalDistance, TotalTime and EstimatedFuelCost are derived from the stops by
// RecomputeStatistics and are never set directly by callers.
type Trip struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	IsPublic    bool

	VehicleMake  string
	VehicleModel string
	VehicleYear  string

	FuelEfficiency   float64 // miles per gallon
	FuelPricePerUnit float64 // USD per gallon

	TotalDistance     float64 // miles
	TotalTime         float64 // hours
	EstimatedFuelCost float64 // USD

	// Stops is populated when the full aggregate is loaded. List views leave it nil.
	Stops []Stop

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyDefaults fills zero-valued vehicle settings.
func (t *Trip) ApplyDefaults() {
	if t.FuelEfficiency == 0 {
		t.FuelEfficiency = DefaultFuelEfficiency
	}
	if t.FuelPricePerUnit == 0 {
		t.FuelPricePerUnit = DefaultFuelPricePerUnit
	}
}

// Validate enforces the trip-level business rules.
func (t Trip) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return fmt.Errorf("%w: end_date must not be before start_date", ErrValidation)
	}
	if t.FuelEfficiency < 5 || t.FuelEfficiency > 100 {
		return fmt.Errorf("%w: fuel_efficiency must be between 5 and 100", ErrValidation)
	}
	if t.FuelPricePerUnit < 1 || t.FuelPricePerUnit > 10 {
		return fmt.Errorf("%w: fuel_price_per_unit must be between 1 and 10", ErrValidation)
	}
	if len(t.VehicleYear) > 4 {
		return fmt.Errorf("%w: vehicle_year must be at most 4 characters", ErrValidation)
	}
	return nil
}

// TripPatch carries a partial update to the editable trip fields. Nil
// pointers and unspecified nullables leave the field unchanged.
type TripPatch struct {
	Name             *string
	Description      *string
	StartDate        nullable.Nullable[time.Time]
	EndDate          nullable.Nullable[time.Time]
	IsPublic         *bool
	VehicleMake      *string
	VehicleModel     *string
	VehicleYear      *string
	FuelEfficiency   *float64
	FuelPricePerUnit *float64
}

// Apply patches t and validates the result. On error t is left unchanged.
func (t *Trip) Apply(p TripPatch) error {
	next := *t
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.StartDate.IsSpecified() {
		next.StartDate = nil
		if v, err := p.StartDate.Get(); err == nil {
			next.StartDate = &v
		}
	}
	if p.EndDate.IsSpecified() {
		next.EndDate = nil
		if v, err := p.EndDate.Get(); err == nil {
			next.EndDate = &v
		}
	}
	if p.IsPublic != nil {
		next.IsPublic = *p.IsPublic
	}
	if p.VehicleMake != nil {
		next.VehicleMake = *p.VehicleMake
	}
	if p.VehicleModel != nil {
		next.VehicleModel = *p.VehicleModel
	}
	if p.VehicleYear != nil {
		next.VehicleYear = *p.VehicleYear
	}
	if p.FuelEfficiency != nil {
		next.FuelEfficiency = *p.FuelEfficiency
	}
	if p.FuelPricePerUnit != nil {
		next.FuelPricePerUnit = *p.FuelPricePerUnit
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*t = next
	return nil
}

// SortedStops returns a copy of the stops ordered by Order ascending.
func (t *Trip) SortedStops() []Stop {
	out := make([]Stop, len(t.Stops))
	copy(out, t.Stops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// StopByID returns the stop with the given id.
func (t *Trip) StopByID(id uuid.UUID) (Stop, bool) {
	if i := t.indexOf(id); i >= 0 {
		return t.Stops[i], true
	}
	return Stop{}, false
}

// NextOrder returns one past the highest order in use, or 1 for an empty trip.
func (t *Trip) NextOrder() int {
	highest := 0
	for _, s := range t.Stops {
		if s.Order > highest {
			highest = s.Order
		}
	}
	return highest + 1
}

// RecomputeStatistics folds the legs of the stops, in order, into the trip
// totals. Legs missing either value contribute zero, and so does the last
// stop whatever it holds. With fewer than two stops all totals are zero.
// The result depends only on the stops, so calling it twice is a no-op.
func (t *Trip) RecomputeStatistics() {
	t.TotalDistance, t.TotalTime, t.EstimatedFuelCost = 0, 0, 0

	stops := t.SortedStops()
	if len(stops) < 2 {
		return
	}
	for _, s := range stops[:len(stops)-1] {
		if !s.HasLeg() {
			continue
		}
		t.TotalDistance += *s.TravelDistanceToNext
		t.TotalTime += *s.TravelTimeToNext
	}
	if t.FuelEfficiency > 0 {
		t.EstimatedFuelCost = t.TotalDistance / t.FuelEfficiency * t.FuelPricePerUnit
	}
}

// AddStop validates s, assigns the next free order when s.Order is zero, and
// appends it. The caller is expected to route legs and recompute afterwards.
func (t *Trip) AddStop(s Stop) (Stop, error) {
	if s.StopType == "" {
		s.StopType = StopTypeWaypoint
	}
	if err := validateStop(s); err != nil {
		return Stop{}, err
	}
	if s.Order == 0 {
		s.Order = t.NextOrder()
	} else if t.orderTaken(s.Order, uuid.Nil) {
		return Stop{}, fmt.Errorf("%w: order %d is already used by another stop", ErrValidation, s.Order)
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.TripID = t.ID
	s.ClearLeg()
	t.Stops = append(t.Stops, s)
	return s, nil
}

// UpdateStop applies patch to the stop with the given id.
// Returns ErrNotFound when the stop is not part of this trip and
// ErrValidation when the patched stop breaks a rule or reuses a sibling's order.
func (t *Trip) UpdateStop(id uuid.UUID, patch StopPatch) (Stop, error) {
	i := t.indexOf(id)
	if i < 0 {
		return Stop{}, fmt.Errorf("stop %s: %w", id, ErrNotFound)
	}
	updated := patch.apply(t.Stops[i])
	if patch.Order != nil && updated.Order < 1 {
		return Stop{}, fmt.Errorf("%w: order must be a positive integer", ErrValidation)
	}
	if err := validateStop(updated); err != nil {
		return Stop{}, err
	}
	if t.orderTaken(updated.Order, id) {
		return Stop{}, fmt.Errorf("%w: order %d is already used by another stop", ErrValidation, updated.Order)
	}
	t.Stops[i] = updated
	return updated, nil
}

// RemoveStop drops the stop with the given id. Remaining orders are kept as is.
func (t *Trip) RemoveStop(id uuid.UUID) (Stop, error) {
	i := t.indexOf(id)
	if i < 0 {
		return Stop{}, fmt.Errorf("stop %s: %w", id, ErrNotFound)
	}
	removed := t.Stops[i]
	t.Stops = append(t.Stops[:i:i], t.Stops[i+1:]...)
	return removed, nil
}

// LegPair is one leg of the trip: From travels to To.
type LegPair struct {
	From Stop
	To   Stop
}

// LegPairs returns the consecutive stop pairs in trip order.
func (t *Trip) LegPairs() []LegPair {
	stops := t.SortedStops()
	if len(stops) < 2 {
		return nil
	}
	out := make([]LegPair, 0, len(stops)-1)
	for i := 0; i < len(stops)-1; i++ {
		out = append(out, LegPair{From: stops[i], To: stops[i+1]})
	}
	return out
}

// SetLeg stores the routed leg on the stop with the given id. A nil leg clears it.
func (t *Trip) SetLeg(stopID uuid.UUID, distance, hours *float64) {
	i := t.indexOf(stopID)
	if i < 0 {
		return
	}
	if distance == nil || hours == nil {
		t.Stops[i].ClearLeg()
		return
	}
	t.Stops[i].SetLeg(*distance, *hours)
}

// LastStopID returns the id of the stop with the highest order.
func (t *Trip) LastStopID() (uuid.UUID, bool) {
	stops := t.SortedStops()
	if len(stops) == 0 {
		return uuid.Nil, false
	}
	return stops[len(stops)-1].ID, true
}

func (t *Trip) indexOf(id uuid.UUID) int {
	for i := range t.Stops {
		if t.Stops[i].ID == id {
			return i
		}
	}
	return -1
}

// orderTaken reports whether any stop other than except holds order.
func (t *Trip) orderTaken(order int, except uuid.UUID) bool {
	for _, s := range t.Stops {
		if s.ID != except && s.Order == order {
			return true
		}
	}
	return false
}
