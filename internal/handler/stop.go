package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// CreateStopRequest is the body of POST /trips/{tripId}/stops. A missing
// order appends the stop after the current last stop.
type CreateStopRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Address         *string  `json:"address,omitempty"`
	Latitude        *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Order           *int     `json:"order,omitempty" validate:"omitempty,gte=1"`
	PlaceID         *string  `json:"place_id,omitempty"`
	StopType        *string  `json:"stop_type,omitempty" validate:"omitempty,oneof=start waypoint destination"`
	DurationMinutes *int     `json:"duration_minutes,omitempty" validate:"omitempty,gte=0"`
	Notes           *string  `json:"notes,omitempty"`
	EstimatedCost   *float64 `json:"estimated_cost,omitempty" validate:"omitempty,gte=0"`
}

// UpdateStopRequest is the body of PATCH /trips/{tripId}/stops/{stopId}.
// Latitude and longitude move the stop only when both are given.
type UpdateStopRequest struct {
	Name            *string                    `json:"name,omitempty" validate:"omitempty,max=200"`
	Address         *string                    `json:"address,omitempty"`
	Latitude        *float64                   `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude       *float64                   `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Order           *int                       `json:"order,omitempty" validate:"omitempty,gte=1"`
	StopType        *string                    `json:"stop_type,omitempty" validate:"omitempty,oneof=start waypoint destination"`
	Notes           *string                    `json:"notes,omitempty"`
	PlaceID         nullable.Nullable[string]  `json:"place_id,omitempty"`
	DurationMinutes nullable.Nullable[int]     `json:"duration_minutes,omitempty"`
	EstimatedCost   nullable.Nullable[float64] `json:"estimated_cost,omitempty"`
}

// ReorderRequest is the body of POST /trips/{tripId}/stops/reorder.
type ReorderRequest struct {
	StopOrders []StopOrder `json:"stop_orders" validate:"required,min=1,dive"`
}

// StopOrder moves one stop to a new order.
type StopOrder struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Order int       `json:"order" validate:"gte=1"`
}

// Stop is the API representation of a stop.
type Stop struct {
	ID                   uuid.UUID `json:"id"`
	TripID               uuid.UUID `json:"trip_id"`
	Name                 string    `json:"name"`
	Address              *string   `json:"address,omitempty"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	Order                int       `json:"order"`
	PlaceID              *string   `json:"place_id,omitempty"`
	StopType             string    `json:"stop_type"`
	DurationMinutes      *int      `json:"duration_minutes,omitempty"`
	Notes                *string   `json:"notes,omitempty"`
	EstimatedCost        *float64  `json:"estimated_cost,omitempty"`
	TravelTimeToNext     *float64  `json:"travel_time_to_next"`
	TravelDistanceToNext *float64  `json:"travel_distance_to_next"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// CreateStop handles POST /trips/{tripId}/stops.
func (s *Server) CreateStop(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req CreateStopRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.stops.Add(r.Context(), tripID, requestToStop(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stopToResponse(created))
}

// ListStops handles GET /trips/{tripId}/stops. Stops come in trip order.
func (s *Server) ListStops(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stops, err := s.stops.List(r.Context(), tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stopsToResponse(stops))
}

// GetStop handles GET /trips/{tripId}/stops/{stopId}.
func (s *Server) GetStop(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stopID, err := pathUUID(r, "stopId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stop, err := s.stops.Get(r.Context(), tripID, stopID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stopToResponse(stop))
}

// UpdateStop handles PATCH /trips/{tripId}/stops/{stopId}.
func (s *Server) UpdateStop(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stopID, err := pathUUID(r, "stopId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req UpdateStopRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		s.writeError(w, r, fmt.Errorf("%w: latitude and longitude must be given together", domain.ErrValidation))
		return
	}

	updated, err := s.stops.Update(r.Context(), tripID, stopID, requestToStopPatch(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stopToResponse(updated))
}

// DeleteStop handles DELETE /trips/{tripId}/stops/{stopId}.
func (s *Server) DeleteStop(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stopID, err := pathUUID(r, "stopId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.stops.Remove(r.Context(), tripID, stopID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderStops handles POST /trips/{tripId}/stops/reorder. The batch is
// applied atomically; the response lists every stop in its new order.
func (s *Server) ReorderStops(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req ReorderRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	batch := make([]domain.OrderAssignment, len(req.StopOrders))
	for i, so := range req.StopOrders {
		batch[i] = domain.OrderAssignment{StopID: so.ID, Order: so.Order}
	}
	stops, err := s.stops.Reorder(r.Context(), tripID, batch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stopsToResponse(stops))
}

func requestToStop(req CreateStopRequest) domain.Stop {
	st := domain.Stop{
		Name:            req.Name,
		Address:         derefString(req.Address),
		Coordinates:     domain.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude},
		PlaceID:         derefString(req.PlaceID),
		StopType:        domain.StopType(derefString(req.StopType)),
		DurationMinutes: req.DurationMinutes,
		Notes:           derefString(req.Notes),
		EstimatedCost:   req.EstimatedCost,
	}
	if req.Order != nil {
		st.Order = *req.Order
	}
	return st
}

func requestToStopPatch(req UpdateStopRequest) domain.StopPatch {
	p := domain.StopPatch{
		Name:            req.Name,
		Address:         req.Address,
		Order:           req.Order,
		Notes:           req.Notes,
		PlaceID:         req.PlaceID,
		DurationMinutes: req.DurationMinutes,
		EstimatedCost:   req.EstimatedCost,
	}
	if req.Latitude != nil && req.Longitude != nil {
		p.Coordinates = &domain.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}
	if req.StopType != nil {
		t := domain.StopType(*req.StopType)
		p.StopType = &t
	}
	return p
}

// stopToResponse converts a domain.Stop to its API representation.
// Empty strings become nil pointers for optional JSON fields so they are
// omitted from the response rather than sent as empty strings.
func stopToResponse(s domain.Stop) Stop {
	return Stop{
		ID:                   s.ID,
		TripID:               s.TripID,
		Name:                 s.Name,
		Address:              nilIfEmpty(s.Address),
		Latitude:             s.Coordinates.Latitude,
		Longitude:            s.Coordinates.Longitude,
		Order:                s.Order,
		PlaceID:              nilIfEmpty(s.PlaceID),
		StopType:             string(s.StopType),
		DurationMinutes:      s.DurationMinutes,
		Notes:                nilIfEmpty(s.Notes),
		EstimatedCost:        s.EstimatedCost,
		TravelTimeToNext:     s.TravelTimeToNext,
		TravelDistanceToNext: s.TravelDistanceToNext,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func stopsToResponse(stops []domain.Stop) []Stop {
	out := make([]Stop, len(stops))
	for i, st := range stops {
		out[i] = stopToResponse(st)
	}
	return out
}
