package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// CreateTripRequest is the body of POST /trips.
type CreateTripRequest struct {
	Name             string              `json:"name" validate:"required,max=200"`
	Description      *string             `json:"description,omitempty"`
	StartDate        *openapi_types.Date `json:"start_date,omitempty"`
	EndDate          *openapi_types.Date `json:"end_date,omitempty"`
	IsPublic         bool                `json:"is_public"`
	VehicleMake      *string             `json:"vehicle_make,omitempty" validate:"omitempty,max=100"`
	VehicleModel     *string             `json:"vehicle_model,omitempty" validate:"omitempty,max=100"`
	VehicleYear      *string             `json:"vehicle_year,omitempty" validate:"omitempty,max=4"`
	FuelEfficiency   *float64            `json:"fuel_efficiency,omitempty" validate:"omitempty,gte=5,lte=100"`
	FuelPricePerUnit *float64            `json:"fuel_price_per_unit,omitempty" validate:"omitempty,gte=1,lte=10"`
}

// UpdateTripRequest is the body of PATCH /trips/{tripId}. Absent fields are
// left unchanged; an explicit null clears a date.
type UpdateTripRequest struct {
	Name             *string                               `json:"name,omitempty" validate:"omitempty,max=200"`
	Description      *string                               `json:"description,omitempty"`
	StartDate        nullable.Nullable[openapi_types.Date] `json:"start_date,omitempty"`
	EndDate          nullable.Nullable[openapi_types.Date] `json:"end_date,omitempty"`
	IsPublic         *bool                                 `json:"is_public,omitempty"`
	VehicleMake      *string                               `json:"vehicle_make,omitempty" validate:"omitempty,max=100"`
	VehicleModel     *string                               `json:"vehicle_model,omitempty" validate:"omitempty,max=100"`
	VehicleYear      *string                               `json:"vehicle_year,omitempty" validate:"omitempty,max=4"`
	FuelEfficiency   *float64                              `json:"fuel_efficiency,omitempty" validate:"omitempty,gte=5,lte=100"`
	FuelPricePerUnit *float64                              `json:"fuel_price_per_unit,omitempty" validate:"omitempty,gte=1,lte=10"`
}

// Trip is the API representation of a trip.
type Trip struct {
	ID                uuid.UUID           `json:"id"`
	OwnerID           uuid.UUID           `json:"owner_id"`
	Name              string              `json:"name"`
	Description       *string             `json:"description,omitempty"`
	StartDate         *openapi_types.Date `json:"start_date,omitempty"`
	EndDate           *openapi_types.Date `json:"end_date,omitempty"`
	IsPublic          bool                `json:"is_public"`
	VehicleMake       *string             `json:"vehicle_make,omitempty"`
	VehicleModel      *string             `json:"vehicle_model,omitempty"`
	VehicleYear       *string             `json:"vehicle_year,omitempty"`
	FuelEfficiency    float64             `json:"fuel_efficiency"`
	FuelPricePerUnit  float64             `json:"fuel_price_per_unit"`
	TotalDistance     float64             `json:"total_distance"`
	TotalTime         float64             `json:"total_time"`
	EstimatedFuelCost float64             `json:"estimated_fuel_cost"`
	Stops             []Stop              `json:"stops,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TripList is the body of GET /trips.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CreateTrip handles POST /trips. The caller becomes the owner.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req CreateTripRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.trips.Create(r.Context(), requestToTrip(owner, req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var page, limit *int
	if err := queryParam(r, "page", &page); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := queryParam(r, "limit", &limit); err != nil {
		s.writeError(w, r, err)
		return
	}
	params := domain.NewPaginationParams(page, limit)

	trips, total, err := s.trips.ListByOwner(r.Context(), owner, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := make([]Trip, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// ListSharedTrips handles GET /trips/shared.
func (s *Server) ListSharedTrips(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trips, err := s.trips.ListSharedWith(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data := make([]Trip, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, data)
}

// GetTrip handles GET /trips/{tripId}. The trip comes with its stops in order.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trip, err := s.trips.Get(r.Context(), tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// UpdateTrip handles PATCH /trips/{tripId}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req UpdateTripRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.trips.Update(r.Context(), tripID, requestToTripPatch(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// RecomputeStatistics handles POST /trips/{tripId}/statistics.
func (s *Server) RecomputeStatistics(w http.ResponseWriter, r *http.Request) {
	tripID, _, err := s.tripAccess(r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trip, err := s.trips.RecomputeStatistics(r.Context(), tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// DeleteTrip handles DELETE /trips/{tripId}. Only the owner may delete.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID, userID, err := s.tripAccess(r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trip, err := s.trips.Get(r.Context(), tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if trip.OwnerID != userID {
		s.writeError(w, r, errOwnerOnly)
		return
	}
	if err := s.trips.Delete(r.Context(), tripID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errOwnerOnly = forbidden("only the owner may delete a trip")

// requestToTrip maps the create body onto a domain.Trip. Vehicle defaults
// are applied by the service.
func requestToTrip(owner uuid.UUID, req CreateTripRequest) domain.Trip {
	trip := domain.Trip{
		OwnerID:      owner,
		Name:         req.Name,
		Description:  derefString(req.Description),
		IsPublic:     req.IsPublic,
		VehicleMake:  derefString(req.VehicleMake),
		VehicleModel: derefString(req.VehicleModel),
		VehicleYear:  derefString(req.VehicleYear),
	}
	if req.StartDate != nil {
		d := req.StartDate.Time
		trip.StartDate = &d
	}
	if req.EndDate != nil {
		d := req.EndDate.Time
		trip.EndDate = &d
	}
	if req.FuelEfficiency != nil {
		trip.FuelEfficiency = *req.FuelEfficiency
	}
	if req.FuelPricePerUnit != nil {
		trip.FuelPricePerUnit = *req.FuelPricePerUnit
	}
	return trip
}

func requestToTripPatch(req UpdateTripRequest) domain.TripPatch {
	return domain.TripPatch{
		Name:             req.Name,
		Description:      req.Description,
		StartDate:        dateToTime(req.StartDate),
		EndDate:          dateToTime(req.EndDate),
		IsPublic:         req.IsPublic,
		VehicleMake:      req.VehicleMake,
		VehicleModel:     req.VehicleModel,
		VehicleYear:      req.VehicleYear,
		FuelEfficiency:   req.FuelEfficiency,
		FuelPricePerUnit: req.FuelPricePerUnit,
	}
}

// dateToTime carries the three states of a nullable date over to time.Time.
func dateToTime(d nullable.Nullable[openapi_types.Date]) nullable.Nullable[time.Time] {
	if !d.IsSpecified() {
		return nullable.Nullable[time.Time]{}
	}
	if d.IsNull() {
		return nullable.NewNullNullable[time.Time]()
	}
	return nullable.NewNullableWithValue(d.MustGet().Time)
}

// tripToResponse converts a domain.Trip to its API representation.
// Empty strings become nil pointers so they are omitted from the response.
func tripToResponse(t domain.Trip) Trip {
	out := Trip{
		ID:                t.ID,
		OwnerID:           t.OwnerID,
		Name:              t.Name,
		Description:       nilIfEmpty(t.Description),
		IsPublic:          t.IsPublic,
		VehicleMake:       nilIfEmpty(t.VehicleMake),
		VehicleModel:      nilIfEmpty(t.VehicleModel),
		VehicleYear:       nilIfEmpty(t.VehicleYear),
		FuelEfficiency:    t.FuelEfficiency,
		FuelPricePerUnit:  t.FuelPricePerUnit,
		TotalDistance:     t.TotalDistance,
		TotalTime:         t.TotalTime,
		EstimatedFuelCost: t.EstimatedFuelCost,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
	if t.StartDate != nil {
		out.StartDate = &openapi_types.Date{Time: *t.StartDate}
	}
	if t.EndDate != nil {
		out.EndDate = &openapi_types.Date{Time: *t.EndDate}
	}
	if t.Stops != nil {
		out.Stops = make([]Stop, len(t.Stops))
		for i, st := range t.Stops {
			out.Stops[i] = stopToResponse(st)
		}
	}
	return out
}
