package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/service"
)

// Place is the API representation of a cached place.
type Place struct {
	PlaceID          string               `json:"place_id"`
	Name             string               `json:"name"`
	Address          string               `json:"address"`
	Latitude         float64              `json:"latitude"`
	Longitude        float64              `json:"longitude"`
	PlaceType        string               `json:"place_type"`
	Types            []string             `json:"types"`
	Rating           *float64             `json:"rating,omitempty"`
	UserRatingsTotal *int                 `json:"user_ratings_total,omitempty"`
	PriceLevel       *int                 `json:"price_level,omitempty"`
	PhoneNumber      *string              `json:"phone_number,omitempty"`
	Website          *string              `json:"website,omitempty"`
	OpeningHours     *domain.OpeningHours `json:"opening_hours,omitempty"`
	Photos           []string             `json:"photos,omitempty"`
	Reviews          []domain.Review      `json:"reviews,omitempty"`
	BusinessStatus   *string              `json:"business_status,omitempty"`
	LastUpdated      time.Time            `json:"last_updated"`
}

// PlaceSearchResponse is the body of the search endpoints. Status tells the
// client whether the answer came from the cache, from the provider, or
// whether the provider was unavailable.
type PlaceSearchResponse struct {
	Status  string  `json:"status"`
	Results []Place `json:"results"`
	Error   *string `json:"error,omitempty"`
}

// PlaceDetailsResponse is the body of GET /places/{placeId}.
type PlaceDetailsResponse struct {
	Status string  `json:"status"`
	Place  *Place  `json:"place,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// SearchPlaces handles GET /places/search?query=&lat=&lng=&radius=&type=.
// A provider outage is still a 200 with status "unavailable".
func (s *Server) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	var (
		query, placeType *string
		lat, lng         *float64
		radius           *int
	)
	for _, b := range []queryBinding{{"query", &query}, {"type", &placeType}, {"lat", &lat}, {"lng", &lng}, {"radius", &radius}} {
		if err := queryParam(r, b.name, b.dst); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if (lat == nil) != (lng == nil) {
		s.writeError(w, r, badRequest("lat and lng must be given together"))
		return
	}

	p := service.SearchParams{
		Query:  derefString(query),
		Radius: service.DefaultSearchRadius,
		Type:   derefString(placeType),
	}
	if lat != nil {
		p.Location = &domain.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	if radius != nil {
		p.Radius = *radius
	}

	res, err := s.places.SearchPlaces(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(res))
}

// NearbyPlaces handles GET /places/nearby?lat=&lng=&radius=&type=.
func (s *Server) NearbyPlaces(w http.ResponseWriter, r *http.Request) {
	var (
		placeType *string
		lat, lng  *float64
		radius    *int
	)
	for _, b := range []queryBinding{{"type", &placeType}, {"lat", &lat}, {"lng", &lng}, {"radius", &radius}} {
		if err := queryParam(r, b.name, b.dst); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if lat == nil || lng == nil {
		s.writeError(w, r, badRequest("lat and lng are required"))
		return
	}

	p := service.NearbyParams{
		Location: domain.Coordinates{Latitude: *lat, Longitude: *lng},
		Radius:   service.DefaultNearbyRadius,
		Type:     derefString(placeType),
	}
	if radius != nil {
		p.Radius = *radius
	}

	res, err := s.places.GetNearbyPlaces(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(res))
}

// GetPlace handles GET /places/{placeId}.
func (s *Server) GetPlace(w http.ResponseWriter, r *http.Request) {
	res, err := s.places.GetPlaceDetails(r.Context(), chi.URLParam(r, "placeId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := PlaceDetailsResponse{Status: string(res.Status)}
	if res.Place != nil {
		p := placeToResponse(*res.Place)
		out.Place = &p
	}
	if res.Err != nil {
		out.Error = nilIfEmpty(res.Err.Error())
	}
	writeJSON(w, http.StatusOK, out)
}

func searchToResponse(res service.PlaceResult) PlaceSearchResponse {
	out := PlaceSearchResponse{
		Status:  string(res.Status),
		Results: make([]Place, len(res.Places)),
	}
	for i, p := range res.Places {
		out.Results[i] = placeToResponse(p)
	}
	if res.Err != nil {
		out.Error = nilIfEmpty(res.Err.Error())
	}
	return out
}

func placeToResponse(p domain.Place) Place {
	return Place{
		PlaceID:          p.PlaceID,
		Name:             p.Name,
		Address:          p.DisplayAddress(),
		Latitude:         p.Coordinates.Latitude,
		Longitude:        p.Coordinates.Longitude,
		PlaceType:        string(p.PlaceType),
		Types:            p.Types,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		PriceLevel:       p.PriceLevel,
		PhoneNumber:      nilIfEmpty(p.PhoneNumber),
		Website:          nilIfEmpty(p.Website),
		OpeningHours:     p.OpeningHours,
		Photos:           p.Photos,
		Reviews:          p.Reviews,
		BusinessStatus:   nilIfEmpty(p.BusinessStatus),
		LastUpdated:      p.LastUpdated,
	}
}
