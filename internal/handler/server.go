// Package handler implements the HTTP handlers for the road trip planner API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, etc.) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/service"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching storage or the service layer.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error)
	ListSharedWith(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	RecomputeStatistics(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StopServicer defines the stop operations. Every mutation goes through the
// trip aggregate.
type StopServicer interface {
	Add(ctx context.Context, tripID uuid.UUID, stop domain.Stop) (domain.Stop, error)
	Get(ctx context.Context, tripID, stopID uuid.UUID) (domain.Stop, error)
	List(ctx context.Context, tripID uuid.UUID) ([]domain.Stop, error)
	Update(ctx context.Context, tripID, stopID uuid.UUID, patch domain.StopPatch) (domain.Stop, error)
	Remove(ctx context.Context, tripID, stopID uuid.UUID) error
	Reorder(ctx context.Context, tripID uuid.UUID, batch []domain.OrderAssignment) ([]domain.Stop, error)
}

// ShareServicer grants shares and answers access checks.
type ShareServicer interface {
	Grant(ctx context.Context, share domain.TripShare) (domain.TripShare, error)
	Revoke(ctx context.Context, tripID, userID, callerID uuid.UUID) error
	List(ctx context.Context, tripID uuid.UUID) ([]domain.TripShare, error)
	CanView(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	CanEdit(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
}

// PlaceServicer is the place gateway.
type PlaceServicer interface {
	SearchPlaces(ctx context.Context, p service.SearchParams) (service.PlaceResult, error)
	GetNearbyPlaces(ctx context.Context, p service.NearbyParams) (service.PlaceResult, error)
	GetPlaceDetails(ctx context.Context, placeID string) (service.PlaceDetails, error)
}

// ExportServicer builds trip itineraries.
type ExportServicer interface {
	Itinerary(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryRow, error)
}

// Services bundles the dependencies of Server. Nil entries leave the
// matching routes unregistered.
type Services struct {
	Trips  TripServicer
	Stops  StopServicer
	Shares ShareServicer
	Places PlaceServicer
	Export ExportServicer
}

// Server serves every API endpoint. Mount it with Routes.
type Server struct {
	trips    TripServicer
	stops    StopServicer
	shares   ShareServicer
	places   PlaceServicer
	export   ExportServicer
	validate *validator.Validate
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies. log may be nil.
func NewServer(svc Services, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		trips:    svc.Trips,
		stops:    svc.Stops,
		shares:   svc.Shares,
		places:   svc.Places,
		export:   svc.Export,
		validate: newValidator(),
		log:      log,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(Services{}, nil)
}

// Routes returns the API router. Cross-cutting middleware is applied by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	if s.trips != nil && s.shares != nil {
		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.ListTrips)
			r.Post("/", s.CreateTrip)
			r.Get("/shared", s.ListSharedTrips)

			r.Route("/{tripId}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Patch("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)
				r.Post("/statistics", s.RecomputeStatistics)

				r.Get("/shares", s.ListShares)
				r.Post("/shares", s.CreateShare)
				r.Delete("/shares/{userId}", s.DeleteShare)

				if s.export != nil {
					r.Get("/itinerary", s.GetItinerary)
				}
				if s.stops != nil {
					r.Get("/stops", s.ListStops)
					r.Post("/stops", s.CreateStop)
					r.Post("/stops/reorder", s.ReorderStops)
					r.Get("/stops/{stopId}", s.GetStop)
					r.Patch("/stops/{stopId}", s.UpdateStop)
					r.Delete("/stops/{stopId}", s.DeleteStop)
				}
			})
		})
	}

	if s.places != nil {
		r.Route("/places", func(r chi.Router) {
			r.Get("/search", s.SearchPlaces)
			r.Get("/nearby", s.NearbyPlaces)
			r.Get("/{placeId}", s.GetPlace)
		})
	}
	return r
}
