package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

const dateLayout = "2006-01-02"

// ExportService assembles a flat itinerary of one trip for download.
type ExportService struct {
	trips repo.TripRepo
	stops repo.StopRepo
}

// NewExportService constructs an ExportService backed by the provided repos.
func NewExportService(trips repo.TripRepo, stops repo.StopRepo) *ExportService {
	return &ExportService{trips: trips, stops: stops}
}

// Itinerary returns one row per stop in order, carrying the running totals
// at each arrival. Running totals follow the same rule as the trip totals:
// a missing leg adds nothing.
func (s *ExportService) Itinerary(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryRow, error) {
	trip, err := loadTrip(ctx, s.trips, s.stops, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Itinerary: %w", err)
	}

	base := domain.ItineraryRow{
		TripID:   trip.ID.String(),
		TripName: trip.Name,
	}
	if trip.StartDate != nil {
		base.TripStartDate = trip.StartDate.Format(dateLayout)
	}
	if trip.EndDate != nil {
		base.TripEndDate = trip.EndDate.Format(dateLayout)
	}

	stops := trip.SortedStops()
	if len(stops) == 0 {
		return []domain.ItineraryRow{base}, nil
	}

	rows := make([]domain.ItineraryRow, 0, len(stops))
	var distance, hours float64
	for i, st := range stops {
		row := base
		row.Order = st.Order
		row.StopName = st.Name
		row.StopType = st.StopType
		row.Address = st.Address
		row.Latitude = st.Coordinates.Latitude
		row.Longitude = st.Coordinates.Longitude
		row.PlaceID = st.PlaceID
		row.Notes = st.Notes
		row.CumulativeDistance = distance
		row.CumulativeHours = hours

		last := i == len(stops)-1
		if !last && st.HasLeg() {
			row.LegDistance = st.TravelDistanceToNext
			row.LegHours = st.TravelTimeToNext
			distance += *st.TravelDistanceToNext
			hours += *st.TravelTimeToNext
		}
		rows = append(rows, row)
	}
	return rows, nil
}
