package handler_test

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/handler"
)

// ---- mock ExportServicer ---------------------------------------------------

type mockExportServicer struct {
	itinerary func(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryRow, error)
}

func (m *mockExportServicer) Itinerary(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryRow, error) {
	return m.itinerary(ctx, tripID)
}

// compile-time check: mockExportServicer must satisfy handler.ExportServicer.
var _ handler.ExportServicer = (*mockExportServicer)(nil)

func newExportHandler(export handler.ExportServicer) http.Handler {
	return handler.NewServer(handler.Services{Shares: allowAll{}, Export: export}, nil).Routes()
}

func itineraryPath(tripID uuid.UUID) string {
	return "/trips/" + tripID.String() + "/itinerary"
}

// ---- GET /trips/{tripId}/itinerary (JSON) ----------------------------------

func TestGetItinerary_JSON_RunningTotals(t *testing.T) {
	a := newAPI(t)
	owner := uuid.New()
	trip, _ := a.tripWithStops(t, owner, sanFrancisco, losAngeles, lasVegas)

	rec := do(t, a.h, http.MethodGet, itineraryPath(trip.ID), owner, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	rows := decodeJSON[[]handler.ItineraryRow](t, rec)
	require.Len(t, rows, 3)

	assert.Zero(t, rows[0].CumulativeDistance)
	require.NotNil(t, rows[0].LegDistance)
	assert.InDelta(t, *rows[0].LegDistance, rows[1].CumulativeDistance, 1e-9)
	assert.InDelta(t, *rows[0].LegDistance+*rows[1].LegDistance, rows[2].CumulativeDistance, 1e-9)
	assert.Nil(t, rows[2].LegDistance)
	require.NotNil(t, rows[2].Order)
	assert.Equal(t, 3, *rows[2].Order)
	assert.Equal(t, "Coast", rows[2].TripName)
}

func TestGetItinerary_JSON_EmptyTripHeaderRow(t *testing.T) {
	a := newAPI(t)
	owner := uuid.New()
	trip := a.createTrip(t, owner, map[string]any{"name": "Someday", "start_date": "2025-07-04"})

	rec := do(t, a.h, http.MethodGet, itineraryPath(trip.ID), owner, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeJSON[[]handler.ItineraryRow](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, trip.ID, rows[0].TripID)
	assert.Nil(t, rows[0].StopName)
	assert.Nil(t, rows[0].Order)
	require.NotNil(t, rows[0].TripStartDate)
	assert.Equal(t, "2025-07-04", rows[0].TripStartDate.Format("2006-01-02"))
}

// ---- GET /trips/{tripId}/itinerary?format=csv ------------------------------

func TestGetItinerary_CSV(t *testing.T) {
	a := newAPI(t)
	owner := uuid.New()
	trip, _ := a.tripWithStops(t, owner, sanFrancisco, losAngeles)

	rec := do(t, a.h, http.MethodGet, itineraryPath(trip.ID)+"?format=csv", owner, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "trip_id", records[0][0])
	assert.Equal(t, "cumulative_hours", records[0][len(records[0])-1])
	assert.Equal(t, trip.ID.String(), records[1][0])
	assert.Equal(t, "1", records[1][4])
	assert.Equal(t, "stop 1", records[1][5])
	assert.NotEmpty(t, records[1][12])
	assert.Equal(t, "0", records[1][14])
	// the last stop has no outgoing leg
	assert.Empty(t, records[2][12])
	assert.Empty(t, records[2][13])
	assert.Equal(t, records[1][12], records[2][14])
}

func TestGetItinerary_CSV_CommaInName(t *testing.T) {
	h := newExportHandler(&mockExportServicer{
		itinerary: func(_ context.Context, tripID uuid.UUID) ([]domain.ItineraryRow, error) {
			return []domain.ItineraryRow{{
				TripID: tripID.String(), TripName: "Big Sur, CA",
				Order: 1, StopName: "Nepenthe", StopType: domain.StopTypeStart,
			}}, nil
		},
	})

	rec := do(t, h, http.MethodGet, itineraryPath(uuid.New())+"?format=csv", uuid.New(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Big Sur, CA", records[1][1])
	assert.Equal(t, "", records[1][12])
}

// ---- errors ----------------------------------------------------------------

func TestGetItinerary_400_UnknownFormat(t *testing.T) {
	a := newAPI(t)
	owner := uuid.New()
	trip := a.createTrip(t, owner, map[string]any{"name": "Coast"})

	rec := do(t, a.h, http.MethodGet, itineraryPath(trip.ID)+"?format=xml", owner, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetItinerary_404_UnknownTrip(t *testing.T) {
	a := newAPI(t)

	rec := do(t, a.h, http.MethodGet, itineraryPath(uuid.New()), uuid.New(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetItinerary_500_ServiceError(t *testing.T) {
	h := newExportHandler(&mockExportServicer{
		itinerary: func(context.Context, uuid.UUID) ([]domain.ItineraryRow, error) {
			return nil, errors.New("connection reset")
		},
	})

	rec := do(t, h, http.MethodGet, itineraryPath(uuid.New()), uuid.New(), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}
