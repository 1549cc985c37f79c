package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/handler"
	"github.com/pkordes/roadtrip-planner/backend/internal/service"
)

// ---- mock PlaceServicer ----------------------------------------------------

type mockPlaceServicer struct {
	search  func(ctx context.Context, p service.SearchParams) (service.PlaceResult, error)
	nearby  func(ctx context.Context, p service.NearbyParams) (service.PlaceResult, error)
	details func(ctx context.Context, placeID string) (service.PlaceDetails, error)
}

func (m *mockPlaceServicer) SearchPlaces(ctx context.Context, p service.SearchParams) (service.PlaceResult, error) {
	return m.search(ctx, p)
}
func (m *mockPlaceServicer) GetNearbyPlaces(ctx context.Context, p service.NearbyParams) (service.PlaceResult, error) {
	return m.nearby(ctx, p)
}
func (m *mockPlaceServicer) GetPlaceDetails(ctx context.Context, placeID string) (service.PlaceDetails, error) {
	return m.details(ctx, placeID)
}

// compile-time check: mockPlaceServicer must satisfy handler.PlaceServicer.
var _ handler.PlaceServicer = (*mockPlaceServicer)(nil)

func newPlaceHandler(places handler.PlaceServicer) http.Handler {
	return handler.NewServer(handler.Services{Places: places}, nil).Routes()
}

func diner() domain.Place {
	rating := 4.5
	return domain.Place{
		PlaceID:          "ChIJdiner",
		Name:             "Route 66 Diner",
		Address:          "Main St",
		FormattedAddress: "1 Main St, Kingman, AZ",
		Coordinates:      domain.Coordinates{Latitude: 35.19, Longitude: -114.05},
		PlaceType:        domain.PlaceTypeRestaurant,
		Types:            []string{"restaurant", "food"},
		Rating:           &rating,
		LastUpdated:      time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ---- GET /places/search ----------------------------------------------------

func TestSearchPlaces_200_PassesParams(t *testing.T) {
	var got service.SearchParams
	h := newPlaceHandler(&mockPlaceServicer{
		search: func(_ context.Context, p service.SearchParams) (service.PlaceResult, error) {
			got = p
			return service.PlaceResult{Places: []domain.Place{diner()}, Status: service.StatusUpstream}, nil
		},
	})

	rec := do(t, h, http.MethodGet, "/places/search?query=pie&lat=35.19&lng=-114.05&radius=1000&type=restaurant", uuid.Nil, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pie", got.Query)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 35.19, got.Location.Latitude, 1e-9)
	assert.InDelta(t, -114.05, got.Location.Longitude, 1e-9)
	assert.Equal(t, 1000, got.Radius)
	assert.Equal(t, "restaurant", got.Type)

	body := decodeJSON[handler.PlaceSearchResponse](t, rec)
	assert.Equal(t, "upstream", body.Status)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "1 Main St, Kingman, AZ", body.Results[0].Address)
	assert.Equal(t, "restaurant", body.Results[0].PlaceType)
	assert.Nil(t, body.Error)
}

func TestSearchPlaces_DefaultRadiusWithoutLocation(t *testing.T) {
	var got service.SearchParams
	h := newPlaceHandler(&mockPlaceServicer{
		search: func(_ context.Context, p service.SearchParams) (service.PlaceResult, error) {
			got = p
			return service.PlaceResult{Status: service.StatusCache}, nil
		},
	})

	rec := do(t, h, http.MethodGet, "/places/search?query=pie", uuid.Nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got.Location)
	assert.Equal(t, service.DefaultSearchRadius, got.Radius)
	body := decodeJSON[handler.PlaceSearchResponse](t, rec)
	assert.Equal(t, "cache", body.Status)
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}

func TestSearchPlaces_200_Unavailable(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{
		search: func(context.Context, service.SearchParams) (service.PlaceResult, error) {
			return service.PlaceResult{
				Status: service.StatusUnavailable,
				Err:    fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, context.DeadlineExceeded),
			}, nil
		},
	})

	rec := do(t, h, http.MethodGet, "/places/search?query=pie", uuid.Nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON[handler.PlaceSearchResponse](t, rec)
	assert.Equal(t, "unavailable", body.Status)
	assert.Empty(t, body.Results)
	require.NotNil(t, body.Error)
	assert.Contains(t, *body.Error, "deadline exceeded")
}

func TestSearchPlaces_400(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{})

	cases := map[string]string{
		"lat without lng": "/places/search?query=pie&lat=35",
		"lng without lat": "/places/search?query=pie&lng=-114",
		"bad radius":      "/places/search?query=pie&radius=far",
		"bad lat":         "/places/search?query=pie&lat=north&lng=1",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, path, uuid.Nil, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestSearchPlaces_400_ReportsFirstInvalidParam(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{})

	for i := 0; i < 20; i++ {
		rec := do(t, h, http.MethodGet, "/places/search?query=pie&radius=far&lat=north&lng=1", uuid.Nil, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		msg := decodeJSON[handler.ErrorResponse](t, rec).Error.Message
		assert.Contains(t, msg, "invalid query parameter lat")
	}
}

func TestSearchPlaces_422_ValidationFromService(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{
		search: func(context.Context, service.SearchParams) (service.PlaceResult, error) {
			return service.PlaceResult{}, fmt.Errorf("service.PlaceService.SearchPlaces: %w: query is required", domain.ErrValidation)
		},
	})

	rec := do(t, h, http.MethodGet, "/places/search", uuid.Nil, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "query is required", decodeJSON[handler.ErrorResponse](t, rec).Error.Message)
}

// ---- GET /places/nearby ----------------------------------------------------

func TestNearbyPlaces_200_DefaultRadius(t *testing.T) {
	var got service.NearbyParams
	h := newPlaceHandler(&mockPlaceServicer{
		nearby: func(_ context.Context, p service.NearbyParams) (service.PlaceResult, error) {
			got = p
			return service.PlaceResult{Places: []domain.Place{diner()}, Status: service.StatusCache}, nil
		},
	})

	rec := do(t, h, http.MethodGet, "/places/nearby?lat=35.19&lng=-114.05&type=restaurant", uuid.Nil, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.DefaultNearbyRadius, got.Radius)
	assert.Equal(t, "restaurant", got.Type)
	assert.InDelta(t, 35.19, got.Location.Latitude, 1e-9)
	body := decodeJSON[handler.PlaceSearchResponse](t, rec)
	assert.Equal(t, "cache", body.Status)
	require.Len(t, body.Results, 1)
}

func TestNearbyPlaces_400_MissingLocation(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{})

	for _, path := range []string{"/places/nearby", "/places/nearby?lat=35", "/places/nearby?lng=-114"} {
		rec := do(t, h, http.MethodGet, path, uuid.Nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestNearbyPlaces_422_RadiusTooLarge(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{
		nearby: func(_ context.Context, p service.NearbyParams) (service.PlaceResult, error) {
			if p.Radius > service.MaxRadius {
				return service.PlaceResult{}, fmt.Errorf("%w: radius too large", domain.ErrValidation)
			}
			return service.PlaceResult{Status: service.StatusCache}, nil
		},
	})

	rec := do(t, h, http.MethodGet, "/places/nearby?lat=1&lng=1&radius=60000", uuid.Nil, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- GET /places/{placeId} -------------------------------------------------

func TestGetPlace_200(t *testing.T) {
	var gotID string
	h := newPlaceHandler(&mockPlaceServicer{
		details: func(_ context.Context, id string) (service.PlaceDetails, error) {
			gotID = id
			p := diner()
			p.PhoneNumber = "+1 928 555 0100"
			return service.PlaceDetails{Place: &p, Status: service.StatusCache}, nil
		},
	})

	rec := do(t, h, http.MethodGet, "/places/ChIJdiner", uuid.Nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ChIJdiner", gotID)
	body := decodeJSON[handler.PlaceDetailsResponse](t, rec)
	assert.Equal(t, "cache", body.Status)
	require.NotNil(t, body.Place)
	require.NotNil(t, body.Place.PhoneNumber)
	assert.Equal(t, "+1 928 555 0100", *body.Place.PhoneNumber)
}

func TestGetPlace_200_Unavailable(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{
		details: func(context.Context, string) (service.PlaceDetails, error) {
			return service.PlaceDetails{
				Status: service.StatusUnavailable,
				Err:    fmt.Errorf("%w: places api key not configured", domain.ErrUpstreamUnavailable),
			}, nil
		},
	})

	rec := do(t, h, http.MethodGet, "/places/ChIJdiner", uuid.Nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON[handler.PlaceDetailsResponse](t, rec)
	assert.Equal(t, "unavailable", body.Status)
	assert.Nil(t, body.Place)
	require.NotNil(t, body.Error)
}

func TestGetPlace_404(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{
		details: func(_ context.Context, id string) (service.PlaceDetails, error) {
			return service.PlaceDetails{}, fmt.Errorf("place %s: %w", id, domain.ErrNotFound)
		},
	})

	rec := do(t, h, http.MethodGet, "/places/nope", uuid.Nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPlace_500(t *testing.T) {
	h := newPlaceHandler(&mockPlaceServicer{
		details: func(context.Context, string) (service.PlaceDetails, error) {
			return service.PlaceDetails{}, errors.New("redis: pool exhausted")
		},
	})

	rec := do(t, h, http.MethodGet, "/places/ChIJdiner", uuid.Nil, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
