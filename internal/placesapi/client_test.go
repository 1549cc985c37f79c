package placesapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/placesapi"
)

// newServer serves body with status for every request and records the last one.
func newServer(t *testing.T, status int, body string) (*httptest.Server, **http.Request) {
	t.Helper()
	var last *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

const twoResults = `{
  "status": "OK",
  "results": [
    {"place_id": "p1", "name": "Diner", "formatted_address": "1 Route 66",
     "geometry": {"location": {"lat": 35.1, "lng": -114.5}},
     "types": ["restaurant", "food"], "rating": 4.4},
    {"place_id": "p2", "name": "Motel", "vicinity": "Kingman",
     "geometry": {"location": {"lat": 35.2, "lng": -114.0}},
     "types": ["lodging"]}
  ]
}`

func TestTextSearch_OK(t *testing.T) {
	srv, last := newServer(t, http.StatusOK, twoResults)
	c := placesapi.New(srv.URL, "secret", nil)

	got, err := c.TextSearch(context.Background(), placesapi.TextSearchRequest{
		Query:    "diner",
		Location: &domain.Coordinates{Latitude: 35, Longitude: -114.5},
		Radius:   5000,
		Type:     "restaurant",
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].PlaceID)

	req := *last
	assert.Equal(t, "/textsearch/json", req.URL.Path)
	assert.Equal(t, "diner", req.URL.Query().Get("query"))
	assert.Equal(t, "35,-114.5", req.URL.Query().Get("location"))
	assert.Equal(t, "5000", req.URL.Query().Get("radius"))
	assert.Equal(t, "restaurant", req.URL.Query().Get("type"))
	assert.Equal(t, "secret", req.URL.Query().Get("key"))
	assert.Equal(t, "en", req.URL.Query().Get("language"))
}

func TestTextSearch_ZeroResultsIsEmptySuccess(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`)
	c := placesapi.New(srv.URL, "secret", nil)

	got, err := c.TextSearch(context.Background(), placesapi.TextSearchRequest{Query: "nothing"})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTextSearch_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"provider status", http.StatusOK, `{"status":"OVER_QUERY_LIMIT","error_message":"quota"}`, func(t *testing.T, err error) {
			var se *placesapi.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "OVER_QUERY_LIMIT", se.Status)
		}},
		{"http 500", http.StatusInternalServerError, `oops`, func(t *testing.T, err error) {
			var he *placesapi.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, 500, he.StatusCode)
		}},
		{"not json", http.StatusOK, `<html>`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, placesapi.ErrMalformed)
		}},
		{"missing status", http.StatusOK, `{"results":[]}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, placesapi.ErrMalformed)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newServer(t, tc.status, tc.body)
			c := placesapi.New(srv.URL, "secret", nil)

			_, err := c.TextSearch(context.Background(), placesapi.TextSearchRequest{Query: "q"})

			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestTextSearch_SkipsUnusableResults(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{
  "status": "OK",
  "results": [
    {"name": "No id", "geometry": {"location": {"lat": 1, "lng": 1}}},
    {"place_id": "p1", "name": "Diner", "geometry": {"location": {"lat": 35.1, "lng": -114.5}}},
    {"place_id": "p2", "name": "No geometry"}
  ]
}`)
	c := placesapi.New(srv.URL, "secret", nil)

	got, err := c.TextSearch(context.Background(), placesapi.TextSearchRequest{Query: "diner"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PlaceID)
}

func TestDetails_ResultWithoutGeometryIsMalformed(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"status":"OK","result":{"place_id":"p1","name":"Diner"}}`)
	c := placesapi.New(srv.URL, "secret", nil)

	_, err := c.Details(context.Background(), "p1")

	assert.ErrorIs(t, err, placesapi.ErrMalformed)
}

func TestNearbySearch_SendsLocation(t *testing.T) {
	srv, last := newServer(t, http.StatusOK, twoResults)
	c := placesapi.New(srv.URL, "secret", nil)

	got, err := c.NearbySearch(context.Background(), placesapi.NearbyRequest{
		Location: domain.Coordinates{Latitude: 35.25, Longitude: -114.125},
		Radius:   1500,
	})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	req := *last
	assert.Equal(t, "/nearbysearch/json", req.URL.Path)
	assert.Equal(t, "35.25,-114.125", req.URL.Query().Get("location"))
	assert.Empty(t, req.URL.Query().Get("type"))
}

func TestDetails(t *testing.T) {
	srv, last := newServer(t, http.StatusOK, `{"status":"OK","result":{
		"place_id":"p1","name":"Diner","geometry":{"location":{"lat":1,"lng":2}},
		"formatted_phone_number":"(555) 010-0000","website":"https://diner.example",
		"opening_hours":{"open_now":true,"weekday_text":["Mon: 6-22"]},
		"photos":[{"photo_reference":"ref1"},{"photo_reference":"ref2"}]}}`)
	c := placesapi.New(srv.URL, "secret", nil)

	got, err := c.Details(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "Diner", got.Name)
	assert.Equal(t, "p1", (*last).URL.Query().Get("place_id"))
	assert.Contains(t, (*last).URL.Query().Get("fields"), "opening_hours")
}

func TestDetails_NotFoundStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"status":"NOT_FOUND"}`)
	c := placesapi.New(srv.URL, "secret", nil)

	_, err := c.Details(context.Background(), "gone")

	var se *placesapi.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "NOT_FOUND", se.Status)
}

func TestNotConfigured(t *testing.T) {
	srv, last := newServer(t, http.StatusOK, twoResults)
	c := placesapi.New(srv.URL, "", nil)

	assert.False(t, c.Configured())
	_, err := c.TextSearch(context.Background(), placesapi.TextSearchRequest{Query: "q"})
	assert.ErrorIs(t, err, placesapi.ErrNotConfigured)
	assert.Nil(t, *last, "no request is sent")
}

func TestContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	c := placesapi.New(srv.URL, "secret", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.TextSearch(ctx, placesapi.TextSearchRequest{Query: "q"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNormalize(t *testing.T) {
	rating := 4.5
	openNow := false
	raw := placesapi.RawPlace{
		PlaceID:              "p1",
		Name:                 "Grand Canyon Lodge",
		Vicinity:             "North Rim",
		Geometry:             &placesapi.Geometry{Location: &placesapi.LatLng{Lat: 36.19, Lng: -112.05}},
		Types:                []string{"point_of_interest", "lodging", "restaurant"},
		Rating:               &rating,
		FormattedPhoneNumber: "(928) 638-2611",
		OpeningHours:         &placesapi.OpeningHours{OpenNow: &openNow},
		Photos:               []placesapi.Photo{{PhotoReference: "a"}, {}, {PhotoReference: "b"}},
		Reviews:              make([]placesapi.Review, 8),
	}

	p := raw.Normalize()

	assert.Equal(t, domain.PlaceTypeAccommodation, p.PlaceType)
	assert.Equal(t, domain.Coordinates{Latitude: 36.19, Longitude: -112.05}, p.Coordinates)
	assert.Equal(t, "North Rim", p.Address)
	assert.Equal(t, "North Rim", p.DisplayAddress())
	assert.Equal(t, []string{"a", "b"}, p.Photos)
	assert.Len(t, p.Reviews, domain.MaxReviews)
	assert.Equal(t, "(928) 638-2611", p.PhoneNumber)
	require.NotNil(t, p.OpeningHours)
	assert.False(t, *p.OpeningHours.OpenNow)
}
