// Package placesapi is a small client for the Google Places web service.
// It only speaks the wire format; caching and freshness live in the service
// layer.
package placesapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// DefaultBaseURL is the production endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// detailFields is the field mask sent with every details request.
var detailFields = []string{
	"place_id", "name", "formatted_address", "geometry", "rating",
	"user_ratings_total", "price_level", "formatted_phone_number",
	"international_phone_number", "website", "opening_hours", "photos",
	"reviews", "types", "business_status",
}

// Provider status values. Anything other than these two is a failure.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

var (
	// ErrNotConfigured is returned by every call when no API key is set.
	ErrNotConfigured = errors.New("places api key not configured")

	// ErrMalformed is returned when the payload cannot be decoded, or when a
	// details call returns no usable place.
	ErrMalformed = errors.New("malformed places response")
)

// StatusError is a 2xx response whose provider status is not usable.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "places api status " + e.Status
	}
	return fmt.Sprintf("places api status %s: %s", e.Status, e.Message)
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("places api http %d", e.StatusCode)
}

// Client calls the Places web service.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
}

// New returns a Client. An empty baseURL means DefaultBaseURL; a nil
// httpClient means one with a 10 second timeout.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, log: slog.Default()}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// TextSearchRequest is a free-text search, optionally biased to a circle.
type TextSearchRequest struct {
	Query    string
	Location *domain.Coordinates
	Radius   int // meters, only sent with Location
	Type     string
}

// NearbyRequest is a search around a point.
type NearbyRequest struct {
	Location domain.Coordinates
	Radius   int // meters
	Type     string
}

// TextSearch runs /textsearch/json. ZERO_RESULTS yields an empty slice.
func (c *Client) TextSearch(ctx context.Context, req TextSearchRequest) ([]RawPlace, error) {
	q := url.Values{}
	q.Set("query", req.Query)
	if req.Location != nil {
		q.Set("location", formatLocation(*req.Location))
		q.Set("radius", strconv.Itoa(req.Radius))
	}
	if req.Type != "" {
		q.Set("type", req.Type)
	}

	var resp searchResponse
	if err := c.get(ctx, "/textsearch/json", q, &resp); err != nil {
		return nil, fmt.Errorf("placesapi.TextSearch: %w", err)
	}
	if err := checkStatus(resp.envelope); err != nil {
		return nil, fmt.Errorf("placesapi.TextSearch: %w", err)
	}
	return c.usable(ctx, "/textsearch/json", resp.Results), nil
}

// NearbySearch runs /nearbysearch/json. ZERO_RESULTS yields an empty slice.
func (c *Client) NearbySearch(ctx context.Context, req NearbyRequest) ([]RawPlace, error) {
	q := url.Values{}
	q.Set("location", formatLocation(req.Location))
	q.Set("radius", strconv.Itoa(req.Radius))
	if req.Type != "" {
		q.Set("type", req.Type)
	}

	var resp searchResponse
	if err := c.get(ctx, "/nearbysearch/json", q, &resp); err != nil {
		return nil, fmt.Errorf("placesapi.NearbySearch: %w", err)
	}
	if err := checkStatus(resp.envelope); err != nil {
		return nil, fmt.Errorf("placesapi.NearbySearch: %w", err)
	}
	return c.usable(ctx, "/nearbysearch/json", resp.Results), nil
}

// Details runs /details/json for one place. A ZERO_RESULTS or empty result
// is reported as malformed since a details call must return one place.
func (c *Client) Details(ctx context.Context, placeID string) (RawPlace, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", strings.Join(detailFields, ","))

	var resp detailsResponse
	if err := c.get(ctx, "/details/json", q, &resp); err != nil {
		return RawPlace{}, fmt.Errorf("placesapi.Details: %w", err)
	}
	if resp.Status != StatusOK {
		return RawPlace{}, fmt.Errorf("placesapi.Details: %w", &StatusError{Status: resp.Status, Message: resp.ErrorMessage})
	}
	if resp.Result == nil {
		return RawPlace{}, fmt.Errorf("placesapi.Details: %w: empty result", ErrMalformed)
	}
	if reason := unusable(*resp.Result); reason != "" {
		return RawPlace{}, fmt.Errorf("placesapi.Details: %w: result %s", ErrMalformed, reason)
	}
	return *resp.Result, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	q.Set("key", c.apiKey)
	q.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func checkStatus(env envelope) error {
	switch env.Status {
	case StatusOK, StatusZeroResults:
		return nil
	case "":
		return fmt.Errorf("%w: missing status", ErrMalformed)
	}
	return &StatusError{Status: env.Status, Message: env.ErrorMessage}
}

// usable drops results that cannot be cached and logs each one.
func (c *Client) usable(ctx context.Context, path string, results []RawPlace) []RawPlace {
	out := make([]RawPlace, 0, len(results))
	for i, r := range results {
		if reason := unusable(r); reason != "" {
			c.log.WarnContext(ctx, "places result skipped", "path", path, "index", i, "name", r.Name, "reason", reason)
			continue
		}
		out = append(out, r)
	}
	return out
}

func unusable(r RawPlace) string {
	if r.PlaceID == "" {
		return "has no place_id"
	}
	if r.Geometry == nil || r.Geometry.Location == nil {
		return "has no geometry"
	}
	return ""
}

func formatLocation(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
