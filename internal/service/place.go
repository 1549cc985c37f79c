package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/pkordes/roadtrip-planner/backend/internal/cache"
	"github.com/pkordes/roadtrip-planner/backend/internal/clock"
	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
	"github.com/pkordes/roadtrip-planner/backend/internal/placesapi"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
)

// PlaceUpstream is the external places provider. *placesapi.Client satisfies it.
type PlaceUpstream interface {
	Configured() bool
	TextSearch(ctx context.Context, req placesapi.TextSearchRequest) ([]placesapi.RawPlace, error)
	NearbySearch(ctx context.Context, req placesapi.NearbyRequest) ([]placesapi.RawPlace, error)
	Details(ctx context.Context, placeID string) (placesapi.RawPlace, error)
}

// Search radius bounds in meters.
const (
	MaxRadius           = 50000
	DefaultSearchRadius = 50000
	DefaultNearbyRadius = 5000
)

// PlaceConfig tunes the gateway. Zero values fall back to the defaults.
type PlaceConfig struct {
	UpstreamTimeout  time.Duration // default 10s
	PlaceTTL         time.Duration // default 7 days
	SearchTTL        time.Duration // default 1 hour
	NearbyTTL        time.Duration // default 30 minutes
	GeohashPrecision uint          // default 9
}

func (c PlaceConfig) withDefaults() PlaceConfig {
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 10 * time.Second
	}
	if c.PlaceTTL <= 0 {
		c.PlaceTTL = 7 * 24 * time.Hour
	}
	if c.SearchTTL <= 0 {
		c.SearchTTL = time.Hour
	}
	if c.NearbyTTL <= 0 {
		c.NearbyTTL = 30 * time.Minute
	}
	if c.GeohashPrecision == 0 || c.GeohashPrecision > 12 {
		c.GeohashPrecision = 9
	}
	return c
}

// ResultStatus tells where a gateway answer came from.
type ResultStatus string

const (
	StatusCache       ResultStatus = "cache"
	StatusUpstream    ResultStatus = "upstream"
	StatusUnavailable ResultStatus = "unavailable"
)

// PlaceResult is the outcome of a search. When Status is
// StatusUnavailable, Places is empty and Err wraps
// domain.ErrUpstreamUnavailable.
type PlaceResult struct {
	Places []domain.Place
	Status ResultStatus
	Err    error
}

// PlaceDetails is the outcome of a details lookup. Place is nil only when
// Status is StatusUnavailable.
type PlaceDetails struct {
	Place  *domain.Place
	Status ResultStatus
	Err    error
}

// SearchParams is a free-text search, optionally biased to a circle.
type SearchParams struct {
	Query    string
	Location *domain.Coordinates
	Radius   int // meters
	Type     string
}

// NearbyParams is a search around a point.
type NearbyParams struct {
	Location domain.Coordinates
	Radius   int // meters
	Type     string
}

// PlaceService is the cache-aside gateway in front of the places provider.
// Lookups try the ephemeral cache, then the durable store, and only then the
// provider. Provider failures never surface as errors: they come back as a
// StatusUnavailable result. Only invalid input returns an error.
type PlaceService struct {
	places   repo.PlaceRepo
	cache    cache.Cache
	upstream PlaceUpstream
	clock    clock.Clock
	cfg      PlaceConfig
	log      *slog.Logger
}

// NewPlaceService constructs a PlaceService. ephemeral may be nil to skip the
// Redis layer; clk and log may be nil.
func NewPlaceService(places repo.PlaceRepo, ephemeral cache.Cache, upstream PlaceUpstream, clk clock.Clock, cfg PlaceConfig, log *slog.Logger) *PlaceService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &PlaceService{
		places:   places,
		cache:    ephemeral,
		upstream: upstream,
		clock:    clk,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
}

// SearchPlaces runs a text search.
// Returns domain.ErrValidation for an empty query or a bad location/radius.
func (s *PlaceService) SearchPlaces(ctx context.Context, p SearchParams) (PlaceResult, error) {
	query := normalizeQuery(p.Query)
	if query == "" {
		return PlaceResult{}, fmt.Errorf("service.PlaceService.SearchPlaces: %w: query is required", domain.ErrValidation)
	}
	if err := validateArea(p.Location, p.Radius); err != nil {
		return PlaceResult{}, fmt.Errorf("service.PlaceService.SearchPlaces: %w", err)
	}

	key := s.searchKey(domain.SearchKindText, query, p.Location, p.Radius, p.Type)
	record := domain.SearchQuery{
		Key:       key,
		Kind:      domain.SearchKindText,
		Query:     query,
		Location:  p.Location,
		Radius:    p.Radius,
		PlaceType: p.Type,
	}
	fetch := func(ctx context.Context) ([]placesapi.RawPlace, error) {
		return s.upstream.TextSearch(ctx, placesapi.TextSearchRequest{
			Query:    query,
			Location: p.Location,
			Radius:   p.Radius,
			Type:     p.Type,
		})
	}
	return s.search(ctx, record, s.cfg.SearchTTL, fetch), nil
}

// GetNearbyPlaces searches around a point.
// Returns domain.ErrValidation for a bad location or radius.
func (s *PlaceService) GetNearbyPlaces(ctx context.Context, p NearbyParams) (PlaceResult, error) {
	if err := validateArea(&p.Location, p.Radius); err != nil {
		return PlaceResult{}, fmt.Errorf("service.PlaceService.GetNearbyPlaces: %w", err)
	}

	loc := p.Location
	key := s.searchKey(domain.SearchKindNearby, "", &loc, p.Radius, p.Type)
	record := domain.SearchQuery{
		Key:       key,
		Kind:      domain.SearchKindNearby,
		Location:  &loc,
		Radius:    p.Radius,
		PlaceType: p.Type,
	}
	fetch := func(ctx context.Context) ([]placesapi.RawPlace, error) {
		return s.upstream.NearbySearch(ctx, placesapi.NearbyRequest{Location: loc, Radius: p.Radius, Type: p.Type})
	}
	return s.search(ctx, record, s.cfg.NearbyTTL, fetch), nil
}

// GetPlaceDetails returns the full record of one place.
// Returns domain.ErrValidation for an empty place id.
func (s *PlaceService) GetPlaceDetails(ctx context.Context, placeID string) (PlaceDetails, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return PlaceDetails{}, fmt.Errorf("service.PlaceService.GetPlaceDetails: %w: place id is required", domain.ErrValidation)
	}
	now := s.clock.Now()
	log := s.log.With("place_id", placeID)
	cacheKey := "place|" + placeID

	if s.cache != nil {
		var cached domain.Place
		ok, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.WarnContext(ctx, "ephemeral place cache read failed", "err", err)
		}
		if ok && cached.IsValid(now) {
			log.DebugContext(ctx, "place served from ephemeral cache")
			return PlaceDetails{Place: &cached, Status: StatusCache}, nil
		}
	}

	stored, err := s.places.GetPlace(ctx, placeID)
	switch {
	case err == nil && stored.IsValid(now):
		log.DebugContext(ctx, "place served from store")
		return PlaceDetails{Place: &stored, Status: StatusCache}, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		log.WarnContext(ctx, "place store read failed", "err", err)
	}

	raw, err := callUpstream(ctx, s, func(ctx context.Context) (placesapi.RawPlace, error) {
		return s.upstream.Details(ctx, placeID)
	})
	if err != nil {
		log.WarnContext(ctx, "places provider unavailable", "err", err)
		return PlaceDetails{Status: StatusUnavailable, Err: unavailable(err)}, nil
	}

	place := s.stamp(raw.Normalize(), now)
	if err := s.places.UpsertPlace(ctx, place); err != nil {
		log.ErrorContext(ctx, "place write-back failed", "err", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, place, s.cfg.PlaceTTL); err != nil {
			log.WarnContext(ctx, "ephemeral place cache write failed", "err", err)
		}
	}
	return PlaceDetails{Place: &place, Status: StatusUpstream}, nil
}

// search is the shared cache-aside flow of text and nearby search.
func (s *PlaceService) search(ctx context.Context, record domain.SearchQuery, ttl time.Duration, fetch func(context.Context) ([]placesapi.RawPlace, error)) PlaceResult {
	now := s.clock.Now()
	log := s.log.With("cache_key", record.Key)

	if places, ok := s.cachedSearch(ctx, log, record.Key, now); ok {
		return PlaceResult{Places: places, Status: StatusCache}
	}

	raws, err := callUpstream(ctx, s, fetch)
	if err != nil {
		log.WarnContext(ctx, "places provider unavailable", "err", err)
		return PlaceResult{Places: []domain.Place{}, Status: StatusUnavailable, Err: unavailable(err)}
	}

	places := make([]domain.Place, 0, len(raws))
	ids := make([]string, 0, len(raws))
	for _, r := range raws {
		places = append(places, s.stamp(r.Normalize(), now))
		ids = append(ids, r.PlaceID)
	}
	s.writeBack(ctx, log, places)

	record.PlaceIDs = ids
	record.TotalResults = len(ids)
	record.CreatedAt = now
	record.ExpiresAt = now.Add(ttl)
	if err := s.places.UpsertSearchQuery(ctx, record); err != nil {
		log.ErrorContext(ctx, "search query write-back failed", "err", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, "search|"+record.Key, places, ttl); err != nil {
			log.WarnContext(ctx, "ephemeral search cache write failed", "err", err)
		}
	}
	log.InfoContext(ctx, "places fetched from provider", "results", len(places))
	return PlaceResult{Places: places, Status: StatusUpstream}
}

// cachedSearch looks for a fresh answer in the ephemeral cache, then the
// store. A store hit needs the query record and every place it names to be
// fresh; one missing or stale place turns the whole lookup into a miss.
func (s *PlaceService) cachedSearch(ctx context.Context, log *slog.Logger, key string, now time.Time) ([]domain.Place, bool) {
	if s.cache != nil {
		var cached []domain.Place
		ok, err := s.cache.Get(ctx, "search|"+key, &cached)
		if err != nil {
			log.WarnContext(ctx, "ephemeral search cache read failed", "err", err)
		}
		if ok {
			log.DebugContext(ctx, "search served from ephemeral cache")
			if cached == nil {
				cached = []domain.Place{}
			}
			return cached, true
		}
	}

	q, err := s.places.GetSearchQuery(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.WarnContext(ctx, "search query store read failed", "err", err)
		}
		return nil, false
	}
	if !q.IsValid(now) {
		return nil, false
	}

	byID, err := s.places.GetPlaces(ctx, q.PlaceIDs)
	if err != nil {
		log.WarnContext(ctx, "place store read failed", "err", err)
		return nil, false
	}
	out := make([]domain.Place, 0, len(q.PlaceIDs))
	for _, id := range q.PlaceIDs {
		p, ok := byID[id]
		if !ok || !p.IsValid(now) {
			log.DebugContext(ctx, "search record references a missing or stale place", "place_id", id)
			return nil, false
		}
		out = append(out, p)
	}
	log.DebugContext(ctx, "search served from store")
	return out, true
}

// writeBack upserts each fetched place. Search results carry only summary
// fields, so detail fields already in the store are kept. Failures are
// logged and do not affect the answer.
func (s *PlaceService) writeBack(ctx context.Context, log *slog.Logger, places []domain.Place) {
	ids := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.PlaceID
	}
	existing, err := s.places.GetPlaces(ctx, ids)
	if err != nil {
		log.WarnContext(ctx, "place store read failed", "err", err)
		existing = nil
	}
	for _, p := range places {
		if prev, ok := existing[p.PlaceID]; ok {
			p = keepDetails(prev, p)
		}
		if err := s.places.UpsertPlace(ctx, p); err != nil {
			log.ErrorContext(ctx, "place write-back failed", "place_id", p.PlaceID, "err", err)
		}
	}
}

// callUpstream runs fn with the configured timeout. A missing API key is
// reported without calling fn.
func callUpstream[T any](ctx context.Context, s *PlaceService, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.upstream == nil || !s.upstream.Configured() {
		return zero, placesapi.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *PlaceService) stamp(p domain.Place, now time.Time) domain.Place {
	p.LastUpdated = now
	p.CacheExpiresAt = now.Add(s.cfg.PlaceTTL)
	return p
}

// searchKey builds the normalized cache key. Coordinates are bucketed by
// geohash so nearby requests for the same spot share an entry. Free-text
// fields are escaped so no value can contain the separator.
func (s *PlaceService) searchKey(kind domain.SearchKind, query string, loc *domain.Coordinates, radius int, placeType string) string {
	cell := "-"
	if loc != nil {
		cell = geohash.EncodeWithPrecision(loc.Latitude, loc.Longitude, s.cfg.GeohashPrecision)
	}
	t := strings.ToLower(strings.TrimSpace(placeType))
	if t == "" {
		t = "all"
	}
	return strings.Join([]string{string(kind), url.QueryEscape(query), cell, strconv.Itoa(radius), url.QueryEscape(t)}, "|")
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func validateArea(loc *domain.Coordinates, radius int) error {
	if loc != nil {
		if err := loc.Validate(); err != nil {
			return err
		}
	}
	if radius <= 0 || radius > MaxRadius {
		return fmt.Errorf("%w: radius must be between 1 and %d meters", domain.ErrValidation, MaxRadius)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}

func keepDetails(prev, fresh domain.Place) domain.Place {
	if fresh.PhoneNumber == "" {
		fresh.PhoneNumber = prev.PhoneNumber
	}
	if fresh.InternationalPhoneNumber == "" {
		fresh.InternationalPhoneNumber = prev.InternationalPhoneNumber
	}
	if fresh.Website == "" {
		fresh.Website = prev.Website
	}
	if fresh.OpeningHours == nil {
		fresh.OpeningHours = prev.OpeningHours
	}
	if len(fresh.Photos) == 0 {
		fresh.Photos = prev.Photos
	}
	if len(fresh.Reviews) == 0 {
		fresh.Reviews = prev.Reviews
	}
	return fresh
}
