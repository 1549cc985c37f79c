package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// PlaceRepo is the durable side of the place cache: place records keyed by
// provider place id, and memoized search results keyed by a normalized query.
// Freshness is judged by the caller; the repo returns expired rows as well.
type PlaceRepo interface {
	// GetPlace returns the cached record for placeID.
	// Returns domain.ErrNotFound when nothing is cached.
	GetPlace(ctx context.Context, placeID string) (domain.Place, error)

	// GetPlaces returns the cached records among ids, keyed by place id.
	// Missing ids are simply absent from the map.
	GetPlaces(ctx context.Context, ids []string) (map[string]domain.Place, error)

	// UpsertPlace inserts or replaces the record for place.PlaceID.
	UpsertPlace(ctx context.Context, place domain.Place) error

	// GetSearchQuery returns the memoized result for key.
	// Returns domain.ErrNotFound when nothing is memoized.
	GetSearchQuery(ctx context.Context, key string) (domain.SearchQuery, error)

	// UpsertSearchQuery inserts or replaces the memoized result for q.Key.
	UpsertSearchQuery(ctx context.Context, q domain.SearchQuery) error
}

type pgPlaceRepo struct {
	db db
}

// NewPlaceRepo constructs a PlaceRepo backed by the provided db connection.
func NewPlaceRepo(db db) PlaceRepo {
	return &pgPlaceRepo{db: db}
}

const placeColumns = `
	place_id, name, address, formatted_address, latitude, longitude,
	place_type, types, rating, user_ratings_total, price_level,
	phone_number, international_phone_number, website,
	opening_hours, photos, reviews, business_status,
	last_updated, cache_expires_at`

func (r *pgPlaceRepo) GetPlace(ctx context.Context, placeID string) (domain.Place, error) {
	q := `SELECT` + placeColumns + ` FROM places WHERE place_id = @place_id`

	result, err := scanPlace(r.db.QueryRow(ctx, q, pgx.NamedArgs{"place_id": placeID}))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.GetPlace: %w", translateErr(err))
	}
	return result, nil
}

func (r *pgPlaceRepo) GetPlaces(ctx context.Context, ids []string) (map[string]domain.Place, error) {
	out := make(map[string]domain.Place, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := `SELECT` + placeColumns + ` FROM places WHERE place_id = ANY(@ids)`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("repo.PlaceRepo.GetPlaces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PlaceRepo.GetPlaces: scan: %w", err)
		}
		out[p.PlaceID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PlaceRepo.GetPlaces: rows: %w", err)
	}
	return out, nil
}

func (r *pgPlaceRepo) UpsertPlace(ctx context.Context, place domain.Place) error {
	const q = `
		INSERT INTO places (place_id, name, address, formatted_address, latitude, longitude,
		                    place_type, types, rating, user_ratings_total, price_level,
		                    phone_number, international_phone_number, website,
		                    opening_hours, photos, reviews, business_status,
		                    last_updated, cache_expires_at)
		VALUES (@place_id, @name, @address, @formatted_address, @latitude, @longitude,
		        @place_type, @types, @rating, @user_ratings_total, @price_level,
		        @phone_number, @international_phone_number, @website,
		        @opening_hours, @photos, @reviews, @business_status,
		        @last_updated, @cache_expires_at)
		ON CONFLICT (place_id) DO UPDATE
		SET name                       = EXCLUDED.name,
		    address                    = EXCLUDED.address,
		    formatted_address          = EXCLUDED.formatted_address,
		    latitude                   = EXCLUDED.latitude,
		    longitude                  = EXCLUDED.longitude,
		    place_type                 = EXCLUDED.place_type,
		    types                      = EXCLUDED.types,
		    rating                     = EXCLUDED.rating,
		    user_ratings_total         = EXCLUDED.user_ratings_total,
		    price_level                = EXCLUDED.price_level,
		    phone_number               = EXCLUDED.phone_number,
		    international_phone_number = EXCLUDED.international_phone_number,
		    website                    = EXCLUDED.website,
		    opening_hours              = EXCLUDED.opening_hours,
		    photos                     = EXCLUDED.photos,
		    reviews                    = EXCLUDED.reviews,
		    business_status            = EXCLUDED.business_status,
		    last_updated               = EXCLUDED.last_updated,
		    cache_expires_at           = EXCLUDED.cache_expires_at`

	types, err := marshalJSONB(place.Types, "[]")
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.UpsertPlace: types: %w", err)
	}
	photos, err := marshalJSONB(place.Photos, "[]")
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.UpsertPlace: photos: %w", err)
	}
	reviews, err := marshalJSONB(place.Reviews, "[]")
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.UpsertPlace: reviews: %w", err)
	}
	var hours []byte
	if place.OpeningHours != nil {
		if hours, err = json.Marshal(place.OpeningHours); err != nil {
			return fmt.Errorf("repo.PlaceRepo.UpsertPlace: opening_hours: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, q, pgx.NamedArgs{
		"place_id":                   place.PlaceID,
		"name":                       place.Name,
		"address":                    place.Address,
		"formatted_address":          place.FormattedAddress,
		"latitude":                   place.Coordinates.Latitude,
		"longitude":                  place.Coordinates.Longitude,
		"place_type":                 string(place.PlaceType),
		"types":                      types,
		"rating":                     place.Rating,
		"user_ratings_total":         place.UserRatingsTotal,
		"price_level":                place.PriceLevel,
		"phone_number":               place.PhoneNumber,
		"international_phone_number": place.InternationalPhoneNumber,
		"website":                    place.Website,
		"opening_hours":              hours,
		"photos":                     photos,
		"reviews":                    reviews,
		"business_status":            place.BusinessStatus,
		"last_updated":               place.LastUpdated,
		"cache_expires_at":           place.CacheExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.UpsertPlace: %w", translateErr(err))
	}
	return nil
}

const searchQueryColumns = `
	cache_key, kind, query, latitude, longitude, radius, place_type,
	place_ids, total_results, created_at, expires_at`

func (r *pgPlaceRepo) GetSearchQuery(ctx context.Context, key string) (domain.SearchQuery, error) {
	q := `SELECT` + searchQueryColumns + ` FROM place_search_queries WHERE cache_key = @key`

	var (
		sq       domain.SearchQuery
		kind     string
		lat, lng pgtype.Float8
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}).Scan(
		&sq.Key, &kind, &sq.Query, &lat, &lng, &sq.Radius, &sq.PlaceType,
		&sq.PlaceIDs, &sq.TotalResults, &sq.CreatedAt, &sq.ExpiresAt)
	if err != nil {
		return domain.SearchQuery{}, fmt.Errorf("repo.PlaceRepo.GetSearchQuery: %w", translateErr(err))
	}
	sq.Kind = domain.SearchKind(kind)
	if lat.Valid && lng.Valid {
		sq.Location = &domain.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	return sq, nil
}

func (r *pgPlaceRepo) UpsertSearchQuery(ctx context.Context, sq domain.SearchQuery) error {
	const q = `
		INSERT INTO place_search_queries (cache_key, kind, query, latitude, longitude, radius,
		                                  place_type, place_ids, total_results, created_at, expires_at)
		VALUES (@key, @kind, @query, @latitude, @longitude, @radius,
		        @place_type, @place_ids, @total_results, @created_at, @expires_at)
		ON CONFLICT (cache_key) DO UPDATE
		SET kind          = EXCLUDED.kind,
		    query         = EXCLUDED.query,
		    latitude      = EXCLUDED.latitude,
		    longitude     = EXCLUDED.longitude,
		    radius        = EXCLUDED.radius,
		    place_type    = EXCLUDED.place_type,
		    place_ids     = EXCLUDED.place_ids,
		    total_results = EXCLUDED.total_results,
		    created_at    = EXCLUDED.created_at,
		    expires_at    = EXCLUDED.expires_at`

	var lat, lng *float64
	if sq.Location != nil {
		lat, lng = &sq.Location.Latitude, &sq.Location.Longitude
	}
	ids := sq.PlaceIDs
	if ids == nil {
		ids = []string{}
	}

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"key":           sq.Key,
		"kind":          string(sq.Kind),
		"query":         sq.Query,
		"latitude":      lat,
		"longitude":     lng,
		"radius":        sq.Radius,
		"place_type":    sq.PlaceType,
		"place_ids":     ids,
		"total_results": sq.TotalResults,
		"created_at":    sq.CreatedAt,
		"expires_at":    sq.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.UpsertSearchQuery: %w", translateErr(err))
	}
	return nil
}

// scanPlace maps a places row into a domain.Place, decoding the jsonb columns.
func scanPlace(s scanner) (domain.Place, error) {
	var (
		p                             domain.Place
		placeType                     string
		types, photos, reviews, hours []byte
		rating                        pgtype.Float8
		ratingsTotal, priceLevel      pgtype.Int4
	)
	err := s.Scan(&p.PlaceID, &p.Name, &p.Address, &p.FormattedAddress,
		&p.Coordinates.Latitude, &p.Coordinates.Longitude,
		&placeType, &types, &rating, &ratingsTotal, &priceLevel,
		&p.PhoneNumber, &p.InternationalPhoneNumber, &p.Website,
		&hours, &photos, &reviews, &p.BusinessStatus,
		&p.LastUpdated, &p.CacheExpiresAt)
	if err != nil {
		return domain.Place{}, err
	}

	p.PlaceType = domain.PlaceType(placeType)
	p.Rating = float8Ptr(rating)
	p.UserRatingsTotal = int4Ptr(ratingsTotal)
	p.PriceLevel = int4Ptr(priceLevel)

	if err := unmarshalJSONB(types, &p.Types); err != nil {
		return domain.Place{}, fmt.Errorf("types: %w", err)
	}
	if err := unmarshalJSONB(photos, &p.Photos); err != nil {
		return domain.Place{}, fmt.Errorf("photos: %w", err)
	}
	if err := unmarshalJSONB(reviews, &p.Reviews); err != nil {
		return domain.Place{}, fmt.Errorf("reviews: %w", err)
	}
	if len(hours) > 0 {
		p.OpeningHours = &domain.OpeningHours{}
		if err := json.Unmarshal(hours, p.OpeningHours); err != nil {
			return domain.Place{}, fmt.Errorf("opening_hours: %w", err)
		}
	}
	return p, nil
}

func int4Ptr(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}

// marshalJSONB encodes v for a NOT NULL jsonb column, substituting empty
// for a nil slice.
func marshalJSONB[T any](v []T, empty string) ([]byte, error) {
	if v == nil {
		return []byte(empty), nil
	}
	return json.Marshal(v)
}

func unmarshalJSONB(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
