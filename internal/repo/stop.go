package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// StopRepo defines the persistence operations for Stops.
// All write and single-read operations are scoped by tripID to enforce ownership.
type StopRepo interface {
	// Create inserts a new stop and returns the persisted record.
	// A non-nil stop.ID is kept so the aggregate can assign ids before persisting.
	Create(ctx context.Context, stop domain.Stop) (domain.Stop, error)

	// GetByID retrieves a single stop by its UUID, scoped to the given tripID.
	// Returns domain.ErrNotFound if no stop with that ID exists under that trip.
	GetByID(ctx context.Context, tripID, stopID uuid.UUID) (domain.Stop, error)

	// ListByTripID returns all stops for a trip ordered by stop order ascending.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Stop, error)

	// Update overwrites the mutable fields of a stop, including its order and
	// routed leg, scoped to stop.TripID.
	// Returns domain.ErrNotFound if no stop with that ID exists under that trip.
	Update(ctx context.Context, stop domain.Stop) (domain.Stop, error)

	// Delete removes a stop by ID, scoped to the given tripID.
	// Returns domain.ErrNotFound if no stop with that ID exists under that trip.
	Delete(ctx context.Context, tripID, stopID uuid.UUID) error
}

// pgStopRepo is the Postgres implementation of StopRepo.
type pgStopRepo struct {
	db db
}

// NewStopRepo constructs a StopRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewStopRepo(db db) StopRepo {
	return &pgStopRepo{db: db}
}

const stopColumns = `
	id, trip_id, name, address, latitude, longitude, stop_order, place_id,
	stop_type, duration_minutes, notes, estimated_cost,
	travel_time_to_next, travel_distance_to_next,
	created_at, updated_at`

func (r *pgStopRepo) Create(ctx context.Context, stop domain.Stop) (domain.Stop, error) {
	q := `
		INSERT INTO stops (id, trip_id, name, address, latitude, longitude, stop_order, place_id,
		                   stop_type, duration_minutes, notes, estimated_cost,
		                   travel_time_to_next, travel_distance_to_next)
		VALUES (COALESCE(@id, gen_random_uuid()), @trip_id, @name, @address, @latitude, @longitude,
		        @stop_order, @place_id, @stop_type, @duration_minutes, @notes, @estimated_cost,
		        @travel_time_to_next, @travel_distance_to_next)
		RETURNING` + stopColumns

	args := stopArgs(stop)
	if stop.ID == uuid.Nil {
		args["id"] = nil
	}

	result, err := scanStop(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Stop{}, fmt.Errorf("repo.StopRepo.Create: %w", translateErr(err))
	}
	return result, nil
}

func (r *pgStopRepo) GetByID(ctx context.Context, tripID, stopID uuid.UUID) (domain.Stop, error) {
	q := `SELECT` + stopColumns + ` FROM stops WHERE id = @id AND trip_id = @trip_id`

	result, err := scanStop(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": stopID, "trip_id": tripID}))
	if err != nil {
		return domain.Stop{}, fmt.Errorf("repo.StopRepo.GetByID: %w", translateErr(err))
	}
	return result, nil
}

func (r *pgStopRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Stop, error) {
	q := `SELECT` + stopColumns + ` FROM stops WHERE trip_id = @trip_id ORDER BY stop_order ASC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	stops := []domain.Stop{}
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.StopRepo.ListByTripID: scan: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTripID: rows: %w", err)
	}
	return stops, nil
}

func (r *pgStopRepo) Update(ctx context.Context, stop domain.Stop) (domain.Stop, error) {
	q := `
		UPDATE stops
		SET name                    = @name,
		    address                 = @address,
		    latitude                = @latitude,
		    longitude               = @longitude,
		    stop_order              = @stop_order,
		    place_id                = @place_id,
		    stop_type               = @stop_type,
		    duration_minutes        = @duration_minutes,
		    notes                   = @notes,
		    estimated_cost          = @estimated_cost,
		    travel_time_to_next     = @travel_time_to_next,
		    travel_distance_to_next = @travel_distance_to_next,
		    updated_at              = now()
		WHERE id = @id AND trip_id = @trip_id
		RETURNING` + stopColumns

	result, err := scanStop(r.db.QueryRow(ctx, q, stopArgs(stop)))
	if err != nil {
		return domain.Stop{}, fmt.Errorf("repo.StopRepo.Update: %w", translateErr(err))
	}
	return result, nil
}

func (r *pgStopRepo) Delete(ctx context.Context, tripID, stopID uuid.UUID) error {
	const q = `DELETE FROM stops WHERE id = @id AND trip_id = @trip_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": stopID, "trip_id": tripID})
	if err != nil {
		return fmt.Errorf("repo.StopRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.StopRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func stopArgs(s domain.Stop) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":                      s.ID,
		"trip_id":                 s.TripID,
		"name":                    s.Name,
		"address":                 s.Address,
		"latitude":                s.Coordinates.Latitude,
		"longitude":               s.Coordinates.Longitude,
		"stop_order":              s.Order,
		"place_id":                s.PlaceID,
		"stop_type":               string(s.StopType),
		"duration_minutes":        s.DurationMinutes,
		"notes":                   s.Notes,
		"estimated_cost":          s.EstimatedCost,
		"travel_time_to_next":     s.TravelTimeToNext,
		"travel_distance_to_next": s.TravelDistanceToNext,
	}
}

// scanStop maps a single database row into a domain.Stop.
func scanStop(s scanner) (domain.Stop, error) {
	var (
		st          domain.Stop
		id, tripID  pgtype.UUID
		stopType    string
		duration    pgtype.Int4
		cost        pgtype.Float8
		legTime     pgtype.Float8
		legDistance pgtype.Float8
	)

	err := s.Scan(&id, &tripID, &st.Name, &st.Address,
		&st.Coordinates.Latitude, &st.Coordinates.Longitude, &st.Order, &st.PlaceID,
		&stopType, &duration, &st.Notes, &cost,
		&legTime, &legDistance,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return domain.Stop{}, err
	}

	st.ID = uuid.UUID(id.Bytes)
	st.TripID = uuid.UUID(tripID.Bytes)
	st.StopType = domain.StopType(stopType)
	if duration.Valid {
		d := int(duration.Int32)
		st.DurationMinutes = &d
	}
	st.EstimatedCost = float8Ptr(cost)
	st.TravelTimeToNext = float8Ptr(legTime)
	st.TravelDistanceToNext = float8Ptr(legDistance)
	return st, nil
}

func float8Ptr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
