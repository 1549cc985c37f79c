package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested against the in-memory store.
// Trips are returned without their Stops; StopRepo loads those.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// ListByOwner returns one page of the owner's trips, most recently updated
	// first, and the total number of trips the owner has.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// ListSharedWith returns trips with an active share for userID.
	ListSharedWith(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)

	// Update overwrites the client-editable fields of an existing trip. Derived
	// statistics are left alone. Returns domain.ErrNotFound if the trip is gone.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// SaveStatistics writes the derived totals of trip.
	SaveStatistics(ctx context.Context, trip domain.Trip) error

	// Delete removes a trip and, by cascade, its stops and shares.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `
	id, owner_id, name, description, start_date, end_date, is_public,
	vehicle_make, vehicle_model, vehicle_year,
	fuel_efficiency, fuel_price_per_unit,
	total_distance, total_time, estimated_fuel_cost,
	created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		INSERT INTO trips (owner_id, name, description, start_date, end_date, is_public,
		                   vehicle_make, vehicle_model, vehicle_year,
		                   fuel_efficiency, fuel_price_per_unit,
		                   total_distance, total_time, estimated_fuel_cost)
		VALUES (@owner_id, @name, @description, @start_date, @end_date, @is_public,
		        @vehicle_make, @vehicle_model, @vehicle_year,
		        @fuel_efficiency, @fuel_price_per_unit,
		        @total_distance, @total_time, @estimated_fuel_cost)
		RETURNING` + tripColumns

	args := tripArgs(trip)
	args["owner_id"] = trip.OwnerID
	args["total_distance"] = trip.TotalDistance
	args["total_time"] = trip.TotalTime
	args["estimated_fuel_cost"] = trip.EstimatedFuelCost

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", translateErr(err))
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", translateErr(err))
	}
	return result, nil
}

// ListByOwner returns one page of the owner's trips ordered by updated_at descending.
func (r *pgTripRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips WHERE owner_id = @owner_id`,
		pgx.NamedArgs{"owner_id": ownerID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByOwner: count: %w", err)
	}

	q := `SELECT` + tripColumns + `
		FROM trips
		WHERE owner_id = @owner_id
		ORDER BY updated_at DESC, id
		LIMIT @limit OFFSET @offset`

	trips, err := r.queryTrips(ctx, q, pgx.NamedArgs{
		"owner_id": ownerID,
		"limit":    p.Limit,
		"offset":   p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByOwner: %w", err)
	}
	return trips, total, nil
}

// ListSharedWith returns trips with an active share for userID.
func (r *pgTripRepo) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	q := `SELECT` + prefixed("t.", tripColumns) + `
		FROM trips t
		JOIN trip_shares s ON s.trip_id = t.id
		WHERE s.shared_with = @user_id AND s.is_active
		ORDER BY t.updated_at DESC, t.id`

	trips, err := r.queryTrips(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListSharedWith: %w", err)
	}
	return trips, nil
}

// Update overwrites the editable fields of a trip and returns the updated record.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET name                = @name,
		    description         = @description,
		    start_date          = @start_date,
		    end_date            = @end_date,
		    is_public           = @is_public,
		    vehicle_make        = @vehicle_make,
		    vehicle_model       = @vehicle_model,
		    vehicle_year        = @vehicle_year,
		    fuel_efficiency     = @fuel_efficiency,
		    fuel_price_per_unit = @fuel_price_per_unit,
		    updated_at          = now()
		WHERE id = @id
		RETURNING` + tripColumns

	args := tripArgs(trip)
	args["id"] = trip.ID

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", translateErr(err))
	}
	return result, nil
}

// SaveStatistics writes the derived totals.
func (r *pgTripRepo) SaveStatistics(ctx context.Context, trip domain.Trip) error {
	const q = `
		UPDATE trips
		SET total_distance      = @total_distance,
		    total_time          = @total_time,
		    estimated_fuel_cost = @estimated_fuel_cost,
		    updated_at          = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":                  trip.ID,
		"total_distance":      trip.TotalDistance,
		"total_time":          trip.TotalTime,
		"estimated_fuel_cost": trip.EstimatedFuelCost,
	})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.SaveStatistics: %w", translateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.SaveStatistics: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgTripRepo) queryTrips(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return trips, nil
}

// tripArgs holds the client-editable columns shared by Create and Update.
func tripArgs(trip domain.Trip) pgx.NamedArgs {
	return pgx.NamedArgs{
		"name":                trip.Name,
		"description":         trip.Description,
		"start_date":          trip.StartDate, // nil becomes NULL
		"end_date":            trip.EndDate,
		"is_public":           trip.IsPublic,
		"vehicle_make":        trip.VehicleMake,
		"vehicle_model":       trip.VehicleModel,
		"vehicle_year":        trip.VehicleYear,
		"fuel_efficiency":     trip.FuelEfficiency,
		"fuel_price_per_unit": trip.FuelPricePerUnit,
	}
}

// scanTrip maps a single database row into a domain.Trip.
// It handles the UUID and nullable date conversions.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t         domain.Trip
		id, owner pgtype.UUID
		start     pgtype.Date
		end       pgtype.Date
	)

	err := s.Scan(&id, &owner, &t.Name, &t.Description, &start, &end, &t.IsPublic,
		&t.VehicleMake, &t.VehicleModel, &t.VehicleYear,
		&t.FuelEfficiency, &t.FuelPricePerUnit,
		&t.TotalDistance, &t.TotalTime, &t.EstimatedFuelCost,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.OwnerID = uuid.UUID(owner.Bytes)
	if start.Valid {
		sd := start.Time
		t.StartDate = &sd
	}
	if end.Valid {
		ed := end.Time
		t.EndDate = &ed
	}
	return t, nil
}
