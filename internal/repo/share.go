package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// ShareRepo persists trip shares. A share is unique per (trip, grantee):
// granting again reactivates and overwrites the existing row.
type ShareRepo interface {
	// Upsert creates or reactivates the share for (share.TripID, share.SharedWith).
	Upsert(ctx context.Context, share domain.TripShare) (domain.TripShare, error)

	// Get returns the share for the pair, active or not.
	// Returns domain.ErrNotFound when the user was never granted access.
	Get(ctx context.Context, tripID, userID uuid.UUID) (domain.TripShare, error)

	// ListByTrip returns the active shares of a trip, oldest first.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.TripShare, error)

	// Deactivate marks the share inactive.
	// Returns domain.ErrNotFound when there is no active share for the pair.
	Deactivate(ctx context.Context, tripID, userID uuid.UUID) error
}

type pgShareRepo struct {
	db db
}

// NewShareRepo constructs a ShareRepo backed by the provided db connection.
func NewShareRepo(db db) ShareRepo {
	return &pgShareRepo{db: db}
}

const shareColumns = `id, trip_id, shared_with, shared_by, permission, message, is_active, shared_at`

func (r *pgShareRepo) Upsert(ctx context.Context, share domain.TripShare) (domain.TripShare, error) {
	q := `
		INSERT INTO trip_shares (trip_id, shared_with, shared_by, permission, message, is_active)
		VALUES (@trip_id, @shared_with, @shared_by, @permission, @message, true)
		ON CONFLICT (trip_id, shared_with) DO UPDATE
		SET shared_by  = EXCLUDED.shared_by,
		    permission = EXCLUDED.permission,
		    message    = EXCLUDED.message,
		    is_active  = true,
		    shared_at  = now()
		RETURNING ` + shareColumns

	result, err := scanShare(r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"trip_id":     share.TripID,
		"shared_with": share.SharedWith,
		"shared_by":   share.SharedBy,
		"permission":  string(share.Permission),
		"message":     share.Message,
	}))
	if err != nil {
		return domain.TripShare{}, fmt.Errorf("repo.ShareRepo.Upsert: %w", translateErr(err))
	}
	return result, nil
}

func (r *pgShareRepo) Get(ctx context.Context, tripID, userID uuid.UUID) (domain.TripShare, error) {
	q := `SELECT ` + shareColumns + ` FROM trip_shares WHERE trip_id = @trip_id AND shared_with = @shared_with`

	result, err := scanShare(r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "shared_with": userID}))
	if err != nil {
		return domain.TripShare{}, fmt.Errorf("repo.ShareRepo.Get: %w", translateErr(err))
	}
	return result, nil
}

func (r *pgShareRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.TripShare, error) {
	q := `SELECT ` + shareColumns + `
		FROM trip_shares
		WHERE trip_id = @trip_id AND is_active
		ORDER BY shared_at ASC, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ShareRepo.ListByTrip: %w", err)
	}
	defer rows.Close()

	shares := []domain.TripShare{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ShareRepo.ListByTrip: scan: %w", err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ShareRepo.ListByTrip: rows: %w", err)
	}
	return shares, nil
}

func (r *pgShareRepo) Deactivate(ctx context.Context, tripID, userID uuid.UUID) error {
	const q = `
		UPDATE trip_shares SET is_active = false
		WHERE trip_id = @trip_id AND shared_with = @shared_with AND is_active`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "shared_with": userID})
	if err != nil {
		return fmt.Errorf("repo.ShareRepo.Deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ShareRepo.Deactivate: %w", domain.ErrNotFound)
	}
	return nil
}

func scanShare(s scanner) (domain.TripShare, error) {
	var (
		sh                         domain.TripShare
		id, tripID, with, sharedBy pgtype.UUID
		permission                 string
	)
	if err := s.Scan(&id, &tripID, &with, &sharedBy, &permission, &sh.Message, &sh.IsActive, &sh.SharedAt); err != nil {
		return domain.TripShare{}, err
	}
	sh.ID = uuid.UUID(id.Bytes)
	sh.TripID = uuid.UUID(tripID.Bytes)
	sh.SharedWith = uuid.UUID(with.Bytes)
	sh.SharedBy = uuid.UUID(sharedBy.Bytes)
	sh.Permission = domain.Permission(permission)
	return sh, nil
}
