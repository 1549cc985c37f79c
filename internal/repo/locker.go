package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pkordes/roadtrip-planner/backend/internal/domain"
)

// TripTx is the set of repos bound to one per-trip unit of work.
type TripTx struct {
	Trips TripRepo
	Stops StopRepo
}

// TripLocker serializes writers of one trip. WithTripLock runs fn while
// holding the trip's lock, inside a unit of work that commits only when fn
// returns nil. Any error from fn, or a cancelled ctx, discards every write fn
// made. A unique violation surfacing at commit is reported as
// domain.ErrConflict. Returns domain.ErrNotFound when the trip does not exist.
type TripLocker interface {
	WithTripLock(ctx context.Context, tripID uuid.UUID, fn func(ctx context.Context, tx TripTx) error) error
}

type pgTripLocker struct {
	pool beginner
}

// NewTripLocker constructs a TripLocker that takes a row lock on the trip
// inside a Postgres transaction. pool is normally a *pgxpool.Pool.
func NewTripLocker(pool beginner) TripLocker {
	return &pgTripLocker{pool: pool}
}

func (l *pgTripLocker) WithTripLock(ctx context.Context, tripID uuid.UUID, fn func(ctx context.Context, tx TripTx) error) error {
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM trips WHERE id = @id FOR UPDATE`,
			pgx.NamedArgs{"id": tripID}).Scan(&locked); err != nil {
			return fmt.Errorf("lock trip: %w", translateErr(err))
		}
		return fn(ctx, TripTx{Trips: NewTripRepo(tx), Stops: NewStopRepo(tx)})
	})
	if err == nil {
		return nil
	}
	// Domain errors from fn pass through untouched; commit-time failures
	// such as the deferred stop order constraint are translated.
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrForbidden) {
		return fmt.Errorf("repo.TripLocker.WithTripLock: %w", err)
	}
	return fmt.Errorf("repo.TripLocker.WithTripLock: %w", translateErr(err))
}
