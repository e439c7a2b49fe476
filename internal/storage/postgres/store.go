// Package postgres is the pgx-backed store. Every write is a single
// statement: cross-record atomicity is the ledger's job, the store is the
// durable record of permits, zones, and waitlist entries.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// Store bundles the three repositories over one pool.
type Store struct {
	Zones    *ZoneRepository
	Permits  *PermitRepository
	Waitlist *WaitlistRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Zones:    NewZoneRepository(pool),
		Permits:  NewPermitRepository(pool),
		Waitlist: NewWaitlistRepository(pool),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// mapIDErr converts the driver's invalid-uuid error into the domain's
// invalid-request sentinel so handlers never see pgconn details.
func mapIDErr(err error, notFound error) error {
	if isInvalidUUID(err) {
		return domain.ErrInvalidRequest
	}
	return notFound
}

// textArray keeps a nil add-on slice out of a NOT NULL text[] column.
func textArray(a []string) []string {
	if a == nil {
		return []string{}
	}
	return a
}
