package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

type WaitlistRepository struct {
	pool *pgxpool.Pool
}

func NewWaitlistRepository(pool *pgxpool.Pool) *WaitlistRepository {
	return &WaitlistRepository{pool: pool}
}

const entryColumns = `id, user_id, user_role, zone_id, range_start, range_end, permit_type,
add_ons, status, enqueued_at, offer_expires_at`

func (r *WaitlistRepository) CreateEntry(ctx context.Context, e domain.WaitlistEntry) error {
	const stmt = `
INSERT INTO waitlist_entries (` + entryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, stmt,
		e.ID, e.UserID, string(e.UserRole), e.ZoneID,
		e.Range.Start.Time(), e.Range.End.Time(),
		string(e.Type), textArray(e.AddOns), string(e.Status),
		e.EnqueuedAt, nullableTime(e.OfferExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

func (r *WaitlistRepository) GetEntry(ctx context.Context, id string) (domain.WaitlistEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM waitlist_entries WHERE id = $1`
	e, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows || isInvalidUUID(err) {
			return domain.WaitlistEntry{}, mapIDErr(err, domain.ErrEntryNotFound)
		}
		return domain.WaitlistEntry{}, fmt.Errorf("get waitlist entry: %w", err)
	}
	return e, nil
}

func (r *WaitlistRepository) UpdateEntry(ctx context.Context, e domain.WaitlistEntry) error {
	const stmt = `
UPDATE waitlist_entries
SET status = $2, offer_expires_at = $3
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, stmt, e.ID, string(e.Status), nullableTime(e.OfferExpiresAt))
	if err != nil {
		return fmt.Errorf("update waitlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *WaitlistRepository) ListOpenEntriesByZone(ctx context.Context, zoneID string) ([]domain.WaitlistEntry, error) {
	const query = `SELECT ` + entryColumns + `
FROM waitlist_entries
WHERE zone_id = $1 AND status IN ('queued', 'offered')
ORDER BY enqueued_at`
	rows, err := r.pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	defer rows.Close()

	var out []domain.WaitlistEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (domain.WaitlistEntry, error) {
	var (
		e          domain.WaitlistEntry
		start, end time.Time
		role, typ  string
		status     string
		offerExp   *time.Time
	)
	err := row.Scan(
		&e.ID, &e.UserID, &role, &e.ZoneID, &start, &end, &typ,
		&e.AddOns, &status, &e.EnqueuedAt, &offerExp,
	)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	e.UserRole = domain.Role(role)
	e.Range = domain.DateRange{Start: domain.DayOf(start), End: domain.DayOf(end)}
	e.Type = domain.PermitType(typ)
	e.Status = domain.WaitlistStatus(status)
	if offerExp != nil {
		e.OfferExpiresAt = *offerExp
	}
	return e, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
