package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

type PermitRepository struct {
	pool *pgxpool.Pool
}

func NewPermitRepository(pool *pgxpool.Pool) *PermitRepository {
	return &PermitRepository{pool: pool}
}

const permitColumns = `id, user_id, zone_id, range_start, range_end, permit_type, add_ons,
price_cents, payment_ref, hold_token, status, payment_deadline, created_at`

func (r *PermitRepository) CreatePermit(ctx context.Context, p domain.Permit) error {
	const stmt = `
INSERT INTO permits (` + permitColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.pool.Exec(ctx, stmt,
		p.ID, p.UserID, p.ZoneID,
		p.Range.Start.Time(), p.Range.End.Time(),
		string(p.Type), textArray(p.AddOns),
		p.PriceCents, p.PaymentRef, p.HoldToken,
		string(p.Status), p.PaymentDeadline, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create permit: %w", err)
	}
	return nil
}

func (r *PermitRepository) GetPermit(ctx context.Context, id string) (domain.Permit, error) {
	const query = `SELECT ` + permitColumns + ` FROM permits WHERE id = $1`
	p, err := scanPermit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows || isInvalidUUID(err) {
			return domain.Permit{}, mapIDErr(err, domain.ErrPermitNotFound)
		}
		return domain.Permit{}, fmt.Errorf("get permit: %w", err)
	}
	return p, nil
}

func (r *PermitRepository) GetPermitByPaymentRef(ctx context.Context, ref string) (*domain.Permit, error) {
	const query = `SELECT ` + permitColumns + ` FROM permits WHERE payment_ref = $1`
	p, err := scanPermit(r.pool.QueryRow(ctx, query, ref))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidRequest
		}
		return nil, fmt.Errorf("get permit by payment ref: %w", err)
	}
	return &p, nil
}

func (r *PermitRepository) UpdatePermit(ctx context.Context, p domain.Permit) error {
	const stmt = `
UPDATE permits
SET hold_token = $2, status = $3, payment_deadline = $4
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, stmt, p.ID, p.HoldToken, string(p.Status), p.PaymentDeadline)
	if err != nil {
		return fmt.Errorf("update permit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPermitNotFound
	}
	return nil
}

func (r *PermitRepository) DeletePermit(ctx context.Context, id string) error {
	const stmt = `DELETE FROM permits WHERE id = $1`
	if _, err := r.pool.Exec(ctx, stmt, id); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidRequest
		}
		return fmt.Errorf("delete permit: %w", err)
	}
	return nil
}

func (r *PermitRepository) ListPermitsByUser(ctx context.Context, userID string) ([]domain.Permit, error) {
	const query = `SELECT ` + permitColumns + ` FROM permits WHERE user_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, userID)
}

func (r *PermitRepository) ListPermitsByStatus(ctx context.Context, status domain.PermitStatus) ([]domain.Permit, error) {
	const query = `SELECT ` + permitColumns + ` FROM permits WHERE status = $1 ORDER BY created_at, id`
	return r.list(ctx, query, string(status))
}

func (r *PermitRepository) ListPendingDue(ctx context.Context, now time.Time) ([]domain.Permit, error) {
	const query = `SELECT ` + permitColumns + `
FROM permits WHERE status = 'pending' AND payment_deadline < $1 ORDER BY payment_deadline`
	return r.list(ctx, query, now)
}

func (r *PermitRepository) list(ctx context.Context, query string, args ...any) ([]domain.Permit, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permits: %w", err)
	}
	defer rows.Close()

	var out []domain.Permit
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permit: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPermit(row pgx.Row) (domain.Permit, error) {
	var (
		p          domain.Permit
		start, end time.Time
		typ, st    string
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.ZoneID, &start, &end, &typ, &p.AddOns,
		&p.PriceCents, &p.PaymentRef, &p.HoldToken, &st,
		&p.PaymentDeadline, &p.CreatedAt,
	)
	if err != nil {
		return domain.Permit{}, err
	}
	p.Range = domain.DateRange{Start: domain.DayOf(start), End: domain.DayOf(end)}
	p.Type = domain.PermitType(typ)
	p.Status = domain.PermitStatus(st)
	return p, nil
}
