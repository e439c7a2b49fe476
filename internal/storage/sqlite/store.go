// Package sqlite is the file-backed store for single-node deployments,
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS zones (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	capacity INTEGER NOT NULL CHECK (capacity >= 0)
);

CREATE TABLE IF NOT EXISTS permits (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	zone_id TEXT NOT NULL,
	range_start TEXT NOT NULL,
	range_end TEXT NOT NULL,
	permit_type TEXT NOT NULL,
	add_ons TEXT NOT NULL DEFAULT '[]',
	price_cents INTEGER NOT NULL,
	payment_ref TEXT NOT NULL UNIQUE,
	hold_token TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	payment_deadline INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS permits_user_idx ON permits (user_id);
CREATE INDEX IF NOT EXISTS permits_status_idx ON permits (status);

CREATE TABLE IF NOT EXISTS waitlist_entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	user_role TEXT NOT NULL,
	zone_id TEXT NOT NULL,
	range_start TEXT NOT NULL,
	range_end TEXT NOT NULL,
	permit_type TEXT NOT NULL,
	add_ons TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	offer_expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS waitlist_zone_order_idx ON waitlist_entries (zone_id, enqueued_at);
`

// Store implements the app repository interfaces over a sqlite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The driver is single-writer; serialize access instead of surfacing
	// SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateZone(ctx context.Context, zone domain.Zone) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO zones (id, name, capacity) VALUES (?, ?, ?)`,
		zone.ID, zone.Name, zone.Capacity)
	if err != nil {
		if isUnique(err) {
			return domain.ErrZoneAlreadyExists
		}
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

func (s *Store) GetZone(ctx context.Context, id string) (domain.Zone, error) {
	var z domain.Zone
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, capacity FROM zones WHERE id = ?`, id).
		Scan(&z.ID, &z.Name, &z.Capacity)
	if err == sql.ErrNoRows {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	if err != nil {
		return domain.Zone{}, fmt.Errorf("get zone: %w", err)
	}
	return z, nil
}

func (s *Store) ListZones(ctx context.Context) ([]domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, capacity FROM zones ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()
	var out []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Capacity); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (s *Store) UpdateZoneCapacity(ctx context.Context, id string, capacity int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE zones SET capacity = ? WHERE id = ?`, capacity, id)
	if err != nil {
		return fmt.Errorf("resize zone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrZoneNotFound
	}
	return nil
}

func (s *Store) CreatePermit(ctx context.Context, p domain.Permit) error {
	addOns, err := json.Marshal(p.AddOns)
	if err != nil {
		return fmt.Errorf("encode add-ons: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO permits (id, user_id, zone_id, range_start, range_end, permit_type, add_ons,
	price_cents, payment_ref, hold_token, status, payment_deadline, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.ZoneID,
		p.Range.Start.String(), p.Range.End.String(),
		string(p.Type), string(addOns),
		p.PriceCents, p.PaymentRef, p.HoldToken, string(p.Status),
		p.PaymentDeadline.Unix(), p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create permit: %w", err)
	}
	return nil
}

const permitCols = `id, user_id, zone_id, range_start, range_end, permit_type, add_ons,
price_cents, payment_ref, hold_token, status, payment_deadline, created_at`

func (s *Store) GetPermit(ctx context.Context, id string) (domain.Permit, error) {
	p, err := scanPermit(s.db.QueryRowContext(ctx,
		`SELECT `+permitCols+` FROM permits WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return domain.Permit{}, domain.ErrPermitNotFound
	}
	if err != nil {
		return domain.Permit{}, fmt.Errorf("get permit: %w", err)
	}
	return p, nil
}

func (s *Store) GetPermitByPaymentRef(ctx context.Context, ref string) (*domain.Permit, error) {
	p, err := scanPermit(s.db.QueryRowContext(ctx,
		`SELECT `+permitCols+` FROM permits WHERE payment_ref = ?`, ref))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get permit by payment ref: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdatePermit(ctx context.Context, p domain.Permit) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE permits SET hold_token = ?, status = ?, payment_deadline = ? WHERE id = ?`,
		p.HoldToken, string(p.Status), p.PaymentDeadline.Unix(), p.ID)
	if err != nil {
		return fmt.Errorf("update permit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPermitNotFound
	}
	return nil
}

func (s *Store) DeletePermit(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM permits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete permit: %w", err)
	}
	return nil
}

func (s *Store) ListPermitsByUser(ctx context.Context, userID string) ([]domain.Permit, error) {
	return s.listPermits(ctx,
		`SELECT `+permitCols+` FROM permits WHERE user_id = ? ORDER BY created_at, id`, userID)
}

func (s *Store) ListPermitsByStatus(ctx context.Context, status domain.PermitStatus) ([]domain.Permit, error) {
	return s.listPermits(ctx,
		`SELECT `+permitCols+` FROM permits WHERE status = ? ORDER BY created_at, id`, string(status))
}

func (s *Store) ListPendingDue(ctx context.Context, now time.Time) ([]domain.Permit, error) {
	return s.listPermits(ctx,
		`SELECT `+permitCols+` FROM permits WHERE status = 'pending' AND payment_deadline < ? ORDER BY payment_deadline`,
		now.Unix())
}

func (s *Store) listPermits(ctx context.Context, query string, args ...any) ([]domain.Permit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *Store) CreateEntry(ctx context.Context, e domain.WaitlistEntry) error {
	addOns, err := json.Marshal(e.AddOns)
	if err != nil {
		return fmt.Errorf("encode add-ons: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO waitlist_entries (id, user_id, user_role, zone_id, range_start, range_end,
	permit_type, add_ons, status, enqueued_at, offer_expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.UserRole), e.ZoneID,
		e.Range.Start.String(), e.Range.End.String(),
		string(e.Type), string(addOns), string(e.Status),
		e.EnqueuedAt.Unix(), unixOrZero(e.OfferExpiresAt))
	if err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

const entryCols = `id, user_id, user_role, zone_id, range_start, range_end, permit_type,
add_ons, status, enqueued_at, offer_expires_at`

func (s *Store) GetEntry(ctx context.Context, id string) (domain.WaitlistEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryCols+` FROM waitlist_entries WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return domain.WaitlistEntry{}, domain.ErrEntryNotFound
	}
	if err != nil {
		return domain.WaitlistEntry{}, fmt.Errorf("get waitlist entry: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e domain.WaitlistEntry) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE waitlist_entries SET status = ?, offer_expires_at = ? WHERE id = ?`,
		string(e.Status), unixOrZero(e.OfferExpiresAt), e.ID)
	if err != nil {
		return fmt.Errorf("update waitlist entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (s *Store) ListOpenEntriesByZone(ctx context.Context, zoneID string) ([]domain.WaitlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+entryCols+` FROM waitlist_entries
WHERE zone_id = ? AND status IN ('queued', 'offered')
ORDER BY enqueued_at`, zoneID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermit(row rowScanner) (domain.Permit, error) {
	var (
		p                  domain.Permit
		start, end, addOns string
		typ, status        string
		deadline, created  int64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.ZoneID, &start, &end, &typ, &addOns,
		&p.PriceCents, &p.PaymentRef, &p.HoldToken, &status, &deadline, &created)
	if err != nil {
		return domain.Permit{}, err
	}
	if p.Range, err = parseRange(start, end); err != nil {
		return domain.Permit{}, err
	}
	if err := json.Unmarshal([]byte(addOns), &p.AddOns); err != nil {
		return domain.Permit{}, fmt.Errorf("decode add-ons: %w", err)
	}
	p.Type = domain.PermitType(typ)
	p.Status = domain.PermitStatus(status)
	p.PaymentDeadline = time.Unix(deadline, 0).UTC()
	p.CreatedAt = time.Unix(created, 0).UTC()
	return p, nil
}

func scanEntry(row rowScanner) (domain.WaitlistEntry, error) {
	var (
		e                  domain.WaitlistEntry
		start, end, addOns string
		role, typ, status  string
		enqueued, offerExp int64
	)
	err := row.Scan(&e.ID, &e.UserID, &role, &e.ZoneID, &start, &end, &typ,
		&addOns, &status, &enqueued, &offerExp)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	if e.Range, err = parseRange(start, end); err != nil {
		return domain.WaitlistEntry{}, err
	}
	if err := json.Unmarshal([]byte(addOns), &e.AddOns); err != nil {
		return domain.WaitlistEntry{}, fmt.Errorf("decode add-ons: %w", err)
	}
	e.UserRole = domain.Role(role)
	e.Type = domain.PermitType(typ)
	e.Status = domain.WaitlistStatus(status)
	e.EnqueuedAt = time.Unix(enqueued, 0).UTC()
	if offerExp != 0 {
		e.OfferExpiresAt = time.Unix(offerExp, 0).UTC()
	}
	return e, nil
}

func parseRange(start, end string) (domain.DateRange, error) {
	s, err := domain.ParseDay(start)
	if err != nil {
		return domain.DateRange{}, err
	}
	e, err := domain.ParseDay(end)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{Start: s, End: e}, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
