package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

type ZoneRepository struct {
	pool *pgxpool.Pool
}

func NewZoneRepository(pool *pgxpool.Pool) *ZoneRepository {
	return &ZoneRepository{pool: pool}
}

func (r *ZoneRepository) CreateZone(ctx context.Context, zone domain.Zone) error {
	const stmt = `INSERT INTO zones (id, name, capacity) VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, stmt, zone.ID, zone.Name, zone.Capacity); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrZoneAlreadyExists
		}
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

func (r *ZoneRepository) GetZone(ctx context.Context, id string) (domain.Zone, error) {
	const query = `SELECT id, name, capacity FROM zones WHERE id = $1`
	var z domain.Zone
	err := r.pool.QueryRow(ctx, query, id).Scan(&z.ID, &z.Name, &z.Capacity)
	if err != nil {
		if err == pgx.ErrNoRows || isInvalidUUID(err) {
			return domain.Zone{}, mapIDErr(err, domain.ErrZoneNotFound)
		}
		return domain.Zone{}, fmt.Errorf("get zone: %w", err)
	}
	return z, nil
}

func (r *ZoneRepository) ListZones(ctx context.Context) ([]domain.Zone, error) {
	const query = `SELECT id, name, capacity FROM zones ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
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

func (r *ZoneRepository) UpdateZoneCapacity(ctx context.Context, id string, capacity int) error {
	const stmt = `UPDATE zones SET capacity = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, stmt, id, capacity)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidRequest
		}
		return fmt.Errorf("resize zone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrZoneNotFound
	}
	return nil
}
