package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// StatProfileRepository is CRUD over persisted statistical-detection
// profiles, mirroring RuleRepository's shape (see SPEC_FULL.md §4.13).
type StatProfileRepository struct {
	pool *pgxpool.Pool
}

func NewStatProfileRepository(pool *pgxpool.Pool) *StatProfileRepository {
	return &StatProfileRepository{pool: pool}
}

func (r *StatProfileRepository) Create(ctx context.Context, p model.StatProfile) (*model.StatProfile, error) {
	p.ID = uuid.NewString()
	filters, err := json.Marshal(p.Filters)
	if err != nil {
		return nil, fmt.Errorf("marshal filters: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO stat_profiles (id, bucket_seconds, baseline_buckets, z_threshold, cooldown_seconds, severity, filters, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at`,
		p.ID, p.BucketSeconds, p.BaselineBuckets, p.ZThreshold, p.CooldownSeconds, p.Severity, filters, p.Enabled)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert stat profile: %w", err)
	}
	return &p, nil
}

func (r *StatProfileRepository) Get(ctx context.Context, id string) (*model.StatProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, bucket_seconds, baseline_buckets, z_threshold, cooldown_seconds, severity, filters, enabled, created_at, updated_at
		FROM stat_profiles WHERE id = $1`, id)
	p, err := scanStatProfile(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *StatProfileRepository) List(ctx context.Context, onlyEnabled bool) ([]model.StatProfile, error) {
	query := `SELECT id, bucket_seconds, baseline_buckets, z_threshold, cooldown_seconds, severity, filters, enabled, created_at, updated_at FROM stat_profiles`
	if onlyEnabled {
		query += " WHERE enabled = true"
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stat profiles: %w", err)
	}
	defer rows.Close()

	var out []model.StatProfile
	for rows.Next() {
		p, err := scanStatProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *StatProfileRepository) Update(ctx context.Context, p model.StatProfile) (*model.StatProfile, error) {
	filters, err := json.Marshal(p.Filters)
	if err != nil {
		return nil, fmt.Errorf("marshal filters: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE stat_profiles SET bucket_seconds=$2, baseline_buckets=$3, z_threshold=$4, cooldown_seconds=$5,
			severity=$6, filters=$7, enabled=$8, updated_at=now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.BucketSeconds, p.BaselineBuckets, p.ZThreshold, p.CooldownSeconds, p.Severity, filters, p.Enabled)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update stat profile: %w", err)
	}
	return &p, nil
}

func (r *StatProfileRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stat_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stat profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanStatProfile(row rowScanner) (*model.StatProfile, error) {
	var p model.StatProfile
	var filters []byte
	if err := row.Scan(&p.ID, &p.BucketSeconds, &p.BaselineBuckets, &p.ZThreshold, &p.CooldownSeconds,
		&p.Severity, &filters, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &p.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal filters: %w", err)
		}
	}
	return &p, nil
}
