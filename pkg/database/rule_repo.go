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

var ErrNotFound = fmt.Errorf("not found")

// RuleRepository is CRUD over persisted threshold rules.
type RuleRepository struct {
	pool *pgxpool.Pool
}

func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

func (r *RuleRepository) Create(ctx context.Context, rule model.Rule) (*model.Rule, error) {
	rule.RuleID = uuid.NewString()
	cond, err := json.Marshal(rule.Condition)
	if err != nil {
		return nil, fmt.Errorf("marshal condition: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO rules (rule_id, name, enabled, severity, window_seconds, cooldown_seconds, condition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at`,
		rule.RuleID, rule.Name, rule.Enabled, rule.Severity, rule.WindowSeconds, rule.CooldownSeconds, cond)
	if err := row.Scan(&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	return &rule, nil
}

func (r *RuleRepository) Get(ctx context.Context, ruleID string) (*model.Rule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT rule_id, name, enabled, severity, window_seconds, cooldown_seconds, condition, created_at, updated_at
		FROM rules WHERE rule_id = $1`, ruleID)
	rule, err := scanRule(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

// List returns rules; onlyEnabled restricts to the snapshot-eligible set.
func (r *RuleRepository) List(ctx context.Context, onlyEnabled bool) ([]model.Rule, error) {
	query := `SELECT rule_id, name, enabled, severity, window_seconds, cooldown_seconds, condition, created_at, updated_at FROM rules`
	if onlyEnabled {
		query += " WHERE enabled = true"
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

// Update replaces every mutable field of rule (full PUT semantics).
func (r *RuleRepository) Update(ctx context.Context, rule model.Rule) (*model.Rule, error) {
	cond, err := json.Marshal(rule.Condition)
	if err != nil {
		return nil, fmt.Errorf("marshal condition: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE rules SET name=$2, enabled=$3, severity=$4, window_seconds=$5, cooldown_seconds=$6, condition=$7, updated_at=now()
		WHERE rule_id = $1
		RETURNING created_at, updated_at`,
		rule.RuleID, rule.Name, rule.Enabled, rule.Severity, rule.WindowSeconds, rule.CooldownSeconds, cond)
	if err := row.Scan(&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return &rule, nil
}

func (r *RuleRepository) Delete(ctx context.Context, ruleID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rules WHERE rule_id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRule(row rowScanner) (*model.Rule, error) {
	var rule model.Rule
	var cond []byte
	if err := row.Scan(&rule.RuleID, &rule.Name, &rule.Enabled, &rule.Severity, &rule.WindowSeconds,
		&rule.CooldownSeconds, &cond, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cond, &rule.Condition); err != nil {
		return nil, fmt.Errorf("unmarshal condition: %w", err)
	}
	return &rule, nil
}
