package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// AnomalyRepository inserts and lists detected anomalies. Insert is
// best-effort from the evaluators' point of view: failures are logged by the
// caller and never block acknowledgement of the triggering event.
type AnomalyRepository struct {
	pool *pgxpool.Pool
}

func NewAnomalyRepository(pool *pgxpool.Pool) *AnomalyRepository {
	return &AnomalyRepository{pool: pool}
}

func (r *AnomalyRepository) Insert(ctx context.Context, a model.Anomaly) (*model.Anomaly, error) {
	if a.AnomalyID == "" {
		a.AnomalyID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO anomalies (anomaly_id, event_id, rule_id, severity, message, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.AnomalyID, a.EventID, a.RuleID, a.Severity, a.Message, a.DetectedAt)
	if err != nil {
		return nil, fmt.Errorf("insert anomaly: %w", err)
	}
	return &a, nil
}

// AnomalyFilter narrows a List call; zero values mean "no filter".
type AnomalyFilter struct {
	RuleID   string
	Severity string
	Limit    int
	Offset   int
}

func (r *AnomalyRepository) List(ctx context.Context, f AnomalyFilter) ([]model.Anomaly, error) {
	query := `SELECT anomaly_id, event_id, rule_id, severity, message, detected_at FROM anomalies WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.RuleID != "" {
		query += " AND rule_id = " + arg(f.RuleID)
	}
	if f.Severity != "" {
		query += " AND severity = " + arg(f.Severity)
	}
	query += " ORDER BY detected_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()

	var out []model.Anomaly
	for rows.Next() {
		var a model.Anomaly
		if err := rows.Scan(&a.AnomalyID, &a.EventID, &a.RuleID, &a.Severity, &a.Message, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
