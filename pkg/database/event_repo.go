package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// EventRepository persists ingested events. Insert is the at-least-once
// idempotence boundary the stream consumer relies on.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Insert attempts to persist event. On a primary-key conflict (duplicate
// event_id) it succeeds silently and reports inserted=false. No other
// failure mode is swallowed.
func (r *EventRepository) Insert(ctx context.Context, e model.Event) (inserted bool, err error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return false, fmt.Errorf("marshal metadata: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO events (event_id, event_type, source, timestamp, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.EventType, e.Source, e.Timestamp, payload, metadata)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get retrieves a single event by id, returning ErrNotFound if absent.
func (r *EventRepository) Get(ctx context.Context, eventID string) (*model.Event, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT event_id, event_type, source, timestamp, payload, metadata, created_at
		FROM events WHERE event_id = $1`, eventID)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListFilter narrows a List call; zero values mean "no filter".
type ListFilter struct {
	EventType string
	Source    string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// List returns events matching filter, most recent first.
func (r *EventRepository) List(ctx context.Context, f ListFilter) ([]model.Event, error) {
	query := `SELECT event_id, event_type, source, timestamp, payload, metadata, created_at FROM events WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.EventType != "" {
		query += " AND event_type = " + arg(f.EventType)
	}
	if f.Source != "" {
		query += " AND source = " + arg(f.Source)
	}
	if !f.From.IsZero() {
		query += " AND timestamp >= " + arg(f.From)
	}
	if !f.To.IsZero() {
		query += " AND timestamp <= " + arg(f.To)
	}
	query += " ORDER BY timestamp DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// MetricBucket is one grouped count/rate row from Metrics.
type MetricBucket struct {
	Key   string
	Count int64
}

// Metrics aggregates events created within the last windowSeconds into
// per-groupBy counts (§4.16). groupBy must be "event_type" or "source";
// callers validate this before calling.
func (r *EventRepository) Metrics(ctx context.Context, groupBy string, windowSeconds int) ([]MetricBucket, error) {
	column := "event_type"
	if groupBy == "source" {
		column = "source"
	}

	query := `SELECT ` + column + `, count(*) FROM events
		WHERE created_at >= now() - make_interval(secs => $1)
		GROUP BY ` + column + ` ORDER BY ` + column

	rows, err := r.pool.Query(ctx, query, windowSeconds)
	if err != nil {
		return nil, fmt.Errorf("aggregate metrics: %w", err)
	}
	defer rows.Close()

	var out []MetricBucket
	for rows.Next() {
		var b MetricBucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("scan metric bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var payload, metadata []byte
	if err := row.Scan(&e.EventID, &e.EventType, &e.Source, &e.Timestamp, &payload, &metadata, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &e, nil
}
