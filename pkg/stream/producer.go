// Package stream implements the durable event log used to decouple ingest
// from persistence: a Redis Stream with a single consumer group, grounded
// on the producer/consumer idiom of brokle's telemetry stream workers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// Producer appends events to the durable stream. Each call appends exactly
// one entry with an auto-assigned stream id.
type Producer struct {
	rdb       *redis.Client
	streamKey string
}

func NewProducer(rdb *redis.Client, streamKey string) *Producer {
	return &Producer{rdb: rdb, streamKey: streamKey}
}

// Append serializes event into the stream's flat field/value wire shape
// (§6: event_id, event_type, source, timestamp, payload, metadata, each of
// payload/metadata JSON-encoded) and returns the assigned stream id.
func (p *Producer) Append(ctx context.Context, e model.Event) (string, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		Values: map[string]any{
			"event_id":   e.EventID,
			"event_type": e.EventType,
			"source":     e.Source,
			"timestamp":  e.Timestamp.Format(time.RFC3339Nano),
			"payload":    string(payload),
			"metadata":   string(metadata),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append to stream: %w", err)
	}
	return id, nil
}

// Ping verifies the stream layer is reachable, used by the ingest health
// endpoint.
func (p *Producer) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
