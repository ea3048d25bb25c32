package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// EventInserter is the persistence boundary: at-least-once idempotent
// insert. Implemented by *database.EventRepository.
type EventInserter interface {
	Insert(ctx context.Context, e model.Event) (inserted bool, err error)
}

// PostAckHandler runs the rule-evaluation boundary after an entry has been
// acknowledged. It must not return an error the consumer needs to act on —
// evaluator/anomaly failures are logged by the handler itself and never
// block the drain loop (spec §7).
type PostAckHandler interface {
	OnEvent(ctx context.Context, e model.Event)
}

// Config configures the consumer's group name, consumer name, and polling
// cadence.
type Config struct {
	StreamKey     string
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int64
	BlockDuration time.Duration
}

// Consumer is the single long-running stream-drain loop (§4.6). It is
// single-threaded cooperative: its main loop is the sole writer of whatever
// evaluator state the PostAckHandler owns. It only recovers its own pending
// entries; entries left pending on another consumer name are not reclaimed.
type Consumer struct {
	rdb    *redis.Client
	cfg    Config
	events EventInserter
	post   PostAckHandler
	logger *slog.Logger
}

func NewConsumer(rdb *redis.Client, cfg Config, events EventInserter, post PostAckHandler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{rdb: rdb, cfg: cfg, events: events, post: post, logger: logger}
}

// EnsureGroup creates the consumer group if absent, using the "new entries
// only" starting cursor ($) so that initial boot never replays history, and
// MKSTREAM so the stream itself is created if it doesn't exist yet.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.StreamKey, c.cfg.ConsumerGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// ProcessPending re-reads this consumer's own pending list once at startup,
// recovering entries that were delivered but not acknowledged before a prior
// crash.
func (c *Consumer) ProcessPending(ctx context.Context) error {
	for {
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.ConsumerGroup,
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{c.cfg.StreamKey, "0"},
			Count:    c.cfg.BatchSize,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			return nil
		}
		for _, msg := range streams[0].Messages {
			c.processEntry(ctx, msg)
		}
		// Fewer than a full batch means the pending list is drained.
		if int64(len(streams[0].Messages)) < c.cfg.BatchSize {
			return nil
		}
	}
}

// Run drives the main loop until ctx is cancelled: read new-only entries,
// process each, sleep-and-retry on error.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.ConsumerGroup,
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{c.cfg.StreamKey, ">"},
			Count:    c.cfg.BatchSize,
			Block:    c.cfg.BlockDuration,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			c.logger.Error("stream read failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				c.processEntry(ctx, msg)
			}
		}
	}
}

// processEntry implements the two error boundaries of §4.6: persistence
// then, only after acknowledgement, rule evaluation.
func (c *Consumer) processEntry(ctx context.Context, msg redis.XMessage) {
	event, err := parseEntry(msg)
	if err != nil {
		// Malformed entry: ack it so it does not block the group forever —
		// there is no well-formed event to retry persisting.
		c.logger.Error("discarding malformed stream entry", "id", msg.ID, "error", err)
		c.ack(ctx, msg.ID)
		return
	}

	if _, err := c.events.Insert(ctx, *event); err != nil {
		c.logger.Error("event persistence failed, leaving entry pending for redelivery",
			"id", msg.ID, "event_id", event.EventID, "error", err)
		return
	}

	c.ack(ctx, msg.ID)

	if c.post != nil {
		c.post.OnEvent(ctx, *event)
	}
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, c.cfg.StreamKey, c.cfg.ConsumerGroup, id).Err(); err != nil {
		c.logger.Error("failed to acknowledge stream entry", "id", id, "error", err)
	}
}

func parseEntry(msg redis.XMessage) (*model.Event, error) {
	get := func(key string) string {
		if v, ok := msg.Values[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}

	e := &model.Event{
		EventID:   get("event_id"),
		EventType: get("event_type"),
		Source:    get("source"),
	}
	if ts := get("timestamp"); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		e.Timestamp = parsed
	}
	if p := get("payload"); p != "" {
		if err := decodeJSONMap(p, &e.Payload); err != nil {
			return nil, err
		}
	}
	if m := get("metadata"); m != "" {
		if err := decodeJSONMap(m, &e.Metadata); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func decodeJSONMap(s string, out *map[string]any) error {
	return json.Unmarshal([]byte(s), out)
}

// TimestampMillis is a convenience the evaluators use to key windows/buckets
// off event time, never wall clock.
func TimestampMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
