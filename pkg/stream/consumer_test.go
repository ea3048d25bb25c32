package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpulse/eventpulse/pkg/model"
)

func TestParseEntryValid(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	msg := redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"event_id":   "e1",
			"event_type": "error",
			"source":     "payment_service",
			"timestamp":  ts.Format(time.RFC3339Nano),
			"payload":    `{"code":"500"}`,
			"metadata":   `{"region":"us-east-1"}`,
		},
	}
	e, err := parseEntry(msg)
	require.NoError(t, err)
	assert.Equal(t, "e1", e.EventID)
	assert.Equal(t, "error", e.EventType)
	assert.Equal(t, "payment_service", e.Source)
	assert.True(t, ts.Equal(e.Timestamp))
	assert.Equal(t, "500", e.Payload["code"])
	assert.Equal(t, "us-east-1", e.Metadata["region"])
}

func TestParseEntryRejectsMalformedTimestamp(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"timestamp": "not-a-time"}}
	_, err := parseEntry(msg)
	assert.Error(t, err)
}

func TestParseEntryRejectsMalformedPayload(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": "{not json"}}
	_, err := parseEntry(msg)
	assert.Error(t, err)
}

type fakeInserter struct {
	mu      sync.Mutex
	inserts []model.Event
	failOn  string
}

func (f *fakeInserter) Insert(_ context.Context, e model.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.EventID == f.failOn {
		return false, assert.AnError
	}
	f.inserts = append(f.inserts, e)
	return true, nil
}

type fakePostAck struct {
	mu     sync.Mutex
	events []model.Event
}

func (f *fakePostAck) OnEvent(_ context.Context, e model.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func TestConsumerProcessPendingPersistsAndAcks(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	cfg := Config{StreamKey: "events", ConsumerGroup: "g1", ConsumerName: "c1", BatchSize: 10, BlockDuration: 10 * time.Millisecond}

	p := NewProducer(rdb, cfg.StreamKey)
	inserter := &fakeInserter{}
	post := &fakePostAck{}
	c := NewConsumer(rdb, cfg, inserter, post, nil)
	require.NoError(t, c.EnsureGroup(ctx))

	_, err := p.Append(ctx, model.Event{EventID: "e1", EventType: "error", Source: "s", Timestamp: time.Now()})
	require.NoError(t, err)

	// ProcessPending only replays this consumer's own pending entries
	// (re-delivered via "0"), not freshly-produced ones delivered via ">" —
	// deliver once via XReadGroup first to simulate a prior crash leaving it
	// pending.
	_, err = rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group: cfg.ConsumerGroup, Consumer: cfg.ConsumerName,
		Streams: []string{cfg.StreamKey, ">"}, Count: 10,
	}).Result()
	require.NoError(t, err)

	require.NoError(t, c.ProcessPending(ctx))

	inserter.mu.Lock()
	defer inserter.mu.Unlock()
	require.Len(t, inserter.inserts, 1)
	assert.Equal(t, "e1", inserter.inserts[0].EventID)

	post.mu.Lock()
	defer post.mu.Unlock()
	require.Len(t, post.events, 1)
}

func TestConsumerDiscardsMalformedEntry(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	cfg := Config{StreamKey: "events", ConsumerGroup: "g1", ConsumerName: "c1", BatchSize: 10, BlockDuration: 10 * time.Millisecond}
	require.NoError(t, rdb.XGroupCreateMkStream(ctx, cfg.StreamKey, cfg.ConsumerGroup, "$").Err())

	_, err := rdb.XAdd(ctx, &redis.XAddArgs{Stream: cfg.StreamKey, Values: map[string]any{"timestamp": "garbage"}}).Result()
	require.NoError(t, err)

	inserter := &fakeInserter{}
	post := &fakePostAck{}
	c := NewConsumer(rdb, cfg, inserter, post, nil)

	_, err = rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group: cfg.ConsumerGroup, Consumer: cfg.ConsumerName,
		Streams: []string{cfg.StreamKey, ">"}, Count: 10,
	}).Result()
	require.NoError(t, err)
	require.NoError(t, c.ProcessPending(ctx))

	assert.Empty(t, inserter.inserts)
	assert.Empty(t, post.events)

	pending, err := rdb.XPending(ctx, cfg.StreamKey, cfg.ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count, "malformed entry must still be acked so it doesn't block the group forever")
}

func TestConsumerLeavesEntryPendingOnPersistenceFailure(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	cfg := Config{StreamKey: "events", ConsumerGroup: "g1", ConsumerName: "c1", BatchSize: 10, BlockDuration: 10 * time.Millisecond}

	p := NewProducer(rdb, cfg.StreamKey)
	inserter := &fakeInserter{failOn: "e1"}
	post := &fakePostAck{}
	c := NewConsumer(rdb, cfg, inserter, post, nil)
	require.NoError(t, c.EnsureGroup(ctx))

	_, err := p.Append(ctx, model.Event{EventID: "e1", EventType: "error", Source: "s", Timestamp: time.Now()})
	require.NoError(t, err)

	_, err = rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group: cfg.ConsumerGroup, Consumer: cfg.ConsumerName,
		Streams: []string{cfg.StreamKey, ">"}, Count: 10,
	}).Result()
	require.NoError(t, err)
	require.NoError(t, c.ProcessPending(ctx))

	assert.Empty(t, post.events, "post-ack handler must not run when persistence failed")

	pending, err := rdb.XPending(ctx, cfg.StreamKey, cfg.ConsumerGroup).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count, "entry must remain pending for redelivery after a persistence failure")
}
