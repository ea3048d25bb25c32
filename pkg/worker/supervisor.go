// Package worker implements the worker supervisor (§4.12): given stream and
// database connections already opened (and migrations already applied) by
// cmd/eventpulse-worker, it loads the initial rule snapshot, wires the
// evaluators, and runs the stream consumer and rule subscriber until Stop is
// called. It does not open or close those connections. Grounded on the teacher's
// pkg/queue/pool.go / worker.go lifecycle idiom (Start/Stop, sync.Once,
// WaitGroup, signal-driven cancellation).
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/config"
	"github.com/eventpulse/eventpulse/pkg/database"
	"github.com/eventpulse/eventpulse/pkg/model"
	"github.com/eventpulse/eventpulse/pkg/notify"
	"github.com/eventpulse/eventpulse/pkg/pubsub"
	"github.com/eventpulse/eventpulse/pkg/rules"
	"github.com/eventpulse/eventpulse/pkg/stats"
	"github.com/eventpulse/eventpulse/pkg/stream"
)

const healthKeyTTL = 30 * time.Second

// Supervisor owns every long-running worker component and its shutdown
// sequence.
type Supervisor struct {
	cfg    *config.WorkerConfig
	logger *slog.Logger

	pool *pgxpool.Pool
	rdb  *redis.Client

	ruleRepo    *database.RuleRepository
	profileRepo *database.StatProfileRepository
	anomalyRepo *database.AnomalyRepository

	ruleSnapshot    *rules.Snapshot
	profileSnapshot *stats.Snapshot

	thresholdEval *rules.Evaluator
	statEval      *stats.Evaluator

	anomalyNotifier *pubsub.AnomalyNotifier
	ruleSubscriber  *pubsub.RuleSubscriber
	consumer        *stream.Consumer

	dispatcher *notify.Dispatcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Dependencies configures the notification dispatcher. Broadcaster is left
// nil here: the WebSocket hub lives in the API process (it's the one
// serving browser connections), which reaches it instead via its own
// pubsub.AnomalySubscriber on anomaly_notifications — see cmd/eventpulse-api.
// WebSocketConfig.Enabled should stay false in the worker's Notification
// config for the same reason.
type Dependencies struct {
	Broadcaster  notify.Broadcaster
	Notification notify.Config
}

// New constructs a supervisor. Callers still need to call Start.
func New(cfg *config.WorkerConfig, pool *pgxpool.Pool, rdb *redis.Client, deps Dependencies, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	ruleRepo := database.NewRuleRepository(pool)
	profileRepo := database.NewStatProfileRepository(pool)
	anomalyRepo := database.NewAnomalyRepository(pool)

	s := &Supervisor{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		rdb:             rdb,
		ruleRepo:        ruleRepo,
		profileRepo:     profileRepo,
		anomalyRepo:     anomalyRepo,
		ruleSnapshot:    rules.NewSnapshot(),
		profileSnapshot: stats.NewSnapshot(),
		thresholdEval:   rules.NewEvaluator(nil),
		statEval:        stats.NewEvaluator(nil),
		anomalyNotifier: pubsub.NewAnomalyNotifier(rdb, logger),
		dispatcher:      notify.NewDispatcher(deps.Notification, deps.Broadcaster, logger),
	}

	s.ruleSubscriber = pubsub.NewRuleSubscriber(rdb, ruleRepo, s.ruleSnapshot, profileRepo, s.profileSnapshot, logger)

	s.consumer = stream.NewConsumer(rdb, stream.Config{
		StreamKey:     cfg.StreamKey,
		ConsumerGroup: cfg.ConsumerGroup,
		ConsumerName:  cfg.WorkerID,
		BatchSize:     cfg.BatchSize,
		BlockDuration: cfg.BlockDuration,
	}, database.NewEventRepository(pool), s, logger)

	return s
}

// OnEvent implements stream.PostAckHandler: the rule-evaluation boundary
// that runs strictly after acknowledgement (§4.6).
func (s *Supervisor) OnEvent(ctx context.Context, e model.Event) {
	ruleSnap := s.ruleSnapshot.Get()
	if len(ruleSnap) > 0 {
		for _, a := range s.thresholdEval.Evaluate(e, ruleSnap) {
			s.emit(ctx, a)
		}
	}

	profileSnap := s.profileSnapshot.Get()
	if len(profileSnap) > 0 {
		for _, a := range s.statEval.Evaluate(e, profileSnap) {
			s.emit(ctx, a)
		}
	}
}

func (s *Supervisor) emit(ctx context.Context, a model.Anomaly) {
	s.logger.Info("anomaly detected", "anomaly_id", a.AnomalyID, "rule_id", a.RuleID, "severity", a.Severity)
	if _, err := s.anomalyRepo.Insert(ctx, a); err != nil {
		s.logger.Error("failed to persist anomaly", "anomaly_id", a.AnomalyID, "error", err)
	}
	s.anomalyNotifier.Publish(ctx, a)
	s.dispatcher.Dispatch(ctx, a)
}

// Start loads the initial snapshot, then starts the consumer, rule
// subscriber, and health-key heartbeat. It returns once startup completes;
// the components themselves keep running in background goroutines until
// Stop is called.
func (s *Supervisor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	enabledRules, err := s.ruleRepo.List(ctx, true)
	if err != nil {
		return err
	}
	s.ruleSnapshot.Set(enabledRules)

	enabledProfiles, err := s.profileRepo.List(ctx, true)
	if err != nil {
		return err
	}
	s.profileSnapshot.Set(enabledProfiles)

	if err := s.consumer.EnsureGroup(ctx); err != nil {
		return err
	}
	if err := s.consumer.ProcessPending(ctx); err != nil {
		s.logger.Error("failed to process pending entries at startup", "error", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consumer.Run(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.ruleSubscriber.Run(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.heartbeatLoop(ctx)
	}()

	s.logger.Info("worker supervisor started", "worker_id", s.cfg.WorkerID, "stream_key", s.cfg.StreamKey)
	return nil
}

// heartbeatLoop refreshes the TTL-bounded worker:health key the API
// process's /events/health endpoint reads (§4.11).
func (s *Supervisor) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(healthKeyTTL / 3)
	defer ticker.Stop()
	s.refreshHealthKey(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshHealthKey(ctx)
		}
	}
}

func (s *Supervisor) refreshHealthKey(ctx context.Context) {
	if err := s.rdb.Set(ctx, "worker:health", s.cfg.WorkerID, healthKeyTTL).Err(); err != nil {
		s.logger.Error("failed to refresh worker health key", "error", err)
	}
}

// Stop cancels the consumer/subscriber loops and waits, bounded by
// drainTimeout, before returning. Idempotent.
func (s *Supervisor) Stop(drainTimeout time.Duration) {
	s.once.Do(func() {
		s.logger.Info("worker supervisor shutting down")
		if s.cancel != nil {
			s.cancel()
		}
		_ = s.ruleSubscriber.Close()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(drainTimeout):
			s.logger.Warn("worker supervisor shutdown grace period exceeded")
		}
	})
}
