// Package pubsub implements the rule-change (§4.7) and anomaly (§4.8)
// notifier/subscriber pairs over Redis Pub/Sub. Each subscriber owns a
// dedicated connection — go-redis's *redis.PubSub already isolates
// subscribe traffic from command traffic, the same requirement
// pkg/events/listener.go meets with a private pgx.Conn.
package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/model"
)

const (
	RulesChangedChannel        = "rules_changed"
	StatProfilesChangedChannel = "stat_profiles_changed"
)

// RuleChangeNotifier publishes rule (and statistical profile) mutations.
// Publish failures are logged and swallowed — CRUD HTTP responses must
// never be affected (§4.7).
type RuleChangeNotifier struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRuleChangeNotifier(rdb *redis.Client, logger *slog.Logger) *RuleChangeNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleChangeNotifier{rdb: rdb, logger: logger}
}

func (n *RuleChangeNotifier) Publish(ctx context.Context, reason, ruleID string) {
	n.publish(ctx, RulesChangedChannel, model.RuleChangeMessage{Timestamp: time.Now().UTC(), Reason: reason, RuleID: ruleID})
}

func (n *RuleChangeNotifier) PublishStatProfile(ctx context.Context, reason, profileID string) {
	n.publish(ctx, StatProfilesChangedChannel, model.RuleChangeMessage{Timestamp: time.Now().UTC(), Reason: reason, RuleID: profileID})
}

func (n *RuleChangeNotifier) publish(ctx context.Context, channel string, msg model.RuleChangeMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("failed to marshal rule-change message", "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, channel, body).Err(); err != nil {
		n.logger.Error("failed to publish rule-change message", "channel", channel, "error", err)
	}
}

// RuleLister and StatProfileLister are the snapshot sources the subscriber
// reloads from on every message — implemented by
// *database.RuleRepository.List and *database.StatProfileRepository.List.
type RuleLister interface {
	List(ctx context.Context, onlyEnabled bool) ([]model.Rule, error)
}

type StatProfileLister interface {
	List(ctx context.Context, onlyEnabled bool) ([]model.StatProfile, error)
}

// RuleSnapshotStore and StatProfileSnapshotStore are the hot-reload targets
// — implemented by *rules.Snapshot and *stats.Snapshot respectively.
type RuleSnapshotStore interface {
	Set(rules []model.Rule)
}

type StatProfileSnapshotStore interface {
	Set(profiles []model.StatProfile)
}

// RuleSubscriber owns a dedicated connection subscribed to rules_changed
// and stat_profiles_changed, reloading the corresponding snapshot on every
// message (§4.7). Run handles messages one at a time, so every message
// triggers its own reload; messages that arrive during a reload wait in the
// subscription channel and are not coalesced. The per-channel "reloading"
// flags only guard handle against re-entry.
type RuleSubscriber struct {
	pubsub      *redis.PubSub
	rules       RuleLister
	ruleStore   RuleSnapshotStore
	profiles    StatProfileLister
	profileSnap StatProfileSnapshotStore
	logger      *slog.Logger

	reloadingRules    bool
	reloadingProfiles bool
}

func NewRuleSubscriber(rdb *redis.Client, rules RuleLister, ruleStore RuleSnapshotStore,
	profiles StatProfileLister, profileSnap StatProfileSnapshotStore, logger *slog.Logger) *RuleSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleSubscriber{
		pubsub:      rdb.Subscribe(context.Background(), RulesChangedChannel, StatProfilesChangedChannel),
		rules:       rules,
		ruleStore:   ruleStore,
		profiles:    profiles,
		profileSnap: profileSnap,
		logger:      logger,
	}
}

// Run consumes messages until ctx is cancelled or the subscriber is closed.
func (s *RuleSubscriber) Run(ctx context.Context) {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *RuleSubscriber) handle(ctx context.Context, msg *redis.Message) {
	switch msg.Channel {
	case RulesChangedChannel:
		if s.reloadingRules {
			return
		}
		s.reloadingRules = true
		defer func() { s.reloadingRules = false }()

		enabled, err := s.rules.List(ctx, true)
		if err != nil {
			s.logger.Error("failed to reload rule snapshot, retaining previous snapshot", "error", err)
			return
		}
		s.ruleStore.Set(enabled)

	case StatProfilesChangedChannel:
		if s.reloadingProfiles {
			return
		}
		s.reloadingProfiles = true
		defer func() { s.reloadingProfiles = false }()

		enabled, err := s.profiles.List(ctx, true)
		if err != nil {
			s.logger.Error("failed to reload stat profile snapshot, retaining previous snapshot", "error", err)
			return
		}
		s.profileSnap.Set(enabled)
	}
}

// Close unsubscribes and closes the dedicated connection. Idempotent.
func (s *RuleSubscriber) Close() error {
	return s.pubsub.Close()
}
