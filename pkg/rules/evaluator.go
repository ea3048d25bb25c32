package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventpulse/eventpulse/pkg/model"
	"github.com/eventpulse/eventpulse/pkg/stream"
)

// ruleState is the per-rule evaluator state (§3): an ordered sequence of
// matched event-time milliseconds, front-pruned on every call, plus the last
// wall-clock trigger time for cooldown suppression.
type ruleState struct {
	window      []int64
	lastTrigger time.Time
}

// Evaluator is the threshold evaluator (§4.4). It is owned and exclusively
// mutated by the stream consumer's single-threaded loop — no internal
// locking is needed because there is exactly one writer.
type Evaluator struct {
	states map[string]*ruleState
	nowFn  func() time.Time
}

// NewEvaluator constructs an evaluator. nowFn defaults to time.Now and is
// overridable for deterministic tests (§4.4 "clock injection").
func NewEvaluator(nowFn func() time.Time) *Evaluator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Evaluator{states: make(map[string]*ruleState), nowFn: nowFn}
}

// Evaluate runs every enabled rule in the snapshot against event and returns
// any anomalies produced, per the six steps of §4.4.
func (ev *Evaluator) Evaluate(event model.Event, snapshot []model.Rule) []model.Anomaly {
	var anomalies []model.Anomaly
	eventMs := stream.TimestampMillis(event.Timestamp)
	now := ev.nowFn()

	for _, rule := range snapshot {
		if !rule.Enabled {
			continue
		}
		if !rule.Condition.Filters.Matches(event.EventType, event.Source) {
			continue
		}

		st := ev.states[rule.RuleID]
		if st == nil {
			st = &ruleState{}
			ev.states[rule.RuleID] = st
		}

		st.window = append(st.window, eventMs)
		cutoff := eventMs - int64(rule.WindowSeconds)*1000
		st.window = prune(st.window, cutoff)

		count := len(st.window)
		if !compare(float64(count), rule.Condition.Operator, rule.Condition.Value) {
			continue
		}

		if rule.CooldownSeconds > 0 && !st.lastTrigger.IsZero() {
			if now.Sub(st.lastTrigger) < time.Duration(rule.CooldownSeconds)*time.Second {
				continue
			}
		}
		st.lastTrigger = now

		anomalies = append(anomalies, model.Anomaly{
			AnomalyID:  uuid.NewString(),
			EventID:    event.EventID,
			RuleID:     rule.RuleID,
			Severity:   rule.Severity,
			Message:    fmt.Sprintf("Threshold rule %q triggered: count(%d) %s %v", rule.Name, count, rule.Condition.Operator, rule.Condition.Value),
			DetectedAt: now,
		})
	}
	return anomalies
}

// prune drops the longest prefix of entries below cutoff. Entries arrive
// almost-monotonically in event time, so a front-scan is sufficient; an
// out-of-order event still lands at the tail and is evaluated against the
// new event's cutoff, which may transiently retain entries "above" cutoff —
// accepted per §4.4's edge-case note.
func prune(window []int64, cutoff int64) []int64 {
	i := 0
	for i < len(window) && window[i] < cutoff {
		i++
	}
	if i == 0 {
		return window
	}
	return append(window[:0:0], window[i:]...)
}

// compare implements the six threshold operators. An unknown operator
// (shouldn't occur past validation) never triggers.
func compare(count float64, op model.Operator, value float64) bool {
	switch op {
	case model.OpGT:
		return count > value
	case model.OpGE:
		return count >= value
	case model.OpLT:
		return count < value
	case model.OpLE:
		return count <= value
	case model.OpEQ:
		return count == value
	case model.OpNE:
		return count != value
	default:
		return false
	}
}
