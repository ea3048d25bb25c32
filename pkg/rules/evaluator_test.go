package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eventpulse/eventpulse/pkg/model"
)

func testRule() model.Rule {
	return model.Rule{
		RuleID:          "r1",
		Name:            "hi-err",
		Enabled:         true,
		Severity:        model.SeverityCritical,
		WindowSeconds:   60,
		CooldownSeconds: 0,
		Condition: model.Condition{
			Type:     "threshold",
			Metric:   "count",
			Filters:  model.Filters{EventType: "error", Source: "payment_service"},
			Operator: model.OpGT,
			Value:    5,
		},
	}
}

func errorEvent(ts time.Time) model.Event {
	return model.Event{EventID: "e", EventType: "error", Source: "payment_service", Timestamp: ts}
}

func TestEvaluateFiresOnThresholdCrossing(t *testing.T) {
	base := time.Unix(1_700_000_000, 0).UTC()
	ev := NewEvaluator(func() time.Time { return base })
	rule := testRule()

	var anomalies []model.Anomaly
	for i := 0; i < 6; i++ {
		anomalies = append(anomalies, ev.Evaluate(errorEvent(base.Add(time.Duration(i)*time.Second)), []model.Rule{rule})...)
	}

	assert.Len(t, anomalies, 1, "threshold should fire exactly once, on the 6th event")
	assert.Equal(t, rule.RuleID, anomalies[0].RuleID)
	assert.Equal(t, rule.Severity, anomalies[0].Severity)
}

func TestEvaluateFilterMismatchNeverAccumulates(t *testing.T) {
	base := time.Unix(1_700_000_000, 0).UTC()
	ev := NewEvaluator(func() time.Time { return base })
	rule := testRule()

	event := model.Event{EventID: "e", EventType: "info", Source: "payment_service", Timestamp: base}
	for i := 0; i < 10; i++ {
		anomalies := ev.Evaluate(event, []model.Rule{rule})
		assert.Empty(t, anomalies)
	}
}

func TestEvaluatePrunesOutOfWindowEntries(t *testing.T) {
	base := time.Unix(1_700_000_000, 0).UTC()
	now := base
	ev := NewEvaluator(func() time.Time { return now })
	rule := testRule()

	for i := 0; i < 5; i++ {
		ev.Evaluate(errorEvent(base), []model.Rule{rule})
	}
	// Jump well past the 60s window; the old entries should be pruned and the
	// count should not include them.
	later := base.Add(2 * time.Minute)
	anomalies := ev.Evaluate(errorEvent(later), []model.Rule{rule})
	assert.Empty(t, anomalies, "stale entries outside window_seconds must not count toward the threshold")
}

func TestEvaluateWindowEqualityBoundary(t *testing.T) {
	// §8 "Window equality": an entry exactly window_seconds old is still
	// in-window (prune's cutoff comparison is strict "<"), but one second
	// older falls out.
	base := time.Unix(1_700_000_000, 0).UTC()

	t.Run("exactly window_seconds drift still counts", func(t *testing.T) {
		now := base
		ev := NewEvaluator(func() time.Time { return now })
		rule := testRule()

		for i := 0; i < 5; i++ {
			ev.Evaluate(errorEvent(base), []model.Rule{rule})
		}
		now = base.Add(60 * time.Second)
		anomalies := ev.Evaluate(errorEvent(now), []model.Rule{rule})
		assert.Len(t, anomalies, 1, "an entry exactly window_seconds old must still count toward the threshold")
	})

	t.Run("window_seconds+1 drift falls out of window", func(t *testing.T) {
		now := base
		ev := NewEvaluator(func() time.Time { return now })
		rule := testRule()

		for i := 0; i < 5; i++ {
			ev.Evaluate(errorEvent(base), []model.Rule{rule})
		}
		now = base.Add(61 * time.Second)
		anomalies := ev.Evaluate(errorEvent(now), []model.Rule{rule})
		assert.Empty(t, anomalies, "an entry older than window_seconds must be pruned and not count toward the threshold")
	})
}

func TestEvaluateCooldownSuppressesRefire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	ev := NewEvaluator(func() time.Time { return now })
	rule := testRule()
	rule.CooldownSeconds = 30

	ts := now
	var fired int
	for i := 0; i < 8; i++ {
		anomalies := ev.Evaluate(errorEvent(ts), []model.Rule{rule})
		fired += len(anomalies)
		ts = ts.Add(time.Second)
	}
	assert.Equal(t, 1, fired, "cooldown must suppress refire until cooldown_seconds of wall-clock time has passed")
}

func TestCompareOperators(t *testing.T) {
	cases := []struct {
		op    model.Operator
		count float64
		value float64
		want  bool
	}{
		{model.OpGT, 6, 5, true},
		{model.OpGT, 5, 5, false},
		{model.OpGE, 5, 5, true},
		{model.OpLT, 4, 5, true},
		{model.OpLE, 5, 5, true},
		{model.OpEQ, 5, 5, true},
		{model.OpNE, 5, 5, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, compare(c.count, c.op, c.value), "%v %s %v", c.count, c.op, c.value)
	}
}
