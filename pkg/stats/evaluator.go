package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eventpulse/eventpulse/pkg/model"
	"github.com/eventpulse/eventpulse/pkg/stream"
)

// profileState is the per-profile evaluator state (§3): bucket-start-ms →
// count, plus the last wall-clock trigger time.
type profileState struct {
	buckets     map[int64]int
	lastTrigger time.Time
}

// Evaluator is the statistical evaluator (§4.5), owned exclusively by the
// stream consumer's single-threaded loop, same concurrency discipline as
// rules.Evaluator.
type Evaluator struct {
	states map[string]*profileState
	nowFn  func() time.Time
}

func NewEvaluator(nowFn func() time.Time) *Evaluator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Evaluator{states: make(map[string]*profileState), nowFn: nowFn}
}

// Evaluate runs every enabled profile in the snapshot against event and
// returns any anomalies produced, per the eight steps of §4.5.
func (ev *Evaluator) Evaluate(event model.Event, snapshot []model.StatProfile) []model.Anomaly {
	var anomalies []model.Anomaly
	eventMs := stream.TimestampMillis(event.Timestamp)
	now := ev.nowFn()

	for _, profile := range snapshot {
		if !profile.Enabled {
			continue
		}
		if !profile.Filters.Matches(event.EventType, event.Source) {
			continue
		}

		st := ev.states[profile.ID]
		if st == nil {
			st = &profileState{buckets: make(map[int64]int)}
			ev.states[profile.ID] = st
		}

		bucketMs := int64(profile.BucketSeconds) * 1000
		bucketStart := (eventMs / bucketMs) * bucketMs
		st.buckets[bucketStart]++

		// The +1 tolerates a spike landing one bucket after the final
		// baseline bucket — a plain baseline_buckets window would evict the
		// oldest baseline bucket in that case (§4.5 step 3).
		retentionCutoff := bucketStart - int64(profile.BaselineBuckets+1)*bucketMs
		for start := range st.buckets {
			if start < retentionCutoff {
				delete(st.buckets, start)
			}
		}

		currentCount := st.buckets[bucketStart]

		var baselineStarts []int64
		for start := range st.buckets {
			if start != bucketStart {
				baselineStarts = append(baselineStarts, start)
			}
		}
		sort.Slice(baselineStarts, func(i, j int) bool { return baselineStarts[i] < baselineStarts[j] })
		if len(baselineStarts) < profile.BaselineBuckets {
			continue // baseline not ready
		}
		baselineStarts = baselineStarts[len(baselineStarts)-profile.BaselineBuckets:]

		mean, stddev := meanStddev(st.buckets, baselineStarts)
		if stddev <= 0 {
			continue
		}

		z := (float64(currentCount) - mean) / stddev
		if z < profile.ZThreshold {
			continue
		}

		if profile.CooldownSeconds > 0 && !st.lastTrigger.IsZero() {
			if now.Sub(st.lastTrigger) < time.Duration(profile.CooldownSeconds)*time.Second {
				continue
			}
		}
		st.lastTrigger = now

		severity := profile.Severity
		if severity == "" {
			severity = model.SeverityWarning
		}

		anomalies = append(anomalies, model.Anomaly{
			AnomalyID: uuid.NewString(),
			EventID:   event.EventID,
			RuleID:    profile.ID,
			Severity:  severity,
			Message: fmt.Sprintf(
				"Statistical profile triggered: z=%.2f current=%d mean=%.2f stddev=%.2f bucket_seconds=%d bucket_start=%d filters=%+v",
				z, currentCount, mean, stddev, profile.BucketSeconds, bucketStart, profile.Filters),
			DetectedAt: now,
		})
	}
	return anomalies
}

func meanStddev(buckets map[int64]int, starts []int64) (mean, stddev float64) {
	n := float64(len(starts))
	var sum float64
	for _, s := range starts {
		sum += float64(buckets[s])
	}
	mean = sum / n

	var variance float64
	for _, s := range starts {
		d := float64(buckets[s]) - mean
		variance += d * d
	}
	variance /= n
	stddev = math.Sqrt(variance)
	return mean, stddev
}
