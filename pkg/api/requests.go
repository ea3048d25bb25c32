package api

import "github.com/eventpulse/eventpulse/pkg/model"

// eventRequest is the wire shape for POST /events (§6): event_id and
// timestamp are optional and defaulted by the handler when absent.
type eventRequest struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
	Metadata  map[string]any `json:"metadata"`
}

// ruleRequest is the PUT/POST wire shape for /rules (§6). Pointer fields
// let patchRuleHandler distinguish "absent" from "zero value".
type ruleRequest struct {
	Name            *string          `json:"name"`
	Enabled         *bool            `json:"enabled"`
	Severity        *model.Severity  `json:"severity"`
	WindowSeconds   *int             `json:"window_seconds"`
	CooldownSeconds *int             `json:"cooldown_seconds"`
	Condition       *conditionFields `json:"condition"`
}

type conditionFields struct {
	Type     string         `json:"type"`
	Metric   string         `json:"metric"`
	Filters  model.Filters  `json:"filters"`
	Operator model.Operator `json:"operator"`
	Value    float64        `json:"value"`
}

// profileRequest is the PUT/POST wire shape for /stat-profiles.
type profileRequest struct {
	BucketSeconds   *int            `json:"bucket_seconds"`
	BaselineBuckets *int            `json:"baseline_buckets"`
	ZThreshold      *float64        `json:"z_threshold"`
	CooldownSeconds *int            `json:"cooldown_seconds"`
	Severity        *model.Severity `json:"severity"`
	Filters         *model.Filters  `json:"filters"`
	Enabled         *bool           `json:"enabled"`
}
