package model

import "time"

// Anomaly is a detection emitted by either evaluator. EventID names the
// triggering event but is deliberately not a foreign key: cleanup of events
// must not break anomaly inserts (see spec design notes).
type Anomaly struct {
	AnomalyID  string    `json:"anomaly_id"`
	EventID    string    `json:"event_id"`
	RuleID     string    `json:"rule_id"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detected_at"`
}

// AnomalyNotification is the pub/sub wire shape published to
// anomaly_notifications and broadcast to WebSocket clients.
type AnomalyNotification struct {
	Type       string    `json:"type"`
	AnomalyID  string    `json:"anomaly_id"`
	RuleID     string    `json:"rule_id"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detected_at"`
}

// RuleChangeMessage is published to rules_changed on every rule mutation.
type RuleChangeMessage struct {
	Timestamp time.Time `json:"ts"`
	Reason    string    `json:"reason"`
	RuleID    string    `json:"rule_id"`
}

const (
	ReasonCreate = "create"
	ReasonUpdate = "update"
	ReasonPatch  = "patch"
	ReasonDelete = "delete"
)
