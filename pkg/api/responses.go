package api

import "github.com/eventpulse/eventpulse/pkg/model"

// ingestResponse is returned by POST /events.
type ingestResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// batchIngestResponse is returned by POST /events/batch.
type batchIngestResponse struct {
	Status   string   `json:"status"`
	Count    int      `json:"count"`
	EventIDs []string `json:"event_ids"`
}

// eventListResponse is returned by GET /events.
type eventListResponse struct {
	Data       []model.Event    `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// anomalyListResponse is returned by GET /anomalies.
type anomalyListResponse struct {
	Data       []model.Anomaly  `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// metricsResponse is returned by GET /metrics (§6).
type metricsResponse struct {
	WindowSeconds int            `json:"window_seconds"`
	GroupBy       string         `json:"group_by"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	Metrics       []metricBucket `json:"metrics"`
}

type metricBucket struct {
	Key        string  `json:"key"`
	Count      int64   `json:"count"`
	RatePerSec float64 `json:"rate_per_sec"`
}

// eventsHealthResponse is returned by GET /events/health.
type eventsHealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
	Worker string `json:"worker"`
}
