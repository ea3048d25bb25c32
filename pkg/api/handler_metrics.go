package api

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"
)

const (
	minWindowSeconds     = 10
	maxWindowSeconds     = 3600
	defaultWindowSeconds = 60
)

// metricsHandler handles GET /api/v1/metrics (§4.16): a windowed count/rate
// aggregation grouped by event_type or source.
func (s *Server) metricsHandler(c *echo.Context) error {
	groupBy := c.QueryParam("group_by")
	if groupBy == "" {
		groupBy = "event_type"
	}
	if groupBy != "event_type" && groupBy != "source" {
		return echo.NewHTTPError(http.StatusBadRequest, "group_by must be event_type or source")
	}

	window := defaultWindowSeconds
	if v := c.QueryParam("window_seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid window_seconds")
		}
		window = clampWindow(n)
	}

	buckets, err := s.eventRepo.Metrics(c.Request().Context(), groupBy, window)
	if err != nil {
		return mapRepoError(err)
	}

	now := time.Now().UTC()
	metrics := make([]metricBucket, len(buckets))
	for i, b := range buckets {
		metrics[i] = metricBucket{
			Key:        b.Key,
			Count:      b.Count,
			RatePerSec: float64(b.Count) / float64(window),
		}
	}

	return c.JSON(http.StatusOK, metricsResponse{
		WindowSeconds: window,
		GroupBy:       groupBy,
		From:          now.Add(-time.Duration(window) * time.Second).Format(time.RFC3339),
		To:            now.Format(time.RFC3339),
		Metrics:       metrics,
	})
}

func clampWindow(n int) int {
	if n < minWindowSeconds {
		return minWindowSeconds
	}
	if n > maxWindowSeconds {
		return maxWindowSeconds
	}
	return n
}
