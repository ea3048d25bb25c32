package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/eventpulse/eventpulse/pkg/database"
	"github.com/eventpulse/eventpulse/pkg/model"
)

func toEvent(req eventRequest) (model.Event, error) {
	e := model.Event{
		EventID:   req.EventID,
		EventType: req.EventType,
		Source:    req.Source,
		Payload:   req.Payload,
		Metadata:  req.Metadata,
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if req.Timestamp == "" {
		e.Timestamp = time.Now().UTC()
	} else {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return model.Event{}, &model.ValidationError{Field: "timestamp", Reason: "must be ISO-8601"}
		}
		e.Timestamp = ts
	}
	return e, nil
}

// ingestEventHandler handles POST /api/v1/events (§4.11). Enqueue is
// fire-and-forget: a stream append failure is logged but the client still
// gets 202, since the event has already been validated.
func (s *Server) ingestEventHandler(c *echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := toEvent(req)
	if err != nil {
		return mapRepoError(err)
	}
	if err := e.Validate(); err != nil {
		return mapRepoError(err)
	}

	if _, err := s.producer.Append(c.Request().Context(), e); err != nil {
		s.logger.Error("failed to enqueue event", "event_id", e.EventID, "error", err)
	}
	return c.JSON(http.StatusAccepted, ingestResponse{Status: "accepted", EventID: e.EventID})
}

// ingestBatchHandler handles POST /api/v1/events/batch. The entire batch is
// rejected on any validation failure; otherwise every event is enqueued
// concurrently.
func (s *Server) ingestBatchHandler(c *echo.Context) error {
	var reqs []eventRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch must contain at least one event")
	}

	events := make([]model.Event, len(reqs))
	for i, req := range reqs {
		e, err := toEvent(req)
		if err != nil {
			return mapRepoError(err)
		}
		if err := e.Validate(); err != nil {
			return mapRepoError(err)
		}
		events[i] = e
	}

	ctx := c.Request().Context()
	ids := make([]string, len(events))
	var wg sync.WaitGroup
	for i, e := range events {
		ids[i] = e.EventID
		wg.Add(1)
		go func(e model.Event) {
			defer wg.Done()
			if _, err := s.producer.Append(ctx, e); err != nil {
				s.logger.Error("failed to enqueue event", "event_id", e.EventID, "error", err)
			}
		}(e)
	}
	wg.Wait()

	return c.JSON(http.StatusAccepted, batchIngestResponse{Status: "accepted", Count: len(ids), EventIDs: ids})
}

// listEventsHandler handles GET /api/v1/events.
func (s *Server) listEventsHandler(c *echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 500)
	if err != nil {
		return err
	}

	f := database.ListFilter{
		EventType: c.QueryParam("event_type"),
		Source:    c.QueryParam("source"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from: must be ISO-8601")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to: must be ISO-8601")
		}
		f.To = t
	}

	events, err := s.eventRepo.List(c.Request().Context(), f)
	if err != nil {
		return mapRepoError(err)
	}
	return c.JSON(http.StatusOK, eventListResponse{
		Data:       events,
		Pagination: model.Pagination{Limit: limit, Offset: offset, Count: len(events)},
	})
}

// getEventHandler handles GET /api/v1/events/:id.
func (s *Server) getEventHandler(c *echo.Context) error {
	e, err := s.eventRepo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapRepoError(err)
	}
	return c.JSON(http.StatusOK, e)
}

// eventsHealthHandler handles GET /api/v1/events/health (§4.11): pings the
// stream layer and reads the worker heartbeat key.
func (s *Server) eventsHealthHandler(c *echo.Context) error {
	ctx := c.Request().Context()

	redisStatus := "ok"
	if err := s.producer.Ping(ctx); err != nil {
		redisStatus = "unreachable"
	}

	workerStatus := "down"
	if workerID, err := s.rdb.Get(ctx, "worker:health").Result(); err == nil {
		workerStatus = workerID
	}

	resp := eventsHealthResponse{Status: "ok", Redis: redisStatus, Worker: workerStatus}
	if redisStatus != "ok" || workerStatus == "down" {
		resp.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// parsePagination parses limit/offset query params. An absent limit uses
// defaultLimit directly; a present-but-out-of-range value is clamped via
// model.ClampLimit rather than defaulted, per the boundary behaviors in
// spec.md §8 (limit=0 clamps to 1, it does not fall back to the default).
func parsePagination(c *echo.Context, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if v := c.QueryParam("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = model.ClampLimit(n, maxLimit)
	}
	if v := c.QueryParam("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		offset = n
	}
	return limit, offset, nil
}
