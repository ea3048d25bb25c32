// Package api implements the HTTP surface (§6, §4.14-4.18): event ingest,
// paginated event/anomaly queries, windowed metrics, rule and statistical
// profile CRUD, and the WebSocket upgrade endpoint. Grounded on the
// teacher's pkg/api/server.go Echo v5 wiring.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/database"
	"github.com/eventpulse/eventpulse/pkg/model"
	"github.com/eventpulse/eventpulse/pkg/pubsub"
	"github.com/eventpulse/eventpulse/pkg/stream"
	"github.com/eventpulse/eventpulse/pkg/version"
	"github.com/eventpulse/eventpulse/pkg/ws"
)

// Server is the ingest/query HTTP API. It also owns the WebSocket hub: the
// worker process detects anomalies and publishes them over Redis Pub/Sub,
// but only the API process serves browser connections, so the hub lives
// here and is fed by an AnomalySubscriber constructed alongside it (see
// cmd/eventpulse-api).
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	logger     *slog.Logger

	rdb      *redis.Client
	producer *stream.Producer

	eventRepo   *database.EventRepository
	ruleRepo    *database.RuleRepository
	profileRepo *database.StatProfileRepository
	anomalyRepo *database.AnomalyRepository

	ruleNotifier *pubsub.RuleChangeNotifier
	hub          *ws.Hub
}

// Deps bundles everything NewServer needs to wire routes.
type Deps struct {
	RDB          *redis.Client
	Producer     *stream.Producer
	EventRepo    *database.EventRepository
	RuleRepo     *database.RuleRepository
	ProfileRepo  *database.StatProfileRepository
	AnomalyRepo  *database.AnomalyRepository
	RuleNotifier *pubsub.RuleChangeNotifier
	Hub          *ws.Hub
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		echo:         echo.New(),
		logger:       logger,
		rdb:          deps.RDB,
		producer:     deps.Producer,
		eventRepo:    deps.EventRepo,
		ruleRepo:     deps.RuleRepo,
		profileRepo:  deps.ProfileRepo,
		anomalyRepo:  deps.AnomalyRepo,
		ruleNotifier: deps.RuleNotifier,
		hub:          deps.Hub,
	}
	s.setupRoutes()
	return s
}

// HandleAnomaly implements pubsub.AnomalyHandler: anomalies detected by the
// worker process arrive here over anomaly_notifications and are fanned out
// to this process's WebSocket clients.
func (s *Server) HandleAnomaly(_ context.Context, n model.AnomalyNotification) {
	s.hub.Broadcast(n)
}

func (s *Server) setupRoutes() {
	// Ingest bodies are small JSON envelopes; 2 MiB matches the teacher's
	// alert-endpoint body limit precedent.
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version.Full()})
	})
	s.echo.GET("/ws", s.wsHandler)

	v1 := s.echo.Group("/api/v1")

	v1.POST("/events", s.ingestEventHandler)
	v1.POST("/events/batch", s.ingestBatchHandler)
	v1.GET("/events/health", s.eventsHealthHandler)
	v1.GET("/events", s.listEventsHandler)
	v1.GET("/events/:id", s.getEventHandler)

	v1.GET("/anomalies", s.listAnomaliesHandler)

	v1.GET("/metrics", s.metricsHandler)

	v1.POST("/rules", s.createRuleHandler)
	v1.GET("/rules", s.listRulesHandler)
	v1.GET("/rules/:id", s.getRuleHandler)
	v1.PUT("/rules/:id", s.putRuleHandler)
	v1.PATCH("/rules/:id", s.patchRuleHandler)
	v1.DELETE("/rules/:id", s.deleteRuleHandler)

	// [EXPANSION] stat-profiles CRUD mirrors rules — spec.md's HTTP surface
	// table doesn't list it (profiles weren't part of the original rule
	// model), but §4.13's repository has no other way to be reached over
	// HTTP; see DESIGN.md.
	v1.POST("/stat-profiles", s.createProfileHandler)
	v1.GET("/stat-profiles", s.listProfilesHandler)
	v1.GET("/stat-profiles/:id", s.getProfileHandler)
	v1.PUT("/stat-profiles/:id", s.putProfileHandler)
	v1.PATCH("/stat-profiles/:id", s.patchProfileHandler)
	v1.DELETE("/stat-profiles/:id", s.deleteProfileHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, used
// by tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
