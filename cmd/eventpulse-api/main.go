// Command eventpulse-api serves the HTTP ingest/query API and the
// WebSocket fan-out endpoint (§5: the two-binary process split). It never
// runs migrations itself — the worker process owns schema setup at startup
// — so the API should be started after (or restarted until) the worker has
// applied them.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/api"
	"github.com/eventpulse/eventpulse/pkg/config"
	"github.com/eventpulse/eventpulse/pkg/database"
	"github.com/eventpulse/eventpulse/pkg/pubsub"
	"github.com/eventpulse/eventpulse/pkg/stream"
	"github.com/eventpulse/eventpulse/pkg/ws"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, continuing with existing environment")
	}

	cfg, err := config.LoadAPIConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	producer := stream.NewProducer(rdb, cfg.StreamKey)
	hub := ws.NewHub(logger)

	server := api.NewServer(api.Deps{
		RDB:          rdb,
		Producer:     producer,
		EventRepo:    database.NewEventRepository(pool),
		RuleRepo:     database.NewRuleRepository(pool),
		ProfileRepo:  database.NewStatProfileRepository(pool),
		AnomalyRepo:  database.NewAnomalyRepository(pool),
		RuleNotifier: pubsub.NewRuleChangeNotifier(rdb, logger),
		Hub:          hub,
	}, logger)

	anomalySub := pubsub.NewAnomalySubscriber(rdb, server, logger)
	go anomalySub.Run(ctx)
	defer anomalySub.Close()

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	go func() {
		logger.Info("eventpulse-api listening", "addr", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down eventpulse-api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
