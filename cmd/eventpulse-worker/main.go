// Command eventpulse-worker consumes the durable event stream, evaluates
// threshold and statistical rules, persists and publishes anomalies, and
// owns schema migrations (§5: the two-binary process split). The
// WebSocket hub lives in eventpulse-api instead, since that's the process
// serving browser connections; this process reaches it only indirectly,
// through anomaly_notifications.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/eventpulse/eventpulse/pkg/config"
	"github.com/eventpulse/eventpulse/pkg/database"
	"github.com/eventpulse/eventpulse/pkg/notify"
	"github.com/eventpulse/eventpulse/pkg/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, continuing with existing environment")
	}

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

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

	deps := worker.Dependencies{
		Broadcaster: nil,
		Notification: notify.Config{
			WebSocket: notify.WebSocketConfig{Enabled: false},
			Slack: notify.SlackConfig{
				Enabled:    cfg.SlackWebhookURL != "",
				WebhookURL: cfg.SlackWebhookURL,
			},
			Email: notify.EmailConfig{
				Enabled:    len(cfg.EmailRecipients) > 0,
				Recipients: cfg.EmailRecipients,
			},
		},
	}

	supervisor := worker.New(cfg, pool, rdb, deps, logger)
	if err := supervisor.Start(ctx); err != nil {
		logger.Error("failed to start worker supervisor", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down eventpulse-worker")
	supervisor.Stop(10 * time.Second)
}
