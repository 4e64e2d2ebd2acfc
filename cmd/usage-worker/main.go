package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	usageconsumer "github.com/agentdeck/agentdeck-backend/internal/consumers/usage"
	"github.com/agentdeck/agentdeck-backend/internal/usage"
	"github.com/agentdeck/agentdeck-backend/pkg/config"
	"github.com/agentdeck/agentdeck-backend/pkg/db"
	"github.com/agentdeck/agentdeck-backend/pkg/logger"
	"github.com/agentdeck/agentdeck-backend/pkg/metrics"
	"github.com/agentdeck/agentdeck-backend/pkg/pubsub"
	"github.com/agentdeck/agentdeck-backend/pkg/redis"
)

const usageEventTTL = 7 * 24 * time.Hour

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "usage-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "usage-worker"

	logg = logger.New(logger.Options{
		ServiceName: "usage-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)

	defer func() {
		if err := multierr.Combine(pubsubClient.Close(), redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(ctx, "failed to close worker resources", err)
		}
	}()

	subscription := pubsubClient.UsageSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "usage subscription", errors.New("subscription not configured"))
	}

	usageService, err := usage.NewService(usage.ServiceParams{
		Repo: usage.NewRepository(dbClient.DB()),
	})
	requireResource(ctx, logg, "usage service", err)

	guard, err := usageconsumer.NewIdempotencyGuard(redisClient, usageEventTTL, "usage-consumer")
	requireResource(ctx, logg, "idempotency guard", err)

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	consumer, err := usageconsumer.NewConsumer(usageService, guard, logg, ledgerMetrics)
	requireResource(ctx, logg, "usage consumer", err)

	runner, err := usageconsumer.NewRunner(subscription, consumer, logg)
	requireResource(ctx, logg, "usage runner", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "usage worker ready")

	if err := runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "usage worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
