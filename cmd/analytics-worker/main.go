package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/asarum-backend/internal/analytics"
	"github.com/angelmondragon/asarum-backend/pkg/bigquery"
	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/dedupe"
	"github.com/angelmondragon/asarum-backend/pkg/instance"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/pubsub"
	"github.com/angelmondragon/asarum-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, pubsubClient.Close())
	}()
	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		return errors.New("analytics subscription not configured")
	}

	table, err := bigquery.Open(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, table.Close())
	}()

	ledger, err := dedupe.NewLedger(redisClient, "analytics", cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	sink, err := analytics.NewSink(table, analytics.SinkConfig{})
	if err != nil {
		return err
	}
	consumer, err := analytics.NewConsumer(subscription, sink, ledger, logg)
	if err != nil {
		return err
	}

	logg.Info(ctx, "analytics worker ready")
	return consumer.Run(ctx)
}
