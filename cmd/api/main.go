package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/asarum-backend/api/routes"
	"github.com/angelmondragon/asarum-backend/internal/advisor"
	"github.com/angelmondragon/asarum-backend/internal/auth"
	"github.com/angelmondragon/asarum-backend/internal/cart"
	"github.com/angelmondragon/asarum-backend/internal/catalog"
	"github.com/angelmondragon/asarum-backend/internal/fulfillment"
	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/internal/payments"
	"github.com/angelmondragon/asarum-backend/internal/settings"
	squarewebhook "github.com/angelmondragon/asarum-backend/internal/webhooks/square"
	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/db"
	"github.com/angelmondragon/asarum-backend/pkg/dedupe"
	"github.com/angelmondragon/asarum-backend/pkg/instance"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/metrics"
	"github.com/angelmondragon/asarum-backend/pkg/migrate"
	"github.com/angelmondragon/asarum-backend/pkg/outbox"
	"github.com/angelmondragon/asarum-backend/pkg/redis"
	"github.com/angelmondragon/asarum-backend/pkg/square"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	webhookDedupeTTL  = 7 * 24 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	if cfg.FeatureFlags.SeedCatalog {
		inserted, err := catalogService.Seed(bootCtx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(bootCtx, "inserted", inserted), "catalog seeded")
	}

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Orders.CartTTL)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cartStore, catalogService)
	if err != nil {
		return err
	}

	processor, squareClient, err := newPaymentProcessor(bootCtx, cfg, logg)
	if err != nil {
		return err
	}

	emitter := outbox.NewWriter(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:      ordersRepo,
		Tx:        dbClient,
		Outbox:    emitter,
		Carts:     cartService,
		Processor: processor,
		Metrics:   metrics.NewCheckoutMetrics(registry),
		Logger:    logg,
		Config:    cfg.Orders,
	})
	if err != nil {
		return err
	}

	var source fulfillment.OrderSource
	if cfg.FeatureFlags.DemoOrders {
		source = fulfillment.NewInMemoryDemoOrderSource()
	} else {
		source, err = fulfillment.NewLiveOrderSource(ordersRepo, dbClient, emitter)
		if err != nil {
			return err
		}
	}
	fulfillmentService, err := fulfillment.NewService(source, metrics.NewFulfillmentMetrics(registry), logg)
	if err != nil {
		return err
	}

	completer, err := advisor.NewGeminiCompleter(bootCtx, cfg.Advisor)
	if err != nil {
		return err
	}
	advisorService, err := advisor.NewService(completer, catalogService, settingsService, logg)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Admin:     cfg.Admin,
		Password:  cfg.Password,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	var webhook *routes.SquareWebhook
	if squareClient != nil {
		webhookService, err := squarewebhook.NewService(squarewebhook.ServiceParams{Orders: ordersService, Logger: logg})
		if err != nil {
			return err
		}
		ledger, err := dedupe.NewLedger(redisClient, "square-webhook", webhookDedupeTTL)
		if err != nil {
			return err
		}
		webhook = &routes.SquareWebhook{Service: webhookService, Client: squareClient, Ledger: ledger}
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Store:       redisClient,
		Gatherer:    registry,
		Catalog:     catalogService,
		Settings:    settingsService,
		Cart:        cartService,
		Orders:      ordersService,
		Fulfillment: fulfillmentService,
		Advisor:     advisorService,
		Auth:        authService,
		Square:      webhook,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newPaymentProcessor charges through Square when credentials are configured.
// Only the dev environment may fall back to the approving dev processor.
func newPaymentProcessor(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.Processor, *square.Client, error) {
	if !cfg.Square.Enabled() {
		if !cfg.App.IsDev() {
			return nil, nil, fmt.Errorf("square access token required in %q environment", cfg.App.Env)
		}
		logg.Warn(ctx, "square disabled, card charges use the dev processor")
		return payments.NewDevProcessor(logg), nil, nil
	}
	client, err := square.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		return nil, nil, err
	}
	processor, err := payments.NewSquareProcessor(client, logg)
	if err != nil {
		return nil, nil, err
	}
	return processor, client, nil
}
