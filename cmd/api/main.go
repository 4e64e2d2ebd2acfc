package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentdeck/agentdeck-backend/api/routes"
	"github.com/agentdeck/agentdeck-backend/internal/billinghistory"
	"github.com/agentdeck/agentdeck-backend/internal/conversations"
	"github.com/agentdeck/agentdeck-backend/internal/credits"
	"github.com/agentdeck/agentdeck-backend/internal/payments"
	"github.com/agentdeck/agentdeck-backend/internal/tenants"
	"github.com/agentdeck/agentdeck-backend/internal/usage"
	stripewebhook "github.com/agentdeck/agentdeck-backend/internal/webhooks/stripe"
	"github.com/agentdeck/agentdeck-backend/pkg/auth/session"
	"github.com/agentdeck/agentdeck-backend/pkg/compute"
	"github.com/agentdeck/agentdeck-backend/pkg/config"
	"github.com/agentdeck/agentdeck-backend/pkg/db"
	"github.com/agentdeck/agentdeck-backend/pkg/logger"
	"github.com/agentdeck/agentdeck-backend/pkg/metrics"
	"github.com/agentdeck/agentdeck-backend/pkg/migrate"
	"github.com/agentdeck/agentdeck-backend/pkg/redis"
	pkgstripe "github.com/agentdeck/agentdeck-backend/pkg/stripe"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	var computeClient *compute.Client
	if cfg.Compute.BaseURL != "" {
		computeClient, err = compute.NewClient(cfg.Compute)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap compute client", err)
			os.Exit(1)
		}
	}

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	creditsService, err := credits.NewService(credits.ServiceParams{
		TX:      dbClient,
		Repo:    credits.NewRepository(dbClient.DB()),
		Metrics: ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credits service", err)
		os.Exit(1)
	}

	usageService, err := usage.NewService(usage.ServiceParams{
		Repo: usage.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}

	historyService, err := billinghistory.NewService(billinghistory.ServiceParams{
		Credits:       creditsService,
		Usage:         usageService,
		Conversations: conversations.NewRepository(dbClient.DB()),
		Keywords:      cfg.Billing.PurchaseKeywords,
		MaxEntries:    cfg.Billing.LedgerMaxEntries,
		WindowDays:    cfg.Billing.UsageWindowDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing history service", err)
		os.Exit(1)
	}

	tenantsService, err := tenants.NewService(tenants.ServiceParams{
		Repo:    tenants.NewRepository(dbClient.DB()),
		Credits: creditsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tenants service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Tenants:    tenantsService,
		Stripe:     payments.NewStripeClient(stripeClient),
		Billing:    cfg.Billing,
		SuccessURL: stripeClient.SuccessURL(),
		CancelURL:  stripeClient.CancelURL(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookParams := stripewebhook.ServiceParams{
		Credits: creditsService,
		Logger:  logg,
		Metrics: ledgerMetrics,
	}
	if computeClient != nil {
		webhookParams.Compute = computeClient
	}
	webhookService, err := stripewebhook.NewService(webhookParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, stripeClient, routes.Services{
			BillingHistory: historyService,
			Balance:        creditsService,
			Checkout:       paymentsService,
			Tenants:        tenantsService,
			Credits:        creditsService,
			StripeWebhook:  webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
