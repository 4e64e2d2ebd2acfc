package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentdeck/agentdeck-backend/api/controllers"
	admincontrollers "github.com/agentdeck/agentdeck-backend/api/controllers/admin"
	billingcontrollers "github.com/agentdeck/agentdeck-backend/api/controllers/billing"
	webhookcontrollers "github.com/agentdeck/agentdeck-backend/api/controllers/webhooks"
	"github.com/agentdeck/agentdeck-backend/api/middleware"
	"github.com/agentdeck/agentdeck-backend/pkg/auth/session"
	"github.com/agentdeck/agentdeck-backend/pkg/config"
	"github.com/agentdeck/agentdeck-backend/pkg/db"
	"github.com/agentdeck/agentdeck-backend/pkg/logger"
	"github.com/agentdeck/agentdeck-backend/pkg/redis"
	pkgstripe "github.com/agentdeck/agentdeck-backend/pkg/stripe"
)

// Services groups the domain services the router exposes over HTTP.
type Services struct {
	BillingHistory billingcontrollers.OverviewService
	Balance        billingcontrollers.BalanceService
	Checkout       billingcontrollers.CheckoutService
	Tenants        admincontrollers.TenantService
	Credits        admincontrollers.CreditService
	StripeWebhook  webhookcontrollers.StripeWebhookService
}

type readinessPinger interface {
	Ping(ctx context.Context) error
}

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionVerifier session.AccessSessionChecker,
	stripeClient *pkgstripe.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// A nil *redis.Client must stay a nil interface downstream.
	var idemStore redis.IdempotencyStore
	var limiter rateLimiterStore
	var redisPinger readinessPinger
	if redisClient != nil {
		idemStore = redisClient
		limiter = redisClient
		redisPinger = redisClient
	}

	webhookPolicy := middleware.NewRateLimitPolicy(
		"stripe-webhook",
		cfg.RateLimit.WebhookWindow,
		cfg.RateLimit.WebhookIPLimit,
	)
	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, limiter, logg)).
			Post("/stripe", webhookcontrollers.StripeWebhook(svcs.StripeWebhook, stripeClient, logg))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionVerifier, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ledger", billingcontrollers.Overview(svcs.BillingHistory, logg))
		r.Get("/balance", billingcontrollers.Balance(svcs.Balance, logg))
		r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).
			Post("/checkout", billingcontrollers.Checkout(svcs.Checkout, logg))
	})

	r.Route("/api/admin/v1/tenants", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionVerifier, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Post("/", admincontrollers.TenantCreate(svcs.Tenants, logg))
		r.Get("/{tenantId}", admincontrollers.TenantGet(svcs.Tenants, logg))
		r.Post("/{tenantId}/credits", admincontrollers.TenantCredits(svcs.Tenants, svcs.Credits, logg))
		r.Post("/{tenantId}/suspend", admincontrollers.TenantSuspend(svcs.Tenants, logg))
		r.Post("/{tenantId}/resume", admincontrollers.TenantResume(svcs.Tenants, logg))
	})

	return r
}
