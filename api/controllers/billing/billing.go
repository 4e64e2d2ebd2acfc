package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/agentdeck/agentdeck-backend/api/middleware"
	"github.com/agentdeck/agentdeck-backend/api/responses"
	"github.com/agentdeck/agentdeck-backend/api/validators"
	"github.com/agentdeck/agentdeck-backend/internal/billinghistory"
	"github.com/agentdeck/agentdeck-backend/internal/credits"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
	"github.com/agentdeck/agentdeck-backend/pkg/logger"
)

type OverviewService interface {
	Overview(ctx context.Context, tenantID uuid.UUID) (*billinghistory.Overview, error)
}

type BalanceService interface {
	GetBalance(ctx context.Context, tenantID uuid.UUID) (credits.Balance, error)
}

type CheckoutService interface {
	StartCheckout(ctx context.Context, tenantID uuid.UUID, amountUSD int64) (string, error)
}

type balanceResponse struct {
	BalanceCents int64   `json:"balance_cents"`
	RemainingPct float64 `json:"remaining_pct"`
}

type checkoutRequest struct {
	Amount int64 `json:"amount" validate:"required"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// Overview returns the reconciled ledger view for the caller's tenant.
func Overview(svc OverviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		tenantID, err := tenantIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		overview, err := svc.Overview(ctx, tenantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// Balance returns the current credit balance for the caller's tenant.
func Balance(svc BalanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		tenantID, err := tenantIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.GetBalance(ctx, tenantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceResponse{
			BalanceCents: balance.BalanceCents,
			RemainingPct: balance.RemainingPct,
		})
	}
}

// Checkout starts a Stripe checkout session for a credit purchase and returns
// the redirect URL.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		tenantID, err := tenantIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.StartCheckout(ctx, tenantID, body.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutResponse{URL: url})
	}
}

func tenantIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.TenantIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context required")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid tenant context")
	}
	return tenantID, nil
}
