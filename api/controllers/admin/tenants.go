package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agentdeck/agentdeck-backend/api/middleware"
	"github.com/agentdeck/agentdeck-backend/api/responses"
	"github.com/agentdeck/agentdeck-backend/api/validators"
	"github.com/agentdeck/agentdeck-backend/internal/credits"
	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
	"github.com/agentdeck/agentdeck-backend/pkg/logger"
)

type TenantService interface {
	Create(ctx context.Context, name string) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Suspend(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Resume(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type CreditService interface {
	Adjust(ctx context.Context, params credits.AdjustParams) (int64, error)
}

type tenantResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type createTenantRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

type adjustCreditsRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required"`
	Reason      string `json:"reason" validate:"required,min=1,max=500"`
}

type adjustCreditsResponse struct {
	BalanceCents int64 `json:"balance_cents"`
}

// TenantCreate provisions a tenant and seeds its free credits.
func TenantCreate(svc TenantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant service unavailable"))
			return
		}

		var body createTenantRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tenant, err := svc.Create(ctx, body.Name)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toTenantResponse(tenant))
	}
}

// TenantGet fetches one tenant for the back office.
func TenantGet(svc TenantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant service unavailable"))
			return
		}

		tenantID, err := tenantIDFromPath(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tenant, err := svc.GetByID(ctx, tenantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTenantResponse(tenant))
	}
}

// TenantCredits applies a signed manual adjustment to the tenant's balance,
// attributed to the acting admin.
func TenantCredits(tenants TenantService, creditsSvc CreditService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if tenants == nil || creditsSvc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}

		tenantID, err := tenantIDFromPath(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body adjustCreditsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Unknown tenants 404 instead of silently growing a ledger account.
		if _, err := tenants.GetByID(ctx, tenantID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var initiatedBy *uuid.UUID
		if raw := middleware.UserIDFromContext(ctx); raw != "" {
			if adminID, parseErr := uuid.Parse(raw); parseErr == nil {
				initiatedBy = &adminID
			}
		}

		balance, err := creditsSvc.Adjust(ctx, credits.AdjustParams{
			TenantID:    tenantID,
			AmountCents: body.AmountCents,
			Reason:      body.Reason,
			InitiatedBy: initiatedBy,
			Source:      "admin",
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, adjustCreditsResponse{BalanceCents: balance})
	}
}

// TenantSuspend marks the tenant suspended.
func TenantSuspend(svc TenantService, logg *logger.Logger) http.HandlerFunc {
	return tenantStatusHandler(svc, logg, func(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
		return svc.Suspend(ctx, id)
	})
}

// TenantResume reactivates a suspended tenant.
func TenantResume(svc TenantService, logg *logger.Logger) http.HandlerFunc {
	return tenantStatusHandler(svc, logg, func(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
		return svc.Resume(ctx, id)
	})
}

func tenantStatusHandler(svc TenantService, logg *logger.Logger, transition func(ctx context.Context, id uuid.UUID) (*models.Tenant, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant service unavailable"))
			return
		}

		tenantID, err := tenantIDFromPath(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tenant, err := transition(ctx, tenantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTenantResponse(tenant))
	}
}

func tenantIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "tenantId")
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id")
	}
	return tenantID, nil
}

func toTenantResponse(t *models.Tenant) tenantResponse {
	return tenantResponse{
		ID:               t.ID.String(),
		Name:             t.Name,
		Status:           string(t.Status),
		StripeCustomerID: t.StripeCustomerID,
		CreatedAt:        t.CreatedAt.UTC(),
	}
}
