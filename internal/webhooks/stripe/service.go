package stripewebhook

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/agentdeck/agentdeck-backend/internal/credits"
	"github.com/agentdeck/agentdeck-backend/internal/payments"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
	"github.com/agentdeck/agentdeck-backend/pkg/logger"
	"github.com/agentdeck/agentdeck-backend/pkg/metrics"
)

type creditAdjuster interface {
	Adjust(ctx context.Context, params credits.AdjustParams) (int64, error)
}

type computeResumer interface {
	Resume(ctx context.Context, tenantID string) error
}

// ServiceParams groups dependencies for the Stripe webhook service.
type ServiceParams struct {
	Credits creditAdjuster
	Compute computeResumer
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
}

// Service applies verified Stripe events to the credit ledger.
//
// Known gap: deliveries are not deduplicated. Stripe retries webhooks until
// acknowledged, and each redelivered checkout.session.completed credits the
// tenant again. Fixing this requires recording processed event ids; until
// then the behavior is pinned by TestHandleEventRedeliveryCreditsTwice.
type Service struct {
	credits creditAdjuster
	compute computeResumer
	logger  *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService builds a Stripe webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Credits == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credits service required")
	}
	return &Service{
		credits: params.Credits,
		compute: params.Compute,
		logger:  params.Logger,
		metrics: params.Metrics,
	}, nil
}

// HandleEvent processes one signature-verified Stripe event. Unhandled event
// types are acknowledged without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.metrics.IncWebhookEvent(string(event.Type), "decode_error")
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.creditCompletedCheckout(ctx, string(event.Type), &session)
	default:
		s.metrics.IncWebhookEvent(string(event.Type), "ignored")
		return nil
	}
}

func (s *Service) creditCompletedCheckout(ctx context.Context, eventType string, session *stripe.CheckoutSession) error {
	tenantID, err := tenantIDFromMetadata(session.Metadata)
	if err != nil {
		s.metrics.IncWebhookEvent(eventType, "rejected")
		return err
	}

	creditCents := creditCentsFromSession(session)
	if creditCents <= 0 {
		s.metrics.IncWebhookEvent(eventType, "rejected")
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session carries no credit amount")
	}

	newBalance, err := s.credits.Adjust(ctx, credits.AdjustParams{
		TenantID:    tenantID,
		AmountCents: creditCents,
		Reason:      payments.PurchaseReason,
		Source:      "webhook",
	})
	if err != nil {
		s.metrics.IncWebhookEvent(eventType, "failed")
		return err
	}
	s.metrics.IncWebhookEvent(eventType, "credited")

	if s.logger != nil {
		logCtx := s.logger.WithFields(ctx, map[string]any{
			"tenant_id":     tenantID.String(),
			"credit_cents":  creditCents,
			"balance_cents": newBalance,
		})
		s.logger.Info(logCtx, "stripe.checkout.credited")
	}

	// The credit is committed; a failed resume must never undo it.
	if s.compute != nil {
		if resumeErr := s.compute.Resume(ctx, tenantID.String()); resumeErr != nil && s.logger != nil {
			s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
				"tenant_id": tenantID.String(),
				"error":     resumeErr.Error(),
			}), "stripe.checkout.resume_failed")
		}
	}

	return nil
}

func tenantIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw, ok := metadata["tenant_id"]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id missing from session metadata")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id in session metadata")
	}
	return tenantID, nil
}

// creditCentsFromSession prefers the explicit metadata amount written at
// session creation; Stripe's amount_total is the fallback for sessions minted
// outside this service.
func creditCentsFromSession(session *stripe.CheckoutSession) int64 {
	if raw, ok := session.Metadata["credit_cents"]; ok && raw != "" {
		if cents, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return cents
		}
	}
	return session.AmountTotal
}
