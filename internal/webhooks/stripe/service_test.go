package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/agentdeck/agentdeck-backend/internal/credits"
	"github.com/agentdeck/agentdeck-backend/internal/payments"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
)

type fakeAdjuster struct {
	calls   []credits.AdjustParams
	balance int64
	err     error
}

func (f *fakeAdjuster) Adjust(_ context.Context, params credits.AdjustParams) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.calls = append(f.calls, params)
	f.balance += params.AmountCents
	return f.balance, nil
}

type fakeResumer struct {
	calls []string
	err   error
}

func (f *fakeResumer) Resume(_ context.Context, tenantID string) error {
	f.calls = append(f.calls, tenantID)
	return f.err
}

func newTestService(t *testing.T, adjuster creditAdjuster, resumer computeResumer) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Credits: adjuster, Compute: resumer})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func checkoutCompletedEvent(t *testing.T, metadata map[string]string, amountTotal int64) *stripe.Event {
	t.Helper()
	session := map[string]any{
		"id":           "cs_test_123",
		"amount_total": amountTotal,
		"metadata":     metadata,
	}
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventCreditsCompletedCheckout(t *testing.T) {
	adjuster := &fakeAdjuster{}
	resumer := &fakeResumer{}
	svc := newTestService(t, adjuster, resumer)
	tenantID := uuid.New()

	event := checkoutCompletedEvent(t, map[string]string{
		"tenant_id":    tenantID.String(),
		"credit_cents": "2500",
	}, 2500)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(adjuster.calls) != 1 {
		t.Fatalf("expected one adjustment, got %d", len(adjuster.calls))
	}
	call := adjuster.calls[0]
	if call.TenantID != tenantID || call.AmountCents != 2500 {
		t.Fatalf("unexpected adjustment %+v", call)
	}
	if call.Reason != payments.PurchaseReason {
		t.Fatalf("unexpected reason %q", call.Reason)
	}
	if call.InitiatedBy != nil {
		t.Fatal("webhook credit must not carry an initiating admin")
	}
	if len(resumer.calls) != 1 || resumer.calls[0] != tenantID.String() {
		t.Fatalf("expected compute resume for tenant, got %v", resumer.calls)
	}
}

// Stripe redelivers webhooks until acknowledged, and this handler does not
// deduplicate: the same session credits the tenant on every delivery. This
// test pins that behavior so a future dedup fix has to update it knowingly.
func TestHandleEventRedeliveryCreditsTwice(t *testing.T) {
	adjuster := &fakeAdjuster{}
	svc := newTestService(t, adjuster, nil)
	tenantID := uuid.New()

	event := checkoutCompletedEvent(t, map[string]string{
		"tenant_id":    tenantID.String(),
		"credit_cents": "2500",
	}, 2500)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	if len(adjuster.calls) != 2 {
		t.Fatalf("expected double credit on redelivery, got %d adjustments", len(adjuster.calls))
	}
	if adjuster.balance != 5000 {
		t.Fatalf("expected balance 5000 after double credit, got %d", adjuster.balance)
	}
}

func TestHandleEventMissingTenantMetadata(t *testing.T) {
	adjuster := &fakeAdjuster{}
	svc := newTestService(t, adjuster, nil)

	event := checkoutCompletedEvent(t, map[string]string{"credit_cents": "2500"}, 2500)
	err := svc.HandleEvent(context.Background(), event)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(adjuster.calls) != 0 {
		t.Fatal("missing tenant id must not mutate the ledger")
	}
}

func TestHandleEventFallsBackToAmountTotal(t *testing.T) {
	adjuster := &fakeAdjuster{}
	svc := newTestService(t, adjuster, nil)
	tenantID := uuid.New()

	event := checkoutCompletedEvent(t, map[string]string{"tenant_id": tenantID.String()}, 1000)
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(adjuster.calls) != 1 || adjuster.calls[0].AmountCents != 1000 {
		t.Fatalf("expected amount_total fallback of 1000, got %+v", adjuster.calls)
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	adjuster := &fakeAdjuster{}
	svc := newTestService(t, adjuster, nil)

	event := &stripe.Event{
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unhandled types must ack cleanly: %v", err)
	}
	if len(adjuster.calls) != 0 {
		t.Fatal("unhandled types must not mutate the ledger")
	}
}

func TestHandleEventResumeFailureDoesNotFailDelivery(t *testing.T) {
	adjuster := &fakeAdjuster{}
	resumer := &fakeResumer{err: fmt.Errorf("orchestrator down")}
	svc := newTestService(t, adjuster, resumer)
	tenantID := uuid.New()

	event := checkoutCompletedEvent(t, map[string]string{
		"tenant_id":    tenantID.String(),
		"credit_cents": "1000",
	}, 1000)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("resume failure must be swallowed, got %v", err)
	}
	if len(adjuster.calls) != 1 {
		t.Fatal("credit must still apply when resume fails")
	}
}

func TestHandleEventAdjustErrorBubbles(t *testing.T) {
	adjuster := &fakeAdjuster{err: errors.New("db down")}
	svc := newTestService(t, adjuster, nil)
	tenantID := uuid.New()

	event := checkoutCompletedEvent(t, map[string]string{
		"tenant_id":    tenantID.String(),
		"credit_cents": "1000",
	}, 1000)

	if err := svc.HandleEvent(context.Background(), event); !errors.Is(err, adjuster.err) {
		t.Fatalf("expected adjust error to bubble, got %v", err)
	}
}
