package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/agentdeck/agentdeck-backend/api/middleware"
	"github.com/agentdeck/agentdeck-backend/internal/billinghistory"
	"github.com/agentdeck/agentdeck-backend/internal/credits"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
)

type fakeOverviewService struct {
	tenantID uuid.UUID
	overview *billinghistory.Overview
	err      error
}

func (f *fakeOverviewService) Overview(_ context.Context, tenantID uuid.UUID) (*billinghistory.Overview, error) {
	f.tenantID = tenantID
	if f.err != nil {
		return nil, f.err
	}
	return f.overview, nil
}

type fakeBalanceService struct {
	balance credits.Balance
}

func (f *fakeBalanceService) GetBalance(_ context.Context, _ uuid.UUID) (credits.Balance, error) {
	return f.balance, nil
}

type fakeCheckoutService struct {
	tenantID uuid.UUID
	amount   int64
	url      string
	err      error
}

func (f *fakeCheckoutService) StartCheckout(_ context.Context, tenantID uuid.UUID, amountUSD int64) (string, error) {
	f.tenantID = tenantID
	f.amount = amountUSD
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func requestWithTenant(t *testing.T, method, target, body string, tenantID uuid.UUID) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithTenantID(req.Context(), tenantID.String())
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestOverviewReturnsLedgerView(t *testing.T) {
	tenantID := uuid.New()
	svc := &fakeOverviewService{overview: &billinghistory.Overview{BalanceCents: 3380, RemainingPct: 100}}
	handler := Overview(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithTenant(t, http.MethodGet, "/api/v1/billing", "", tenantID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.tenantID != tenantID {
		t.Fatalf("expected tenant %s, got %s", tenantID, svc.tenantID)
	}
	var payload billinghistory.Overview
	decodeData(t, rec, &payload)
	if payload.BalanceCents != 3380 {
		t.Fatalf("unexpected balance %d", payload.BalanceCents)
	}
}

func TestOverviewRequiresTenantContext(t *testing.T) {
	handler := Overview(&fakeOverviewService{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/billing", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without tenant context, got %d", rec.Code)
	}
}

func TestBalanceReturnsCentsAndPct(t *testing.T) {
	tenantID := uuid.New()
	svc := &fakeBalanceService{balance: credits.Balance{BalanceCents: 500, RemainingPct: 50}}
	handler := Balance(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithTenant(t, http.MethodGet, "/api/v1/billing/balance", "", tenantID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload balanceResponse
	decodeData(t, rec, &payload)
	if payload.BalanceCents != 500 || payload.RemainingPct != 50 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCheckoutReturnsRedirectURL(t *testing.T) {
	tenantID := uuid.New()
	svc := &fakeCheckoutService{url: "https://checkout.stripe.com/pay/cs_test"}
	handler := Checkout(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithTenant(t, http.MethodPost, "/api/v1/billing/checkout", `{"amount":25}`, tenantID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.tenantID != tenantID || svc.amount != 25 {
		t.Fatalf("unexpected call tenant=%s amount=%d", svc.tenantID, svc.amount)
	}
	var payload checkoutResponse
	decodeData(t, rec, &payload)
	if payload.URL != svc.url {
		t.Fatalf("unexpected url %q", payload.URL)
	}
}

func TestCheckoutRejectsMalformedBody(t *testing.T) {
	svc := &fakeCheckoutService{url: "https://checkout.stripe.com/pay/cs_test"}
	handler := Checkout(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithTenant(t, http.MethodPost, "/api/v1/billing/checkout", `{"amount":`, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.amount != 0 {
		t.Fatal("malformed body must not reach the service")
	}
}

func TestCheckoutSurfacesValidationError(t *testing.T) {
	svc := &fakeCheckoutService{err: pkgerrors.New(pkgerrors.CodeValidation, "Invalid amount")}
	handler := Checkout(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithTenant(t, http.MethodPost, "/api/v1/billing/checkout", `{"amount":13}`, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid amount") {
		t.Fatalf("expected Invalid amount message, got %s", rec.Body.String())
	}
}
