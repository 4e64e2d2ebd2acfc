package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
)

type fakeRepository struct {
	debits []models.UsageDebit
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Append(_ context.Context, debit *models.UsageDebit) error {
	f.debits = append(f.debits, *debit)
	return nil
}

func (f *fakeRepository) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]models.UsageDebit, error) {
	var out []models.UsageDebit
	for _, debit := range f.debits {
		if debit.TenantID == tenantID {
			out = append(out, debit)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListByTenantSince(_ context.Context, tenantID uuid.UUID, since time.Time) ([]models.UsageDebit, error) {
	var out []models.UsageDebit
	for _, debit := range f.debits {
		if debit.TenantID == tenantID && !debit.CreatedAt.Before(since) {
			out = append(out, debit)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestAppendValidation(t *testing.T) {
	tests := []struct {
		name   string
		params AppendParams
	}{
		{"missing tenant", AppendParams{Model: "gpt-4o", CostCents: 10}},
		{"blank model", AppendParams{TenantID: uuid.New(), Model: "  ", CostCents: 10}},
		{"negative cost", AppendParams{TenantID: uuid.New(), Model: "gpt-4o", CostCents: -1}},
		{"negative margin", AppendParams{TenantID: uuid.New(), Model: "gpt-4o", MarginCents: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepository{}
			svc := newTestService(t, repo)

			_, err := svc.Append(context.Background(), tc.params)
			if err == nil {
				t.Fatal("expected validation error")
			}
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
			if len(repo.debits) != 0 {
				t.Fatal("rejected append must not write rows")
			}
		})
	}
}

func TestAppendWritesRow(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)
	tenantID := uuid.New()
	occurred := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	debit, err := svc.Append(context.Background(), AppendParams{
		TenantID:     tenantID,
		Model:        "gpt-4o",
		CostCents:    42,
		MarginCents:  7,
		InputTokens:  1000,
		OutputTokens: 250,
		OccurredAt:   occurred,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if debit.CreatedAt != occurred {
		t.Fatalf("expected occurred-at timestamp, got %v", debit.CreatedAt)
	}
	if len(repo.debits) != 1 {
		t.Fatalf("expected 1 row, got %d", len(repo.debits))
	}
}

func TestDailyTotalsAggregatesPerDay(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)
	tenantID := uuid.New()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	seed := func(created time.Time, input, output, cost int64) {
		repo.debits = append(repo.debits, models.UsageDebit{
			TenantID:     tenantID,
			Model:        "gpt-4o",
			CostCents:    cost,
			InputTokens:  input,
			OutputTokens: output,
			CreatedAt:    created,
		})
	}
	seed(today.AddDate(0, 0, -1).Add(3*time.Hour), 100, 50, 10)
	seed(today.AddDate(0, 0, -1).Add(9*time.Hour), 200, 100, 20)
	seed(today.Add(time.Hour), 40, 10, 5)
	// Outside the window, must be excluded.
	seed(today.AddDate(0, 0, -40), 999, 999, 99)

	totals, err := svc.DailyTotals(context.Background(), tenantID, 30)
	if err != nil {
		t.Fatalf("daily totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 days, got %d", len(totals))
	}

	yesterday := totals[0]
	if yesterday.InputTokens != 300 || yesterday.OutputTokens != 150 || yesterday.TotalTokens != 450 || yesterday.CostCents != 30 {
		t.Fatalf("unexpected yesterday aggregate: %+v", yesterday)
	}
	if totals[1].TotalTokens != 50 || totals[1].CostCents != 5 {
		t.Fatalf("unexpected today aggregate: %+v", totals[1])
	}
	if !(totals[0].Date < totals[1].Date) {
		t.Fatalf("expected ascending dates, got %s then %s", totals[0].Date, totals[1].Date)
	}
}

func TestTotalsByModelSortsByCost(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)
	tenantID := uuid.New()

	repo.debits = []models.UsageDebit{
		{TenantID: tenantID, Model: "gpt-4o-mini", CostCents: 5, InputTokens: 10, OutputTokens: 5},
		{TenantID: tenantID, Model: "gpt-4o", CostCents: 50, InputTokens: 100, OutputTokens: 40},
		{TenantID: tenantID, Model: "gpt-4o", CostCents: 25, InputTokens: 60, OutputTokens: 20},
	}

	totals, err := svc.TotalsByModel(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("totals by model: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 models, got %d", len(totals))
	}
	if totals[0].Model != "gpt-4o" || totals[0].CostCents != 75 || totals[0].TotalTokens != 220 {
		t.Fatalf("unexpected leading model aggregate: %+v", totals[0])
	}
	if totals[1].Model != "gpt-4o-mini" {
		t.Fatalf("unexpected trailing model %s", totals[1].Model)
	}
}
