package usage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
)

// ServiceParams groups dependencies for the usage service.
type ServiceParams struct {
	Repo Repository
}

// Service exposes the metered-usage boundary: appends from the ingest worker
// and aggregate reads for the billing overview. It never touches credit
// balances; the upstream metering service already debited them.
type Service struct {
	repo Repository
}

// NewService builds a usage service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// AppendParams carries one already-priced usage event.
type AppendParams struct {
	TenantID     uuid.UUID
	Model        string
	CostCents    int64
	MarginCents  int64
	InputTokens  int64
	OutputTokens int64
	OccurredAt   time.Time
}

// DailyTotal is one day's token and cost aggregate.
type DailyTotal struct {
	Date         string `json:"date"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	TotalTokens  int64  `json:"total_tokens"`
	CostCents    int64  `json:"cost_cents"`
}

// ModelTotal is a lifetime per-model aggregate.
type ModelTotal struct {
	Model       string `json:"model"`
	TotalTokens int64  `json:"total_tokens"`
	CostCents   int64  `json:"cost_cents"`
}

// Append records one usage debit row.
func (s *Service) Append(ctx context.Context, params AppendParams) (*models.UsageDebit, error) {
	if params.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	model := strings.TrimSpace(params.Model)
	if model == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "model required")
	}
	if params.CostCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be non-negative")
	}
	if params.MarginCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "margin must be non-negative")
	}

	debit := &models.UsageDebit{
		TenantID:     params.TenantID,
		Model:        model,
		CostCents:    params.CostCents,
		MarginCents:  params.MarginCents,
		InputTokens:  params.InputTokens,
		OutputTokens: params.OutputTokens,
	}
	if !params.OccurredAt.IsZero() {
		debit.CreatedAt = params.OccurredAt
	}
	if err := s.repo.Append(ctx, debit); err != nil {
		return nil, err
	}
	return debit, nil
}

// ListByTenant returns all usage rows for the tenant, oldest first.
func (s *Service) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UsageDebit, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.ListByTenant(ctx, tenantID)
}

// DailyTotals aggregates tokens and cost per UTC day over the trailing
// window, ascending by date. Days without usage are omitted.
func (s *Service) DailyTotals(ctx context.Context, tenantID uuid.UUID, windowDays int) ([]DailyTotal, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	debits, err := s.repo.ListByTenantSince(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*DailyTotal)
	for _, debit := range debits {
		day := debit.CreatedAt.UTC().Format("2006-01-02")
		total, ok := byDay[day]
		if !ok {
			total = &DailyTotal{Date: day}
			byDay[day] = total
		}
		total.InputTokens += debit.InputTokens
		total.OutputTokens += debit.OutputTokens
		total.TotalTokens += debit.InputTokens + debit.OutputTokens
		total.CostCents += debit.CostCents
	}

	totals := make([]DailyTotal, 0, len(byDay))
	for _, total := range byDay {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Date < totals[j].Date })
	return totals, nil
}

// TotalsByModel aggregates lifetime tokens and cost per model, largest cost
// first.
func (s *Service) TotalsByModel(ctx context.Context, tenantID uuid.UUID) ([]ModelTotal, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	debits, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	byModel := make(map[string]*ModelTotal)
	for _, debit := range debits {
		total, ok := byModel[debit.Model]
		if !ok {
			total = &ModelTotal{Model: debit.Model}
			byModel[debit.Model] = total
		}
		total.TotalTokens += debit.InputTokens + debit.OutputTokens
		total.CostCents += debit.CostCents
	}

	totals := make([]ModelTotal, 0, len(byModel))
	for _, total := range byModel {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].CostCents != totals[j].CostCents {
			return totals[i].CostCents > totals[j].CostCents
		}
		return totals[i].Model < totals[j].Model
	})
	return totals, nil
}
