package billinghistory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agentdeck/agentdeck-backend/internal/conversations"
	"github.com/agentdeck/agentdeck-backend/internal/credits"
	"github.com/agentdeck/agentdeck-backend/internal/usage"
	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	"github.com/agentdeck/agentdeck-backend/pkg/enums"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
)

const (
	defaultMaxEntries = 120
	defaultWindowDays = 30

	usageDescription = "Model usage"
)

type creditReader interface {
	GetBalance(ctx context.Context, tenantID uuid.UUID) (credits.Balance, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]models.CreditTransaction, error)
}

type usageReader interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UsageDebit, error)
	DailyTotals(ctx context.Context, tenantID uuid.UUID, windowDays int) ([]usage.DailyTotal, error)
	TotalsByModel(ctx context.Context, tenantID uuid.UUID) ([]usage.ModelTotal, error)
}

type agentCounter interface {
	CountByAgent(ctx context.Context, tenantID uuid.UUID) ([]conversations.AgentCount, error)
}

// BillingEvent is one reconciled ledger entry with its running balance.
type BillingEvent struct {
	Date              time.Time              `json:"date"`
	Type              enums.BillingEventType `json:"type"`
	AmountCents       int64                  `json:"amount_cents"`
	BalanceAfterCents int64                  `json:"balance_after_cents"`
	Description       string                 `json:"description"`
}

// Overview is the full billing view for one tenant.
type Overview struct {
	BalanceCents int64                      `json:"balance_cents"`
	RemainingPct float64                    `json:"remaining_pct"`
	Daily        []usage.DailyTotal         `json:"daily"`
	ByModel      []usage.ModelTotal         `json:"by_model"`
	ByAgent      []conversations.AgentCount `json:"by_agent"`
	Transactions []BillingEvent             `json:"transactions"`
}

// ServiceParams groups dependencies for the billing history service.
type ServiceParams struct {
	Credits       creditReader
	Usage         usageReader
	Conversations agentCounter
	Keywords      []string
	MaxEntries    int
	WindowDays    int
}

// Service reconciles the transaction log and the usage log into a single
// ledger view. The reads are not snapshot-consistent: entries landing between
// them skew the derived opening balance for that one response, which
// self-corrects on the next read.
type Service struct {
	credits       creditReader
	usage         usageReader
	conversations agentCounter
	classifier    Classifier
	maxEntries    int
	windowDays    int
}

// NewService builds a billing history service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Credits == nil {
		return nil, errors.New("credits reader is required")
	}
	if params.Usage == nil {
		return nil, errors.New("usage reader is required")
	}
	if params.Conversations == nil {
		return nil, errors.New("conversations counter is required")
	}
	maxEntries := params.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	windowDays := params.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return &Service{
		credits:       params.Credits,
		usage:         params.Usage,
		conversations: params.Conversations,
		classifier:    NewClassifier(params.Keywords),
		maxEntries:    maxEntries,
		windowDays:    windowDays,
	}, nil
}

// Overview assembles the tenant's billing view.
func (s *Service) Overview(ctx context.Context, tenantID uuid.UUID) (*Overview, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	balance, err := s.credits.GetBalance(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	daily, err := s.usage.DailyTotals(ctx, tenantID, s.windowDays)
	if err != nil {
		return nil, err
	}
	byModel, err := s.usage.TotalsByModel(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byAgent, err := s.conversations.CountByAgent(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	events, err := s.reconcile(ctx, tenantID, balance.BalanceCents)
	if err != nil {
		return nil, err
	}

	return &Overview{
		BalanceCents: balance.BalanceCents,
		RemainingPct: balance.RemainingPct,
		Daily:        daily,
		ByModel:      byModel,
		ByAgent:      byAgent,
		Transactions: events,
	}, nil
}

// reconcile merges the transaction and usage logs, derives the opening
// balance from the current one, and replays forward attaching running
// balances. Returned most-recent-first, capped.
func (s *Service) reconcile(ctx context.Context, tenantID uuid.UUID, currentBalance int64) ([]BillingEvent, error) {
	txns, err := s.credits.ListTransactions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	debits, err := s.usage.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	events := make([]BillingEvent, 0, len(txns)+len(debits))
	for _, txn := range txns {
		events = append(events, BillingEvent{
			Date:        txn.CreatedAt,
			Type:        s.classifier.Classify(txn.Reason),
			AmountCents: txn.AmountCents,
			Description: txn.Reason,
		})
	}
	for _, debit := range debits {
		events = append(events, BillingEvent{
			Date:        debit.CreatedAt,
			Type:        enums.BillingEventUsage,
			AmountCents: -debit.CostCents,
			Description: usageDescription,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})

	var sum int64
	for _, event := range events {
		sum += event.AmountCents
	}
	running := currentBalance - sum

	for i := range events {
		running += events[i].AmountCents
		events[i].BalanceAfterCents = running
	}

	// Most recent first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	if len(events) > s.maxEntries {
		events = events[:s.maxEntries]
	}
	return events, nil
}
