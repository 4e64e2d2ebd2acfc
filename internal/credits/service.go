package credits

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
	"github.com/agentdeck/agentdeck-backend/pkg/metrics"
)

// InitialGrantCents is the free credit every tenant receives on provisioning.
// It also serves as the baseline for the remaining-percentage gauge.
const InitialGrantCents int64 = 1000

const initialGrantReason = "Initial free credits"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the credits service.
type ServiceParams struct {
	TX      txRunner
	Repo    Repository
	Metrics *metrics.LedgerMetrics
}

// Service owns every mutation of tenant credit balances.
type Service struct {
	tx      txRunner
	repo    Repository
	metrics *metrics.LedgerMetrics
}

// NewService builds a credits service.
func NewService(params ServiceParams) (*Service, error) {
	if params.TX == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{tx: params.TX, repo: params.Repo, metrics: params.Metrics}, nil
}

// AdjustParams describes a single signed balance mutation.
type AdjustParams struct {
	TenantID    uuid.UUID
	AmountCents int64
	Reason      string
	InitiatedBy *uuid.UUID
	Source      string
}

// Balance is the read-side view of an account.
type Balance struct {
	BalanceCents int64
	RemainingPct float64
}

// EnsureAccount lazily creates the tenant's zero-balance account. Safe to
// call any number of times.
func (s *Service) EnsureAccount(ctx context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.EnsureAccount(ctx, tenantID)
}

// Adjust applies a signed delta to the tenant's balance and records the audit
// row in the same transaction. It returns the post-adjustment balance.
// Negative balances are allowed; suspension policy lives elsewhere.
func (s *Service) Adjust(ctx context.Context, params AdjustParams) (int64, error) {
	if params.TenantID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if params.AmountCents == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}

	started := time.Now()
	var newBalance int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.EnsureAccount(ctx, params.TenantID); err != nil {
			return err
		}
		if err := repo.ApplyDelta(ctx, params.TenantID, params.AmountCents); err != nil {
			return err
		}
		txn := &models.CreditTransaction{
			TenantID:    params.TenantID,
			AmountCents: params.AmountCents,
			Reason:      reason,
			InitiatedBy: params.InitiatedBy,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		account, err := repo.GetAccount(ctx, params.TenantID)
		if err != nil {
			return err
		}
		newBalance = account.BalanceCents
		return nil
	})
	if err != nil {
		return 0, err
	}

	source := params.Source
	if source == "" {
		source = "api"
	}
	s.metrics.IncAdjustment(source)
	s.metrics.ObserveAdjustDuration(source, time.Since(started))

	return newBalance, nil
}

// GetBalance reads the current balance. A tenant without an account reads as
// zero rather than an error.
func (s *Service) GetBalance(ctx context.Context, tenantID uuid.UUID) (Balance, error) {
	if tenantID == uuid.Nil {
		return Balance{}, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	account, err := s.repo.GetAccount(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Balance{BalanceCents: 0, RemainingPct: 0}, nil
		}
		return Balance{}, err
	}

	return Balance{
		BalanceCents: account.BalanceCents,
		RemainingPct: remainingPct(account.BalanceCents),
	}, nil
}

// Grant seeds the initial free credits exactly once per tenant. The second
// and later calls are no-ops and report granted=false.
func (s *Service) Grant(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	if tenantID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	granted := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.EnsureAccount(ctx, tenantID); err != nil {
			return err
		}
		won, err := repo.MarkFreeCreditUsed(ctx, tenantID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		if err := repo.ApplyDelta(ctx, tenantID, InitialGrantCents); err != nil {
			return err
		}
		txn := &models.CreditTransaction{
			TenantID:    tenantID,
			AmountCents: InitialGrantCents,
			Reason:      initialGrantReason,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if granted {
		s.metrics.IncAdjustment("grant")
	}
	return granted, nil
}

// ListTransactions returns the tenant's audit log, oldest first.
func (s *Service) ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]models.CreditTransaction, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return s.repo.ListTransactions(ctx, tenantID)
}

func remainingPct(balanceCents int64) float64 {
	pct := float64(balanceCents) / float64(InitialGrantCents) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
