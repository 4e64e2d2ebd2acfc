package tenants

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	"github.com/agentdeck/agentdeck-backend/pkg/enums"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
)

type granter interface {
	EnsureAccount(ctx context.Context, tenantID uuid.UUID) error
	Grant(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

// ServiceParams groups dependencies for the tenants service.
type ServiceParams struct {
	Repo    Repository
	Credits granter
}

// Service owns the tenant lifecycle.
type Service struct {
	repo    Repository
	credits granter
}

// NewService builds a tenants service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Credits == nil {
		return nil, errors.New("credits service is required")
	}
	return &Service{repo: params.Repo, credits: params.Credits}, nil
}

// Create provisions a tenant and seeds its initial free credits.
func (s *Service) Create(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant name required")
	}

	tenant := &models.Tenant{
		Name:   name,
		Status: enums.TenantStatusActive,
	}
	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, err
	}
	if _, err := s.credits.Grant(ctx, tenant.ID); err != nil {
		return nil, err
	}
	return tenant, nil
}

// GetByID fetches a tenant, mapping a missing row to a not-found error.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, err
	}
	return tenant, nil
}

// Suspend marks the tenant suspended. Compute enforcement happens elsewhere;
// this is status bookkeeping only.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.setStatus(ctx, id, enums.TenantStatusSuspended)
}

// Resume reactivates a suspended tenant.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.setStatus(ctx, id, enums.TenantStatusActive)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status enums.TenantStatus) (*models.Tenant, error) {
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status == status {
		return tenant, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	tenant.Status = status
	return tenant, nil
}

// AttachStripeCustomer persists the gateway customer id minted on first
// checkout.
func (s *Service) AttachStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe customer id required")
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateStripeCustomerID(ctx, id, customerID)
}
