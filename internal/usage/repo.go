package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
)

// Repository persists and reads usage debit rows. The table is append-only:
// no update or delete paths exist.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, debit *models.UsageDebit) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UsageDebit, error)
	ListByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]models.UsageDebit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, debit *models.UsageDebit) error {
	if debit.ID == uuid.Nil {
		debit.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(debit).Error
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UsageDebit, error) {
	var debits []models.UsageDebit
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&debits).Error; err != nil {
		return nil, err
	}
	return debits, nil
}

func (r *repository) ListByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]models.UsageDebit, error) {
	var debits []models.UsageDebit
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Order("created_at ASC").
		Find(&debits).Error; err != nil {
		return nil, err
	}
	return debits, nil
}
