package credits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
)

// Repository manages persistence for credit accounts and their audit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureAccount(ctx context.Context, tenantID uuid.UUID) error
	GetAccount(ctx context.Context, tenantID uuid.UUID) (*models.CreditAccount, error)
	ApplyDelta(ctx context.Context, tenantID uuid.UUID, amountCents int64) error
	MarkFreeCreditUsed(ctx context.Context, tenantID uuid.UUID) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.CreditTransaction) error
	ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) EnsureAccount(ctx context.Context, tenantID uuid.UUID) error {
	account := models.CreditAccount{ID: uuid.New(), TenantID: tenantID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoNothing: true,
		}).
		Create(&account).Error
}

func (r *repository) GetAccount(ctx context.Context, tenantID uuid.UUID) (*models.CreditAccount, error) {
	var account models.CreditAccount
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyDelta shifts the balance relative to its stored value. The arithmetic
// happens in the UPDATE itself so concurrent adjustments serialize on the row
// without any read-modify-write window.
func (r *repository) ApplyDelta(ctx context.Context, tenantID uuid.UUID, amountCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.CreditAccount{}).
		Where("tenant_id = ?", tenantID).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents)).Error
}

// MarkFreeCreditUsed flips the free-credit flag and reports whether this call
// won the flip. A false return means the grant was already consumed.
func (r *repository) MarkFreeCreditUsed(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CreditAccount{}).
		Where("tenant_id = ? AND free_credit_used = ?", tenantID, false).
		Update("free_credit_used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]models.CreditTransaction, error) {
	var txns []models.CreditTransaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
