package conversations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
)

// AgentCount is the per-agent message tally shown on the billing overview.
type AgentCount struct {
	Agent        string `json:"agent"`
	MessageCount int64  `json:"message_count"`
}

// Repository reads the conversation store. Writes happen in the conversation
// service; billing only counts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountByAgent(ctx context.Context, tenantID uuid.UUID) ([]AgentCount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a conversations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CountByAgent(ctx context.Context, tenantID uuid.UUID) ([]AgentCount, error) {
	var counts []AgentCount
	if err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("agent, COUNT(*) AS message_count").
		Where("tenant_id = ?", tenantID).
		Group("agent").
		Order("agent ASC").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
