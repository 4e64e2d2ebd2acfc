package models

import (
	"time"

	"github.com/google/uuid"
)

// Message mirrors the conversation store's rows. The billing surface only
// counts them per agent; writes happen in the conversation service.
type Message struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Agent     string    `gorm:"column:agent;not null"`
	Role      string    `gorm:"column:role;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
