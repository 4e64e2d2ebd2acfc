package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditTransaction is the append-only audit row written alongside every
// balance mutation. Rows are never updated or deleted.
type CreditTransaction struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index"`
	AmountCents int64      `gorm:"column:amount_cents;not null"`
	Reason      string     `gorm:"column:reason;not null"`
	InitiatedBy *uuid.UUID `gorm:"column:initiated_by;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index"`
}
