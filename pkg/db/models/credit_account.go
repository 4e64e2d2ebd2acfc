package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditAccount holds the authoritative prepaid balance for one tenant.
// Exactly zero or one row exists per tenant; the row is only ever mutated
// through the credits service's atomic adjust path.
type CreditAccount struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex"`
	BalanceCents   int64     `gorm:"column:balance_cents;not null;default:0"`
	FreeCreditUsed bool      `gorm:"column:free_credit_used;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
