package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageDebit is an append-only record of metered model cost, written by the
// usage-ingest worker on behalf of the external metering service. The matching
// balance debit has already been applied upstream by the time a row lands
// here; this service only ever reads these rows.
type UsageDebit struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Model        string    `gorm:"column:model;not null"`
	CostCents    int64     `gorm:"column:cost_cents;not null"`
	MarginCents  int64     `gorm:"column:margin_cents;not null;default:0"`
	InputTokens  int64     `gorm:"column:input_tokens;not null;default:0"`
	OutputTokens int64     `gorm:"column:output_tokens;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime;index"`
}
