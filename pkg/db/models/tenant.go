package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentdeck/agentdeck-backend/pkg/enums"
)

// Tenant is a workspace on the platform. Rows are never deleted; a tenant
// leaving the platform is suspended instead.
type Tenant struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string             `gorm:"column:name;not null"`
	Status           enums.TenantStatus `gorm:"column:status;not null;default:'active'"`
	StripeCustomerID *string            `gorm:"column:stripe_customer_id;unique"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
