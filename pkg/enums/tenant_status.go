package enums

// TenantStatus tracks the tenant lifecycle. Tenants are never deleted, only
// suspended.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended:
		return true
	}
	return false
}
