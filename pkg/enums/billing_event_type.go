package enums

// BillingEventType classifies a reconciled ledger entry for display.
type BillingEventType string

const (
	BillingEventGrant    BillingEventType = "grant"
	BillingEventPurchase BillingEventType = "purchase"
	BillingEventUsage    BillingEventType = "usage"
)

func (t BillingEventType) IsValid() bool {
	switch t {
	case BillingEventGrant, BillingEventPurchase, BillingEventUsage:
		return true
	}
	return false
}
