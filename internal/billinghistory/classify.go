package billinghistory

import (
	"strings"

	"github.com/agentdeck/agentdeck-backend/pkg/enums"
)

// Classifier maps free-text transaction reasons onto billing event types.
// Classification is keyword-based: any configured keyword appearing in the
// reason marks the entry a purchase, everything else is a grant. Usage events
// never pass through here; they come from the usage table directly.
type Classifier struct {
	keywords []string
}

// NewClassifier builds a classifier from configured purchase keywords.
// Matching is case-insensitive substring containment.
func NewClassifier(keywords []string) Classifier {
	normalized := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if trimmed := strings.ToLower(strings.TrimSpace(keyword)); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return Classifier{keywords: normalized}
}

// Classify returns the event type for a credit transaction reason.
func (c Classifier) Classify(reason string) enums.BillingEventType {
	lowered := strings.ToLower(reason)
	for _, keyword := range c.keywords {
		if strings.Contains(lowered, keyword) {
			return enums.BillingEventPurchase
		}
	}
	return enums.BillingEventGrant
}
