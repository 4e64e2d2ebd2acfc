package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records counters for the credit ledger surfaces.
type LedgerMetrics struct {
	adjustments   *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	usageRows     *prometheus.CounterVec
	adjustSeconds *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_adjustments_total",
		Help: "Credit adjustments applied, labelled by source.",
	}, []string{"source"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Stripe webhook deliveries processed, labelled by event type and outcome.",
	}, []string{"type", "outcome"})
	usageRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usage_rows_ingested_total",
		Help: "Usage debit rows appended by the ingest worker.",
	}, []string{"outcome"})
	adjustSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credit_adjust_duration_seconds",
		Help:    "Duration of credit adjustment transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	reg.MustRegister(adjustments, webhookEvents, usageRows, adjustSeconds)
	return &LedgerMetrics{
		adjustments:   adjustments,
		webhookEvents: webhookEvents,
		usageRows:     usageRows,
		adjustSeconds: adjustSeconds,
	}
}

// IncAdjustment counts one applied credit adjustment for the named source.
func (m *LedgerMetrics) IncAdjustment(source string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(source)).Inc()
}

// ObserveAdjustDuration records the transaction duration for the named source.
func (m *LedgerMetrics) ObserveAdjustDuration(source string, duration time.Duration) {
	if m == nil || m.adjustSeconds == nil {
		return
	}
	m.adjustSeconds.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncWebhookEvent counts one webhook delivery by event type and outcome.
func (m *LedgerMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncUsageRow counts one usage ingest attempt by outcome.
func (m *LedgerMetrics) IncUsageRow(outcome string) {
	if m == nil || m.usageRows == nil {
		return
	}
	m.usageRows.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
