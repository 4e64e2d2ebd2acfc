package usageconsumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentdeck/agentdeck-backend/internal/usage"
	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
	"github.com/agentdeck/agentdeck-backend/pkg/logger"
	"github.com/agentdeck/agentdeck-backend/pkg/metrics"
)

type usageAppender interface {
	Append(ctx context.Context, params usage.AppendParams) (*models.UsageDebit, error)
}

type idempotencyChecker interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Event is the usage-recorded payload published by the metering service. The
// amounts are already priced; the consumer only persists the audit row.
type Event struct {
	EventID      string    `json:"event_id"`
	TenantID     string    `json:"tenant_id"`
	Model        string    `json:"model"`
	CostCents    int64     `json:"cost_cents"`
	MarginCents  int64     `json:"margin_cents"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Consumer persists usage events while honoring Redis idempotency. Malformed
// payloads are acknowledged and counted; redelivering them cannot make them
// parse.
type Consumer struct {
	appender usageAppender
	guard    idempotencyChecker
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
}

// NewConsumer builds a new usage consumer.
func NewConsumer(appender usageAppender, guard idempotencyChecker, logg *logger.Logger, ledgerMetrics *metrics.LedgerMetrics) (*Consumer, error) {
	if appender == nil {
		return nil, fmt.Errorf("usage appender required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		appender: appender,
		guard:    guard,
		logg:     logg,
		metrics:  ledgerMetrics,
	}, nil
}

// Process ingests one Pub/Sub message body. A nil return acknowledges the
// message; an error triggers redelivery.
func (c *Consumer) Process(ctx context.Context, data []byte) error {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		c.logg.Error(ctx, "failed to decode usage event", err)
		c.metrics.IncUsageRow("malformed")
		return nil
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":  event.EventID,
		"tenant_id": event.TenantID,
	})

	tenantID, err := uuid.Parse(event.TenantID)
	if err != nil || event.EventID == "" {
		c.logg.Warn(logCtx, "usage event missing event or tenant id")
		c.metrics.IncUsageRow("malformed")
		return nil
	}

	already, err := c.guard.CheckAndMark(ctx, event.EventID)
	if err != nil {
		c.metrics.IncUsageRow("failed")
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "usage event already processed")
		return nil
	}

	_, err = c.appender.Append(ctx, usage.AppendParams{
		TenantID:     tenantID,
		Model:        event.Model,
		CostCents:    event.CostCents,
		MarginCents:  event.MarginCents,
		InputTokens:  event.InputTokens,
		OutputTokens: event.OutputTokens,
		OccurredAt:   event.OccurredAt,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			c.logg.Warn(c.logg.WithFields(logCtx, map[string]any{"error": err.Error()}), "usage event rejected")
			c.metrics.IncUsageRow("malformed")
			return nil
		}
		c.logg.Error(logCtx, "failed to append usage row", err)
		_ = c.guard.Delete(ctx, event.EventID)
		c.metrics.IncUsageRow("failed")
		return err
	}

	c.logg.Info(logCtx, "usage event ingested")
	c.metrics.IncUsageRow("ok")
	return nil
}
