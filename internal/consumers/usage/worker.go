package usageconsumer

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/agentdeck/agentdeck-backend/pkg/logger"
)

// Runner pumps the usage subscription into the consumer. A nil Process error
// acks the message; anything else nacks it so Pub/Sub redelivers.
type Runner struct {
	subscription *gcppubsub.Subscriber
	consumer     *Consumer
	logg         *logger.Logger
}

// NewRunner builds a usage worker runner.
func NewRunner(subscription *gcppubsub.Subscriber, consumer *Consumer, logg *logger.Logger) (*Runner, error) {
	if subscription == nil {
		return nil, errors.New("usage subscription is required")
	}
	if consumer == nil {
		return nil, errors.New("usage consumer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Runner{
		subscription: subscription,
		consumer:     consumer,
		logg:         logg,
	}, nil
}

// Run consumes usage messages until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return r.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		logCtx := r.logg.WithField(innerCtx, "message_id", msg.ID)
		if err := r.consumer.Process(logCtx, msg.Data); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
