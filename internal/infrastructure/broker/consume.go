package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// Handler processes one delivery. A nil return acks the message; any other
// return nacks it without requeue — a poison message goes to the dead end
// of the queue once, not back around forever.
type Handler func(ctx context.Context, d amqp.Delivery) error

// RunConsumer drains deliveries from queueName until ctx is cancelled or
// the delivery channel closes, dispatching each one to handler. Intended
// to be run inside an errgroup.Group so multiple queues can be consumed
// concurrently and a single queue's failure cancels the whole group.
func (b *Broker) RunConsumer(ctx context.Context, queueName, consumerTag string, handler Handler) error {
	deliveries, err := b.Consume(queueName, consumerTag)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", queueName)
			}
			if err := handler(ctx, d); err != nil {
				logger.Default().Error("consumer handler failed",
					"queue", queueName, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
