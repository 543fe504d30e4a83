package rabbit

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publish sends a message to the configured exchange with the configured
// routing key.
func (rb *Rabbit) Publish(ctx context.Context, msg []byte) error {
	return rb.PublishWithKey(ctx, rb.cfg.Channel.RoutingKey, msg)
}

// PublishWithKey sends a message to the configured exchange with an
// explicit routing key.
func (rb *Rabbit) PublishWithKey(ctx context.Context, routingKey string, msg []byte) error {
	select {
	case <-ctx.Done():
		rb.logger.Error("context error for publishing msg into rabbit", ctx.Err(), nil)
		return ctx.Err()
	default:
		rb.mu.RLock()
		err := rb.Channel.PublishWithContext(ctx,
			rb.cfg.Channel.ExchangeName,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType: rb.cfg.Channel.ContentType,
				Body:        msg,
			},
		)
		rb.mu.RUnlock()

		if err == nil {
			rb.logger.Debug("message published to rabbit", nil, map[string]interface{}{
				"exchange":    rb.cfg.Channel.ExchangeName,
				"routing_key": routingKey,
				"payload":     fmt.Sprintf("%v", string(msg)),
			})
			return nil
		}
		rb.logger.Error("error in publishing msg into rabbit", err, nil)
		return err
	}
}
