package sink

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"didledger/internal/auditlog/models"
)

// Channel is the subset of *amqp.Channel the RabbitMQ sink uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQ publishes each entry as a persistent message. An empty routing
// key routes by event type.
type RabbitMQ struct {
	channel    Channel
	exchange   string
	routingKey string
}

func NewRabbitMQ(channel Channel, exchange, routingKey string) *RabbitMQ {
	return &RabbitMQ{channel: channel, exchange: exchange, routingKey: routingKey}
}

func (r *RabbitMQ) Name() string { return "rabbitmq" }

func (r *RabbitMQ) Deliver(ctx context.Context, entry models.Entry) error {
	body, err := encode(entry)
	if err != nil {
		return err
	}
	key := r.routingKey
	if key == "" {
		key = "audit." + entry.EventType.String()
	}
	return r.channel.PublishWithContext(ctx, r.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    entry.Hash,
		Timestamp:    entry.Timestamp,
		Type:         entry.EventType.String(),
		Body:         body,
	})
}
