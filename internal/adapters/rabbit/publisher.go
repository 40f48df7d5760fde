package rabbit

import (
	"context"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "olc.notifications"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

// Publish routes a notification payload by kind (e.g. ticket.invite,
// ticket.resend). Delivery is fire-and-forget; callers that care count
// failures, they do not fail their request.
func (p *Publisher) Publish(ctx context.Context, kind string, payload []byte) error {
	return p.PublishWithID(ctx, kind, uuid.New().String(), payload)
}

// PublishWithID publishes under a caller-chosen message id. At-least-once
// senders like the outbox pass a stable id so a record republished after a
// failed ack carries the same MessageId and consumers can de-duplicate.
func (p *Publisher) PublishWithID(ctx context.Context, kind, messageID string, payload []byte) error {
	return p.ch.PublishWithContext(ctx, Exchange, kind, false, false, amqp.Publishing{
		MessageId:   messageID,
		ContentType: "application/json",
		Body:        payload,
	})
}
