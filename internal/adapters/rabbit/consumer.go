package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

const NotifyQueue = "olc.notify.q"

type Consumer struct {
	ch    *amqp.Channel
	queue string
}

// NewConsumer declares the notification queue and binds it to all ticket.*
// routing keys on the notifications exchange.
func NewConsumer(conn *amqp.Connection) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(NotifyQueue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	if err := ch.QueueBind(NotifyQueue, "ticket.*", Exchange, false, nil); err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, queue: NotifyQueue}, nil
}

func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.queue, "", false, false, false, false, nil)
}
