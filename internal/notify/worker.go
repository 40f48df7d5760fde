package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/order-lifecycle/internal/adapters/rabbit"
	"github.com/robertarktes/order-lifecycle/internal/lifecycle"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// Sender delivers the two notification mails. Satisfied by *Mailer.
type Sender interface {
	SendInvite(email, ticketCode string) error
	SendTicket(email, ticketCode string) error
}

// Worker consumes notification messages and delivers mail. Messages are
// acked only after a successful send; transient failures are requeued once
// by the broker.
type Worker struct {
	consumer *rabbit.Consumer
	mailer   Sender
	logger   observability.Logger
}

func NewWorker(consumer *rabbit.Consumer, mailer Sender, logger observability.Logger) *Worker {
	return &Worker{consumer: consumer, mailer: mailer, logger: logger}
}

type message struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(d)
		}
	}
}

func (w *Worker) handle(d amqp.Delivery) {
	var msg message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.logger.Warn("dropping malformed notification: ", err)
		_ = d.Nack(false, false)
		return
	}

	var err error
	switch d.RoutingKey {
	case lifecycle.NotificationInvite:
		err = w.mailer.SendInvite(msg.Email, msg.Code)
	case lifecycle.NotificationResend:
		err = w.mailer.SendTicket(msg.Email, msg.Code)
	default:
		w.logger.WithField("routing_key", d.RoutingKey).Warn("unknown notification kind")
		_ = d.Nack(false, false)
		return
	}

	if err != nil {
		w.logger.WithField("email", msg.Email).Warn("mail send failed: ", err)
		// Requeue once; a redelivered message that fails again is dropped.
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}
