package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/domain"
)

// Store is the transactional order/ticket store. WithTx runs fn inside a
// single serializable transaction; every other method observes an in-flight
// transaction carried on the context, or runs standalone when none is
// present. Conditional writes return domain.ErrStateConflict when the row
// no longer satisfies the guard, never a silently stale write.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	// SetPaymentStatus is a compare-and-swap on payment_status: the update
	// applies only while the row still holds one of allowedFrom.
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, to domain.PaymentStatus, allowedFrom ...domain.PaymentStatus) error

	// StartRefund moves refund_status to processing while the order is PAID
	// and refund_status is empty or rejected.
	StartRefund(ctx context.Context, orderID uuid.UUID, amount float64) error
	// CompleteRefund settles a processing refund: refund_status=refunded,
	// payment_status=REFUNDED, refunded_at=at.
	CompleteRefund(ctx context.Context, orderID uuid.UUID, at time.Time) error
	// RejectRefund moves a processing refund to rejected and clears the amount.
	RejectRefund(ctx context.Context, orderID uuid.UUID) error

	VoidOrderTickets(ctx context.Context, orderID uuid.UUID) error
	RestoreOrderTickets(ctx context.Context, orderID uuid.UUID) error
	ListOrderTickets(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error)
	ListCourtesyTickets(ctx context.Context, eventID uuid.UUID) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, t domain.Ticket) error

	GetTicketType(ctx context.Context, id uuid.UUID) (domain.TicketType, error)
	// ReserveCapacity atomically increments sold by n while sold+n stays
	// within max_quantity; domain.ErrCapacityExceeded otherwise.
	ReserveCapacity(ctx context.Context, ticketTypeID uuid.UUID, n int) error

	GetEventOwner(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error)

	// EnqueueNotification inserts an outbox record in the current transaction.
	EnqueueNotification(ctx context.Context, kind string, aggregateID uuid.UUID, payload []byte) error
}

// AuditLog records completed transitions. Appends are best-effort: the
// caller's transition stands even when the append fails.
type AuditLog interface {
	Append(ctx context.Context, orderID uuid.UUID, action string, detail map[string]interface{}, actorID uuid.UUID) error
}

// AccountDirectory resolves recipient emails against the platform's account
// store (a read view owned by another system).
type AccountDirectory interface {
	FindByEmail(ctx context.Context, email string) (uuid.UUID, bool, error)
}

// NotificationPublisher delivers fire-and-forget notification messages.
type NotificationPublisher interface {
	Publish(ctx context.Context, kind string, payload []byte) error
}
