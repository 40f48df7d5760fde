package lifecycle

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// TransitionEngine applies payment-status transitions. Every transition is a
// single serializable transaction around a locked read, a guard check, and a
// compare-and-swap write; a losing concurrent caller gets
// domain.ErrStateConflict.
type TransitionEngine struct {
	store  Store
	audit  AuditLog
	logger observability.Logger
}

func NewTransitionEngine(store Store, audit AuditLog, logger observability.Logger) *TransitionEngine {
	return &TransitionEngine{store: store, audit: audit, logger: logger}
}

func (e *TransitionEngine) Pay(ctx context.Context, orderID, actorID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		o, err := e.store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, e.store, o, actorID); err != nil {
			return err
		}
		if !o.CanPay() {
			return errors.Wrapf(domain.ErrStateConflict, "pay from %s", o.PaymentStatus)
		}
		if err := e.store.SetPaymentStatus(ctx, orderID, domain.PaymentPaid, domain.PaymentPending); err != nil {
			return err
		}
		o.PaymentStatus = domain.PaymentPaid
		order = o
		return nil
	})
	if err != nil {
		observability.TransitionsTotal.WithLabelValues("pay", "error").Inc()
		return domain.Order{}, err
	}
	observability.TransitionsTotal.WithLabelValues("pay", "ok").Inc()
	appendAudit(ctx, e.audit, e.logger, orderID, domain.ActionPaid, nil, actorID)
	return order, nil
}

// Cancel voids the order's non-transferred tickets in the same transaction.
// Capacity is not released; Reopen therefore never re-races the ledger.
func (e *TransitionEngine) Cancel(ctx context.Context, orderID, actorID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		o, err := e.store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, e.store, o, actorID); err != nil {
			return err
		}
		if !o.CanCancel() {
			return errors.Wrapf(domain.ErrStateConflict, "cancel from %s", o.PaymentStatus)
		}
		if err := e.store.SetPaymentStatus(ctx, orderID, domain.PaymentCanceled, domain.PaymentPending, domain.PaymentPaid); err != nil {
			return err
		}
		if err := e.store.VoidOrderTickets(ctx, orderID); err != nil {
			return err
		}
		o.PaymentStatus = domain.PaymentCanceled
		order = o
		return nil
	})
	if err != nil {
		observability.TransitionsTotal.WithLabelValues("cancel", "error").Inc()
		return domain.Order{}, err
	}
	observability.TransitionsTotal.WithLabelValues("cancel", "ok").Inc()
	appendAudit(ctx, e.audit, e.logger, orderID, domain.ActionCanceled, nil, actorID)
	return order, nil
}

func (e *TransitionEngine) Reopen(ctx context.Context, orderID, actorID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		o, err := e.store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, e.store, o, actorID); err != nil {
			return err
		}
		if !o.CanReopen() {
			return errors.Wrapf(domain.ErrStateConflict, "reopen from %s", o.PaymentStatus)
		}
		if err := e.store.SetPaymentStatus(ctx, orderID, domain.PaymentPending, domain.PaymentCanceled); err != nil {
			return err
		}
		if err := e.store.RestoreOrderTickets(ctx, orderID); err != nil {
			return err
		}
		o.PaymentStatus = domain.PaymentPending
		order = o
		return nil
	})
	if err != nil {
		observability.TransitionsTotal.WithLabelValues("reopen", "error").Inc()
		return domain.Order{}, err
	}
	observability.TransitionsTotal.WithLabelValues("reopen", "ok").Inc()
	appendAudit(ctx, e.audit, e.logger, orderID, domain.ActionReopened, nil, actorID)
	return order, nil
}

// authorize checks that the actor owns the event the order belongs to.
func authorize(ctx context.Context, store Store, o domain.Order, actorID uuid.UUID) error {
	owner, err := store.GetEventOwner(ctx, o.EventID)
	if err != nil {
		return err
	}
	if owner != actorID {
		return errors.Wrapf(domain.ErrUnauthorized, "user %s does not own event %s", actorID, o.EventID)
	}
	return nil
}

// appendAudit is best-effort: an audit failure after the transition has
// committed is logged, never propagated.
func appendAudit(ctx context.Context, audit AuditLog, logger observability.Logger, orderID uuid.UUID, action string, detail map[string]interface{}, actorID uuid.UUID) {
	if err := audit.Append(ctx, orderID, action, detail, actorID); err != nil {
		logger.WithField("order_id", orderID.String()).Error("audit append failed: ", err)
	}
}
