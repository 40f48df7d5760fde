package lifecycle

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/clock"
	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// RefundWorkflow drives the refund overlay on a paid order:
// empty/rejected -> processing -> refunded|rejected. Completion is the only
// path that produces PaymentRefunded.
type RefundWorkflow struct {
	store  Store
	audit  AuditLog
	clock  clock.Clock
	logger observability.Logger
}

func NewRefundWorkflow(store Store, audit AuditLog, clk clock.Clock, logger observability.Logger) *RefundWorkflow {
	return &RefundWorkflow{store: store, audit: audit, clock: clk, logger: logger}
}

// Start begins processing a refund. amount == nil means a full refund.
func (w *RefundWorkflow) Start(ctx context.Context, orderID uuid.UUID, amount *float64, actorID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := w.store.WithTx(ctx, func(ctx context.Context) error {
		o, err := w.store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, w.store, o, actorID); err != nil {
			return err
		}
		if !o.CanStartRefund() {
			return errors.Wrapf(domain.ErrStateConflict, "refund from payment=%s refund=%q", o.PaymentStatus, o.RefundStatus)
		}
		amt := o.TotalAmount
		if amount != nil {
			amt = *amount
		}
		if amt <= 0 || amt > o.TotalAmount {
			return errors.Wrapf(domain.ErrValidation, "refund amount %.2f out of range (0, %.2f]", amt, o.TotalAmount)
		}
		if err := w.store.StartRefund(ctx, orderID, amt); err != nil {
			return err
		}
		o.RefundStatus = domain.RefundProcessing
		o.RefundAmount = &amt
		order = o
		return nil
	})
	if err != nil {
		observability.TransitionsTotal.WithLabelValues("refund", "error").Inc()
		return domain.Order{}, err
	}
	observability.TransitionsTotal.WithLabelValues("refund", "ok").Inc()
	appendAudit(ctx, w.audit, w.logger, orderID, domain.ActionRefundStarted, map[string]interface{}{
		"amount": *order.RefundAmount,
	}, actorID)
	return order, nil
}

// Complete settles a processing refund.
func (w *RefundWorkflow) Complete(ctx context.Context, orderID, actorID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := w.store.WithTx(ctx, func(ctx context.Context) error {
		o, err := w.store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, w.store, o, actorID); err != nil {
			return err
		}
		if !o.CanSettleRefund() {
			return errors.Wrapf(domain.ErrStateConflict, "refund complete from refund=%q", o.RefundStatus)
		}
		now := w.clock.Now()
		if err := w.store.CompleteRefund(ctx, orderID, now); err != nil {
			return err
		}
		o.RefundStatus = domain.RefundRefunded
		o.PaymentStatus = domain.PaymentRefunded
		o.RefundedAt = &now
		order = o
		return nil
	})
	if err != nil {
		observability.TransitionsTotal.WithLabelValues("refund_complete", "error").Inc()
		return domain.Order{}, err
	}
	observability.TransitionsTotal.WithLabelValues("refund_complete", "ok").Inc()
	detail := map[string]interface{}{}
	if order.RefundAmount != nil {
		detail["amount"] = *order.RefundAmount
	}
	appendAudit(ctx, w.audit, w.logger, orderID, domain.ActionRefundCompleted, detail, actorID)
	return order, nil
}

// Reject declines a processing refund and clears the provisional amount. The
// order stays PAID and a later Start may run again.
func (w *RefundWorkflow) Reject(ctx context.Context, orderID, actorID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := w.store.WithTx(ctx, func(ctx context.Context) error {
		o, err := w.store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, w.store, o, actorID); err != nil {
			return err
		}
		if !o.CanSettleRefund() {
			return errors.Wrapf(domain.ErrStateConflict, "refund reject from refund=%q", o.RefundStatus)
		}
		if err := w.store.RejectRefund(ctx, orderID); err != nil {
			return err
		}
		o.RefundStatus = domain.RefundRejected
		o.RefundAmount = nil
		order = o
		return nil
	})
	if err != nil {
		observability.TransitionsTotal.WithLabelValues("refund_reject", "error").Inc()
		return domain.Order{}, err
	}
	observability.TransitionsTotal.WithLabelValues("refund_reject", "ok").Inc()
	appendAudit(ctx, w.audit, w.logger, orderID, domain.ActionRefundRejected, nil, actorID)
	return order, nil
}
