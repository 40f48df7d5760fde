package lifecycle

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// Resender republishes ticket confirmation notifications for an order.
// Sends are fire-and-forget per ticket: individual failures reduce the
// queued count instead of failing the whole request, and no order or ticket
// state is mutated, so callers may retry freely.
type Resender struct {
	store  Store
	pub    NotificationPublisher
	audit  AuditLog
	logger observability.Logger
}

func NewResender(store Store, pub NotificationPublisher, audit AuditLog, logger observability.Logger) *Resender {
	return &Resender{store: store, pub: pub, audit: audit, logger: logger}
}

func (r *Resender) Resend(ctx context.Context, orderID, actorID uuid.UUID) (int, error) {
	order, err := r.store.GetOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if err := authorize(ctx, r.store, order, actorID); err != nil {
		return 0, err
	}

	tickets, err := r.store.ListOrderTickets(ctx, orderID)
	if err != nil {
		return 0, err
	}

	var queued int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range tickets {
		if t.Status == domain.TicketCanceled {
			continue
		}
		t := t
		g.Go(func() error {
			payload, _ := json.Marshal(map[string]interface{}{
				"ticket_id": t.ID,
				"order_id":  orderID,
				"email":     t.OwnerEmail,
				"code":      t.Code,
			})
			if err := r.pub.Publish(gctx, NotificationResend, payload); err != nil {
				observability.NotifyPublishFailures.Inc()
				r.logger.WithField("ticket_id", t.ID.String()).Warn("resend publish failed: ", err)
				return nil
			}
			atomic.AddInt64(&queued, 1)
			return nil
		})
	}
	_ = g.Wait()

	appendAudit(ctx, r.audit, r.logger, orderID, domain.ActionResend, map[string]interface{}{
		"queued": queued,
	}, actorID)
	return int(queued), nil
}
