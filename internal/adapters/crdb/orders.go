package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/order-lifecycle/internal/domain"
)

const orderColumns = `
	id, code, event_id, organization_id, purchaser_name, purchaser_email,
	total_amount, currency, payment_status, refund_status, refund_amount,
	refunded_at, participants_count, created_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var refundStatus *string
	err := row.Scan(
		&o.ID, &o.Code, &o.EventID, &o.OrganizationID, &o.PurchaserName,
		&o.PurchaserEmail, &o.TotalAmount, &o.Currency, &o.PaymentStatus,
		&refundStatus, &o.RefundAmount, &o.RefundedAt, &o.ParticipantsCount,
		&o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	if refundStatus != nil {
		o.RefundStatus = domain.RefundStatus(*refundStatus)
	}
	return o, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, orderID)
	return scanOrder(row)
}

func (r *Repository) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	return scanOrder(row)
}

// SetPaymentStatus applies the transition only while payment_status still
// holds one of allowedFrom; zero rows affected means a concurrent writer won.
func (r *Repository) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, to domain.PaymentStatus, allowedFrom ...domain.PaymentStatus) error {
	from := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		from[i] = string(s)
	}
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE orders SET payment_status = $2
		WHERE id = $1 AND payment_status = ANY($3)
	`, orderID, string(to), from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

func (r *Repository) StartRefund(ctx context.Context, orderID uuid.UUID, amount float64) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE orders SET refund_status = 'processing', refund_amount = $2
		WHERE id = $1 AND payment_status = 'PAID'
		  AND (refund_status IS NULL OR refund_status = 'rejected')
	`, orderID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

func (r *Repository) CompleteRefund(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE orders SET refund_status = 'refunded', payment_status = 'REFUNDED', refunded_at = $2
		WHERE id = $1 AND refund_status = 'processing' AND payment_status = 'PAID'
	`, orderID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

func (r *Repository) RejectRefund(ctx context.Context, orderID uuid.UUID) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE orders SET refund_status = 'rejected', refund_amount = NULL
		WHERE id = $1 AND refund_status = 'processing' AND payment_status = 'PAID'
	`, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

func (r *Repository) GetEventOwner(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.q(ctx).QueryRow(ctx, `SELECT owner_user_id FROM events WHERE id = $1`, eventID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return owner, nil
}
