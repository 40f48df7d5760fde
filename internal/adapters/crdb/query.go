package crdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/query"
)

// Read-side queries. These never lock and are allowed to lag the write path.

func filterClause(f query.Filter) (string, []any) {
	where := `WHERE e.owner_user_id = $1`
	args := []any{f.OwnerUserID}

	if f.EventID != nil {
		args = append(args, *f.EventID)
		where += fmt.Sprintf(` AND o.event_id = $%d`, len(args))
	}
	if f.PaymentStatus != "" {
		args = append(args, string(f.PaymentStatus))
		where += fmt.Sprintf(` AND o.payment_status = $%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (o.code ILIKE $%d OR o.purchaser_name ILIKE $%d OR o.purchaser_email ILIKE $%d)`, n, n, n)
	}
	return where, args
}

func (r *Repository) ListOrders(ctx context.Context, f query.Filter) ([]domain.Order, int, error) {
	where, args := filterClause(f)

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM orders o JOIN events e ON e.id = o.event_id `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	sql := fmt.Sprintf(`
		SELECT o.id, o.code, o.event_id, o.organization_id, o.purchaser_name, o.purchaser_email,
		       o.total_amount, o.currency, o.payment_status, o.refund_status, o.refund_amount,
		       o.refunded_at, o.participants_count, o.created_at
		FROM orders o JOIN events e ON e.id = o.event_id
		%s ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// StreamOrders applies fn to every order matching the filter, oldest first,
// without pagination. Used by the CSV export.
func (r *Repository) StreamOrders(ctx context.Context, f query.Filter, fn func(domain.Order) error) error {
	where, args := filterClause(f)
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.code, o.event_id, o.organization_id, o.purchaser_name, o.purchaser_email,
		       o.total_amount, o.currency, o.payment_status, o.refund_status, o.refund_amount,
		       o.refunded_at, o.participants_count, o.created_at
		FROM orders o JOIN events e ON e.id = o.event_id
		`+where+` ORDER BY o.created_at ASC`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Repository) CountsByStatus(ctx context.Context, ownerUserID uuid.UUID, eventID *uuid.UUID) (query.Summary, error) {
	where := `WHERE e.owner_user_id = $1`
	args := []any{ownerUserID}
	if eventID != nil {
		args = append(args, *eventID)
		where += ` AND o.event_id = $2`
	}

	rows, err := r.pool.Query(ctx, `
		SELECT o.payment_status, COALESCE(o.refund_status, ''), count(*)
		FROM orders o JOIN events e ON e.id = o.event_id
		`+where+` GROUP BY 1, 2`, args...)
	if err != nil {
		return query.Summary{}, err
	}
	defer rows.Close()

	s := query.Summary{
		PaymentStatus: map[string]int{},
		RefundStatus:  map[string]int{},
	}
	for rows.Next() {
		var payment, refund string
		var n int
		if err := rows.Scan(&payment, &refund, &n); err != nil {
			return query.Summary{}, err
		}
		s.PaymentStatus[payment] += n
		if refund != "" {
			s.RefundStatus[refund] += n
		}
	}
	return s, rows.Err()
}
