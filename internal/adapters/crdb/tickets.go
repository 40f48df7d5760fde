package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/order-lifecycle/internal/domain"
)

func (r *Repository) CreateTicket(ctx context.Context, t domain.Ticket) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO tickets (id, order_id, ticket_type_id, code, price_paid, status, owner_email, is_courtesy, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.OrderID, t.TicketTypeID, t.Code, t.PricePaid, string(t.Status), t.OwnerEmail, t.IsCourtesy, t.CreatedAt)
	return err
}

// VoidOrderTickets cancels the order's tickets. Transferred tickets stay with
// their new owner.
func (r *Repository) VoidOrderTickets(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE tickets SET status = 'CANCELED'
		WHERE order_id = $1 AND status IN ('RESERVED', 'ISSUED')
	`, orderID)
	return err
}

// RestoreOrderTickets undoes VoidOrderTickets when an order is reopened.
func (r *Repository) RestoreOrderTickets(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE tickets SET status = 'ISSUED'
		WHERE order_id = $1 AND status = 'CANCELED'
	`, orderID)
	return err
}

func (r *Repository) ListOrderTickets(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, order_id, ticket_type_id, code, price_paid, status, owner_email, is_courtesy, created_at
		FROM tickets WHERE order_id = $1 ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

func (r *Repository) ListCourtesyTickets(ctx context.Context, eventID uuid.UUID) ([]domain.Ticket, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT t.id, t.order_id, t.ticket_type_id, t.code, t.price_paid, t.status, t.owner_email, t.is_courtesy, t.created_at
		FROM tickets t
		JOIN ticket_types tt ON tt.id = t.ticket_type_id
		WHERE tt.event_id = $1 AND t.is_courtesy ORDER BY t.created_at DESC
	`, eventID)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var status string
		if err := rows.Scan(&t.ID, &t.OrderID, &t.TicketTypeID, &t.Code, &t.PricePaid, &status, &t.OwnerEmail, &t.IsCourtesy, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Status = domain.TicketStatus(status)
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *Repository) GetTicketType(ctx context.Context, id uuid.UUID) (domain.TicketType, error) {
	var tt domain.TicketType
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, event_id, name, price, is_half, max_quantity, sold
		FROM ticket_types WHERE id = $1
	`, id).Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Price, &tt.IsHalf, &tt.MaxQuantity, &tt.Sold)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TicketType{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TicketType{}, err
	}
	return tt, nil
}

// ReserveCapacity is the only write path for sold counters. The conditional
// increment keeps sold <= max_quantity under any interleaving: with exactly N
// slots left, N concurrent callers succeed and the rest get
// domain.ErrCapacityExceeded.
func (r *Repository) ReserveCapacity(ctx context.Context, ticketTypeID uuid.UUID, n int) error {
	if n <= 0 {
		return errors.Wrapf(domain.ErrValidation, "reserve count %d", n)
	}
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE ticket_types SET sold = sold + $2
		WHERE id = $1 AND sold + $2 <= max_quantity
	`, ticketTypeID, n)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetTicketType(ctx, ticketTypeID); err != nil {
			return err
		}
		return domain.ErrCapacityExceeded
	}
	return nil
}
