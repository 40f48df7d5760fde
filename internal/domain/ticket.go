package domain

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketReserved    TicketStatus = "RESERVED"
	TicketIssued      TicketStatus = "ISSUED"
	TicketCanceled    TicketStatus = "CANCELED"
	TicketTransferred TicketStatus = "TRANSFERRED"
)

type Ticket struct {
	ID           uuid.UUID
	OrderID      *uuid.UUID // nil for courtesy invites not yet bound to an account
	TicketTypeID uuid.UUID
	Code         string
	PricePaid    float64
	Status       TicketStatus
	OwnerEmail   string
	IsCourtesy   bool
	CreatedAt    time.Time
}

type TicketType struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	Name        string
	Price       float64
	IsHalf      bool
	MaxQuantity int
	Sold        int
}

func (t TicketType) Remaining() int {
	return t.MaxQuantity - t.Sold
}

// NewCourtesyTicket builds a complimentary ticket for the given type. It is
// ISSUED when bound to an existing account's order-less grant, RESERVED when
// the recipient still has to create an account.
func NewCourtesyTicket(ticketTypeID uuid.UUID, email string, status TicketStatus, now time.Time) Ticket {
	return Ticket{
		ID:           uuid.New(),
		TicketTypeID: ticketTypeID,
		Code:         NewTicketCode(),
		PricePaid:    0,
		Status:       status,
		OwnerEmail:   email,
		IsCourtesy:   true,
		CreatedAt:    now,
	}
}

// NewTicketCode returns a short human-readable code, unique enough for
// support lookups; uniqueness is ultimately enforced by the store.
func NewTicketCode() string {
	id := uuid.New().String()
	return "T-" + id[:8]
}
