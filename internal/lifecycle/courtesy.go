package lifecycle

import (
	"context"
	"encoding/json"
	"net/mail"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/clock"
	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

const (
	NotificationInvite = "ticket.invite"
	NotificationResend = "ticket.resend"
)

// CourtesyIssuer issues complimentary tickets. The capacity slot is reserved
// before the recipient's account is resolved, so there is no oversell window
// between deciding to issue and confirming identity.
type CourtesyIssuer struct {
	store    Store
	accounts AccountDirectory
	audit    AuditLog
	clock    clock.Clock
	logger   observability.Logger
}

func NewCourtesyIssuer(store Store, accounts AccountDirectory, audit AuditLog, clk clock.Clock, logger observability.Logger) *CourtesyIssuer {
	return &CourtesyIssuer{store: store, accounts: accounts, audit: audit, clock: clk, logger: logger}
}

type IssueResult struct {
	Ticket   domain.Ticket
	Assigned bool
	Invited  bool
}

func (c *CourtesyIssuer) Issue(ctx context.Context, eventID, ticketTypeID uuid.UUID, email string, issuerID uuid.UUID) (IssueResult, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return IssueResult{}, errors.Wrapf(domain.ErrValidation, "recipient email %q", email)
	}

	var res IssueResult
	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		owner, err := c.store.GetEventOwner(ctx, eventID)
		if err != nil {
			return err
		}
		if owner != issuerID {
			return errors.Wrapf(domain.ErrUnauthorized, "user %s does not own event %s", issuerID, eventID)
		}

		tt, err := c.store.GetTicketType(ctx, ticketTypeID)
		if err != nil {
			return err
		}
		if tt.EventID != eventID {
			return errors.Wrapf(domain.ErrValidation, "ticket type %s does not belong to event %s", ticketTypeID, eventID)
		}
		if tt.IsHalf {
			return errors.Wrap(domain.ErrValidation, "half-price types are not eligible for courtesy issuance")
		}

		// Reserve before resolving the recipient so the slot is held either way.
		if err := c.store.ReserveCapacity(ctx, ticketTypeID, 1); err != nil {
			return err
		}

		accountID, found, err := c.accounts.FindByEmail(ctx, email)
		if err != nil {
			return errors.Wrap(domain.ErrUpstream, err.Error())
		}

		if found {
			t := domain.NewCourtesyTicket(ticketTypeID, email, domain.TicketIssued, c.clock.Now())
			if err := c.store.CreateTicket(ctx, t); err != nil {
				return err
			}
			res = IssueResult{Ticket: t, Assigned: true}
			c.logger.WithField("account_id", accountID.String()).Debug("courtesy ticket assigned")
			return nil
		}

		t := domain.NewCourtesyTicket(ticketTypeID, email, domain.TicketReserved, c.clock.Now())
		if err := c.store.CreateTicket(ctx, t); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"ticket_id": t.ID,
			"event_id":  eventID,
			"email":     email,
			"code":      t.Code,
		})
		if err := c.store.EnqueueNotification(ctx, NotificationInvite, t.ID, payload); err != nil {
			return err
		}
		res = IssueResult{Ticket: t, Invited: true}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			observability.CapacityRejections.Inc()
		}
		return IssueResult{}, err
	}

	appendAudit(ctx, c.audit, c.logger, uuid.Nil, domain.ActionCourtesyIssued, map[string]interface{}{
		"event_id":       eventID.String(),
		"ticket_type_id": ticketTypeID.String(),
		"email":          email,
	}, issuerID)
	return res, nil
}

func (c *CourtesyIssuer) ListCourtesies(ctx context.Context, eventID, actorID uuid.UUID) ([]domain.Ticket, error) {
	owner, err := c.store.GetEventOwner(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if owner != actorID {
		return nil, errors.Wrapf(domain.ErrUnauthorized, "user %s does not own event %s", actorID, eventID)
	}
	return c.store.ListCourtesyTickets(ctx, eventID)
}
