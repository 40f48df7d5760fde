package lifecycle

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/domain"
)

func TestResender_QueuesPerTicket(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newFakeStore()
	pub := &fakePublisher{}
	audit := &fakeAudit{}
	r := NewResender(store, pub, audit, testLogger())

	o := seedOrder(store, domain.PaymentPaid, owner)
	for i := 0; i < 3; i++ {
		id := uuid.New()
		store.tickets[id] = &domain.Ticket{ID: id, OrderID: &o.ID, Status: domain.TicketIssued, OwnerEmail: "dana@example.com"}
	}
	canceled := uuid.New()
	store.tickets[canceled] = &domain.Ticket{ID: canceled, OrderID: &o.ID, Status: domain.TicketCanceled}

	queued, err := r.Resend(ctx, o.ID, owner)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if queued != 3 {
		t.Fatalf("queued = %d, want 3 (canceled tickets skipped)", queued)
	}

	actions := audit.list(o.ID)
	if len(actions) != 1 || actions[0] != "resend" {
		t.Fatalf("audit trail = %v", actions)
	}
}

// Individual publish failures reduce the count; they never fail the call.
func TestResender_PartialFailure(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	store := newFakeStore()
	pub := &fakePublisher{failAll: true}
	r := NewResender(store, pub, &fakeAudit{}, testLogger())

	o := seedOrder(store, domain.PaymentPaid, owner)
	id := uuid.New()
	store.tickets[id] = &domain.Ticket{ID: id, OrderID: &o.ID, Status: domain.TicketIssued}

	queued, err := r.Resend(ctx, o.ID, owner)
	if err != nil {
		t.Fatalf("resend must not fail on publish errors: %v", err)
	}
	if queued != 0 {
		t.Fatalf("queued = %d, want 0", queued)
	}
}

func TestResender_Authorization(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := NewResender(store, &fakePublisher{}, &fakeAudit{}, testLogger())
	o := seedOrder(store, domain.PaymentPaid, uuid.New())

	if _, err := r.Resend(ctx, o.ID, uuid.New()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := r.Resend(ctx, uuid.New(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
