package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// fakeStore mirrors the repository's guard semantics in memory. WithTx holds
// a single mutex for the duration of fn, which models per-order
// serialization: a racing caller re-reads the committed state and hits the
// same guard checks the SQL conditions enforce.
type fakeStore struct {
	mu            sync.Mutex
	orders        map[uuid.UUID]*domain.Order
	tickets       map[uuid.UUID]*domain.Ticket
	types         map[uuid.UUID]*domain.TicketType
	eventOwners   map[uuid.UUID]uuid.UUID
	notifications []fakeNotification
}

type fakeNotification struct {
	Kind        string
	AggregateID uuid.UUID
	Payload     []byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:      map[uuid.UUID]*domain.Order{},
		tickets:     map[uuid.UUID]*domain.Ticket{},
		types:       map[uuid.UUID]*domain.TicketType{},
		eventOwners: map[uuid.UUID]uuid.UUID{},
	}
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *fakeStore) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return *o, nil
}

func (s *fakeStore) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return s.GetOrder(ctx, orderID)
}

func (s *fakeStore) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, to domain.PaymentStatus, allowedFrom ...domain.PaymentStatus) error {
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, from := range allowedFrom {
		if o.PaymentStatus == from {
			o.PaymentStatus = to
			return nil
		}
	}
	return domain.ErrStateConflict
}

func (s *fakeStore) StartRefund(ctx context.Context, orderID uuid.UUID, amount float64) error {
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if o.PaymentStatus != domain.PaymentPaid {
		return domain.ErrStateConflict
	}
	if o.RefundStatus != domain.RefundNone && o.RefundStatus != domain.RefundRejected {
		return domain.ErrStateConflict
	}
	o.RefundStatus = domain.RefundProcessing
	o.RefundAmount = &amount
	return nil
}

func (s *fakeStore) CompleteRefund(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if o.RefundStatus != domain.RefundProcessing || o.PaymentStatus != domain.PaymentPaid {
		return domain.ErrStateConflict
	}
	o.RefundStatus = domain.RefundRefunded
	o.PaymentStatus = domain.PaymentRefunded
	o.RefundedAt = &at
	return nil
}

func (s *fakeStore) RejectRefund(ctx context.Context, orderID uuid.UUID) error {
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if o.RefundStatus != domain.RefundProcessing || o.PaymentStatus != domain.PaymentPaid {
		return domain.ErrStateConflict
	}
	o.RefundStatus = domain.RefundRejected
	o.RefundAmount = nil
	return nil
}

func (s *fakeStore) VoidOrderTickets(ctx context.Context, orderID uuid.UUID) error {
	for _, t := range s.tickets {
		if t.OrderID != nil && *t.OrderID == orderID &&
			(t.Status == domain.TicketReserved || t.Status == domain.TicketIssued) {
			t.Status = domain.TicketCanceled
		}
	}
	return nil
}

func (s *fakeStore) RestoreOrderTickets(ctx context.Context, orderID uuid.UUID) error {
	for _, t := range s.tickets {
		if t.OrderID != nil && *t.OrderID == orderID && t.Status == domain.TicketCanceled {
			t.Status = domain.TicketIssued
		}
	}
	return nil
}

func (s *fakeStore) ListOrderTickets(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range s.tickets {
		if t.OrderID != nil && *t.OrderID == orderID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) ListCourtesyTickets(ctx context.Context, eventID uuid.UUID) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range s.tickets {
		tt, ok := s.types[t.TicketTypeID]
		if ok && tt.EventID == eventID && t.IsCourtesy {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateTicket(ctx context.Context, t domain.Ticket) error {
	copied := t
	s.tickets[t.ID] = &copied
	return nil
}

func (s *fakeStore) GetTicketType(ctx context.Context, id uuid.UUID) (domain.TicketType, error) {
	tt, ok := s.types[id]
	if !ok {
		return domain.TicketType{}, domain.ErrNotFound
	}
	return *tt, nil
}

func (s *fakeStore) ReserveCapacity(ctx context.Context, ticketTypeID uuid.UUID, n int) error {
	tt, ok := s.types[ticketTypeID]
	if !ok {
		return domain.ErrNotFound
	}
	if tt.Sold+n > tt.MaxQuantity {
		return domain.ErrCapacityExceeded
	}
	tt.Sold += n
	return nil
}

func (s *fakeStore) GetEventOwner(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	owner, ok := s.eventOwners[eventID]
	if !ok {
		return uuid.Nil, domain.ErrNotFound
	}
	return owner, nil
}

func (s *fakeStore) EnqueueNotification(ctx context.Context, kind string, aggregateID uuid.UUID, payload []byte) error {
	s.notifications = append(s.notifications, fakeNotification{Kind: kind, AggregateID: aggregateID, Payload: payload})
	return nil
}

type auditRecord struct {
	OrderID uuid.UUID
	Action  string
	Detail  map[string]interface{}
	ActorID uuid.UUID
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditRecord
	failing bool
}

func (a *fakeAudit) Append(ctx context.Context, orderID uuid.UUID, action string, detail map[string]interface{}, actorID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing {
		return domain.ErrUpstream
	}
	a.entries = append(a.entries, auditRecord{OrderID: orderID, Action: action, Detail: detail, ActorID: actorID})
	return nil
}

// list returns recorded actions newest-first, like the mongo adapter does.
func (a *fakeAudit) list(orderID uuid.UUID) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var actions []string
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].OrderID == orderID {
			actions = append(actions, a.entries[i].Action)
		}
	}
	return actions
}

type fakeAccounts struct {
	known map[string]uuid.UUID
	err   error
}

func (f *fakeAccounts) FindByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	if f.err != nil {
		return uuid.Nil, false, f.err
	}
	id, ok := f.known[email]
	return id, ok, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	failKinds map[string]bool
	failAll   bool
}

func (p *fakePublisher) Publish(ctx context.Context, kind string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll || p.failKinds[kind] {
		return domain.ErrUpstream
	}
	p.published = append(p.published, kind)
	return nil
}

func testLogger() observability.Logger {
	return observability.NewLogger()
}

func seedOrder(s *fakeStore, status domain.PaymentStatus, owner uuid.UUID) *domain.Order {
	eventID := uuid.New()
	s.eventOwners[eventID] = owner
	o := &domain.Order{
		ID:                uuid.New(),
		Code:              "ORD-0001",
		EventID:           eventID,
		OrganizationID:    uuid.New(),
		PurchaserName:     "Dana Buyer",
		PurchaserEmail:    "dana@example.com",
		TotalAmount:       150,
		Currency:          "USD",
		PaymentStatus:     status,
		ParticipantsCount: 2,
		CreatedAt:         time.Now().UTC(),
	}
	s.orders[o.ID] = o
	return o
}
