package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/order-lifecycle/internal/adapters/mongo"
	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/idempotency"
	"github.com/robertarktes/order-lifecycle/internal/lifecycle"
	"github.com/robertarktes/order-lifecycle/internal/observability"
	"github.com/robertarktes/order-lifecycle/internal/query"
)

type Handlers struct {
	repo     *crdb.Repository
	engine   *lifecycle.TransitionEngine
	refunds  *lifecycle.RefundWorkflow
	courtesy *lifecycle.CourtesyIssuer
	resender *lifecycle.Resender
	queries  *query.Service
	audit    *mongoadapter.AuditLog
	idemp    *idempotency.Idempotency
	validate *validator.Validate
	logger   observability.Logger
}

func NewHandlers(
	repo *crdb.Repository,
	engine *lifecycle.TransitionEngine,
	refunds *lifecycle.RefundWorkflow,
	courtesy *lifecycle.CourtesyIssuer,
	resender *lifecycle.Resender,
	queries *query.Service,
	audit *mongoadapter.AuditLog,
	idemp *idempotency.Idempotency,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		repo:     repo,
		engine:   engine,
		refunds:  refunds,
		courtesy: courtesy,
		resender: resender,
		queries:  queries,
		audit:    audit,
		idemp:    idemp,
		validate: validator.New(),
		logger:   logger,
	}
}

// replayIdempotent writes the cached response for a repeated Idempotency-Key
// and reports whether it did. Keys are optional; guards stay authoritative.
// The caller resolves the actor first, so replay only ever serves a response
// back to the user who cached it.
func (h *Handlers) replayIdempotent(w http.ResponseWriter, r *http.Request, actor uuid.UUID) bool {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idemp == nil {
		return false
	}
	cached, err := h.idemp.Get(r.Context(), actor, key)
	if err != nil {
		h.logger.Warn("idempotency read failed: ", err)
		return false
	}
	if cached == nil {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(cached.Status)
	w.Write(cached.Result)
	return true
}

func (h *Handlers) remember(r *http.Request, actor uuid.UUID, status int, body interface{}) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idemp == nil {
		return
	}
	data, _ := json.Marshal(body)
	if err := h.idemp.Set(r.Context(), actor, key, idempotency.Response{Status: status, Result: data}); err != nil {
		h.logger.Warn("idempotency write failed: ", err)
	}
}

const timeRFC3339 = time.RFC3339

func intQuery(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.Wrap(domain.ErrValidation, "invalid order id")
	}
	return id, nil
}

// actorID resolves the caller from the userId body field or query parameter.
func actorID(r *http.Request, bodyUserID string) (uuid.UUID, error) {
	raw := bodyUserID
	if raw == "" {
		raw = r.URL.Query().Get("userId")
	}
	if raw == "" {
		return uuid.Nil, errors.Wrap(domain.ErrValidation, "userId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Wrap(domain.ErrValidation, "invalid userId")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && err != io.EOF {
		return errors.Wrap(domain.ErrValidation, "malformed request body")
	}
	return nil
}

type transitionRequest struct {
	UserID string `json:"userId"`
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request,
	apply func(orderID, actor uuid.UUID) (domain.Order, error)) {
	id, err := orderIDParam(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	actor, err := actorID(r, req.UserID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if h.replayIdempotent(w, r, actor) {
		return
	}

	order, err := apply(id, actor)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	resp := map[string]interface{}{"status": "ok", "paymentStatus": order.PaymentStatus}
	writeJSON(w, http.StatusOK, resp)
	h.remember(r, actor, http.StatusOK, resp)
}

func (h *Handlers) Pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) (domain.Order, error) {
		return h.engine.Pay(r.Context(), orderID, actor)
	})
}

func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) (domain.Order, error) {
		return h.engine.Cancel(r.Context(), orderID, actor)
	})
}

func (h *Handlers) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID, actor uuid.UUID) (domain.Order, error) {
		return h.engine.Reopen(r.Context(), orderID, actor)
	})
}

type refundRequest struct {
	UserID string   `json:"userId"`
	Amount *float64 `json:"amount"`
}

func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := orderIDParam(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	var req refundRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	actor, err := actorID(r, req.UserID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if h.replayIdempotent(w, r, actor) {
		return
	}

	order, err := h.refunds.Start(r.Context(), id, req.Amount, actor)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	resp := map[string]interface{}{
		"status":       "ok",
		"refundStatus": order.RefundStatus,
		"amount":       *order.RefundAmount,
	}
	writeJSON(w, http.StatusOK, resp)
	h.remember(r, actor, http.StatusOK, resp)
}

func (h *Handlers) RefundComplete(w http.ResponseWriter, r *http.Request) {
	h.settleRefund(w, r, h.refunds.Complete)
}

func (h *Handlers) RefundReject(w http.ResponseWriter, r *http.Request) {
	h.settleRefund(w, r, h.refunds.Reject)
}

func (h *Handlers) settleRefund(w http.ResponseWriter, r *http.Request,
	settle func(ctx context.Context, orderID, actor uuid.UUID) (domain.Order, error)) {
	id, err := orderIDParam(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	actor, err := actorID(r, req.UserID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if h.replayIdempotent(w, r, actor) {
		return
	}

	order, err := settle(r.Context(), id, actor)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	resp := map[string]interface{}{
		"status":        "ok",
		"refundStatus":  order.RefundStatus,
		"paymentStatus": order.PaymentStatus,
	}
	if order.RefundAmount != nil {
		resp["amount"] = *order.RefundAmount
	}
	writeJSON(w, http.StatusOK, resp)
	h.remember(r, actor, http.StatusOK, resp)
}

func (h *Handlers) Resend(w http.ResponseWriter, r *http.Request) {
	id, err := orderIDParam(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	actor, err := actorID(r, req.UserID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}

	queued, err := h.resender.Resend(r.Context(), id, actor)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "queued": queued})
}

type orderDTO struct {
	ID                uuid.UUID            `json:"id"`
	Code              string               `json:"code"`
	EventID           uuid.UUID            `json:"eventId"`
	PurchaserName     string               `json:"purchaserName"`
	PurchaserEmail    string               `json:"purchaserEmail"`
	TotalAmount       float64              `json:"totalAmount"`
	Currency          string               `json:"currency"`
	PaymentStatus     domain.PaymentStatus `json:"paymentStatus"`
	RefundStatus      domain.RefundStatus  `json:"refundStatus,omitempty"`
	RefundAmount      *float64             `json:"refundAmount,omitempty"`
	RefundedAt        *string              `json:"refundedAt,omitempty"`
	ParticipantsCount int                  `json:"participantsCount"`
	CreatedAt         string               `json:"createdAt"`
}

func toOrderDTO(o domain.Order) orderDTO {
	dto := orderDTO{
		ID:                o.ID,
		Code:              o.Code,
		EventID:           o.EventID,
		PurchaserName:     o.PurchaserName,
		PurchaserEmail:    o.PurchaserEmail,
		TotalAmount:       o.TotalAmount,
		Currency:          o.Currency,
		PaymentStatus:     o.PaymentStatus,
		RefundStatus:      o.RefundStatus,
		RefundAmount:      o.RefundAmount,
		ParticipantsCount: o.ParticipantsCount,
		CreatedAt:         o.CreatedAt.Format(timeRFC3339),
	}
	if o.RefundedAt != nil {
		s := o.RefundedAt.Format(timeRFC3339)
		dto.RefundedAt = &s
	}
	return dto
}

func (h *Handlers) listFilter(r *http.Request) (query.Filter, error) {
	actor, err := actorID(r, "")
	if err != nil {
		return query.Filter{}, err
	}
	f := query.Filter{
		OwnerUserID: actor,
		Search:      r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("eventId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return query.Filter{}, errors.Wrap(domain.ErrValidation, "invalid eventId")
		}
		f.EventID = &id
	}
	if raw := r.URL.Query().Get("paymentStatus"); raw != "" {
		s := domain.PaymentStatus(raw)
		if !domain.ValidPaymentStatus(s) {
			return query.Filter{}, errors.Wrap(domain.ErrValidation, "invalid paymentStatus")
		}
		f.PaymentStatus = s
	}
	f.Limit = intQuery(r, "limit")
	f.Offset = intQuery(r, "offset")
	return f, nil
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := h.listFilter(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	orders, total, err := h.queries.List(r.Context(), f)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	items := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderDTO(o))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "total": total})
}

func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r, "")
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	var eventID *uuid.UUID
	if raw := r.URL.Query().Get("eventId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeErr(w, h.logger, errors.Wrap(domain.ErrValidation, "invalid eventId"))
			return
		}
		eventID = &id
	}
	sum, err := h.queries.Summarize(r.Context(), actor, eventID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := h.listFilter(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	if err := h.queries.ExportCSV(r.Context(), f, w); err != nil {
		// Headers are already out; log and truncate.
		h.logger.Error("csv export failed: ", err)
	}
}

func (h *Handlers) AuditLogs(w http.ResponseWriter, r *http.Request) {
	id, err := orderIDParam(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	actor, err := actorID(r, "")
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	owner, err := h.repo.GetEventOwner(r.Context(), order.EventID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if owner != actor {
		writeErr(w, h.logger, domain.ErrUnauthorized)
		return
	}

	entries, err := h.audit.List(r.Context(), id)
	if err != nil {
		writeErr(w, h.logger, errors.Wrap(domain.ErrUpstream, err.Error()))
		return
	}
	type entryDTO struct {
		ID        uuid.UUID              `json:"id"`
		OrderID   uuid.UUID              `json:"orderId"`
		Action    string                 `json:"action"`
		Detail    map[string]interface{} `json:"detail,omitempty"`
		ActorID   uuid.UUID              `json:"actorId"`
		CreatedAt string                 `json:"createdAt"`
	}
	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO{
			ID: e.ID, OrderID: e.OrderID, Action: e.Action, Detail: e.Detail,
			ActorID: e.ActorID, CreatedAt: e.CreatedAt.Format(timeRFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type issueTicketRequest struct {
	EventID      string `json:"eventId" validate:"required,uuid"`
	TicketTypeID string `json:"ticketTypeId" validate:"required,uuid"`
	Email        string `json:"email" validate:"required,email"`
	IssuedBy     string `json:"issuedBy" validate:"required,uuid"`
}

func (h *Handlers) IssueTicket(w http.ResponseWriter, r *http.Request) {
	var req issueTicketRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErr(w, h.logger, errors.Wrap(domain.ErrValidation, err.Error()))
		return
	}
	eventID, _ := uuid.Parse(req.EventID)
	ticketTypeID, _ := uuid.Parse(req.TicketTypeID)
	issuerID, _ := uuid.Parse(req.IssuedBy)
	if h.replayIdempotent(w, r, issuerID) {
		return
	}

	res, err := h.courtesy.Issue(r.Context(), eventID, ticketTypeID, req.Email, issuerID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	var resp map[string]interface{}
	if res.Assigned {
		resp = map[string]interface{}{"assigned": true}
	} else {
		resp = map[string]interface{}{"invited": true}
	}
	writeJSON(w, http.StatusCreated, resp)
	h.remember(r, issuerID, http.StatusCreated, resp)
}

func (h *Handlers) ListCourtesies(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventId"))
	if err != nil {
		writeErr(w, h.logger, errors.Wrap(domain.ErrValidation, "invalid event id"))
		return
	}
	actor, err := actorID(r, "")
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	tickets, err := h.courtesy.ListCourtesies(r.Context(), eventID, actor)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	type ticketDTO struct {
		ID         uuid.UUID           `json:"id"`
		OrderID    *uuid.UUID          `json:"orderId,omitempty"`
		TypeID     uuid.UUID           `json:"ticketTypeId"`
		Code       string              `json:"code"`
		Status     domain.TicketStatus `json:"status"`
		OwnerEmail string              `json:"ownerEmail"`
		CreatedAt  string              `json:"createdAt"`
	}
	out := make([]ticketDTO, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticketDTO{
			ID: t.ID, OrderID: t.OrderID, TypeID: t.TicketTypeID, Code: t.Code,
			Status: t.Status, OwnerEmail: t.OwnerEmail, CreatedAt: t.CreatedAt.Format(timeRFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
