package query

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// Filter scopes listing, summary and export to the caller's events.
type Filter struct {
	OwnerUserID   uuid.UUID
	EventID       *uuid.UUID
	Search        string
	PaymentStatus domain.PaymentStatus
	Limit         int
	Offset        int
}

type Summary struct {
	PaymentStatus map[string]int `json:"paymentStatus"`
	RefundStatus  map[string]int `json:"refundStatus"`
}

// Reader is the read-side of the order store. Implementations carry no
// locking; results may lag the write path.
type Reader interface {
	ListOrders(ctx context.Context, f Filter) ([]domain.Order, int, error)
	StreamOrders(ctx context.Context, f Filter, fn func(domain.Order) error) error
	CountsByStatus(ctx context.Context, ownerUserID uuid.UUID, eventID *uuid.UUID) (Summary, error)
}

// SummaryCache holds recent summary snapshots; a miss is never an error.
type SummaryCache interface {
	GetSummary(ctx context.Context, key string) (*Summary, error)
	SetSummary(ctx context.Context, key string, s Summary, ttl time.Duration) error
}

type Service struct {
	reader Reader
	cache  SummaryCache
	ttl    time.Duration
	logger observability.Logger
}

func NewService(reader Reader, cache SummaryCache, ttl time.Duration, logger observability.Logger) *Service {
	return &Service{reader: reader, cache: cache, ttl: ttl, logger: logger}
}

func (s *Service) List(ctx context.Context, f Filter) ([]domain.Order, int, error) {
	return s.reader.ListOrders(ctx, f)
}

// Summarize returns per-status counts, served from the cache when a snapshot
// is fresh enough. Cache failures fall through to the store.
func (s *Service) Summarize(ctx context.Context, ownerUserID uuid.UUID, eventID *uuid.UUID) (Summary, error) {
	key := summaryKey(ownerUserID, eventID)
	if s.cache != nil {
		if cached, err := s.cache.GetSummary(ctx, key); err != nil {
			s.logger.Warn("summary cache read failed: ", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	sum, err := s.reader.CountsByStatus(ctx, ownerUserID, eventID)
	if err != nil {
		return Summary{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, key, sum, s.ttl); err != nil {
			s.logger.Warn("summary cache write failed: ", err)
		}
	}
	return sum, nil
}

func summaryKey(ownerUserID uuid.UUID, eventID *uuid.UUID) string {
	key := "summary:" + ownerUserID.String()
	if eventID != nil {
		key += ":" + eventID.String()
	}
	return key
}

var csvHeader = []string{
	"code", "event_id", "purchaser_name", "purchaser_email", "total_amount",
	"currency", "payment_status", "refund_status", "refund_amount",
	"refunded_at", "participants", "created_at",
}

// ExportCSV streams the filtered set as CSV. Rows are written as they are
// read; a mid-stream store error truncates the output.
func (s *Service) ExportCSV(ctx context.Context, f Filter, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	err := s.reader.StreamOrders(ctx, f, func(o domain.Order) error {
		refundAmount := ""
		if o.RefundAmount != nil {
			refundAmount = strconv.FormatFloat(*o.RefundAmount, 'f', 2, 64)
		}
		refundedAt := ""
		if o.RefundedAt != nil {
			refundedAt = o.RefundedAt.Format(time.RFC3339)
		}
		return cw.Write([]string{
			o.Code,
			o.EventID.String(),
			o.PurchaserName,
			o.PurchaserEmail,
			strconv.FormatFloat(o.TotalAmount, 'f', 2, 64),
			o.Currency,
			string(o.PaymentStatus),
			string(o.RefundStatus),
			refundAmount,
			refundedAt,
			strconv.Itoa(o.ParticipantsCount),
			o.CreatedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
