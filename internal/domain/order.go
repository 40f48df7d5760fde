package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentCanceled PaymentStatus = "CANCELED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// RefundStatus overlays PaymentStatus. The zero value means no refund
// activity exists for the order.
type RefundStatus string

const (
	RefundNone       RefundStatus = ""
	RefundRequested  RefundStatus = "requested"
	RefundProcessing RefundStatus = "processing"
	RefundRefunded   RefundStatus = "refunded"
	RefundRejected   RefundStatus = "rejected"
)

type Order struct {
	ID                uuid.UUID
	Code              string
	EventID           uuid.UUID
	OrganizationID    uuid.UUID
	PurchaserName     string
	PurchaserEmail    string
	TotalAmount       float64
	Currency          string
	PaymentStatus     PaymentStatus
	RefundStatus      RefundStatus
	RefundAmount      *float64
	RefundedAt        *time.Time
	ParticipantsCount int
	CreatedAt         time.Time
}

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentCanceled, PaymentRefunded:
		return true
	}
	return false
}

func ValidRefundStatus(s RefundStatus) bool {
	switch s {
	case RefundNone, RefundRequested, RefundProcessing, RefundRefunded, RefundRejected:
		return true
	}
	return false
}

// Guard predicates. These are the single source of truth for which
// lifecycle actions an order currently admits; callers never inspect
// raw status fields to decide.

func (o Order) CanPay() bool {
	return o.PaymentStatus == PaymentPending
}

// CanCancel refuses orders with a refund in flight: cancel and settle racing
// on one order would otherwise let a CANCELED order reach REFUNDED.
func (o Order) CanCancel() bool {
	if o.RefundStatus == RefundProcessing {
		return false
	}
	return o.PaymentStatus != PaymentCanceled && o.PaymentStatus != PaymentRefunded
}

func (o Order) CanReopen() bool {
	return o.PaymentStatus == PaymentCanceled
}

// CanStartRefund admits the organizer-facing refund start. An order with a
// customer-side "requested" refund is deliberately not consumable here.
func (o Order) CanStartRefund() bool {
	if o.PaymentStatus != PaymentPaid {
		return false
	}
	return o.RefundStatus == RefundNone || o.RefundStatus == RefundRejected
}

// CanSettleRefund admits complete and reject. Settling requires the payment
// to still be PAID; REFUNDED is only ever reached from PAID.
func (o Order) CanSettleRefund() bool {
	return o.PaymentStatus == PaymentPaid && o.RefundStatus == RefundProcessing
}
