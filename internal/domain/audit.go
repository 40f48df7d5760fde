package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for every completed lifecycle transition.
const (
	ActionPaid            = "paid"
	ActionCanceled        = "canceled"
	ActionReopened        = "reopened"
	ActionRefundStarted   = "refund_started"
	ActionRefundCompleted = "refund_completed"
	ActionRefundRejected  = "refund_rejected"
	ActionCourtesyIssued  = "courtesy_issued"
	ActionResend          = "resend"
)

type AuditEntry struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Action    string
	Detail    map[string]interface{}
	ActorID   uuid.UUID
	CreatedAt time.Time
}
