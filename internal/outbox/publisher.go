package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/order-lifecycle/internal/adapters/crdb"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

type store interface {
	GetUnpublishedOutbox(ctx context.Context, limit int) ([]crdb.OutboxRecord, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

type messagePublisher interface {
	PublishWithID(ctx context.Context, kind, messageID string, payload []byte) error
}

// Publisher drains staged notifications into RabbitMQ. Records stay NEW
// until a publish succeeds, so delivery is at-least-once; each record is
// republished under its dedupe key as the MessageId, so consumers can
// de-duplicate redeliveries.
type Publisher struct {
	repo      store
	rabbitPub messagePublisher
	logger    observability.Logger
	batch     int
}

func NewPublisher(repo store, rabbitPub messagePublisher, logger observability.Logger, batch int) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger, batch: batch}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.repo.GetUnpublishedOutbox(ctx, p.batch)
	if err != nil {
		p.logger.Error("outbox read failed: ", err)
		return
	}
	if len(records) > 0 {
		observability.OutboxLag.Set(time.Since(records[0].CreatedAt).Seconds())
	} else {
		observability.OutboxLag.Set(0)
	}

	for _, rec := range records {
		if err := p.rabbitPub.PublishWithID(ctx, rec.Kind, rec.DedupeKey, rec.Payload); err != nil {
			observability.NotifyPublishFailures.Inc()
			p.logger.WithField("outbox_id", rec.ID.String()).Warn("outbox publish failed: ", err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			p.logger.WithField("outbox_id", rec.ID.String()).Error("outbox mark failed: ", err)
		}
	}
}
