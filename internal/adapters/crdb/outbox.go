package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxRecord is a notification staged in the same transaction as the state
// change that caused it, drained asynchronously by the outbox publisher.
type OutboxRecord struct {
	ID          uuid.UUID
	Kind        string // routing key, e.g. ticket.invite
	AggregateID uuid.UUID
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Status      string // NEW, PUBLISHED
	DedupeKey   string
}

func (r *Repository) EnqueueNotification(ctx context.Context, kind string, aggregateID uuid.UUID, payload []byte) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO outbox (id, kind, aggregate_id, payload_json, status, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, 'NEW', $5, now())
	`, uuid.New(), kind, aggregateID, payload, uuid.New().String())
	return err
}

func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, aggregate_id, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.AggregateID, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}
