package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// AuditLog is the append-only per-order action history. Documents are never
// updated or deleted.
type AuditLog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLog(db *mongo.Database, logger observability.Logger) *AuditLog {
	return &AuditLog{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type auditDoc struct {
	ID        uuid.UUID `bson:"_id"`
	OrderID   uuid.UUID `bson:"order_id"`
	Action    string    `bson:"action"`
	Detail    bson.M    `bson:"detail,omitempty"`
	ActorID   uuid.UUID `bson:"actor_id"`
	CreatedAt time.Time `bson:"created_at"`
}

func (a *AuditLog) Append(ctx context.Context, orderID uuid.UUID, action string, detail map[string]interface{}, actorID uuid.UUID) error {
	doc := auditDoc{
		ID:        uuid.New(),
		OrderID:   orderID,
		Action:    action,
		Detail:    bson.M(detail),
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := a.coll.InsertOne(ctx, doc)
	if err != nil {
		a.logger.Error("failed to insert audit entry: ", err)
		return err
	}
	return nil
}

// List returns the order's entries newest-first.
func (a *AuditLog) List(ctx context.Context, orderID uuid.UUID) ([]domain.AuditEntry, error) {
	cur, err := a.coll.Find(ctx, bson.M{"order_id": orderID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []domain.AuditEntry
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		entries = append(entries, domain.AuditEntry{
			ID:        doc.ID,
			OrderID:   doc.OrderID,
			Action:    doc.Action,
			Detail:    map[string]interface{}(doc.Detail),
			ActorID:   doc.ActorID,
			CreatedAt: doc.CreatedAt,
		})
	}
	return entries, cur.Err()
}
