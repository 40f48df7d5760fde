package mongo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// AccountDirectory is a read view over the platform's account store. This
// service only ever looks accounts up; it never creates or mutates them.
type AccountDirectory struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAccountDirectory(db *mongo.Database, logger observability.Logger) *AccountDirectory {
	return &AccountDirectory{
		coll:   db.Collection("accounts"),
		logger: logger,
	}
}

type accountDoc struct {
	UserID uuid.UUID `bson:"user_id"`
	Email  string    `bson:"email"`
	Name   string    `bson:"name"`
}

func (d *AccountDirectory) FindByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	var doc accountDoc
	err := d.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return uuid.Nil, false, nil
	}
	if err != nil {
		d.logger.Error("account lookup failed: ", err)
		return uuid.Nil, false, err
	}
	return doc.UserID, true, nil
}
