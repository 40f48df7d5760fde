package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"

	redisadapter "github.com/robertarktes/order-lifecycle/internal/adapters/redis"
)

type backend interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
}

// Idempotency replays cached responses for repeated POSTs carrying the same
// Idempotency-Key. Entries are scoped to the acting user so one caller's key
// never replays another caller's response. The lifecycle guards stay
// authoritative: a replay without a cached response simply re-runs the
// transition and gets a state conflict.
type Idempotency struct {
	store backend
	ttl   time.Duration
}

func NewIdempotency(store *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func scopedKey(actorID uuid.UUID, key string) string {
	return actorID.String() + ":" + key
}

func (i *Idempotency) Get(ctx context.Context, actorID uuid.UUID, key string) (*Response, error) {
	if key == "" {
		return nil, nil
	}
	cached, err := i.store.Get(ctx, scopedKey(actorID, key))
	if err != nil || cached == nil {
		return nil, err
	}
	return &Response{Status: cached.Status, Result: cached.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, actorID uuid.UUID, key string, resp Response) error {
	if key == "" {
		return nil
	}
	return i.store.Set(ctx, scopedKey(actorID, key), redisadapter.IdempResponse{Status: resp.Status, Result: resp.Result}, i.ttl)
}
