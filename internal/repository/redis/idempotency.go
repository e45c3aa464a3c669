package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

// IdempotentResponse is the replayable outcome of a keyed request.
type IdempotentResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore remembers the response of a keyed request. A key is either
// locked while the first request runs or holds its saved response.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl, lockTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

// Begin claims key for a new request. It returns the saved response when the
// key already completed, or locked=true while another request holds it.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (resp *IdempotentResponse, locked bool, err error) {
	const op = "redis.IdempotencyStore.Begin"

	ok, err := s.rdb.SetNX(ctx, key, idemLock, s.lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, err)
	}
	if ok {
		return nil, false, nil
	}

	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		// Expired between SETNX and GET; let the caller retry.
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, err)
	}

	if !strings.HasPrefix(v, idemResult) {
		return nil, true, nil
	}

	var saved IdempotentResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(v, idemResult)), &saved); err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, err)
	}

	return &saved, false, nil
}

// Complete stores resp under key, replacing the lock.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp IdempotentResponse) error {
	const op = "redis.IdempotencyStore.Complete"

	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.rdb.Set(ctx, key, idemResult+string(b), s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Release drops the lock so the request can be retried with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
