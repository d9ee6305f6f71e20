package tokens

import (
	"context"
	"fmt"
	"time"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type redisClient interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) ([]string, []bool, error)
	Del(ctx context.Context, keys ...string) error
	SessionTokenKey(sessionID, kind string) string
}

// RedisStore keeps pairs in redis so several gateway instances can share sessions.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisStore(client redisClient, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (Pair, bool, error) {
	values, present, err := r.client.MGet(ctx,
		r.client.SessionTokenKey(sessionID, kindAccess),
		r.client.SessionTokenKey(sessionID, kindRefresh),
	)
	if err != nil {
		return Pair{}, false, fmt.Errorf("load session tokens: %w", err)
	}
	if len(values) != 2 || (!present[0] && !present[1]) {
		return Pair{}, false, nil
	}
	return Pair{Access: values[0], Refresh: values[1]}, true, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, pair Pair) error {
	if err := r.client.Set(ctx, r.client.SessionTokenKey(sessionID, kindAccess), pair.Access, r.ttl); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if !pair.HasRefresh() {
		return nil
	}
	if err := r.client.Set(ctx, r.client.SessionTokenKey(sessionID, kindRefresh), pair.Refresh, r.ttl); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx,
		r.client.SessionTokenKey(sessionID, kindAccess),
		r.client.SessionTokenKey(sessionID, kindRefresh),
	)
}
