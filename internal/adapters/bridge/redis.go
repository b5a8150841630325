package bridge

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares hand-offs between service replicas.
type RedisStore struct {
	client *redis.Client
	opts   options
}

// NewRedisStore wraps an existing client. The caller owns the client.
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, opts: o}
}

// Key returns the redis key for scope and key.
func (r *RedisStore) Key(scope, key string) string {
	return r.opts.prefix + ":" + scope + ":" + key
}

func (r *RedisStore) Put(ctx context.Context, scope, key string, value []byte) error {
	ttl := r.opts.ttl
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.Key(scope, key), value, ttl).Err()
}

func (r *RedisStore) Take(ctx context.Context, scope, key string) ([]byte, error) {
	data, err := r.client.GetDel(ctx, r.Key(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
