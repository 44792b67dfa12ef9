package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore namespaces every key under ns.
type RedisStore struct {
	rdb *redis.Client
	ns  string
	ttl time.Duration
}

// NewRedisStore creates a store; ttl 0 keeps keys forever.
func NewRedisStore(rdb *redis.Client, ns string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ns: ns, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.ns+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, s.ns+key, value, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.ns+prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
