package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces cache hashes in Redis.
const DefaultKeyPrefix = "flashlet:cache:"

// RedisStore keeps each scope in one Redis hash.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisClient creates a client and verifies it with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(scope string) string {
	return s.prefix + scope
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, scope, member string) ([]byte, bool, error) {
	value, err := s.client.HGet(ctx, s.key(scope), member).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set implements Store. The hash expiry is refreshed on every write.
func (s *RedisStore) Set(ctx context.Context, scope, member string, value []byte, ttl time.Duration) error {
	key := s.key(scope)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, member, value)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// Members implements Store.
func (s *RedisStore) Members(ctx context.Context, scope string) ([]string, error) {
	return s.client.HKeys(ctx, s.key(scope)).Result()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, scope string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.client.HDel(ctx, s.key(scope), members...).Err()
}

// DeleteScope implements Store.
func (s *RedisStore) DeleteScope(ctx context.Context, scope string) error {
	return s.client.Del(ctx, s.key(scope)).Err()
}
