package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces revocation keys.
const DefaultKeyPrefix = "rvk"

// RedisStore keeps one key per revoked jti with a TTL that ends at the
// token's expiry, so Redis purges records on its own.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store writing keys as "<prefix>:<jti>".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{redis: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(jti string) string {
	return s.prefix + ":" + jti
}

// Exists reports whether a live record exists for jti.
func (s *RedisStore) Exists(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Insert writes SET <key> <reason> NX PX <until expireAt>. An existing record
// is left untouched and an already-expired one is skipped.
func (s *RedisStore) Insert(ctx context.Context, jti string, expireAt time.Time, reason string) error {
	ttl := expireAt.Sub(s.now())
	if ttl < time.Millisecond {
		return nil
	}

	err := s.redis.SetArgs(ctx, s.key(jti), reason, redis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks Redis availability.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
