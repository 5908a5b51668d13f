package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestRedisStoreInsertAndExists(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "")
	ctx := context.Background()

	ok, err := store.Exists(ctx, "jti-1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected no record before insert")
	}

	if err := store.Insert(ctx, "jti-1", time.Now().Add(time.Hour), ReasonLogout); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ok, err = store.Exists(ctx, "jti-1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatal("expected record after insert")
	}

	got, err := mr.Get("rvk:jti-1")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != ReasonLogout {
		t.Fatalf("expected reason %q, got %q", ReasonLogout, got)
	}
}

func TestRedisStoreDuplicateInsertIsNoop(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "rvk")
	ctx := context.Background()

	if err := store.Insert(ctx, "jti-dup", time.Now().Add(time.Hour), ReasonLogout); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.Insert(ctx, "jti-dup", time.Now().Add(2*time.Hour), ReasonPasswordChange); err != nil {
		t.Fatalf("duplicate insert should succeed: %v", err)
	}

	got, _ := mr.Get("rvk:jti-dup")
	if got != ReasonLogout {
		t.Fatalf("expected original reason to be kept, got %q", got)
	}
}

func TestRedisStoreRecordExpiresWithToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "")
	ctx := context.Background()

	if err := store.Insert(ctx, "jti-ttl", time.Now().Add(10*time.Second), ReasonLogout); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ttl := mr.TTL("rvk:jti-ttl"); ttl <= 0 || ttl > 10*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(11 * time.Second)

	ok, err := store.Exists(ctx, "jti-ttl")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected record to be purged after its expiry")
	}
}

func TestRedisStoreSkipsExpiredRecord(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "")

	if err := store.Insert(context.Background(), "jti-old", time.Now().Add(-time.Minute), ReasonLogout); err != nil {
		t.Fatalf("insert of expired record should be accepted: %v", err)
	}
	if mr.Exists("rvk:jti-old") {
		t.Fatal("expected no key for an already-expired record")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "")
	mr.Close()

	if _, err := store.Exists(context.Background(), "jti"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Insert(context.Background(), "jti", time.Now().Add(time.Hour), ReasonLogout); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Ping(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
