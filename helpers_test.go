package tokenguard

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard/password"
	"github.com/MrEthical07/tokenguard/revocation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

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

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testHasher(t *testing.T) password.Hasher {
	t.Helper()
	h, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("new bcrypt: %v", err)
	}
	return h
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	return cfg
}

// memDirectory is an in-memory UserDirectory with injectable failures.
type memDirectory struct {
	mu     sync.Mutex
	hasher password.Hasher
	users  map[string]UserRecord
	err    error
	gets   atomic.Int64
}

func newMemDirectory(h password.Hasher) *memDirectory {
	return &memDirectory{hasher: h, users: map[string]UserRecord{}}
}

func (d *memDirectory) fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *memDirectory) GetUser(_ context.Context, id string) (UserRecord, error) {
	d.gets.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return UserRecord{}, d.err
	}
	u, ok := d.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (d *memDirectory) FindByUsername(_ context.Context, username string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return UserRecord{}, d.err
	}
	for _, u := range d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (d *memDirectory) InsertUser(_ context.Context, nu NewUser) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	for _, u := range d.users {
		if u.Username == nu.Username || u.Email == nu.Email {
			return "", ErrDuplicateUser
		}
	}
	rec, err := PrepareUser(d.hasher, nu, time.Now())
	if err != nil {
		return "", err
	}
	d.users[rec.ID] = rec
	return rec.ID, nil
}

func (d *memDirectory) UpdateUser(_ context.Context, id string, upd UserUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	rec, ok := d.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if _, err := ApplyUpdate(d.hasher, &rec, upd, time.Now()); err != nil {
		return err
	}
	d.users[id] = rec
	return nil
}

func (d *memDirectory) remove(id string) {
	d.mu.Lock()
	delete(d.users, id)
	d.mu.Unlock()
}

// countingStore wraps a revocation.Store, counting calls and recording the
// reason of every insert.
type countingStore struct {
	inner   revocation.Store
	exists  atomic.Int64
	inserts atomic.Int64

	mu      sync.Mutex
	reasons map[string]string
	failing bool
}

func (s *countingStore) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}

func (s *countingStore) isFailing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failing
}

func (s *countingStore) Exists(ctx context.Context, jti string) (bool, error) {
	s.exists.Add(1)
	if s.isFailing() {
		return false, errors.New("connection refused")
	}
	return s.inner.Exists(ctx, jti)
}

func (s *countingStore) Insert(ctx context.Context, jti string, expireAt time.Time, reason string) error {
	s.inserts.Add(1)
	if s.isFailing() {
		return errors.New("connection refused")
	}
	s.mu.Lock()
	if s.reasons == nil {
		s.reasons = map[string]string{}
	}
	s.reasons[jti] = reason
	s.mu.Unlock()
	return s.inner.Insert(ctx, jti, expireAt, reason)
}

func (s *countingStore) reason(jti string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reasons[jti]
}

type testEnv struct {
	auth  *Authority
	dir   *memDirectory
	store *countingStore
	mr    *miniredis.Miniredis
	rdb   *redis.Client
}

func newTestEnv(t *testing.T, mutate func(*Config), sink AuditSink) *testEnv {
	t.Helper()
	mr, rdb := newTestRedis(t)
	h := testHasher(t)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newMemDirectory(h)
	store := &countingStore{inner: revocation.NewRedisStore(rdb, cfg.Revocation.RedisPrefix)}

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithRevocationStore(store).
		WithHasher(h).
		WithLogger(quietLogger())
	if sink != nil {
		b.WithAuditSink(sink)
	}
	auth, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(auth.Close)

	return &testEnv{auth: auth, dir: dir, store: store, mr: mr, rdb: rdb}
}

func (e *testEnv) createUser(t *testing.T, username, pw string) string {
	t.Helper()
	id, err := e.dir.InsertUser(context.Background(), NewUser{
		Username:  username,
		Password:  pw,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func (e *testEnv) signin(t *testing.T, username, pw string) (string, *Claims) {
	t.Helper()
	token, err := e.auth.Signin(context.Background(), username, pw)
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	claims, err := e.auth.Verify(token)
	if err != nil {
		t.Fatalf("verify fresh token: %v", err)
	}
	return token, claims
}
