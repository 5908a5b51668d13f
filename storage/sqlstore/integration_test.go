//go:build integration

package sqlstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/password"
)

func openTestDB(t *testing.T) *Directory {
	t.Helper()
	dsn := os.Getenv("TOKENGUARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TOKENGUARD_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(dsn, Options{AutoMigrate: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Exec("TRUNCATE users, revoked_tokens").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	h, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return NewDirectory(db, h)
}

func TestDirectoryInsertAndLookup(t *testing.T) {
	dir := openTestDB(t)
	ctx := context.Background()

	id, err := dir.InsertUser(ctx, tokenguard.NewUser{
		Username: "alice01", Password: "password-1", Email: "Alice@Example.com",
		FirstName: "Alice", LastName: "Smith",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	byName, err := dir.FindByUsername(ctx, "alice01")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if byName.ID != id || byName.Role != tokenguard.DefaultRole {
		t.Fatalf("unexpected record %+v", byName)
	}

	_, err = dir.InsertUser(ctx, tokenguard.NewUser{
		Username: "alice02", Password: "password-1", Email: "alice@example.com",
		FirstName: "Alice", LastName: "Smith",
	})
	if !errors.Is(err, tokenguard.ErrDuplicateUser) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	if _, err := dir.GetUser(ctx, "missing"); !errors.Is(err, tokenguard.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDirectoryUpdateRotatesFingerprint(t *testing.T) {
	dir := openTestDB(t)
	ctx := context.Background()

	id, err := dir.InsertUser(ctx, tokenguard.NewUser{
		Username: "bobby01", Password: "password-1", Email: "bob@example.com",
		FirstName: "Bob", LastName: "Jones",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	before, _ := dir.GetUser(ctx, id)

	first := "Robert"
	if err := dir.UpdateUser(ctx, id, tokenguard.UserUpdate{FirstName: &first}); err != nil {
		t.Fatalf("update name: %v", err)
	}
	mid, _ := dir.GetUser(ctx, id)
	if mid.Fingerprint != before.Fingerprint {
		t.Fatal("name change must not rotate fingerprint")
	}

	pw := "password-2"
	if err := dir.UpdateUser(ctx, id, tokenguard.UserUpdate{Password: &pw}); err != nil {
		t.Fatalf("update password: %v", err)
	}
	after, _ := dir.GetUser(ctx, id)
	if after.Fingerprint == before.Fingerprint {
		t.Fatal("password change must rotate fingerprint")
	}
}

func TestRevocationStoreLifecycle(t *testing.T) {
	dir := openTestDB(t)
	store := NewRevocationStore(dir.db)
	ctx := context.Background()

	jti, err := internal.NewTokenID()
	if err != nil {
		t.Fatalf("token id: %v", err)
	}
	if err := store.Insert(ctx, jti, time.Now().Add(time.Hour), "logout"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, jti, time.Now().Add(time.Hour), "logout"); err != nil {
		t.Fatalf("second insert should be a no-op: %v", err)
	}
	ok, err := store.Exists(ctx, jti)
	if err != nil || !ok {
		t.Fatalf("expected revoked, got %v %v", ok, err)
	}

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	ok, err = store.Exists(ctx, jti)
	if err != nil || ok {
		t.Fatalf("expired record must not count, got %v %v", ok, err)
	}
	n, err := store.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one purged row, got %d %v", n, err)
	}
}
