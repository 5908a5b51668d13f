package tokenguard

import (
	"testing"
	"time"

	"github.com/MrEthical07/tokenguard/password"
)

func TestPrepareUser(t *testing.T) {
	h := testHasher(t)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rec, err := PrepareUser(h, NewUser{Username: "alice01", Password: "password-1", Email: "a@example.com"}, now)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if rec.ID == "" || rec.Role != DefaultRole || len(rec.Fingerprint) != 48 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !password.Compare(h, "password-1", rec.PasswordHash) {
		t.Fatal("stored hash must verify the password")
	}
	if !rec.CreatedAt.Equal(now) || !rec.UpdatedAt.Equal(now) {
		t.Fatal("timestamps not set")
	}

	other, _ := PrepareUser(h, NewUser{Username: "bob01", Password: "password-1", Role: RoleAdmin}, now)
	if other.ID == rec.ID || other.Fingerprint == rec.Fingerprint {
		t.Fatal("ids and fingerprints must be unique")
	}
	if other.Role != RoleAdmin {
		t.Fatalf("explicit role lost: %q", other.Role)
	}
}

func TestApplyUpdateRotation(t *testing.T) {
	h := testHasher(t)
	now := time.Now()
	base, err := PrepareUser(h, NewUser{Username: "alice01", Password: "password-1", Email: "a@example.com"}, now)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	str := func(s string) *string { return &s }
	tests := []struct {
		name   string
		upd    UserUpdate
		rotate bool
	}{
		{"first name", UserUpdate{FirstName: str("Alicia")}, false},
		{"role", UserUpdate{Role: str(RoleGuest)}, false},
		{"email", UserUpdate{Email: str("b@example.com")}, true},
		{"password", UserUpdate{Password: str("password-2")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			rotated, err := ApplyUpdate(h, &rec, tt.upd, now.Add(time.Minute))
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if rotated != tt.rotate || (rec.Fingerprint != base.Fingerprint) != tt.rotate {
				t.Fatalf("rotated=%v fingerprint changed=%v, want %v", rotated, rec.Fingerprint != base.Fingerprint, tt.rotate)
			}
			if tt.upd.Password != nil && !password.Compare(h, "password-2", rec.PasswordHash) {
				t.Fatal("password not rehashed")
			}
		})
	}
}
