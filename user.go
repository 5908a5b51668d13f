package tokenguard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/password"
)

// PrepareUser builds the record a UserDirectory persists for u: a new UUID,
// the default role when none is given, the password hash and an initial
// fingerprint. Directory implementations share it so every backend stores
// the same shape.
func PrepareUser(h password.Hasher, u NewUser, now time.Time) (UserRecord, error) {
	if h == nil {
		return UserRecord{}, errors.New("password hasher required")
	}
	role := strings.TrimSpace(u.Role)
	if role == "" {
		role = DefaultRole
	}

	hash, err := h.Hash(u.Password)
	if err != nil {
		return UserRecord{}, fmt.Errorf("hash password: %w", err)
	}
	fp, err := internal.NewFingerprint()
	if err != nil {
		return UserRecord{}, fmt.Errorf("generate fingerprint: %w", err)
	}

	now = now.UTC()
	return UserRecord{
		ID:           uuid.NewString(),
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: hash,
		Fingerprint:  fp,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplyUpdate mutates rec with the set fields of upd. It hashes a new password
// and rotates the fingerprint when the password or email changes, and reports
// whether it rotated.
func ApplyUpdate(h password.Hasher, rec *UserRecord, upd UserUpdate, now time.Time) (bool, error) {
	rotate := false

	if upd.Password != nil {
		if h == nil {
			return false, errors.New("password hasher required")
		}
		hash, err := h.Hash(*upd.Password)
		if err != nil {
			return false, fmt.Errorf("hash password: %w", err)
		}
		rec.PasswordHash = hash
		rotate = true
	}
	if upd.Email != nil {
		rec.Email = *upd.Email
		rotate = true
	}
	if upd.FirstName != nil {
		rec.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		rec.LastName = *upd.LastName
	}
	if upd.Role != nil {
		rec.Role = *upd.Role
	}

	if rotate {
		fp, err := internal.NewFingerprint()
		if err != nil {
			return false, fmt.Errorf("generate fingerprint: %w", err)
		}
		rec.Fingerprint = fp
	}
	rec.UpdatedAt = now.UTC()
	return rotate, nil
}
