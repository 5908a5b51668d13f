package revocation

import (
	"context"
	"errors"
	"time"
)

// Reasons recorded alongside a revoked jti.
const (
	ReasonLogout              = "logout"
	ReasonPasswordChange      = "password-change"
	ReasonFingerprintMismatch = "fingerprint-mismatch"
)

// ErrStoreUnavailable wraps backend failures from a Store.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

// Store persists revoked token identifiers, each with its reason, until the
// token would have expired anyway (ExpireAt is copied from the token's exp).
//
// Insert of a jti that already exists succeeds without changing the record.
// Insert with an ExpireAt already in the past may be accepted without a write.
type Store interface {
	Exists(ctx context.Context, jti string) (bool, error)
	Insert(ctx context.Context, jti string, expireAt time.Time, reason string) error
}
