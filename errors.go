package tokenguard

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong
	// password. Both cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredentials is returned when the Authorization header is absent
	// or is not a bearer credential.
	ErrMissingCredentials = errors.New("missing bearer credentials")
	// ErrInvalidToken is returned when a token fails signature, algorithm,
	// issuer, audience or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredSession is returned for a revoked token or one whose fingerprint
	// no longer matches the user's.
	ErrExpiredSession = errors.New("session expired")
	// ErrMissingIdentifier is returned when revoking claims without a jti.
	ErrMissingIdentifier = errors.New("token has no identifier")
	// ErrConflict is returned by Signup when the username or email is taken.
	ErrConflict = errors.New("account already exists")
	// ErrUserNotFound is returned by a UserDirectory for an absent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned by a UserDirectory on a unique-key violation.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrDirectoryUnavailable wraps UserDirectory backend failures.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrSigninRateLimited is returned once a username or IP exhausts its signin budget.
	ErrSigninRateLimited = errors.New("signin rate limited")
	// ErrRevocationFailed wraps revocation store write failures.
	ErrRevocationFailed = errors.New("token revocation failed")
	// ErrTokenIssuance wraps signing failures.
	ErrTokenIssuance = errors.New("token issuance failed")
	// ErrNotReady is returned by methods called on a nil or closed Authority.
	ErrNotReady = errors.New("authority not ready")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports per-field input problems. Field keys use the JSON
// names of the request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
