package tokenguard

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("signup: %w", &ValidationError{Fields: map[string]string{
		"username": "is required",
		"email":    "must be a valid email address",
	}})

	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected errors.Is(err, ErrValidation)")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected fields to survive wrapping, got %v", verr)
	}

	want := "validation failed: email: must be a valid email address; username: is required"
	if verr.Error() != want {
		t.Fatalf("got %q, want %q", verr.Error(), want)
	}
}

func TestAuditCodes(t *testing.T) {
	tests := []struct {
		err  error
		want auditErrorCode
	}{
		{nil, ""},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{fmt.Errorf("%w: bad sig", ErrInvalidToken), auditErrInvalidToken},
		{ErrExpiredSession, auditErrExpiredSession},
		{fieldError("password", "too short"), auditErrValidation},
		{ErrConflict, auditErrDuplicate},
		{fmt.Errorf("%w: dial tcp", ErrRevocationFailed), auditErrUnavailable},
		{errors.New("boom"), auditErrInternal},
	}
	for _, tt := range tests {
		if got := auditCode(tt.err); got != tt.want {
			t.Fatalf("auditCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
