package tokenguard

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard/internal/audit"
)

// AuditEvent is the record handed to an AuditSink.
type AuditEvent = audit.Event

// AuditSink consumes audit events on the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// NewChannelSink returns a sink that buffers events on a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogrusSink returns a sink that logs each event.
func NewLogrusSink(logger logrus.FieldLogger) *audit.LogrusSink {
	return audit.NewLogrusSink(logger)
}

const (
	auditEventSigninSuccess        = "signin_success"
	auditEventSigninFailure        = "signin_failure"
	auditEventSigninRateLimited    = "signin_rate_limited"
	auditEventSignupSuccess        = "signup_success"
	auditEventSignupFailure        = "signup_failure"
	auditEventPasswordChange       = "password_change"
	auditEventLogout               = "logout"
	auditEventTokenRevoked         = "token_revoked"
	auditEventFingerprintMismatch  = "fingerprint_mismatch"
	auditEventRevocationCheckError = "revocation_check_failed"
)

type auditErrorCode string

const (
	auditErrInvalidCredentials auditErrorCode = "invalid_credentials"
	auditErrRateLimited        auditErrorCode = "rate_limited"
	auditErrInvalidToken       auditErrorCode = "invalid_token"
	auditErrExpiredSession     auditErrorCode = "session_expired"
	auditErrValidation         auditErrorCode = "validation_error"
	auditErrDuplicate          auditErrorCode = "duplicate"
	auditErrUnavailable        auditErrorCode = "backend_unavailable"
	auditErrInternal           auditErrorCode = "internal_error"
)

func (a *Authority) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if a == nil || a.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditCode(err); code != "" {
		event.Error = string(code)
	}

	a.audit.Emit(ctx, event)
}

func auditCode(err error) auditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSigninRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrMissingCredentials):
		return auditErrInvalidToken
	case errors.Is(err, ErrExpiredSession):
		return auditErrExpiredSession
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateUser):
		return auditErrDuplicate
	case errors.Is(err, ErrDirectoryUnavailable), errors.Is(err, ErrRevocationFailed):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
