package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/password"
	"github.com/MrEthical07/tokenguard/revocation"
)

// Authority issues session tokens and decides, on every request, whether a
// presented token is still good. A token is rejected when its jti has been
// revoked or when its fingerprint no longer matches the user's current one.
//
// Failures of the revocation store or the user directory during those two
// checks are logged and the request proceeds authenticated.
type Authority struct {
	config      Config
	tokens      *jwt.Manager
	directory   UserDirectory
	revocations revocation.Store
	cache       *revocation.Cache
	hasher      password.Hasher
	limiter     *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *Metrics
	log         logrus.FieldLogger
	validate    *validator.Validate

	dummyOnce sync.Once
	dummy     string
}

// Close flushes pending audit events.
func (a *Authority) Close() {
	if a == nil {
		return
	}
	if a.audit != nil {
		a.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (a *Authority) AuditDropped() uint64 {
	if a == nil || a.audit == nil {
		return 0
	}
	return a.audit.Dropped()
}

// MetricsSnapshot returns a copy of the Authority's counters. It is empty
// when metrics are disabled.
func (a *Authority) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	s := a.metrics.Snapshot()
	if a.metrics.Enabled() {
		if a.cache != nil {
			s.CacheEntries = a.cache.Len()
		}
		s.AuditDelivered = a.audit.Delivered()
	}
	return s
}

// TTL returns the session token lifetime.
func (a *Authority) TTL() time.Duration {
	return a.tokens.TTL()
}

func (a *Authority) metricInc(id MetricID) {
	if a == nil || a.metrics == nil {
		return
	}
	a.metrics.Inc(id)
}

// Issue signs a token for payload with a fresh jti and exp = now + TTL.
func (a *Authority) Issue(payload jwt.Payload) (string, error) {
	if a == nil || a.tokens == nil {
		return "", ErrNotReady
	}
	token, _, err := a.tokens.Issue(payload)
	if err != nil {
		a.log.WithError(err).WithField("user_id", payload.Subject).Error("token signing failed")
		return "", fmt.Errorf("%w: %v", ErrTokenIssuance, err)
	}
	a.metricInc(MetricTokenIssued)
	return token, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry. It does
// not consult the revocation store or the directory.
func (a *Authority) Verify(token string) (*Claims, error) {
	if a == nil || a.tokens == nil {
		return nil, ErrNotReady
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token is missing jti or sub", ErrInvalidToken)
	}
	return claims, nil
}

// Authenticate runs the full gate for an Authorization header value.
func (a *Authority) Authenticate(ctx context.Context, authorization string) (*Claims, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return nil, ErrMissingCredentials
	}
	return a.AuthenticateToken(ctx, token)
}

// AuthenticateToken verifies token, then rejects it with ErrExpiredSession if
// its jti is revoked or its fingerprint is stale. A stale token is revoked on
// the way out.
func (a *Authority) AuthenticateToken(ctx context.Context, token string) (*Claims, error) {
	if a == nil || a.tokens == nil {
		return nil, ErrNotReady
	}
	if a.metrics.Enabled() {
		start := time.Now()
		defer func() { a.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	claims, err := a.Verify(token)
	if err != nil {
		a.metricInc(MetricAuthenticateInvalidToken)
		return nil, err
	}
	log := a.log.WithFields(logrus.Fields{"user_id": claims.Subject, "jti": claims.ID})

	revoked, err := a.IsRevoked(ctx, claims.ID)
	switch {
	case err != nil:
		a.metricInc(MetricFailOpen)
		log.WithError(err).Warn("revocation check failed, allowing request")
		a.emitAudit(ctx, auditEventRevocationCheckError, false, claims.Subject, claims.ID, err, nil)
	case revoked:
		a.metricInc(MetricAuthenticateRevoked)
		return nil, ErrExpiredSession
	}

	user, err := a.directory.GetUser(ctx, claims.Subject)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, a.rejectStale(ctx, claims, "user_not_found")
	case err != nil:
		a.metricInc(MetricFailOpen)
		log.WithError(err).Warn("fingerprint lookup failed, allowing request")
	case user.Fingerprint != claims.Fingerprint:
		return nil, a.rejectStale(ctx, claims, "fingerprint_changed")
	}

	a.metricInc(MetricAuthenticateSuccess)
	return claims, nil
}

func (a *Authority) rejectStale(ctx context.Context, claims *Claims, cause string) error {
	a.metricInc(MetricFingerprintMismatch)
	if err := a.Revoke(ctx, claims, revocation.ReasonFingerprintMismatch); err != nil {
		a.log.WithError(err).WithField("jti", claims.ID).Warn("revoking stale token failed")
	}
	a.emitAudit(ctx, auditEventFingerprintMismatch, false, claims.Subject, claims.ID, ErrExpiredSession, func() map[string]string {
		return map[string]string{"cause": cause}
	})
	return ErrExpiredSession
}

// Revoke records claims' jti as revoked until the token's own exp (now + TTL
// when exp is absent). On success the cache holds true for the jti; when the
// store write fails the cache entry is evicted.
func (a *Authority) Revoke(ctx context.Context, claims *Claims, reason string) error {
	if a == nil || a.revocations == nil {
		return ErrNotReady
	}
	if claims == nil || claims.ID == "" {
		return ErrMissingIdentifier
	}

	expireAt := time.Now().Add(a.tokens.TTL())
	if claims.ExpiresAt != nil {
		expireAt = claims.ExpiresAt.Time
	}

	err := a.revocations.Insert(ctx, claims.ID, expireAt, reason)
	if err != nil {
		a.cache.Delete(claims.ID)
		a.log.WithError(err).WithFields(logrus.Fields{"jti": claims.ID, "reason": reason}).Error("revocation write failed")
		return fmt.Errorf("%w: %v", ErrRevocationFailed, err)
	}

	a.cache.Set(claims.ID, true)

	a.metricInc(MetricTokenRevoked)
	a.emitAudit(ctx, auditEventTokenRevoked, true, claims.Subject, claims.ID, nil, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return nil
}

// IsRevoked consults the cache, then the store, memoizing the answer
// (including false). A false read never replaces an entry written while the
// store was being queried. Store errors are returned and not memoized.
func (a *Authority) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if a == nil || a.revocations == nil {
		return false, ErrNotReady
	}

	if revoked, ok := a.cache.Get(jti); ok {
		a.metricInc(MetricRevocationCacheHit)
		return revoked, nil
	}
	a.metricInc(MetricRevocationCacheMiss)

	revoked, err := a.revocations.Exists(ctx, jti)
	if err != nil {
		return false, err
	}
	return a.cache.SetIfAbsent(jti, revoked), nil
}

// ClearCache drops every memoized revocation lookup.
func (a *Authority) ClearCache() {
	if a == nil || a.cache == nil {
		return
	}
	a.cache.Purge()
}

// BearerToken extracts the token from "Bearer <token>". The scheme is matched
// case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
