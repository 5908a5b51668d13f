package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/password"
	"github.com/MrEthical07/tokenguard/revocation"
)

// Signin checks username and password and returns a token bound to the
// user's current fingerprint. Unknown users and wrong passwords both yield
// ErrInvalidCredentials.
func (a *Authority) Signin(ctx context.Context, username, pass string) (string, error) {
	if a == nil || a.directory == nil {
		return "", ErrNotReady
	}
	if username == "" || pass == "" {
		fields := map[string]string{}
		if username == "" {
			fields["username"] = "is required"
		}
		if pass == "" {
			fields["password"] = "is required"
		}
		return "", &ValidationError{Fields: fields}
	}

	ip := ClientIPFromContext(ctx)
	if err := a.checkSigninThrottle(ctx, username, ip); err != nil {
		return "", err
	}

	user, err := a.directory.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		a.log.WithError(err).Error("signin directory lookup failed")
		return "", err
	}
	if err != nil {
		// Unknown users pay for a comparison too.
		password.Compare(a.hasher, pass, a.dummyHash())
	}
	if err != nil || !password.Compare(a.hasher, pass, user.PasswordHash) {
		reason := "password_mismatch"
		if err != nil {
			reason = "user_not_found"
		}
		a.recordSigninFailure(ctx, username, ip)
		a.metricInc(MetricSigninFailure)
		a.emitAudit(ctx, auditEventSigninFailure, false, user.ID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"username": username, "reason": reason}
		})
		return "", ErrInvalidCredentials
	}

	if a.limiter != nil {
		if err := a.limiter.Reset(ctx, username); err != nil {
			a.log.WithError(err).Warn("signin throttle reset failed")
		}
	}

	token, err := a.Issue(jwt.Payload{Subject: user.ID, Role: user.Role, Fingerprint: user.Fingerprint})
	if err != nil {
		return "", err
	}
	a.metricInc(MetricSigninSuccess)
	a.emitAudit(ctx, auditEventSigninSuccess, true, user.ID, "", nil, nil)
	return token, nil
}

// dummyHash is a hash of a fixed string made with the Authority's hasher, so
// it carries the same cost parameters as stored hashes.
func (a *Authority) dummyHash() string {
	a.dummyOnce.Do(func() {
		h, err := a.hasher.Hash("tokenguard-unknown-user")
		if err != nil {
			a.log.WithError(err).Warn("dummy password hash failed")
			return
		}
		a.dummy = h
	})
	return a.dummy
}

func (a *Authority) checkSigninThrottle(ctx context.Context, username, ip string) error {
	if a.limiter == nil {
		return nil
	}
	err := a.limiter.Check(ctx, username, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		a.metricInc(MetricSigninRateLimited)
		a.emitAudit(ctx, auditEventSigninRateLimited, false, "", "", ErrSigninRateLimited, func() map[string]string {
			return map[string]string{"username": username}
		})
		return ErrSigninRateLimited
	default:
		a.log.WithError(err).Warn("signin throttle unavailable, allowing attempt")
		return nil
	}
}

func (a *Authority) recordSigninFailure(ctx context.Context, username, ip string) {
	if a.limiter == nil {
		return
	}
	if err := a.limiter.RecordFailure(ctx, username, ip); err != nil {
		a.log.WithError(err).Warn("signin throttle increment failed")
	}
}

// Signup validates req, creates the user and returns its id with a fresh
// token. A taken username or email yields ErrConflict.
func (a *Authority) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	if a == nil || a.directory == nil {
		return SignupResult{}, ErrNotReady
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := validateStruct(a.validate, req); err != nil {
		a.metricInc(MetricSignupInvalid)
		a.emitAudit(ctx, auditEventSignupFailure, false, "", "", err, nil)
		return SignupResult{}, err
	}

	id, err := a.directory.InsertUser(ctx, NewUser{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			a.metricInc(MetricSignupDuplicate)
			a.emitAudit(ctx, auditEventSignupFailure, false, "", "", ErrConflict, func() map[string]string {
				return map[string]string{"username": req.Username}
			})
			return SignupResult{}, ErrConflict
		}
		a.log.WithError(err).WithField("username", req.Username).Error("signup insert failed")
		return SignupResult{}, err
	}

	user, err := a.directory.GetUser(ctx, id)
	if err != nil {
		a.log.WithError(err).WithField("user_id", id).Error("signup re-read failed")
		return SignupResult{}, err
	}
	token, err := a.Issue(jwt.Payload{Subject: user.ID, Role: user.Role, Fingerprint: user.Fingerprint})
	if err != nil {
		return SignupResult{}, err
	}

	a.metricInc(MetricSignupSuccess)
	a.emitAudit(ctx, auditEventSignupSuccess, true, id, "", nil, nil)
	return SignupResult{UserID: id, Token: token}, nil
}

// ChangePassword replaces the password of the user behind claims. The update
// rotates the user's fingerprint, which invalidates every other token; the
// presenting token is additionally revoked. It returns a new token.
func (a *Authority) ChangePassword(ctx context.Context, claims *Claims, previous, next string) (string, error) {
	if a == nil || a.directory == nil {
		return "", ErrNotReady
	}
	if claims == nil || claims.Subject == "" {
		return "", ErrMissingIdentifier
	}
	if previous == "" || next == "" {
		fields := map[string]string{}
		if previous == "" {
			fields["previousPassword"] = "is required"
		}
		if next == "" {
			fields["password"] = "is required"
		}
		return "", &ValidationError{Fields: fields}
	}
	if err := password.Policy(next); err != nil {
		return "", fieldError("password", "must be at least 8 characters")
	}

	log := a.log.WithFields(logrus.Fields{"user_id": claims.Subject, "jti": claims.ID})

	user, err := a.directory.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.metricInc(MetricPasswordChangeInvalidOld)
			return "", ErrInvalidCredentials
		}
		log.WithError(err).Error("password change lookup failed")
		return "", err
	}
	if !password.Compare(a.hasher, previous, user.PasswordHash) {
		a.metricInc(MetricPasswordChangeInvalidOld)
		a.emitAudit(ctx, auditEventPasswordChange, false, user.ID, claims.ID, ErrInvalidCredentials, nil)
		return "", ErrInvalidCredentials
	}

	if err := a.directory.UpdateUser(ctx, user.ID, UserUpdate{Password: &next}); err != nil {
		log.WithError(err).Error("password update failed")
		return "", err
	}

	// The rotated fingerprint already rejects the old token, so a failed
	// revocation write does not fail the change.
	if claims.ID != "" {
		if err := a.Revoke(ctx, claims, revocation.ReasonPasswordChange); err != nil {
			log.WithError(err).Warn("revoking token after password change failed")
		}
	}
	if a.limiter != nil {
		if err := a.limiter.Reset(ctx, user.Username); err != nil {
			log.WithError(err).Warn("signin throttle reset failed after password change")
		}
	}

	updated, err := a.directory.GetUser(ctx, user.ID)
	if err != nil {
		log.WithError(err).Error("password change re-read failed")
		return "", fmt.Errorf("reload user: %w", err)
	}
	token, err := a.Issue(jwt.Payload{Subject: updated.ID, Role: updated.Role, Fingerprint: updated.Fingerprint})
	if err != nil {
		return "", err
	}

	a.metricInc(MetricPasswordChangeSuccess)
	a.emitAudit(ctx, auditEventPasswordChange, true, user.ID, claims.ID, nil, nil)
	return token, nil
}

// Logout revokes the token described by claims.
func (a *Authority) Logout(ctx context.Context, claims *Claims) error {
	if err := a.Revoke(ctx, claims, revocation.ReasonLogout); err != nil {
		return err
	}
	a.metricInc(MetricLogout)
	a.emitAudit(ctx, auditEventLogout, true, claims.Subject, claims.ID, nil, nil)
	return nil
}
