package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/respond"
)

// Authenticator is the part of *tokenguard.Authority the guard needs.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*tokenguard.Claims, error)
}

// Guard rejects requests without a valid, unrevoked bearer token and stores
// the authenticated claims in the request context for the next handler.
func Guard(auth Authenticator, log logrus.FieldLogger) func(http.Handler) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				respond.Fatal(w, log, "authentication is not configured", tokenguard.ErrNotReady)
				return
			}

			claims, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(tokenguard.WithClaims(r.Context(), claims)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, tokenguard.ErrMissingCredentials):
		w.Header().Set("WWW-Authenticate", `Bearer realm="tokenguard"`)
		respond.Error(w, http.StatusUnauthorized, respond.ErrorBody{
			Error:   respond.CodeUnauthorized,
			Message: "authentication required",
		})
	case errors.Is(err, tokenguard.ErrInvalidToken):
		respond.Error(w, http.StatusForbidden, respond.ErrorBody{
			Error:   respond.CodeInvalidToken,
			Message: "token is not valid",
			Detail:  err.Error(),
		})
	case errors.Is(err, tokenguard.ErrExpiredSession):
		respond.Error(w, http.StatusUnauthorized, respond.ErrorBody{
			Error:   respond.CodeSessionExpired,
			Message: "your session has expired, please sign in again",
		})
	default:
		respond.Fatal(w, log, "could not authenticate request", err)
	}
}

// ClientIP records the caller address with tokenguard.WithClientIP. When
// trustProxy is set the first X-Forwarded-For entry wins over RemoteAddr.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r.RemoteAddr)
			if trustProxy {
				if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
					first, _, _ := strings.Cut(fwd, ",")
					if first = strings.TrimSpace(first); first != "" {
						ip = first
					}
				}
			}
			if ip != "" {
				r = r.WithContext(tokenguard.WithClientIP(r.Context(), ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
