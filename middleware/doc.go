// Package middleware adapts the tokenguard Authority to net/http.
//
// [Guard] reads the Authorization header, calls Authority.Authenticate and
// injects the claims into the request context, retrievable with
// tokenguard.ClaimsFromContext. Failures become JSON error bodies:
//
//   - missing or malformed header: 401 unauthorized
//   - bad signature, algorithm or expiry: 403 invalid_token with detail
//   - revoked or fingerprint-stale token: 401 session_expired
//   - anything else: 500 fatal_error
//
// [ClientIP] makes the caller address available to signin throttling and
// audit events.
package middleware
