package internaldefs

import (
	"github.com/MrEthical07/tokenguard"
)

type CounterDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

// Series exported by every backend alongside the counters. They are read
// from the snapshot and the Authority rather than from MetricID counters.
const (
	AuditDroppedName   = "tokenguard_audit_dropped_total"
	AuditDroppedHelp   = "Audit events dropped under dispatcher backpressure."
	AuditDeliveredName = "tokenguard_audit_delivered_total"
	AuditDeliveredHelp = "Audit events handed to the sink."
	CacheEntriesName   = "tokenguard_revocation_cache_entries"
	CacheEntriesHelp   = "Revocation lookups currently memoized in process."
)

// CounterDefs lists every Authority counter in export order.
var CounterDefs = []CounterDef{
	{ID: tokenguard.MetricSigninSuccess, Name: "tokenguard_signin_success_total", Help: "Successful signins."},
	{ID: tokenguard.MetricSigninFailure, Name: "tokenguard_signin_failure_total", Help: "Signins rejected for unknown user or wrong password."},
	{ID: tokenguard.MetricSigninRateLimited, Name: "tokenguard_signin_rate_limited_total", Help: "Signins rejected by the throttle."},
	{ID: tokenguard.MetricSignupSuccess, Name: "tokenguard_signup_success_total", Help: "Accounts created."},
	{ID: tokenguard.MetricSignupDuplicate, Name: "tokenguard_signup_duplicate_total", Help: "Signups rejected for a taken username or email."},
	{ID: tokenguard.MetricSignupInvalid, Name: "tokenguard_signup_invalid_total", Help: "Signups rejected by validation."},
	{ID: tokenguard.MetricPasswordChangeSuccess, Name: "tokenguard_password_change_success_total", Help: "Successful password changes."},
	{ID: tokenguard.MetricPasswordChangeInvalidOld, Name: "tokenguard_password_change_invalid_old_total", Help: "Password changes with a wrong previous password."},
	{ID: tokenguard.MetricLogout, Name: "tokenguard_logout_total", Help: "Logouts."},
	{ID: tokenguard.MetricTokenIssued, Name: "tokenguard_token_issued_total", Help: "Session tokens signed."},
	{ID: tokenguard.MetricTokenRevoked, Name: "tokenguard_token_revoked_total", Help: "Revocation records written."},
	{ID: tokenguard.MetricAuthenticateSuccess, Name: "tokenguard_authenticate_success_total", Help: "Requests authenticated."},
	{ID: tokenguard.MetricAuthenticateInvalidToken, Name: "tokenguard_authenticate_invalid_token_total", Help: "Tokens failing signature, claim or expiry checks."},
	{ID: tokenguard.MetricAuthenticateRevoked, Name: "tokenguard_authenticate_revoked_total", Help: "Tokens rejected as revoked."},
	{ID: tokenguard.MetricFingerprintMismatch, Name: "tokenguard_fingerprint_mismatch_total", Help: "Tokens rejected for a stale fingerprint."},
	{ID: tokenguard.MetricRevocationCacheHit, Name: "tokenguard_revocation_cache_hit_total", Help: "Revocation lookups served from the cache."},
	{ID: tokenguard.MetricRevocationCacheMiss, Name: "tokenguard_revocation_cache_miss_total", Help: "Revocation lookups sent to the store."},
	{ID: tokenguard.MetricFailOpen, Name: "tokenguard_fail_open_total", Help: "Requests allowed after a revocation store or directory failure."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenguard.MetricAuthenticateLatency, Name: "tokenguard_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for backends
// without native histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
