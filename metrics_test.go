package tokenguard

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSigninSuccess)

	if got := m.Value(MetricSigninSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRevocationCacheHit)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRevocationCacheHit); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	} {
		m.Observe(MetricAuthenticateLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricAuthenticateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotExcludesHistogramFromCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLogout)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)
	m.Observe(MetricSigninSuccess, time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricLogout] != 1 {
		t.Fatalf("expected logout=1, got %d", snap.Counters[MetricLogout])
	}
	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("latency must not appear as a counter")
	}
	if len(snap.Histograms) != 1 {
		t.Fatalf("expected only the latency histogram, got %d", len(snap.Histograms))
	}
}

func TestAuthenticateRecordsLatency(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.createUser(t, "alice01", "password-1")
	token, _ := env.signin(t, "alice01", "password-1")

	if _, err := env.auth.AuthenticateToken(t.Context(), token); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	var total uint64
	for _, v := range env.auth.MetricsSnapshot().Histograms[MetricAuthenticateLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency sample, got %d", total)
	}
}

func TestAuthoritySnapshotReportsCacheAndAudit(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnv(t, func(c *Config) { c.Audit.Enabled = true }, sink)
	env.createUser(t, "alice01", "password-1")
	_, claims := env.signin(t, "alice01", "password-1")

	if _, err := env.auth.IsRevoked(t.Context(), claims.ID); err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	env.auth.Close()

	snap := env.auth.MetricsSnapshot()
	if snap.CacheEntries != 1 {
		t.Fatalf("expected 1 cached lookup, got %d", snap.CacheEntries)
	}
	if snap.AuditDelivered != 1 {
		t.Fatalf("expected the signin event delivered, got %d", snap.AuditDelivered)
	}
}
