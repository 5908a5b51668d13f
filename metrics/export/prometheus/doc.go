// Package prometheus exposes Authority metrics through client_golang.
//
// [NewCollector] implements prometheus.Collector and can be registered with
// any registry; [Handler] mounts a private registry for the /metrics route.
// Counter names are tokenguard_*_total and the single histogram is
// tokenguard_authenticate_latency_seconds.
package prometheus
