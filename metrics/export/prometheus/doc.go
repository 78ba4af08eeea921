// Package prometheus exposes iuran client metrics as a Prometheus
// collector.
//
// [NewCollector] reads [iuran.Client.MetricsSnapshot] on every scrape and
// emits const metrics, so nothing is registered globally. [Handler] wraps the
// collector in a private registry for mounting at /metrics.
package prometheus
