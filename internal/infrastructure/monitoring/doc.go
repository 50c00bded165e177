// Package monitoring provides Prometheus metrics for the host: HTTP
// request histograms, app lifecycle counters, router sync counters, and
// WebSocket connection gauges.
package monitoring
