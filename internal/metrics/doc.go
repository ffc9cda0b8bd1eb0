// Package metrics exposes the daemon's Prometheus counters and gauges and a
// small health/readiness surface over HTTP, alongside the deploy-facing RPC
// listener.
package metrics
