// Package pkgmetrics exposes Prometheus metrics for the HTTP server.
package pkgmetrics
