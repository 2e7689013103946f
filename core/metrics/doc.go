// Package metrics exposes Prometheus instruments for the refresh loop and the
// change sink.
package metrics
