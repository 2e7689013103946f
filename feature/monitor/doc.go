// Package monitor exposes the live inventory state over HTTP.
//
// # HTTP Endpoints
//
//   - GET /inventory/scopes : Lists known scopes with their state.
//   - POST /inventory/scopes : Registers a scope ({"scope": "retainer:42"}).
//   - DELETE /inventory/scopes/:scope : Suspends a scope and clears its counts.
//   - GET /inventory/count : Aggregate count of one item (?item=, ?hq=, ?flags=, ?scope=).
//   - GET /inventory/totals : Every item count of a scope (?scope=).
//   - GET /inventory/snapshot : Current slot contents of a scope (?scope=).
//   - POST /inventory/dirty : Requests an out-of-cycle refresh ({"scope", "container"}).
//   - GET /inventory/log : Recent batches of a scope (?scope=).
//   - GET /metrics : Prometheus metrics.
package monitor
