// Package history persists published inventory changes.
//
// A Recorder subscribes to the change dispatcher and writes every change of a
// non-initial batch to the inventory_changes table. Moved changes are skipped
// unless include_moves is set: they do not alter any count and would dominate
// the table during inventory sorting.
//
// # HTTP Endpoints
//
//   - GET /history : Lists recent changes (supports ?scope=, ?kind=, ?item=, ?limit=).
//   - GET /history/schema : Reports columns missing from the inventory_changes table.
package history
