// Package cmd contains the cobra command tree of inventory-monitor.
//
// # Commands
//
//   - start: Loads the dump directory and runs the refresh loop, the
//     subscribers and the HTTP server.
//   - diff [before.yaml] [after.yaml]: Prints the semantic changes between two
//     dumps of one scope.
//   - scope [scope]: Lists dumped scopes or prints the item totals of one.
//   - check [dumps|history|archive]: Validates the dump files, the history
//     table and the archive bucket.
package cmd
