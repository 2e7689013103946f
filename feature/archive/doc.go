// Package archive exports scope snapshots to object storage.
//
// The Service subscribes to the change dispatcher and remembers which scopes
// changed. Every interval it uploads the current snapshot of each changed
// scope as <prefix>/<scope>.json; concurrent exports of the same scope share
// one upload. When a scope is cleared its archived object is marked for
// deletion and removed by the next flush, unless a later batch revives it.
//
// # HTTP Endpoints
//
//   - GET /archive : Lists archived scopes.
//   - GET /archive/:scope : Returns the archived snapshot of a scope.
//   - POST /archive/:scope : Exports a scope now.
//   - DELETE /archive : Deletes every archived snapshot.
package archive
