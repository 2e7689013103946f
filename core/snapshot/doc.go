// Package snapshot holds the per-scope slot snapshots and turns refreshed
// container contents into raw transitions.
//
// The Store has a single writer (the refresh loop). Every Update publishes a new
// slice for the container it touched, so readers calling View never observe a
// container that is half written. A cheap structural hash per slot (xxhash) is
// used for dirty detection.
//
// Changeset coalesces transitions gathered during one refresh pass so that a
// slot appears at most once per batch, even when its container was refreshed
// more than once.
package snapshot
