// Package scheduler drives the refresh loop.
//
// One goroutine (Run) is the only writer of the snapshot store and the sink.
// Every interval it re-reads each container of every active scope; dirty
// notifications wake it early to re-read just the flagged containers. Scope
// registration, suspension and dirty marks may come from any goroutine: they
// only touch the mutex-guarded registry and are consumed by the loop on its
// next iteration.
//
// Failures never escape Run. Unavailable containers are skipped, results for
// scopes suspended mid-read are discarded, and any other reader error or panic
// is logged before the loop restarts after a cooldown.
package scheduler
