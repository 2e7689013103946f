// Package sink maintains the aggregate item counts of every scope and
// publishes reconciled batches to subscribers.
//
// # Counters
//
// Sink.Apply folds a batch into the (item identity, scope) -> quantity table
// and returns the gained/lost quantities of that batch. Moves are net zero and
// leave the table untouched. The table must always agree with a recount of the
// snapshot store.
//
// # Publication
//
// Batches and "scope cleared" events are queued on a Dispatcher and delivered
// on a single goroutine (Dispatcher.Run, or Dispatcher.Drain from a caller's
// own loop), so subscribers never see concurrent callbacks. Subscribers may
// restrict the change kinds they receive.
package sink
