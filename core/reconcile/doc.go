// Package reconcile turns the raw slot transitions of one refresh pass into
// semantic inventory changes.
//
// The live source only exposes "current state", so a stack that was moved,
// split or merged shows up as two unrelated slot changes. The engine pairs
// those slot changes back together before falling back to plain additions and
// removals.
//
// # Passes
//
// The engine runs four passes over a scope's transitions. Each pass claims the
// transitions (or transition halves) it explains; later passes only look at
// what is left. Within a pass the first match in input order wins.
//
// 1. Quantity conservation: two slots whose quantity deltas cancel out under
//    one of four shapes (relocation, transfer between stacks, split, merge)
//    become a single Moved change.
//
// 2. Identity matching: a stack that left one slot and an identical-quantity
//    stack of the same item that arrived at another slot become a Moved change.
//    Swaps resolve to two moves.
//
// 3. Single-slot resolution: whatever remains is classified locally as
//    QuantityChanged, AttributeChanged, Added or Removed. A slot whose item was
//    replaced with no counterpart elsewhere yields Removed and Added.
//
// 4. Finalize: every change of the pass gets the same, monotonically
//    increasing batch id.
//
// The engine has no failure path. Input it cannot explain degrades to the
// least specific change kinds and is counted as a fallback.
//
// # Usage
//
//	engine := reconcile.NewEngine(logger)
//	batch := engine.Reconcile(scope, changeset.Transitions())
package reconcile
