package reconcile

import (
	"fmt"
	"sync/atomic"
	"time"

	"inventory-monitor/core/inventory"

	"go.uber.org/zap"
)

// Engine classifies raw transitions and stamps batch ids. It keeps no state
// besides the batch counter, so one engine can serve every scope.
type Engine struct {
	logger *zap.Logger
	lastID atomic.Uint64
	now    func() time.Time
}

// NewEngine creates an engine. Batch ids start at 1.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, now: time.Now}
}

// Reconcile runs every pass over the transitions of one scope and returns the
// resulting batch. A batch without changes keeps ID 0 and does not consume an id.
func (e *Engine) Reconcile(scope inventory.ScopeID, transitions []inventory.RawTransition) (inventory.Batch, Summary) {
	changes, summary := Classify(transitions)

	batch := inventory.Batch{Scope: scope, Changes: changes, CompletedAt: e.now()}
	if len(changes) == 0 {
		return batch, summary
	}

	// Pass 4: finalize.
	batch.ID = e.lastID.Add(1)
	for i := range batch.Changes {
		batch.Changes[i].BatchID = batch.ID
	}

	if err := Verify(transitions, changes); err != nil {
		e.logger.Error("Reconciliation broke quantity conservation",
			zap.String("scope", scope.String()),
			zap.Uint64("batch_id", batch.ID),
			zap.Error(err),
		)
	}
	if summary.Fallbacks > 0 {
		e.logger.Debug("Transitions reported without a matching counterpart",
			zap.String("scope", scope.String()),
			zap.Uint64("batch_id", batch.ID),
			zap.Int("fallbacks", summary.Fallbacks),
			zap.Error(inventory.ErrReconciliationFallback),
		)
	}
	return batch, summary
}

// Resume makes the next batch id follow last. It never lowers the counter.
func (e *Engine) Resume(last uint64) {
	for {
		cur := e.lastID.Load()
		if last <= cur || e.lastID.CompareAndSwap(cur, last) {
			return
		}
	}
}

// LastBatchID returns the id of the most recent non-empty batch.
func (e *Engine) LastBatchID() uint64 {
	return e.lastID.Load()
}

// Classify runs passes 1 to 3. It is a pure function of its input: the same
// transitions in the same order always yield the same changes.
func Classify(transitions []inventory.RawTransition) ([]inventory.Change, Summary) {
	summary := Summary{Transitions: len(transitions), Kinds: make(map[inventory.ChangeKind]int)}
	entries := make([]*entry, len(transitions))
	for i, t := range transitions {
		entries[i] = &entry{t: t}
	}

	var changes []inventory.Change
	emit := func(c inventory.Change) {
		changes = append(changes, c)
		summary.Kinds[c.Kind]++
	}

	// Pass 1: same-position quantity conservation.
	for _, a := range entries {
		if !a.untouched() {
			continue
		}
		for _, b := range entries {
			if a == b || !b.untouched() {
				continue
			}
			qty, ok := conserves(a.t, b.t)
			if !ok {
				continue
			}
			emit(inventory.Change{
				Kind:     inventory.ChangeMoved,
				From:     inventory.At(a.t.Slot, a.t.From),
				To:       inventory.At(b.t.Slot, b.t.To),
				Quantity: qty,
			})
			a.claim()
			b.claim()
			summary.Conserved++
			break
		}
	}

	// Pass 2: cross-position identity matching.
	for _, t := range entries {
		if t.canDepart() {
			if u := findArrival(entries, t); u != nil {
				emit(moved(t, u))
				summary.Relinked++
			}
		}
		if t.canArrive() {
			if u := findDeparture(entries, t); u != nil {
				emit(moved(u, t))
				summary.Relinked++
			}
		}
	}

	// Pass 3: single-slot resolution.
	for _, t := range entries {
		if t.done() {
			continue
		}
		summary.Resolved++
		if !t.untouched() {
			// Half of the slot was explained by a move; the rest has no counterpart.
			summary.Fallbacks++
			if !t.t.From.IsEmpty() && !t.departed {
				emit(removed(t.t))
			}
			if !t.t.To.IsEmpty() && !t.arrived {
				emit(added(t.t))
			}
			continue
		}
		for _, c := range resolve(t.t) {
			emit(c)
		}
		if !t.t.From.IsEmpty() && !t.t.To.IsEmpty() && !t.t.From.SameItem(t.t.To) {
			summary.Fallbacks++
		}
	}

	return changes, summary
}

// conserves reports whether a gave exactly the quantity b received, under one
// of the four structural shapes. a is always the losing side.
func conserves(a, b inventory.RawTransition) (uint32, bool) {
	if a.Slot == b.Slot {
		return 0, false
	}
	da, db := a.Delta(), b.Delta()
	if da >= 0 || da != -db {
		return 0, false
	}

	aFrom, aTo := a.From, a.To
	bFrom, bTo := b.From, b.To
	matched := false
	switch {
	// Whole-stack relocation into an empty slot.
	case aTo.IsEmpty() && bFrom.IsEmpty():
		matched = aFrom.SameItem(bTo)
	// Partial transfer between two stacks of the same item.
	case !aTo.IsEmpty() && !bFrom.IsEmpty():
		matched = aFrom.SameItem(aTo) && aTo.SameItem(bFrom) && bFrom.SameItem(bTo)
	// Split into a new stack.
	case !aTo.IsEmpty() && bFrom.IsEmpty():
		matched = aFrom.SameItem(aTo) && aTo.SameItem(bTo)
	// Merge of a whole stack into an existing one.
	case aTo.IsEmpty() && !bFrom.IsEmpty():
		matched = bFrom.SameItem(bTo) && aFrom.SameItem(bTo)
	}
	if !matched {
		return 0, false
	}
	return uint32(-da), true
}

func findArrival(entries []*entry, t *entry) *entry {
	for _, u := range entries {
		if u == t || u.t.Slot == t.t.Slot || !u.canArrive() {
			continue
		}
		if u.t.To.SameItem(t.t.From) && u.t.To.Quantity == t.t.From.Quantity {
			return u
		}
	}
	return nil
}

func findDeparture(entries []*entry, t *entry) *entry {
	for _, u := range entries {
		if u == t || u.t.Slot == t.t.Slot || !u.canDepart() {
			continue
		}
		if u.t.From.SameItem(t.t.To) && u.t.From.Quantity == t.t.To.Quantity {
			return u
		}
	}
	return nil
}

// moved pairs the departure of src with the arrival at dst and claims both halves.
func moved(src, dst *entry) inventory.Change {
	src.departed = true
	dst.arrived = true
	return inventory.Change{
		Kind:     inventory.ChangeMoved,
		From:     inventory.At(src.t.Slot, src.t.From),
		To:       inventory.At(dst.t.Slot, dst.t.To),
		Quantity: dst.t.To.Quantity,
	}
}

// resolve classifies a transition no other slot explains.
func resolve(t inventory.RawTransition) []inventory.Change {
	switch {
	case t.From.IsEmpty() && t.To.IsEmpty():
		return nil
	case t.From.IsEmpty():
		return []inventory.Change{added(t)}
	case t.To.IsEmpty():
		return []inventory.Change{removed(t)}
	case !t.From.SameItem(t.To):
		return []inventory.Change{removed(t), added(t)}
	}

	kind := inventory.ChangeAttributeChanged
	if t.From.Quantity != t.To.Quantity && t.From.Attributes == t.To.Attributes {
		kind = inventory.ChangeQuantityChanged
	}
	if t.From == t.To {
		return nil
	}
	return []inventory.Change{{
		Kind:     kind,
		From:     inventory.At(t.Slot, t.From),
		To:       inventory.At(t.Slot, t.To),
		Quantity: t.To.Quantity,
		Delta:    t.Delta(),
	}}
}

func added(t inventory.RawTransition) inventory.Change {
	return inventory.Change{
		Kind:     inventory.ChangeAdded,
		To:       inventory.At(t.Slot, t.To),
		Quantity: t.To.Quantity,
		Delta:    int64(t.To.Quantity),
	}
}

func removed(t inventory.RawTransition) inventory.Change {
	return inventory.Change{
		Kind:     inventory.ChangeRemoved,
		From:     inventory.At(t.Slot, t.From),
		Quantity: t.From.Quantity,
		Delta:    -int64(t.From.Quantity),
	}
}

// Verify checks that the changes account for the per-item quantity delta of
// the transitions they were built from.
func Verify(transitions []inventory.RawTransition, changes []inventory.Change) error {
	want := make(map[inventory.ItemIdentity]int64)
	for _, t := range transitions {
		if !t.From.IsEmpty() {
			want[t.From.Item] -= int64(t.From.Quantity)
		}
		if !t.To.IsEmpty() {
			want[t.To.Item] += int64(t.To.Quantity)
		}
	}
	got := make(map[inventory.ItemIdentity]int64)
	for _, c := range changes {
		if c.Delta != 0 {
			got[c.Item()] += c.Delta
		}
	}
	for item, delta := range want {
		if got[item] != delta {
			return fmt.Errorf("item %s: transitions moved %d, changes account for %d", item, delta, got[item])
		}
	}
	for item, delta := range got {
		if _, ok := want[item]; !ok && delta != 0 {
			return fmt.Errorf("item %s: changes account for %d with no transition", item, delta)
		}
	}
	return nil
}
