package reconcile

import "inventory-monitor/core/inventory"

// Summary provides aggregate statistics for one reconciliation.
type Summary struct {
	// Transitions is the number of raw transitions received.
	Transitions int `json:"transitions"`

	// Conserved counts transition pairs matched by quantity conservation.
	Conserved int `json:"conserved"`

	// Relinked counts stack halves paired by identity matching.
	Relinked int `json:"relinked"`

	// Resolved counts transitions classified on their own slot.
	Resolved int `json:"resolved"`

	// Fallbacks counts transitions reported as Removed/Added because no move
	// could explain them.
	Fallbacks int `json:"fallbacks"`

	// Kinds counts emitted changes per kind.
	Kinds map[inventory.ChangeKind]int `json:"kinds"`
}

// entry tracks which halves of a transition have been explained.
type entry struct {
	t inventory.RawTransition
	// departed is set once the From stack has been accounted for.
	departed bool
	// arrived is set once the To stack has been accounted for.
	arrived bool
}

func (e *entry) untouched() bool {
	return !e.departed && !e.arrived
}

func (e *entry) claim() {
	e.departed = true
	e.arrived = true
}

func (e *entry) done() bool {
	return (e.t.From.IsEmpty() || e.departed) && (e.t.To.IsEmpty() || e.arrived)
}

// sameSlotItem reports whether the slot kept its item and only quantity or
// attributes changed.
func (e *entry) sameSlotItem() bool {
	return !e.t.From.IsEmpty() && !e.t.To.IsEmpty() && e.t.From.SameItem(e.t.To)
}

// canDepart reports whether the From stack is still available as a whole-stack departure.
func (e *entry) canDepart() bool {
	return !e.t.From.IsEmpty() && !e.departed && !e.sameSlotItem()
}

// canArrive reports whether the To stack is still available as a whole-stack arrival.
func (e *entry) canArrive() bool {
	return !e.t.To.IsEmpty() && !e.arrived && !e.sameSlotItem()
}
