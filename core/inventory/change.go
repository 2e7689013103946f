package inventory

import "time"

// RawTransition is the before/after pair of one slot that changed between two snapshots.
type RawTransition struct {
	Slot SlotKey         `json:"slot"`
	From StackDescriptor `json:"from"`
	To   StackDescriptor `json:"to"`
}

// Delta returns the signed quantity change observed at the slot.
func (t RawTransition) Delta() int64 {
	return int64(t.To.Count()) - int64(t.From.Count())
}

// ChangeKind classifies a semantic change.
type ChangeKind string

const (
	ChangeAdded            ChangeKind = "added"
	ChangeRemoved          ChangeKind = "removed"
	ChangeMoved            ChangeKind = "moved"
	ChangeAttributeChanged ChangeKind = "attribute_changed"
	ChangeQuantityChanged  ChangeKind = "quantity_changed"
)

// AllChangeKinds lists every change kind.
var AllChangeKinds = []ChangeKind{
	ChangeAdded, ChangeRemoved, ChangeMoved, ChangeAttributeChanged, ChangeQuantityChanged,
}

// IsValid reports whether k is a known change kind.
func (k ChangeKind) IsValid() bool {
	for _, known := range AllChangeKinds {
		if k == known {
			return true
		}
	}
	return false
}

// SlotStack is a stack together with the slot it occupies.
type SlotStack struct {
	Slot  SlotKey         `json:"slot"`
	Stack StackDescriptor `json:"stack"`
}

// At pairs a descriptor with its slot.
func At(slot SlotKey, stack StackDescriptor) *SlotStack {
	return &SlotStack{Slot: slot, Stack: stack}
}

// Change is one classified event derived from one or more raw transitions.
type Change struct {
	Kind ChangeKind `json:"kind"`
	From *SlotStack `json:"from,omitempty"`
	To   *SlotStack `json:"to,omitempty"`
	// Quantity is the number of units the change is about: the stack size for
	// Added/Removed, the transferred units for Moved, the new size otherwise.
	Quantity uint32 `json:"quantity"`
	// Delta is the signed effect on the scope's aggregate count. Moves are zero.
	Delta   int64  `json:"delta"`
	BatchID uint64 `json:"batch_id"`
}

// Item returns the identity the change is about.
func (c Change) Item() ItemIdentity {
	if c.To != nil && !c.To.Stack.IsEmpty() {
		return c.To.Stack.Item
	}
	if c.From != nil {
		return c.From.Stack.Item
	}
	return ItemIdentity{}
}

// Batch groups the changes produced by one reconciliation pass of one scope.
type Batch struct {
	ID      uint64   `json:"id"`
	Scope   ScopeID  `json:"scope"`
	Changes []Change `json:"changes"`
	// Initial marks the first batch after a scope was registered.
	Initial     bool      `json:"initial"`
	CompletedAt time.Time `json:"completed_at"`
}

// Filter returns the changes whose kind is in kinds. An empty kinds list keeps everything.
func (b Batch) Filter(kinds ...ChangeKind) []Change {
	if len(kinds) == 0 {
		return b.Changes
	}
	out := make([]Change, 0, len(b.Changes))
	for _, c := range b.Changes {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
