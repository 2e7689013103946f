package snapshot

import "inventory-monitor/core/inventory"

// Changeset accumulates the raw transitions of one refresh pass, keeping at
// most one transition per slot. When a slot changes twice, the earliest From
// and the latest To are kept; a slot that returned to its original content is
// dropped.
type Changeset struct {
	order []inventory.SlotKey
	byKey map[inventory.SlotKey]inventory.RawTransition
}

// NewChangeset creates an empty changeset.
func NewChangeset() *Changeset {
	return &Changeset{byKey: make(map[inventory.SlotKey]inventory.RawTransition)}
}

// Add merges transitions into the set.
func (c *Changeset) Add(transitions ...inventory.RawTransition) {
	for _, t := range transitions {
		prev, seen := c.byKey[t.Slot]
		if !seen {
			c.order = append(c.order, t.Slot)
			c.byKey[t.Slot] = t
			continue
		}
		prev.To = t.To
		c.byKey[t.Slot] = prev
	}
}

// Len returns the number of slots that currently differ.
func (c *Changeset) Len() int {
	return len(c.Transitions())
}

// Transitions returns the coalesced transitions in first-seen order.
func (c *Changeset) Transitions() []inventory.RawTransition {
	out := make([]inventory.RawTransition, 0, len(c.order))
	for _, key := range c.order {
		t := c.byKey[key]
		if Hash(t.From) == Hash(t.To) {
			continue
		}
		out = append(out, t)
	}
	return out
}
