package snapshot

import (
	"sort"
	"sync"

	"inventory-monitor/core/inventory"
)

// container is one published version of a container's slots. It is never
// mutated after it has been stored.
type container struct {
	stacks []inventory.StackDescriptor
	hashes []uint64
}

// Store maps scope -> container kind -> slots.
type Store struct {
	mu     sync.RWMutex
	scopes map[inventory.ScopeID]map[inventory.ContainerKind]*container
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{scopes: make(map[inventory.ScopeID]map[inventory.ContainerKind]*container)}
}

// Ensure creates an empty snapshot for scope if none exists.
func (s *Store) Ensure(scope inventory.ScopeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scopes[scope]; !ok {
		s.scopes[scope] = make(map[inventory.ContainerKind]*container)
	}
}

// Drop discards the snapshot of scope. It reports whether one existed.
func (s *Store) Drop(scope inventory.ScopeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scopes[scope]
	delete(s.scopes, scope)
	return ok
}

// Has reports whether scope has a snapshot.
func (s *Store) Has(scope inventory.ScopeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.scopes[scope]
	return ok
}

// Scopes returns every scope with a snapshot, sorted by text form.
func (s *Store) Scopes() []inventory.ScopeID {
	s.mu.RLock()
	out := make([]inventory.ScopeID, 0, len(s.scopes))
	for scope := range s.scopes {
		out = append(out, scope)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Update replaces the content of one container and returns a transition for
// every slot whose structural hash changed. A container never seen before is
// compared against empty slots. Calling Update twice with the same slots
// yields no transitions the second time.
func (s *Store) Update(scope inventory.ScopeID, kind inventory.ContainerKind, newSlots []inventory.StackDescriptor) []inventory.RawTransition {
	next := &container{
		stacks: make([]inventory.StackDescriptor, len(newSlots)),
		hashes: make([]uint64, len(newSlots)),
	}
	for i, stack := range newSlots {
		if stack.IsEmpty() {
			stack = inventory.Empty
		}
		next.stacks[i] = stack
		next.hashes[i] = Hash(stack)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	containers, ok := s.scopes[scope]
	if !ok {
		containers = make(map[inventory.ContainerKind]*container)
		s.scopes[scope] = containers
	}
	prev := containers[kind]

	n := len(next.stacks)
	if prev != nil && len(prev.stacks) > n {
		n = len(prev.stacks)
	}

	var transitions []inventory.RawTransition
	for i := 0; i < n; i++ {
		from, fromHash := slotAt(prev, i)
		to, toHash := slotAt(next, i)
		if fromHash == toHash {
			continue
		}
		transitions = append(transitions, inventory.RawTransition{
			Slot: inventory.SlotKey{Scope: scope, Container: kind, Index: i},
			From: from,
			To:   to,
		})
	}

	if prev == nil || len(transitions) > 0 || len(prev.stacks) != len(next.stacks) {
		containers[kind] = next
	}
	return transitions
}

func slotAt(c *container, i int) (inventory.StackDescriptor, uint64) {
	if c == nil || i >= len(c.stacks) {
		return inventory.Empty, 0
	}
	return c.stacks[i], c.hashes[i]
}

// Stack returns the descriptor stored at key, or Empty.
func (s *Store) Stack(key inventory.SlotKey) inventory.StackDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stack, _ := slotAt(s.scopes[key.Scope][key.Container], key.Index)
	return stack
}

// View is a read-only copy of a scope's snapshot. The slices are shared with
// the store and must not be modified.
type View struct {
	Scope      inventory.ScopeID                                       `json:"scope"`
	Containers map[inventory.ContainerKind][]inventory.StackDescriptor `json:"containers"`
}

// View returns the current snapshot of scope.
func (s *Store) View(scope inventory.ScopeID) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	containers, ok := s.scopes[scope]
	if !ok {
		return View{}, false
	}
	v := View{Scope: scope, Containers: make(map[inventory.ContainerKind][]inventory.StackDescriptor, len(containers))}
	for kind, c := range containers {
		v.Containers[kind] = c.stacks
	}
	return v, true
}

// Totals sums quantities per item identity across every container of the view.
func (v View) Totals() map[inventory.ItemIdentity]uint64 {
	totals := make(map[inventory.ItemIdentity]uint64)
	for _, stacks := range v.Containers {
		for _, stack := range stacks {
			if stack.IsEmpty() {
				continue
			}
			totals[stack.Item] += uint64(stack.Quantity)
		}
	}
	return totals
}
