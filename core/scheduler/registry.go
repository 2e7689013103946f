package scheduler

import (
	"sort"

	"inventory-monitor/core/inventory"
)

// State is the lifecycle state of a scope.
type State string

const (
	StateUnregistered State = "unregistered"
	StateActive       State = "active"
	StateSuspended    State = "suspended"
)

// ScopeStatus pairs a scope with its state.
type ScopeStatus struct {
	Scope inventory.ScopeID `json:"scope"`
	State State             `json:"state"`
}

type commandKind int

const (
	cmdRegister commandKind = iota
	cmdSuspend
)

// command is a lifecycle change waiting to be applied by the loop.
type command struct {
	kind  commandKind
	scope inventory.ScopeID
}

// dirtySet holds the container kinds flagged for an out-of-cycle refresh.
// Marking the same kind twice before it is drained has no further effect.
type dirtySet map[inventory.ScopeID]map[inventory.ContainerKind]struct{}

func (d dirtySet) mark(scope inventory.ScopeID, kind inventory.ContainerKind) {
	kinds, ok := d[scope]
	if !ok {
		kinds = make(map[inventory.ContainerKind]struct{})
		d[scope] = kinds
	}
	kinds[kind] = struct{}{}
}

// sorted returns the flagged kinds of scope in catalog order.
func (d dirtySet) sorted(scope inventory.ScopeID) []inventory.ContainerKind {
	out := make([]inventory.ContainerKind, 0, len(d[scope]))
	for kind := range d[scope] {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortScopes(scopes []inventory.ScopeID) {
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].String() < scopes[j].String() })
}
