package source

import (
	"context"

	"inventory-monitor/core/inventory"

	"go.uber.org/zap"
)

// ContainerReader reads the current slots of one container.
type ContainerReader interface {
	// Read returns the slots in physical order. It returns an error wrapping
	// inventory.ErrSourceUnavailable when the container is not loaded; any
	// other error is treated as a fault of the refresh loop.
	Read(ctx context.Context, scope inventory.ScopeID, kind inventory.ContainerKind) ([]inventory.StackDescriptor, error)
}

// OrderingSource supplies the display order of a container.
type OrderingSource interface {
	// SlotOrder returns, for each physical index, the logical index it is shown
	// at. ok is false when no ordering is known for the container.
	SlotOrder(scope inventory.ScopeID, kind inventory.ContainerKind) (order []int, ok bool)
}

// DirtyEvent asks for an out-of-cycle refresh of one container.
type DirtyEvent struct {
	Scope     inventory.ScopeID       `json:"scope"`
	Container inventory.ContainerKind `json:"container"`
}

// DirtyNotifier is an asynchronous stream of dirty events. The channel is
// closed when the notifier stops.
type DirtyNotifier interface {
	Events() <-chan DirtyEvent
}

// ReaderFunc adapts a function to ContainerReader.
type ReaderFunc func(ctx context.Context, scope inventory.ScopeID, kind inventory.ContainerKind) ([]inventory.StackDescriptor, error)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, scope inventory.ScopeID, kind inventory.ContainerKind) ([]inventory.StackDescriptor, error) {
	return f(ctx, scope, kind)
}

// ApplyOrder rearranges physical slots into logical order. An order that is not
// a permutation of the slot indexes is ignored and the slots are returned as is.
func ApplyOrder(slots []inventory.StackDescriptor, order []int, logger *zap.Logger) []inventory.StackDescriptor {
	if len(order) == 0 {
		return slots
	}
	if len(order) != len(slots) {
		logger.Warn("Ignoring slot order with wrong length",
			zap.Int("slots", len(slots)),
			zap.Int("order", len(order)),
		)
		return slots
	}
	seen := make([]bool, len(order))
	out := make([]inventory.StackDescriptor, len(slots))
	for physical, logical := range order {
		if logical < 0 || logical >= len(slots) || seen[logical] {
			logger.Warn("Ignoring slot order that is not a permutation", zap.Int("index", logical))
			return slots
		}
		seen[logical] = true
		out[logical] = slots[physical]
	}
	return out
}
