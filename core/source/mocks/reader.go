package mocks

import (
	"context"

	"inventory-monitor/core/inventory"

	"github.com/stretchr/testify/mock"
)

// Reader is a mock implementation of source.ContainerReader
type Reader struct {
	mock.Mock
}

func (m *Reader) Read(ctx context.Context, scope inventory.ScopeID, kind inventory.ContainerKind) ([]inventory.StackDescriptor, error) {
	args := m.Called(ctx, scope, kind)
	if slots, ok := args.Get(0).([]inventory.StackDescriptor); ok {
		return slots, args.Error(1)
	}
	return nil, args.Error(1)
}

// Ordering is a mock implementation of source.OrderingSource
type Ordering struct {
	mock.Mock
}

func (m *Ordering) SlotOrder(scope inventory.ScopeID, kind inventory.ContainerKind) ([]int, bool) {
	args := m.Called(scope, kind)
	if order, ok := args.Get(0).([]int); ok {
		return order, args.Bool(1)
	}
	return nil, args.Bool(1)
}
