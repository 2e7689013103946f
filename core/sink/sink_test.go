package sink

import (
	"testing"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	char   = inventory.Character(1)
	ret    = inventory.Retainer(2)
	potion = inventory.ItemIdentity{ItemID: 4551}
	ore    = inventory.ItemIdentity{ItemID: 5111}
)

func at(scope inventory.ScopeID, index int, item inventory.ItemIdentity, qty uint32) *inventory.SlotStack {
	return inventory.At(
		inventory.SlotKey{Scope: scope, Container: inventory.Bag0, Index: index},
		inventory.StackDescriptor{Item: item, Quantity: qty},
	)
}

func newSink(t *testing.T) (*Sink, *Dispatcher, *metrics.Metrics) {
	t.Helper()
	d := NewDispatcher(zap.NewNop())
	m := metrics.NewNop()
	return New(d, m, zap.NewNop(), 3), d, m
}

func TestSink_ApplyUpdatesCounts(t *testing.T) {
	s, _, m := newSink(t)

	delta := s.Apply(inventory.Batch{ID: 1, Scope: char, Changes: []inventory.Change{
		{Kind: inventory.ChangeAdded, To: at(char, 0, potion, 10), Quantity: 10, Delta: 10},
		{Kind: inventory.ChangeAdded, To: at(char, 1, ore, 3), Quantity: 3, Delta: 3},
	}})
	assert.Equal(t, int64(10), delta.Net(potion))
	assert.Equal(t, uint32(10), s.Count(potion, char))
	assert.Equal(t, uint32(3), s.Count(ore, char))

	delta = s.Apply(inventory.Batch{ID: 2, Scope: char, Changes: []inventory.Change{
		{Kind: inventory.ChangeMoved, From: at(char, 0, potion, 10), To: at(char, 5, potion, 4), Quantity: 4},
		{Kind: inventory.ChangeQuantityChanged, From: at(char, 1, ore, 3), To: at(char, 1, ore, 1), Quantity: 1, Delta: -2},
	}})
	assert.Equal(t, int64(0), delta.Net(potion))
	assert.Equal(t, int64(-2), delta.Net(ore))
	assert.Equal(t, uint64(2), delta.Lost[ore])
	assert.Equal(t, uint32(10), s.Count(potion, char))
	assert.Equal(t, uint32(1), s.Count(ore, char))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Changes.WithLabelValues("added")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Changes.WithLabelValues("moved")))
}

func TestSink_CountAllAcrossScopes(t *testing.T) {
	s, _, _ := newSink(t)
	s.Apply(inventory.Batch{ID: 1, Scope: char, Changes: []inventory.Change{
		{Kind: inventory.ChangeAdded, To: at(char, 0, ore, 5), Quantity: 5, Delta: 5},
	}})
	s.Apply(inventory.Batch{ID: 2, Scope: ret, Changes: []inventory.Change{
		{Kind: inventory.ChangeAdded, To: at(ret, 0, ore, 999), Quantity: 999, Delta: 999},
	}})

	assert.Equal(t, uint32(1004), s.CountAll(ore))
	assert.Equal(t, []inventory.ScopeID{char, ret}, s.Scopes())
}

func TestSink_ClearResetsScope(t *testing.T) {
	s, d, _ := newSink(t)
	rec := &recorder{}
	d.Subscribe(rec)

	s.Apply(inventory.Batch{ID: 1, Scope: ret, Changes: []inventory.Change{
		{Kind: inventory.ChangeAdded, To: at(ret, 0, ore, 7), Quantity: 7, Delta: 7},
	}})
	s.Clear(ret)
	d.Drain()

	assert.Zero(t, s.Count(ore, ret))
	assert.Zero(t, s.CountAll(ore))
	assert.Empty(t, s.Log(ret))
	assert.Equal(t, []inventory.ScopeID{ret}, rec.cleared)
	require.Len(t, rec.batches, 1)
}

func TestSink_NegativeCountsClampToZero(t *testing.T) {
	s, _, _ := newSink(t)
	s.Apply(inventory.Batch{ID: 1, Scope: char, Changes: []inventory.Change{
		{Kind: inventory.ChangeRemoved, From: at(char, 0, ore, 4), Quantity: 4, Delta: -4},
	}})
	assert.Zero(t, s.Count(ore, char))
	assert.Empty(t, s.Totals(char))
}

func TestSink_LogIsBounded(t *testing.T) {
	s, _, _ := newSink(t)
	for i := uint64(1); i <= 5; i++ {
		s.Apply(inventory.Batch{ID: i, Scope: char, Changes: []inventory.Change{
			{Kind: inventory.ChangeAttributeChanged, From: at(char, 0, ore, 1), To: at(char, 0, ore, 1), Quantity: 1},
		}})
	}
	log := s.Log(char)
	require.Len(t, log, 3)
	assert.Equal(t, uint64(3), log[0].ID)
	assert.Equal(t, uint64(5), log[2].ID)
}

func TestSink_EmptyBatchIsNotPublished(t *testing.T) {
	s, d, _ := newSink(t)
	delta := s.Apply(inventory.Batch{Scope: char})
	assert.True(t, delta.IsZero())
	assert.Zero(t, d.Pending())
}

func TestItemCountDelta_IsZero(t *testing.T) {
	d := ItemCountDelta{
		Gained: map[inventory.ItemIdentity]uint64{ore: 2},
		Lost:   map[inventory.ItemIdentity]uint64{ore: 2},
	}
	assert.True(t, d.IsZero())
	d.Lost[potion] = 1
	assert.False(t, d.IsZero())
}
