package reconcile

import (
	"math/rand"
	"testing"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var scope = inventory.Character(1)

func slot(kind inventory.ContainerKind, index int) inventory.SlotKey {
	return inventory.SlotKey{Scope: scope, Container: kind, Index: index}
}

func tr(key inventory.SlotKey, from, to inventory.StackDescriptor) inventory.RawTransition {
	return inventory.RawTransition{Slot: key, From: from, To: to}
}

func kinds(changes []inventory.Change) []inventory.ChangeKind {
	out := make([]inventory.ChangeKind, len(changes))
	for i, c := range changes {
		out[i] = c.Kind
	}
	return out
}

func TestReconcile_FullStackMove(t *testing.T) {
	a, b := slot(inventory.Bag0, 2), slot(inventory.Bag1, 7)
	x := inventory.NewStack(5333, 5)

	batch, summary := NewEngine(zap.NewNop()).Reconcile(scope, []inventory.RawTransition{
		tr(a, x, inventory.Empty),
		tr(b, inventory.Empty, x),
	})

	require.Len(t, batch.Changes, 1)
	c := batch.Changes[0]
	assert.Equal(t, inventory.ChangeMoved, c.Kind)
	assert.Equal(t, a, c.From.Slot)
	assert.Equal(t, b, c.To.Slot)
	assert.Equal(t, uint32(5), c.Quantity)
	assert.Zero(t, c.Delta)
	assert.Equal(t, 1, summary.Conserved)
	assert.Zero(t, summary.Kinds[inventory.ChangeAdded])
	assert.Zero(t, summary.Kinds[inventory.ChangeRemoved])
}

func TestReconcile_SplitStack(t *testing.T) {
	a, b := slot(inventory.Bag0, 0), slot(inventory.Bag0, 1)

	changes, _ := Classify([]inventory.RawTransition{
		tr(a, inventory.NewStack(5333, 10), inventory.NewStack(5333, 6)),
		tr(b, inventory.Empty, inventory.NewStack(5333, 4)),
	})

	require.Len(t, changes, 1)
	assert.Equal(t, inventory.ChangeMoved, changes[0].Kind)
	assert.Equal(t, uint32(4), changes[0].Quantity)
	assert.Equal(t, a, changes[0].From.Slot)
	assert.Equal(t, b, changes[0].To.Slot)
}

func TestReconcile_MergeStack(t *testing.T) {
	a, b := slot(inventory.Bag2, 5), slot(inventory.Bag0, 1)

	// The gaining slot is listed first; the losing side still drives the match.
	changes, _ := Classify([]inventory.RawTransition{
		tr(b, inventory.NewStack(5333, 6), inventory.NewStack(5333, 10)),
		tr(a, inventory.NewStack(5333, 4), inventory.Empty),
	})

	require.Len(t, changes, 1)
	assert.Equal(t, inventory.ChangeMoved, changes[0].Kind)
	assert.Equal(t, a, changes[0].From.Slot)
	assert.Equal(t, b, changes[0].To.Slot)
	assert.Equal(t, uint32(4), changes[0].Quantity)
}

func TestReconcile_PartialTransfer(t *testing.T) {
	a, b := slot(inventory.Bag0, 0), slot(inventory.Bag3, 0)

	changes, _ := Classify([]inventory.RawTransition{
		tr(a, inventory.NewStack(7, 99), inventory.NewStack(7, 90)),
		tr(b, inventory.NewStack(7, 1), inventory.NewStack(7, 10)),
	})

	require.Len(t, changes, 1)
	assert.Equal(t, inventory.ChangeMoved, changes[0].Kind)
	assert.Equal(t, uint32(9), changes[0].Quantity)
}

func TestReconcile_IdentityChangeWithoutCounterpart(t *testing.T) {
	a := slot(inventory.Bag1, 3)

	batch, summary := NewEngine(nil).Reconcile(scope, []inventory.RawTransition{
		tr(a, inventory.NewStack(100, 3), inventory.NewStack(200, 1)),
	})

	require.Len(t, batch.Changes, 2)
	assert.Equal(t, []inventory.ChangeKind{inventory.ChangeRemoved, inventory.ChangeAdded}, kinds(batch.Changes))
	assert.Equal(t, uint32(3), batch.Changes[0].Quantity)
	assert.Equal(t, uint32(100), batch.Changes[0].From.Stack.Item.ItemID)
	assert.Equal(t, uint32(1), batch.Changes[1].Quantity)
	assert.Equal(t, uint32(200), batch.Changes[1].To.Stack.Item.ItemID)
	assert.Equal(t, batch.ID, batch.Changes[0].BatchID)
	assert.Equal(t, batch.ID, batch.Changes[1].BatchID)
	assert.Equal(t, 1, summary.Fallbacks)
}

func TestReconcile_Swap(t *testing.T) {
	a, b := slot(inventory.Bag0, 0), slot(inventory.Bag0, 1)
	x, y := inventory.NewStack(1, 5), inventory.NewStack(2, 3)

	changes, summary := Classify([]inventory.RawTransition{
		tr(a, x, y),
		tr(b, y, x),
	})

	require.Len(t, changes, 2)
	assert.Equal(t, []inventory.ChangeKind{inventory.ChangeMoved, inventory.ChangeMoved}, kinds(changes))
	assert.Equal(t, a, changes[0].From.Slot)
	assert.Equal(t, b, changes[0].To.Slot)
	assert.Equal(t, uint32(1), changes[0].From.Stack.Item.ItemID)
	assert.Equal(t, b, changes[1].From.Slot)
	assert.Equal(t, a, changes[1].To.Slot)
	assert.Equal(t, 2, summary.Relinked)
	assert.Zero(t, summary.Fallbacks)
}

func TestReconcile_MoveOntoOccupiedSlot(t *testing.T) {
	// X moves from A to B, replacing Y which is sold off.
	a, b := slot(inventory.Bag0, 0), slot(inventory.Bag0, 1)
	x, y := inventory.NewStack(1, 5), inventory.NewStack(2, 3)

	changes, summary := Classify([]inventory.RawTransition{
		tr(a, x, inventory.Empty),
		tr(b, y, x),
	})

	assert.Equal(t, []inventory.ChangeKind{inventory.ChangeMoved, inventory.ChangeRemoved}, kinds(changes))
	assert.Equal(t, uint32(2), changes[1].From.Stack.Item.ItemID)
	assert.Equal(t, 1, summary.Fallbacks)
	assert.NoError(t, Verify([]inventory.RawTransition{tr(a, x, inventory.Empty), tr(b, y, x)}, changes))
}

func TestReconcile_CrossContainerMoveWithAttributeChange(t *testing.T) {
	// Moving gear into the armoury can change its binding; identity and quantity still match.
	a, b := slot(inventory.Bag0, 4), slot(inventory.ArmouryHead, 0)
	before := inventory.NewStack(3000, 1)
	after := before
	after.Attributes.Bound = true

	changes, summary := Classify([]inventory.RawTransition{
		tr(a, before, inventory.Empty),
		tr(b, inventory.Empty, after),
	})

	require.Len(t, changes, 1)
	assert.Equal(t, inventory.ChangeMoved, changes[0].Kind)
	assert.Equal(t, 1, summary.Conserved)
}

func TestReconcile_QuantityMismatchFallsThrough(t *testing.T) {
	a, b := slot(inventory.Bag0, 0), slot(inventory.Bag0, 1)

	changes, _ := Classify([]inventory.RawTransition{
		tr(a, inventory.NewStack(1, 5), inventory.Empty),
		tr(b, inventory.Empty, inventory.NewStack(1, 3)),
	})

	assert.Equal(t, []inventory.ChangeKind{inventory.ChangeRemoved, inventory.ChangeAdded}, kinds(changes))
}

func TestReconcile_SingleSlotKinds(t *testing.T) {
	a := slot(inventory.Crystals, 2)
	bonded := inventory.NewStack(9, 1)
	bonded.Attributes.Spiritbond = 100

	tests := []struct {
		name  string
		from  inventory.StackDescriptor
		to    inventory.StackDescriptor
		kind  inventory.ChangeKind
		delta int64
	}{
		{"Added", inventory.Empty, inventory.NewStack(9, 4), inventory.ChangeAdded, 4},
		{"Removed", inventory.NewStack(9, 4), inventory.Empty, inventory.ChangeRemoved, -4},
		{"QuantityUp", inventory.NewStack(9, 4), inventory.NewStack(9, 40), inventory.ChangeQuantityChanged, 36},
		{"QuantityDown", inventory.NewStack(9, 40), inventory.NewStack(9, 1), inventory.ChangeQuantityChanged, -39},
		{"Attribute", inventory.NewStack(9, 1), bonded, inventory.ChangeAttributeChanged, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, _ := Classify([]inventory.RawTransition{tr(a, tt.from, tt.to)})
			require.Len(t, changes, 1)
			assert.Equal(t, tt.kind, changes[0].Kind)
			assert.Equal(t, tt.delta, changes[0].Delta)
			assert.False(t, changes[0].Item().IsEmpty())
		})
	}
}

func TestReconcile_FirstMatchWins(t *testing.T) {
	// Two equally valid receivers for one split: the first in input order is taken.
	a, b, c := slot(inventory.Bag0, 0), slot(inventory.Bag0, 1), slot(inventory.Bag0, 2)

	changes, _ := Classify([]inventory.RawTransition{
		tr(a, inventory.NewStack(1, 10), inventory.NewStack(1, 6)),
		tr(b, inventory.Empty, inventory.NewStack(1, 4)),
		tr(c, inventory.Empty, inventory.NewStack(1, 4)),
	})

	require.Len(t, changes, 2)
	assert.Equal(t, inventory.ChangeMoved, changes[0].Kind)
	assert.Equal(t, b, changes[0].To.Slot)
	assert.Equal(t, inventory.ChangeAdded, changes[1].Kind)
	assert.Equal(t, c, changes[1].To.Slot)
}

func TestEngine_BatchIDs(t *testing.T) {
	e := NewEngine(zap.NewNop())
	a := slot(inventory.Bag0, 0)

	first, _ := e.Reconcile(scope, []inventory.RawTransition{tr(a, inventory.Empty, inventory.NewStack(1, 1))})
	empty, _ := e.Reconcile(scope, nil)
	second, _ := e.Reconcile(scope, []inventory.RawTransition{tr(a, inventory.NewStack(1, 1), inventory.Empty)})

	assert.Equal(t, uint64(1), first.ID)
	assert.Zero(t, empty.ID)
	assert.Empty(t, empty.Changes)
	assert.Equal(t, uint64(2), second.ID)
	assert.Equal(t, uint64(2), e.LastBatchID())
	assert.Equal(t, scope, second.Scope)
	assert.False(t, second.CompletedAt.IsZero())
}

func TestEngine_Resume(t *testing.T) {
	e := NewEngine(zap.NewNop())
	a := slot(inventory.Bag0, 0)

	e.Resume(41)
	batch, _ := e.Reconcile(scope, []inventory.RawTransition{tr(a, inventory.Empty, inventory.NewStack(1, 1))})
	assert.Equal(t, uint64(42), batch.ID)

	e.Resume(10)
	assert.Equal(t, uint64(42), e.LastBatchID(), "resume never lowers the counter")
}

// TestReconcile_ConservationRoundTrip shuffles random inventories and checks
// that the change deltas always match a full recount of the store.
func TestReconcile_ConservationRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := snapshot.NewStore()
	engine := NewEngine(zap.NewNop())
	containers := []inventory.ContainerKind{inventory.Bag0, inventory.Bag1, inventory.Crystals}

	randomSlots := func(n int) []inventory.StackDescriptor {
		out := make([]inventory.StackDescriptor, n)
		for i := range out {
			if rng.Intn(3) == 0 {
				continue
			}
			out[i] = inventory.StackDescriptor{
				Item:     inventory.ItemIdentity{ItemID: uint32(1 + rng.Intn(4)), HQ: rng.Intn(5) == 0},
				Quantity: uint32(1 + rng.Intn(20)),
			}
		}
		return out
	}

	before := map[inventory.ItemIdentity]uint64{}
	for round := 0; round < 200; round++ {
		cs := snapshot.NewChangeset()
		for _, kind := range containers {
			cs.Add(store.Update(scope, kind, randomSlots(8))...)
		}
		transitions := cs.Transitions()
		batch, _ := engine.Reconcile(scope, transitions)
		require.NoError(t, Verify(transitions, batch.Changes), "round %d", round)

		net := map[inventory.ItemIdentity]int64{}
		for _, c := range batch.Changes {
			assert.False(t, c.Item().IsEmpty())
			net[c.Item()] += c.Delta
		}

		view, _ := store.View(scope)
		after := view.Totals()
		for item := range union(before, after) {
			assert.Equal(t, int64(after[item])-int64(before[item]), net[item], "round %d item %s", round, item)
		}
		before = after
	}
}

func union(a, b map[inventory.ItemIdentity]uint64) map[inventory.ItemIdentity]struct{} {
	out := make(map[inventory.ItemIdentity]struct{})
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
