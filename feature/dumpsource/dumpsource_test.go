package dumpsource

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/source"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const retainerDump = `
scope: retainer:42
containers:
  retainer_page1:
    - {slot: 0, item: 5111, quantity: 99, hq: true}
    - {slot: 3, item: 4551, quantity: 12, materia: [{id: 7, grade: 2}]}
  retainer_market:
    - {slot: 1, item: 4551, quantity: 5, price: 1200}
order:
  retainer_market: [1, 0, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19]
`

var ret = inventory.Retainer(42)

func TestParse(t *testing.T) {
	d, err := Parse([]byte(retainerDump))
	require.NoError(t, err)

	assert.Equal(t, ret, d.Scope)
	assert.Equal(t, []inventory.ContainerKind{inventory.RetainerPage1, inventory.RetainerMarket}, d.Kinds())

	page := d.Containers[inventory.RetainerPage1]
	require.Len(t, page, inventory.RetainerPage1.SlotCount())
	assert.Equal(t, inventory.ItemIdentity{ItemID: 5111, HQ: true}, page[0].Item)
	assert.True(t, page[1].IsEmpty())
	assert.Equal(t, uint32(12), page[3].Quantity)
	assert.Equal(t, inventory.MateriaSlot{ID: 7, Grade: 2}, page[3].Attributes.Materia[0])

	market := d.Containers[inventory.RetainerMarket]
	assert.Equal(t, uint32(1200), market[1].Attributes.MarketPrice)
	assert.Len(t, d.Order[inventory.RetainerMarket], 20)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"BadScope", "scope: guild:1\ncontainers: {}\n"},
		{"ForeignContainer", "scope: retainer:1\ncontainers:\n  bag0: []\n"},
		{"UnknownContainer", "scope: character:1\ncontainers:\n  pocket: []\n"},
		{"SlotOutOfRange", "scope: character:1\ncontainers:\n  bag0:\n    - {slot: 35, item: 1, quantity: 1}\n"},
		{"DuplicateSlot", "scope: character:1\ncontainers:\n  bag0:\n    - {slot: 0, item: 1, quantity: 1}\n    - {slot: 0, item: 2, quantity: 1}\n"},
		{"UnknownField", "scope: character:1\ncontainers:\n  bag0:\n    - {slot: 0, item: 1, qty: 1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestEncode(t *testing.T) {
	d, err := Parse([]byte(retainerDump))
	require.NoError(t, err)

	raw, err := Encode(d.Scope, d.Containers)
	require.NoError(t, err)

	again, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, d.Containers, again.Containers)
}

func writeDump(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestSource_LoadAndRead(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "ret.yaml", retainerDump)
	writeDump(t, dir, "broken.yaml", "scope: nobody\n")
	writeDump(t, dir, "notes.txt", "not a dump")

	s := New(dir, zap.NewNop())
	scopes, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []inventory.ScopeID{ret}, scopes)

	ctx := context.Background()
	slots, err := s.Read(ctx, ret, inventory.RetainerPage1)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), slots[0].Quantity)

	_, err = s.Read(ctx, ret, inventory.RetainerPage2)
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)
	_, err = s.Read(ctx, inventory.Retainer(1), inventory.RetainerPage1)
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)

	order, ok := s.SlotOrder(ret, inventory.RetainerMarket)
	assert.True(t, ok)
	assert.Equal(t, 1, order[0])
	_, ok = s.SlotOrder(ret, inventory.RetainerPage1)
	assert.False(t, ok)
}

func TestSource_ReparsesOnModification(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "ret.yaml", retainerDump)

	s := New(dir, zap.NewNop())
	_, err := s.Load()
	require.NoError(t, err)

	writeDump(t, dir, "ret.yaml", "scope: retainer:42\ncontainers:\n  retainer_page1:\n    - {slot: 0, item: 5111, quantity: 1}\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	slots, err := s.Read(context.Background(), ret, inventory.RetainerPage1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), slots[0].Quantity)

	_, err = s.Read(context.Background(), ret, inventory.RetainerMarket)
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)
}

func TestSource_RejectsSecondFileForScope(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "a.yaml", retainerDump)
	writeDump(t, dir, "b.yaml", retainerDump)

	s := New(dir, zap.NewNop())
	scopes, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, scopes, 1)
}

// lifecycle records scheduler calls.
type lifecycle struct {
	mu         sync.Mutex
	registered []inventory.ScopeID
	suspended  []inventory.ScopeID
}

func (l *lifecycle) Register(scope inventory.ScopeID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registered = append(l.registered, scope)
	return nil
}

func (l *lifecycle) Suspend(scope inventory.ScopeID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspended = append(l.suspended, scope)
	return nil
}

func (l *lifecycle) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.registered), len(l.suspended)
}

const otherRetainerDump = "scope: retainer:43\ncontainers:\n  retainer_page1:\n    - {slot: 0, item: 5111, quantity: 1}\n"

func TestSource_HandleRewriteToOtherScope(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "ret.yaml", retainerDump)
	s := New(dir, zap.NewNop())
	_, err := s.Load()
	require.NoError(t, err)

	writeDump(t, dir, "ret.yaml", otherRetainerDump)
	lc := &lifecycle{}
	s.handle(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Write}, lc)

	assert.Equal(t, []inventory.ScopeID{inventory.Retainer(43)}, lc.registered)
	assert.Equal(t, []inventory.ScopeID{ret}, lc.suspended)

	_, err = s.Read(context.Background(), ret, inventory.RetainerPage1)
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)
	slots, err := s.Read(context.Background(), inventory.Retainer(43), inventory.RetainerPage1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), slots[0].Quantity)
}

func TestSource_ReparseToOtherScopeSuspendsOldScope(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "ret.yaml", retainerDump)
	s := New(dir, zap.NewNop())
	_, err := s.Load()
	require.NoError(t, err)
	lc := &lifecycle{}
	s.lifecycle = lc

	writeDump(t, dir, "ret.yaml", otherRetainerDump)
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	_, err = s.Read(context.Background(), ret, inventory.RetainerPage1)
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)
	assert.Equal(t, []inventory.ScopeID{ret}, lc.suspended)
	assert.Equal(t, []inventory.ScopeID{inventory.Retainer(43)}, lc.registered)

	// The watcher sees the same write later and only marks the scope dirty.
	s.handle(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Write}, lc)
	n, m := lc.counts()
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m)
	select {
	case ev := <-s.Events():
		assert.Equal(t, inventory.Retainer(43), ev.Scope)
	default:
		t.Fatal("expected a dirty event")
	}
}

func TestSource_Watch(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zap.NewNop())
	lc := &lifecycle{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, lc) }()

	// The watcher may not be attached yet; keep writing until the scope shows up.
	assert.Eventually(t, func() bool {
		writeDump(t, dir, "ret.yaml", retainerDump)
		n, _ := lc.counts()
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)

	writeDump(t, dir, "ret.yaml", retainerDump)
	select {
	case ev := <-s.Events():
		assert.Equal(t, ret, ev.Scope)
	case <-time.After(5 * time.Second):
		t.Fatal("no dirty event after rewrite")
	}

	require.NoError(t, os.Remove(filepath.Join(dir, "ret.yaml")))
	assert.Eventually(t, func() bool {
		_, n := lc.counts()
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)
	_, err := s.Read(context.Background(), ret, inventory.RetainerPage1)
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)

	cancel()
	assert.NoError(t, <-done)
	_, open := <-s.Events()
	for open {
		_, open = <-s.Events()
	}
}

var (
	_ source.ContainerReader = (*Source)(nil)
	_ source.OrderingSource  = (*Source)(nil)
	_ source.DirtyNotifier   = (*Source)(nil)
)
