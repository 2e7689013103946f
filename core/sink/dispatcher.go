package sink

import (
	"context"
	"sync"

	"inventory-monitor/core/inventory"

	"go.uber.org/zap"
)

// Subscriber receives published batches.
type Subscriber interface {
	// OnBatch is called once per batch that has at least one change the
	// subscriber asked for.
	OnBatch(batch inventory.Batch)
	// OnScopeCleared is called when a scope's snapshot was dropped.
	OnScopeCleared(scope inventory.ScopeID)
}

type subscription struct {
	id    uint64
	sub   Subscriber
	kinds []inventory.ChangeKind
}

type event struct {
	batch   inventory.Batch
	cleared bool
}

// Dispatcher queues events and delivers them to subscribers one at a time.
type Dispatcher struct {
	logger *zap.Logger

	mu     sync.Mutex
	subs   []*subscription
	nextID uint64
	queue  []event

	// deliverMu serializes Drain calls so delivery happens on one goroutine at a time.
	deliverMu sync.Mutex
	signal    chan struct{}
}

// NewDispatcher creates a dispatcher with no subscribers.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger, signal: make(chan struct{}, 1)}
}

// Subscribe registers sub. When kinds are given, batches are filtered to those
// kinds and skipped when nothing is left. The returned func unsubscribes.
func (d *Dispatcher) Subscribe(sub Subscriber, kinds ...inventory.ChangeKind) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, &subscription{id: id, sub: sub, kinds: kinds})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

// PublishBatch queues a batch for delivery.
func (d *Dispatcher) PublishBatch(batch inventory.Batch) {
	d.enqueue(event{batch: batch})
}

// PublishCleared queues a scope cleared event.
func (d *Dispatcher) PublishCleared(scope inventory.ScopeID) {
	d.enqueue(event{batch: inventory.Batch{Scope: scope}, cleared: true})
}

func (d *Dispatcher) enqueue(ev event) {
	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.mu.Unlock()
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Drain delivers every queued event on the calling goroutine and returns how
// many events were delivered.
func (d *Dispatcher) Drain() int {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	events := d.queue
	d.queue = nil
	subs := make([]*subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			d.deliver(s, ev)
		}
	}
	return len(events)
}

// Run delivers events as they are queued until ctx is cancelled. Events still
// queued at cancellation are delivered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.Drain()
			return nil
		case <-d.signal:
			d.Drain()
		}
	}
}

func (d *Dispatcher) deliver(s *subscription, ev event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Subscriber panicked",
				zap.String("scope", ev.batch.Scope.String()),
				zap.Uint64("batch_id", ev.batch.ID),
				zap.Any("panic", r),
			)
		}
	}()

	if ev.cleared {
		s.sub.OnScopeCleared(ev.batch.Scope)
		return
	}

	batch := ev.batch
	if len(s.kinds) > 0 {
		batch.Changes = ev.batch.Filter(s.kinds...)
		if len(batch.Changes) == 0 {
			return
		}
	}
	s.sub.OnBatch(batch)
}
