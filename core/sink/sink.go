package sink

import (
	"sort"
	"sync"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/metrics"

	"go.uber.org/zap"
)

// DefaultLogSize is the number of batches kept per scope when none is configured.
const DefaultLogSize = 64

// ItemCountDelta is the aggregate effect of one batch.
type ItemCountDelta struct {
	Scope   inventory.ScopeID                 `json:"scope"`
	BatchID uint64                            `json:"batch_id"`
	Gained  map[inventory.ItemIdentity]uint64 `json:"-"`
	Lost    map[inventory.ItemIdentity]uint64 `json:"-"`
}

// Net returns the signed change for item.
func (d ItemCountDelta) Net(item inventory.ItemIdentity) int64 {
	return int64(d.Gained[item]) - int64(d.Lost[item])
}

// IsZero reports whether the batch changed no aggregate count.
func (d ItemCountDelta) IsZero() bool {
	for item := range d.Gained {
		if d.Net(item) != 0 {
			return false
		}
	}
	for item := range d.Lost {
		if d.Net(item) != 0 {
			return false
		}
	}
	return true
}

// Sink owns the aggregate counters and the per-scope change log. Apply and
// Clear are called from the refresh loop only; queries may come from any goroutine.
type Sink struct {
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	logSize    int

	mu     sync.RWMutex
	counts map[inventory.ScopeID]map[inventory.ItemIdentity]uint64
	logs   map[inventory.ScopeID][]inventory.Batch
}

// New creates a sink publishing through dispatcher.
func New(dispatcher *Dispatcher, m *metrics.Metrics, logger *zap.Logger, logSize int) *Sink {
	if logSize <= 0 {
		logSize = DefaultLogSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Sink{
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		logSize:    logSize,
		counts:     make(map[inventory.ScopeID]map[inventory.ItemIdentity]uint64),
		logs:       make(map[inventory.ScopeID][]inventory.Batch),
	}
}

// Apply folds batch into the counters, appends it to the scope's log and
// queues it for subscribers.
func (s *Sink) Apply(batch inventory.Batch) ItemCountDelta {
	delta := ItemCountDelta{
		Scope:   batch.Scope,
		BatchID: batch.ID,
		Gained:  make(map[inventory.ItemIdentity]uint64),
		Lost:    make(map[inventory.ItemIdentity]uint64),
	}
	if len(batch.Changes) == 0 {
		return delta
	}

	s.mu.Lock()
	counts, ok := s.counts[batch.Scope]
	if !ok {
		counts = make(map[inventory.ItemIdentity]uint64)
		s.counts[batch.Scope] = counts
	}
	for _, c := range batch.Changes {
		s.metrics.Changes.WithLabelValues(string(c.Kind)).Inc()
		if c.Delta == 0 {
			continue
		}
		item := c.Item()
		if c.Delta > 0 {
			delta.Gained[item] += uint64(c.Delta)
			counts[item] += uint64(c.Delta)
			continue
		}
		lost := uint64(-c.Delta)
		delta.Lost[item] += lost
		if counts[item] < lost {
			s.logger.Warn("Aggregate count would go negative",
				zap.String("scope", batch.Scope.String()),
				zap.Stringer("item", item),
				zap.Uint64("have", counts[item]),
				zap.Uint64("lost", lost),
			)
			lost = counts[item]
		}
		counts[item] -= lost
		if counts[item] == 0 {
			delete(counts, item)
		}
	}

	log := append(s.logs[batch.Scope], batch)
	if len(log) > s.logSize {
		log = append([]inventory.Batch(nil), log[len(log)-s.logSize:]...)
	}
	s.logs[batch.Scope] = log
	s.mu.Unlock()

	if s.dispatcher != nil {
		s.dispatcher.PublishBatch(batch)
	}
	return delta
}

// Clear forgets every count and log entry of scope and publishes a cleared event.
func (s *Sink) Clear(scope inventory.ScopeID) {
	s.mu.Lock()
	delete(s.counts, scope)
	delete(s.logs, scope)
	s.mu.Unlock()

	if s.dispatcher != nil {
		s.dispatcher.PublishCleared(scope)
	}
}

// Count returns the quantity of item held by scope.
func (s *Sink) Count(item inventory.ItemIdentity, scope inventory.ScopeID) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clamp(s.counts[scope][item])
}

// CountAll returns the quantity of item summed across every known scope.
func (s *Sink) CountAll(item inventory.ItemIdentity) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, counts := range s.counts {
		total += counts[item]
	}
	return clamp(total)
}

// Totals returns a copy of every count held by scope.
func (s *Sink) Totals(scope inventory.ScopeID) map[inventory.ItemIdentity]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[inventory.ItemIdentity]uint64, len(s.counts[scope]))
	for item, n := range s.counts[scope] {
		out[item] = n
	}
	return out
}

// Log returns the most recent batches of scope, oldest first.
func (s *Sink) Log(scope inventory.ScopeID) []inventory.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]inventory.Batch(nil), s.logs[scope]...)
}

// Scopes returns every scope with counts, sorted.
func (s *Sink) Scopes() []inventory.ScopeID {
	s.mu.RLock()
	out := make([]inventory.ScopeID, 0, len(s.counts))
	for scope := range s.counts {
		out = append(out, scope)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func clamp(n uint64) uint32 {
	if n > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}
