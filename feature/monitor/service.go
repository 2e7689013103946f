package monitor

import (
	"fmt"
	"sort"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/scheduler"
	"inventory-monitor/core/sink"
	"inventory-monitor/core/snapshot"

	"go.uber.org/zap"
)

// ScopeSummary describes one scope for the scopes listing.
type ScopeSummary struct {
	scheduler.ScopeStatus
	Items uint64 `json:"items"`
}

// ItemTotal is the aggregate count of one item.
type ItemTotal struct {
	Item     inventory.ItemIdentity `json:"item"`
	Quantity uint64                 `json:"quantity"`
}

// Service answers queries against the scheduler, the sink and the snapshot store.
type Service struct {
	scheduler *scheduler.Scheduler
	sink      *sink.Sink
	store     *snapshot.Store
	logger    *zap.Logger
}

// NewService creates a new monitor service.
func NewService(sched *scheduler.Scheduler, sk *sink.Sink, store *snapshot.Store, logger *zap.Logger) *Service {
	return &Service{scheduler: sched, sink: sk, store: store, logger: logger}
}

// Scopes lists every scope the scheduler knows with its item total.
func (s *Service) Scopes() []ScopeSummary {
	statuses := s.scheduler.Scopes()
	out := make([]ScopeSummary, len(statuses))
	for i, st := range statuses {
		out[i] = ScopeSummary{ScopeStatus: st}
		for _, n := range s.sink.Totals(st.Scope) {
			out[i].Items += n
		}
	}
	return out
}

// Register starts tracking scope.
func (s *Service) Register(scope inventory.ScopeID) error {
	return s.scheduler.Register(scope)
}

// Suspend stops tracking scope.
func (s *Service) Suspend(scope inventory.ScopeID) error {
	return s.scheduler.Suspend(scope)
}

// Count returns the count of item in scope, or across every scope when scope is nil.
func (s *Service) Count(item inventory.ItemIdentity, scope *inventory.ScopeID) uint32 {
	if scope == nil {
		return s.sink.CountAll(item)
	}
	return s.sink.Count(item, *scope)
}

// Totals returns every item count of scope ordered by item id.
func (s *Service) Totals(scope inventory.ScopeID) []ItemTotal {
	totals := s.sink.Totals(scope)
	out := make([]ItemTotal, 0, len(totals))
	for item, n := range totals {
		out = append(out, ItemTotal{Item: item, Quantity: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Item, out[j].Item
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.HQ != b.HQ {
			return !a.HQ
		}
		return a.Flags < b.Flags
	})
	return out
}

// Snapshot returns the current slots of scope.
func (s *Service) Snapshot(scope inventory.ScopeID) (snapshot.View, error) {
	view, ok := s.store.View(scope)
	if !ok {
		return snapshot.View{}, fmt.Errorf("%w: %s", inventory.ErrUnknownScope, scope)
	}
	return view, nil
}

// MarkDirty requests an out-of-cycle refresh of one container.
func (s *Service) MarkDirty(scope inventory.ScopeID, kind inventory.ContainerKind) error {
	if s.scheduler.State(scope) != scheduler.StateActive {
		return fmt.Errorf("%w: %s is not active", inventory.ErrUnknownScope, scope)
	}
	if !s.scheduler.MarkDirty(scope, kind) {
		return fmt.Errorf("%w: %s does not belong to %s", inventory.ErrUnknownContainer, kind, scope.Kind)
	}
	return nil
}

// Log returns the recent batches of scope.
func (s *Service) Log(scope inventory.ScopeID) []inventory.Batch {
	return s.sink.Log(scope)
}
