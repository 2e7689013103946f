package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"
	"inventory-monitor/core/metrics"
	"inventory-monitor/core/reconcile"
	"inventory-monitor/core/sink"
	"inventory-monitor/core/snapshot"
	"inventory-monitor/core/source"

	"go.uber.org/zap"
)

const (
	DefaultInterval = 500 * time.Millisecond
	DefaultCooldown = 20 * time.Second
)

// Config holds the loop timings.
type Config struct {
	Interval time.Duration
	Cooldown time.Duration
}

// Scheduler owns the refresh loop and the scope registry.
type Scheduler struct {
	cfg      Config
	reader   source.ContainerReader
	ordering source.OrderingSource
	store    *snapshot.Store
	engine   *reconcile.Engine
	sink     *sink.Sink
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu       sync.Mutex
	states   map[inventory.ScopeID]State
	commands []command
	dirty    dirtySet
	wake     chan struct{}

	// Owned by the loop goroutine.
	live    map[inventory.ScopeID]bool
	initial map[inventory.ScopeID]bool
}

// New creates a scheduler. ordering may be nil when no display order is known.
func New(cfg Config, reader source.ContainerReader, ordering source.OrderingSource, store *snapshot.Store, engine *reconcile.Engine, sk *sink.Sink, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:      cfg,
		reader:   reader,
		ordering: ordering,
		store:    store,
		engine:   engine,
		sink:     sk,
		metrics:  m,
		logger:   logger,
		states:   make(map[inventory.ScopeID]State),
		dirty:    make(dirtySet),
		wake:     make(chan struct{}, 1),
		live:     make(map[inventory.ScopeID]bool),
		initial:  make(map[inventory.ScopeID]bool),
	}
}

// Register makes scope active and flags all of its containers so the loop
// loads them without waiting for the next tick. Registering an active scope
// is a no-op.
func (s *Scheduler) Register(scope inventory.ScopeID) error {
	if !scope.Kind.IsValid() {
		return fmt.Errorf("%w: %s", inventory.ErrUnknownScope, scope)
	}
	s.mu.Lock()
	if s.states[scope] == StateActive {
		s.mu.Unlock()
		return nil
	}
	s.states[scope] = StateActive
	s.commands = append(s.commands, command{kind: cmdRegister, scope: scope})
	for _, kind := range inventory.KindsFor(scope.Kind) {
		s.dirty.mark(scope, kind)
	}
	s.mu.Unlock()

	s.logger.Info("Scope registered", zap.String("scope", scope.String()))
	s.signal()
	return nil
}

// Suspend stops refreshing scope. Its dirty flags are cleared at once; the
// loop then drops its snapshot and publishes a cleared event. A read already
// in flight completes but its result is discarded.
func (s *Scheduler) Suspend(scope inventory.ScopeID) error {
	s.mu.Lock()
	if s.states[scope] != StateActive {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is not active", inventory.ErrUnknownScope, scope)
	}
	s.states[scope] = StateSuspended
	delete(s.dirty, scope)
	s.commands = append(s.commands, command{kind: cmdSuspend, scope: scope})
	s.mu.Unlock()

	s.logger.Info("Scope suspended", zap.String("scope", scope.String()))
	s.signal()
	return nil
}

// State returns the lifecycle state of scope.
func (s *Scheduler) State(scope inventory.ScopeID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[scope]; ok {
		return st
	}
	return StateUnregistered
}

// Scopes returns every scope the scheduler has seen, sorted.
func (s *Scheduler) Scopes() []ScopeStatus {
	s.mu.Lock()
	scopes := make([]inventory.ScopeID, 0, len(s.states))
	for scope := range s.states {
		scopes = append(scopes, scope)
	}
	sortScopes(scopes)
	out := make([]ScopeStatus, len(scopes))
	for i, scope := range scopes {
		out[i] = ScopeStatus{Scope: scope, State: s.states[scope]}
	}
	s.mu.Unlock()
	return out
}

// MarkDirty flags one container for an out-of-cycle refresh. It reports
// false when the scope is not active or the container does not belong to it.
func (s *Scheduler) MarkDirty(scope inventory.ScopeID, kind inventory.ContainerKind) bool {
	info, ok := inventory.Lookup(kind)
	if !ok || info.Scope != scope.Kind {
		return false
	}
	s.mu.Lock()
	if s.states[scope] != StateActive {
		s.mu.Unlock()
		return false
	}
	s.dirty.mark(scope, kind)
	s.mu.Unlock()

	s.signal()
	return true
}

// Watch forwards notifier events to MarkDirty until ctx is done or the
// notifier closes its channel.
func (s *Scheduler) Watch(ctx context.Context, notifier source.DirtyNotifier) error {
	events := notifier.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !s.MarkDirty(ev.Scope, ev.Container) {
				s.logger.Debug("Ignoring dirty event",
					zap.String("scope", ev.Scope.String()),
					zap.Stringer("container", ev.Container),
				)
			}
		}
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is done. It always returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Refresh loop started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("cooldown", s.cfg.Cooldown),
	)
	for {
		err := s.loop(ctx)
		if ctx.Err() != nil {
			s.logger.Info("Refresh loop stopped")
			return nil
		}

		s.metrics.SchedulerFaults.Inc()
		s.logger.Error("Refresh loop failed, restarting after cooldown",
			zap.Duration("cooldown", s.cfg.Cooldown),
			zap.Error(err),
		)
		timer := time.NewTimer(s.cfg.Cooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Refresh loop stopped")
			return nil
		case <-timer.C:
		}
		s.logger.Info("Refresh loop restarting")
	}
}

func (s *Scheduler) loop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", inventory.ErrSchedulerFault, r)
		}
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := s.Tick(ctx); err != nil {
				return err
			}
			timer.Reset(s.cfg.Interval)
		case <-s.wake:
			if err := s.RefreshDirty(ctx); err != nil {
				return err
			}
		}
	}
}

// Tick applies pending lifecycle commands and refreshes every container of
// every active scope. It must only be called from the loop goroutine, or by
// tests driving the scheduler without Run.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.applyCommands()
	for _, scope := range s.liveScopes() {
		// A full refresh covers whatever was flagged.
		s.mu.Lock()
		delete(s.dirty, scope)
		s.mu.Unlock()

		if err := s.refresh(ctx, scope, inventory.KindsFor(scope.Kind), "timer"); err != nil {
			return err
		}
	}
	return nil
}

// RefreshDirty applies pending lifecycle commands and refreshes only the
// flagged containers. The same caller restriction as Tick applies.
func (s *Scheduler) RefreshDirty(ctx context.Context) error {
	s.applyCommands()

	s.mu.Lock()
	flagged := s.dirty
	s.dirty = make(dirtySet)
	s.mu.Unlock()

	scopes := make([]inventory.ScopeID, 0, len(flagged))
	for scope := range flagged {
		if s.live[scope] {
			scopes = append(scopes, scope)
		}
	}
	sortScopes(scopes)
	for _, scope := range scopes {
		if err := s.refresh(ctx, scope, flagged.sorted(scope), "dirty"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) applyCommands() {
	s.mu.Lock()
	commands := s.commands
	s.commands = nil
	s.mu.Unlock()

	for _, c := range commands {
		switch c.kind {
		case cmdRegister:
			s.store.Ensure(c.scope)
			s.live[c.scope] = true
			s.initial[c.scope] = true
		case cmdSuspend:
			s.store.Drop(c.scope)
			delete(s.live, c.scope)
			delete(s.initial, c.scope)
			s.sink.Clear(c.scope)
		}
	}
	s.metrics.ActiveScopes.Set(float64(len(s.live)))
}

func (s *Scheduler) liveScopes() []inventory.ScopeID {
	out := make([]inventory.ScopeID, 0, len(s.live))
	for scope := range s.live {
		out = append(out, scope)
	}
	sortScopes(out)
	return out
}

func (s *Scheduler) isActive(scope inventory.ScopeID) bool {
	return s.State(scope) == StateActive
}

type read struct {
	kind  inventory.ContainerKind
	slots []inventory.StackDescriptor
}

// refresh reads kinds of scope, folds them into the store and publishes the
// reconciled batch.
func (s *Scheduler) refresh(ctx context.Context, scope inventory.ScopeID, kinds []inventory.ContainerKind, trigger string) error {
	if !s.isActive(scope) {
		return nil
	}
	start := time.Now()
	l := logger.WithScope(s.logger, scope)

	reads := make([]read, 0, len(kinds))
	for _, kind := range kinds {
		slots, err := s.reader.Read(ctx, scope, kind)
		if err != nil {
			if errors.Is(err, inventory.ErrSourceUnavailable) {
				s.metrics.ContainersUnavailable.Inc()
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: read %s/%s: %v", inventory.ErrSchedulerFault, scope, kind, err)
		}
		if n := kind.SlotCount(); n > 0 && len(slots) > n {
			l.Warn("Reader returned more slots than the container holds",
				zap.Stringer("container", kind),
				zap.Int("slots", len(slots)),
				zap.Int("capacity", n),
			)
			slots = slots[:n]
		}
		if s.ordering != nil {
			if order, ok := s.ordering.SlotOrder(scope, kind); ok {
				slots = source.ApplyOrder(slots, order, l)
			}
		}
		reads = append(reads, read{kind: kind, slots: slots})
	}

	if !s.isActive(scope) {
		s.metrics.DiscardedRefreshes.Inc()
		l.Debug("Discarding refresh result", zap.Error(inventory.ErrScopeInvalidated))
		return nil
	}

	changes := snapshot.NewChangeset()
	for _, r := range reads {
		changes.Add(s.store.Update(scope, r.kind, r.slots)...)
	}
	s.metrics.Refreshes.WithLabelValues(trigger).Inc()
	s.metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	transitions := changes.Transitions()
	if len(transitions) == 0 {
		return nil
	}
	s.metrics.Transitions.Add(float64(len(transitions)))

	batch, summary := s.engine.Reconcile(scope, transitions)
	s.metrics.ReconciliationFallback.Add(float64(summary.Fallbacks))
	if len(batch.Changes) == 0 {
		return nil
	}
	if s.initial[scope] {
		batch.Initial = true
		delete(s.initial, scope)
	}
	delta := s.sink.Apply(batch)

	l.Debug("Batch published",
		zap.Uint64("batch_id", batch.ID),
		zap.Bool("initial", batch.Initial),
		zap.Int("transitions", summary.Transitions),
		zap.Int("changes", len(batch.Changes)),
		zap.Bool("net_zero", delta.IsZero()),
	)
	return nil
}
