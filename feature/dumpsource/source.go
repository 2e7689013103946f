package dumpsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/source"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Lifecycle is the part of the scheduler the watcher drives.
type Lifecycle interface {
	Register(scope inventory.ScopeID) error
	Suspend(scope inventory.ScopeID) error
}

type entry struct {
	path    string
	modTime time.Time
	dump    *Dump
}

// Source serves dump files from one directory.
type Source struct {
	dir    string
	logger *zap.Logger
	events chan source.DirtyEvent

	mu        sync.RWMutex
	byScope   map[inventory.ScopeID]*entry
	byPath    map[string]inventory.ScopeID
	lifecycle Lifecycle
}

// New creates a source over dir. Call Load before reading.
func New(dir string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		dir:     dir,
		logger:  logger,
		events:  make(chan source.DirtyEvent, 256),
		byScope: make(map[inventory.ScopeID]*entry),
		byPath:  make(map[string]inventory.ScopeID),
	}
}

func isDump(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load parses every dump in the directory and returns their scopes. Files
// that fail to parse are logged and skipped.
func (s *Source) Load() ([]inventory.ScopeID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump directory: %w", err)
	}
	var scopes []inventory.ScopeID
	for _, e := range entries {
		if e.IsDir() || !isDump(e.Name()) {
			continue
		}
		scope, _, _, err := s.load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("Skipping dump file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// load parses path and indexes it. isNew reports a scope seen for the first
// time. When the file used to hold another scope, that scope is returned as
// displaced and is no longer served.
func (s *Source) load(path string) (scope inventory.ScopeID, isNew bool, displaced []inventory.ScopeID, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return scope, false, nil, err
	}
	d, err := ParseFile(path)
	if err != nil {
		return scope, false, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byScope[d.Scope]; ok && prev.path != path {
		return scope, false, nil, fmt.Errorf("scope %s is already served by %s", d.Scope, filepath.Base(prev.path))
	}
	if old, ok := s.byPath[path]; ok && old != d.Scope {
		delete(s.byScope, old)
		displaced = append(displaced, old)
	}
	_, known := s.byScope[d.Scope]
	s.byScope[d.Scope] = &entry{path: path, modTime: info.ModTime(), dump: d}
	s.byPath[path] = d.Scope
	return d.Scope, !known, displaced, nil
}

// settle tells the lifecycle about a reload: displaced scopes are suspended
// and a new scope is registered. It reports whether lc registered scope.
func (s *Source) settle(lc Lifecycle, scope inventory.ScopeID, isNew bool, displaced []inventory.ScopeID) bool {
	if lc == nil {
		return false
	}
	for _, old := range displaced {
		s.logger.Info("Dump now holds another scope",
			zap.String("old_scope", old.String()),
			zap.String("scope", scope.String()),
		)
		if err := lc.Suspend(old); err != nil {
			s.logger.Debug("Scope was not active", zap.String("scope", old.String()), zap.Error(err))
		}
	}
	if !isNew {
		return false
	}
	if err := lc.Register(scope); err != nil {
		s.logger.Warn("Failed to register scope", zap.String("scope", scope.String()), zap.Error(err))
		return false
	}
	return true
}

func (s *Source) currentLifecycle() Lifecycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle
}

// current returns the dump of scope, parsing the file again when it changed on disk.
func (s *Source) current(scope inventory.ScopeID) (*Dump, bool) {
	s.mu.RLock()
	e, ok := s.byScope[scope]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	info, err := os.Stat(e.path)
	if err != nil {
		return nil, false
	}
	if info.ModTime().Equal(e.modTime) {
		return e.dump, true
	}
	loaded, isNew, displaced, err := s.load(e.path)
	if err != nil {
		s.logger.Warn("Keeping previous dump", zap.String("file", filepath.Base(e.path)), zap.Error(err))
		return e.dump, true
	}
	s.settle(s.currentLifecycle(), loaded, isNew, displaced)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok = s.byScope[scope]; !ok {
		return nil, false
	}
	return e.dump, true
}

// Read implements source.ContainerReader.
func (s *Source) Read(ctx context.Context, scope inventory.ScopeID, kind inventory.ContainerKind) ([]inventory.StackDescriptor, error) {
	d, ok := s.current(scope)
	if !ok {
		return nil, fmt.Errorf("%w: no dump for %s", inventory.ErrSourceUnavailable, scope)
	}
	stacks, ok := d.Containers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in dump of %s", inventory.ErrSourceUnavailable, kind, scope)
	}
	return append([]inventory.StackDescriptor(nil), stacks...), nil
}

// SlotOrder implements source.OrderingSource.
func (s *Source) SlotOrder(scope inventory.ScopeID, kind inventory.ContainerKind) ([]int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byScope[scope]
	if !ok {
		return nil, false
	}
	order, ok := e.dump.Order[kind]
	return order, ok
}

// Events implements source.DirtyNotifier. The channel is closed when Watch returns.
func (s *Source) Events() <-chan source.DirtyEvent {
	return s.events
}

// Watch follows the directory until ctx is done.
func (s *Source) Watch(ctx context.Context, lc Lifecycle) error {
	defer close(s.events)

	s.mu.Lock()
	s.lifecycle = lc
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.lifecycle = nil
		s.mu.Unlock()
	}()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}
	s.logger.Info("Watching dump directory", zap.String("dir", s.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handle(ctx, ev, lc)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Dump watcher error", zap.Error(err))
		}
	}
}

func (s *Source) handle(ctx context.Context, ev fsnotify.Event, lc Lifecycle) {
	if !isDump(ev.Name) {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		s.remove(ev.Name, lc)
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		scope, isNew, displaced, err := s.load(ev.Name)
		if err != nil {
			s.logger.Warn("Ignoring dump change", zap.String("file", filepath.Base(ev.Name)), zap.Error(err))
			return
		}
		if s.settle(lc, scope, isNew, displaced) {
			return
		}
		s.markDirty(ctx, scope)
	}
}

func (s *Source) remove(path string, lc Lifecycle) {
	s.mu.Lock()
	scope, ok := s.byPath[path]
	if ok {
		delete(s.byPath, path)
		delete(s.byScope, scope)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := lc.Suspend(scope); err != nil {
		s.logger.Debug("Scope was not active", zap.String("scope", scope.String()), zap.Error(err))
	}
}

func (s *Source) markDirty(ctx context.Context, scope inventory.ScopeID) {
	s.mu.RLock()
	e, ok := s.byScope[scope]
	s.mu.RUnlock()
	if !ok {
		return
	}
	for _, kind := range e.dump.Kinds() {
		select {
		case s.events <- source.DirtyEvent{Scope: scope, Container: kind}:
		case <-ctx.Done():
			return
		}
	}
}
