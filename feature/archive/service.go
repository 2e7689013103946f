package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"
	"inventory-monitor/core/snapshot"
	"inventory-monitor/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const opTimeout = 30 * time.Second

// Document is the archived form of a snapshot.
type Document struct {
	Scope      inventory.ScopeID                                       `json:"scope"`
	ExportedAt time.Time                                               `json:"exported_at"`
	Containers map[inventory.ContainerKind][]inventory.StackDescriptor `json:"containers"`
}

// Entry is one archived object.
type Entry struct {
	Scope        inventory.ScopeID `json:"scope"`
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	LastModified time.Time         `json:"last_modified"`
}

// Service exports snapshots and tracks which scopes need exporting.
type Service struct {
	client storage.Client
	bucket string
	prefix string
	store  *snapshot.Store
	logger *zap.Logger
	now    func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	changed map[inventory.ScopeID]struct{}
	removed map[inventory.ScopeID]struct{}
}

// NewService creates a new archive service.
func NewService(client storage.Client, bucket, prefix string, store *snapshot.Store, logger *zap.Logger) *Service {
	return &Service{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		store:   store,
		logger:  logger,
		now:     time.Now,
		changed: make(map[inventory.ScopeID]struct{}),
		removed: make(map[inventory.ScopeID]struct{}),
	}
}

// Key returns the object key of scope.
func (s *Service) Key(scope inventory.ScopeID) string {
	return path.Join(s.prefix, scope.String()+".json")
}

func (s *Service) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

func (s *Service) scopeOf(key string) (inventory.ScopeID, bool) {
	name := strings.TrimPrefix(key, s.listPrefix())
	if !strings.HasSuffix(name, ".json") {
		return inventory.ScopeID{}, false
	}
	scope, err := inventory.ParseScopeID(strings.TrimSuffix(name, ".json"))
	return scope, err == nil
}

// OnBatch marks the scope of batch for the next flush.
func (s *Service) OnBatch(batch inventory.Batch) {
	s.mu.Lock()
	s.changed[batch.Scope] = struct{}{}
	delete(s.removed, batch.Scope)
	s.mu.Unlock()
}

// OnScopeCleared marks the archived snapshot of scope for deletion on the
// next flush.
func (s *Service) OnScopeCleared(scope inventory.ScopeID) {
	s.mu.Lock()
	delete(s.changed, scope)
	s.removed[scope] = struct{}{}
	s.mu.Unlock()
}

// PendingRemovals returns the scopes whose archive waits for deletion, sorted.
func (s *Service) PendingRemovals() []inventory.ScopeID {
	s.mu.Lock()
	out := make([]inventory.ScopeID, 0, len(s.removed))
	for scope := range s.removed {
		out = append(out, scope)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Pending returns the scopes waiting for export, sorted.
func (s *Service) Pending() []inventory.ScopeID {
	s.mu.Lock()
	out := make([]inventory.ScopeID, 0, len(s.changed))
	for scope := range s.changed {
		out = append(out, scope)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Export uploads the current snapshot of scope. Concurrent calls for the same
// scope share one upload.
func (s *Service) Export(ctx context.Context, scope inventory.ScopeID) (string, error) {
	v, err, _ := s.group.Do(scope.String(), func() (any, error) {
		return s.export(ctx, scope)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) export(ctx context.Context, scope inventory.ScopeID) (string, error) {
	view, ok := s.store.View(scope)
	if !ok {
		return "", fmt.Errorf("%w: %s", inventory.ErrUnknownScope, scope)
	}
	doc := Document{Scope: scope, ExportedAt: s.now().UTC(), Containers: view.Containers}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot of %s: %w", scope, err)
	}

	key := s.Key(scope)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Flush deletes the archives of cleared scopes and exports every changed
// scope. It returns the number of exports. Scopes that fail stay marked.
func (s *Service) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	pending := s.changed
	s.changed = make(map[inventory.ScopeID]struct{})
	removed := s.removed
	s.removed = make(map[inventory.ScopeID]struct{})
	s.mu.Unlock()

	var errs []error
	for scope := range removed {
		if err := s.client.RemoveObject(ctx, s.bucket, s.Key(scope), minio.RemoveObjectOptions{}); err != nil {
			logger.WithScope(s.logger, scope).Warn("Failed to delete archived snapshot", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", s.Key(scope), err))
			s.mu.Lock()
			if _, again := s.changed[scope]; !again {
				s.removed[scope] = struct{}{}
			}
			s.mu.Unlock()
		}
	}

	exported := 0
	for scope := range pending {
		if _, err := s.Export(ctx, scope); err != nil {
			if errors.Is(err, inventory.ErrUnknownScope) {
				continue
			}
			errs = append(errs, err)
			s.mu.Lock()
			s.changed[scope] = struct{}{}
			s.mu.Unlock()
			continue
		}
		exported++
	}
	return exported, errors.Join(errs...)
}

// Run flushes every interval until ctx is done, then flushes once more.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
			_, err := s.Flush(flushCtx)
			cancel()
			if err != nil {
				s.logger.Warn("Final archive flush failed", zap.Error(err))
			}
			return nil
		case <-ticker.C:
			n, err := s.Flush(ctx)
			if err != nil {
				s.logger.Warn("Archive flush failed", zap.Error(err))
			}
			if n > 0 {
				s.logger.Debug("Snapshots archived", zap.Int("count", n))
			}
		}
	}
}

// List returns every archived snapshot.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	opts := minio.ListObjectsOptions{Prefix: s.listPrefix(), Recursive: true}
	var out []Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list archive: %w", obj.Err)
		}
		scope, ok := s.scopeOf(obj.Key)
		if !ok {
			continue
		}
		out = append(out, Entry{Scope: scope, Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

// Fetch downloads the archived snapshot of scope.
func (s *Service) Fetch(ctx context.Context, scope inventory.ScopeID) (*Document, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.Key(scope), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", s.Key(scope), err)
	}
	defer obj.Close()

	var doc Document
	if err := json.NewDecoder(obj).Decode(&doc); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s has no archive", inventory.ErrUnknownScope, scope)
		}
		return nil, fmt.Errorf("failed to decode %s: %w", s.Key(scope), err)
	}
	return &doc, nil
}

// Purge deletes every archived snapshot and returns how many were deleted.
func (s *Service) Purge(ctx context.Context) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(entries))
	for _, e := range entries {
		objectsCh <- minio.ObjectInfo{Key: e.Key}
	}
	close(objectsCh)

	var errs []error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("%s: %w", rerr.ObjectName, rerr.Err))
	}
	return len(entries) - len(errs), errors.Join(errs...)
}
