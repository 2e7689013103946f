package archive

import (
	"context"
	"time"

	"inventory-monitor/core/sink"
	"inventory-monitor/core/snapshot"
	"inventory-monitor/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service     *Service
	handler     *Handler
	dispatcher  *sink.Dispatcher
	bucket      string
	region      string
	interval    time.Duration
	enabled     bool
	unsubscribe func()
}

// NewFeature creates the archive feature.
func NewFeature(client storage.Client, cfg storage.Config, prefix string, interval time.Duration, store *snapshot.Store, dispatcher *sink.Dispatcher, logger *zap.Logger, enabled bool) *Feature {
	svc := NewService(client, cfg.Bucket, prefix, store, logger)
	if interval <= 0 {
		interval = time.Minute
	}
	return &Feature{
		service:    svc,
		handler:    NewHandler(svc),
		dispatcher: dispatcher,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		interval:   interval,
		enabled:    enabled && client != nil,
	}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "archive"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load ensures the bucket exists, subscribes to batches and registers the routes.
func (f *Feature) Load(app fiber.Router) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := storage.EnsureBucket(ctx, f.service.client, f.bucket, f.region); err != nil {
		return err
	}
	f.unsubscribe = f.dispatcher.Subscribe(f.service)
	f.handler.RegisterRoutes(app)
	return nil
}

// Run flushes changed snapshots until ctx is done. It returns at once when the
// feature is disabled.
func (f *Feature) Run(ctx context.Context) error {
	if !f.enabled {
		return nil
	}
	return f.service.Run(ctx, f.interval)
}

// Close stops tracking changes.
func (f *Feature) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
}
