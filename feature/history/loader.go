package history

import (
	"context"

	"inventory-monitor/core/sink"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service      *Service
	handler      *Handler
	recorder     *Recorder
	dispatcher   *sink.Dispatcher
	enabled      bool
	includeMoves bool
	unsubscribe  func()
}

// NewFeature creates the history feature. It is disabled when db is nil.
func NewFeature(db *gorm.DB, dispatcher *sink.Dispatcher, logger *zap.Logger, enabled, includeMoves bool) *Feature {
	f := &Feature{dispatcher: dispatcher, enabled: enabled && db != nil, includeMoves: includeMoves}
	if db != nil {
		f.service = NewService(db, logger)
		f.handler = NewHandler(f.service)
		f.recorder = NewRecorder(f.service, logger)
	}
	return f
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "history"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load migrates the table, subscribes the recorder and registers the routes.
func (f *Feature) Load(app fiber.Router) error {
	if err := f.service.Migrate(); err != nil {
		return err
	}
	f.unsubscribe = f.dispatcher.Subscribe(f.recorder, Kinds(f.includeMoves)...)
	f.handler.RegisterRoutes(app)
	return nil
}

// LastBatchID returns the highest recorded batch id. It is 0 when the feature
// is disabled.
func (f *Feature) LastBatchID(ctx context.Context) (uint64, error) {
	if !f.enabled {
		return 0, nil
	}
	return f.service.LastBatchID(ctx)
}

// Close stops recording.
func (f *Feature) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
}
