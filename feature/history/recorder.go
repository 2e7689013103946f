package history

import (
	"context"
	"time"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"

	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// Recorder is a sink subscriber writing batches through a Service.
type Recorder struct {
	service *Service
	logger  *zap.Logger
}

// NewRecorder creates a recorder.
func NewRecorder(service *Service, logger *zap.Logger) *Recorder {
	return &Recorder{service: service, logger: logger}
}

// Kinds returns the change kinds a recorder should subscribe to.
func Kinds(includeMoves bool) []inventory.ChangeKind {
	if includeMoves {
		return inventory.AllChangeKinds
	}
	kinds := make([]inventory.ChangeKind, 0, len(inventory.AllChangeKinds))
	for _, k := range inventory.AllChangeKinds {
		if k != inventory.ChangeMoved {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// OnBatch stores batch. Failures are logged; the change stays in the sink's log.
func (r *Recorder) OnBatch(batch inventory.Batch) {
	if batch.Initial {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	n, err := r.service.Record(ctx, batch)
	l := logger.WithScope(r.logger, batch.Scope)
	if err != nil {
		l.Error("Failed to record history", zap.Uint64("batch_id", batch.ID), zap.Error(err))
		return
	}
	l.Debug("History recorded", zap.Uint64("batch_id", batch.ID), zap.Int("records", n))
}

// OnScopeCleared keeps the history of the scope.
func (r *Recorder) OnScopeCleared(scope inventory.ScopeID) {
	logger.WithScope(r.logger, scope).Debug("Scope cleared, history kept")
}
