package monitor

import (
	"inventory-monitor/core/scheduler"
	"inventory-monitor/core/sink"
	"inventory-monitor/core/snapshot"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsPath is where Prometheus metrics are served.
const MetricsPath = "/metrics"

// Feature implements the loader.Feature interface.
type Feature struct {
	service  *Service
	handler  *Handler
	gatherer prometheus.Gatherer
}

// NewFeature creates the monitor feature. A nil gatherer leaves /metrics unregistered.
func NewFeature(sched *scheduler.Scheduler, sk *sink.Sink, store *snapshot.Store, gatherer prometheus.Gatherer, logger *zap.Logger) *Feature {
	svc := NewService(sched, sk, store, logger)
	return &Feature{service: svc, handler: NewHandler(svc), gatherer: gatherer}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "monitor"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	if f.gatherer != nil {
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(f.gatherer, promhttp.HandlerOpts{})))
	}
	return nil
}
