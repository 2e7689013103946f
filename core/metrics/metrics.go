package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Refreshes              *prometheus.CounterVec
	ContainersUnavailable  prometheus.Counter
	SchedulerFaults        prometheus.Counter
	Transitions            prometheus.Counter
	Changes                *prometheus.CounterVec
	ReconciliationFallback prometheus.Counter
	DiscardedRefreshes     prometheus.Counter
	ActiveScopes           prometheus.Gauge
	RefreshDuration        prometheus.Histogram
}

// New registers the instruments with reg. Pass prometheus.NewRegistry() in tests
// so instruments are not registered twice on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_monitor_refreshes_total",
			Help: "Total number of scope refreshes by trigger (timer or dirty)",
		}, []string{"trigger"}),
		ContainersUnavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_monitor_containers_unavailable_total",
			Help: "Total number of container reads skipped because the source was not loaded",
		}),
		SchedulerFaults: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_monitor_scheduler_faults_total",
			Help: "Total number of refresh loop restarts after an unexpected failure",
		}),
		Transitions: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_monitor_raw_transitions_total",
			Help: "Total number of raw slot transitions fed to the reconciliation engine",
		}),
		Changes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_monitor_changes_total",
			Help: "Total number of semantic changes published by kind",
		}, []string{"kind"}),
		ReconciliationFallback: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_monitor_reconciliation_fallbacks_total",
			Help: "Total number of transitions reported as removed/added without a matching counterpart",
		}),
		DiscardedRefreshes: f.NewCounter(prometheus.CounterOpts{
			Name: "inventory_monitor_discarded_refreshes_total",
			Help: "Total number of refresh results discarded because the scope was suspended",
		}),
		ActiveScopes: f.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_monitor_active_scopes",
			Help: "Current number of active scopes",
		}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "inventory_monitor_refresh_duration_seconds",
			Help:    "Duration of one refresh pass over a scope",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
	}
}

// NewNop returns instruments bound to a private registry, for callers that do not export metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
