package metrics

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the journey, linking and policy
// workflows. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Journey transitions by target status and whether anything changed
	StatusTransitions *prometheus.CounterVec

	// Link workflow outcomes by operation and result code
	LinkOutcomes *prometheus.CounterVec

	// Access-settings lookups by cache layer and result
	PolicyCacheLookups *prometheus.CounterVec

	// Transactional workflow latency
	WorkflowLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry registers the collectors on reg; tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acolhida_journey_transitions_total",
			Help: "Journey status transitions by target status and whether the status changed",
		}, []string{"to", "changed"}),

		LinkOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acolhida_link_outcomes_total",
			Help: "Professional link workflow outcomes by operation and result",
		}, []string{"operation", "result"}), // result: "ok" or an error code

		PolicyCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acolhida_policy_cache_lookups_total",
			Help: "Access settings lookups by cache layer and result",
		}, []string{"layer", "result"}), // layer: "local", "redis"; result: "hit", "miss", "error"

		WorkflowLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acolhida_workflow_duration_seconds",
			Help:    "Duration of transactional workflows including lock waits",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"workflow"}),

		gatherer: gatherer,
	}
}

func (m *Metrics) IncTransition(to string, changed bool) {
	if m != nil {
		label := "false"
		if changed {
			label = "true"
		}
		m.StatusTransitions.WithLabelValues(to, label).Inc()
	}
}

func (m *Metrics) IncLinkOutcome(operation, result string) {
	if m != nil {
		m.LinkOutcomes.WithLabelValues(operation, result).Inc()
	}
}

func (m *Metrics) IncPolicyLookup(layer, result string) {
	if m != nil {
		m.PolicyCacheLookups.WithLabelValues(layer, result).Inc()
	}
}

// ObserveWorkflow records the time elapsed since start.
func (m *Metrics) ObserveWorkflow(workflow string, start time.Time) {
	if m != nil {
		m.WorkflowLatency.WithLabelValues(workflow).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	var h http.Handler
	if m == nil || m.gatherer == nil {
		h = promhttp.Handler()
	} else {
		h = promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return echo.WrapHandler(h)
}
