package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments the scheduler's event stream
// feeds (spec §4.9/§4.10). Grounded on hector's pkg/observability/metrics.go:
// a private prometheus.Registry, per-domain CounterVec/HistogramVec/GaugeVec
// families built with promauto against that registry, and nil-receiver-safe
// Record* methods so a disabled Metrics (NewMetrics(false)) costs callers
// nothing but a nil check that never triggers a panic.
type Metrics struct {
	registry *prometheus.Registry

	nodeExecutions *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
	frameRenders   prometheus.Counter
	loopTerminated *prometheus.CounterVec

	providerAcquires  *prometheus.CounterVec
	providerDenials   *prometheus.CounterVec
	providerTokens    *prometheus.CounterVec
	providerCostUSD   *prometheus.CounterVec
	providerQueueWait prometheus.Histogram
}

// NewMetrics builds a Metrics bound to a fresh private registry. Returns nil
// when enabled is false; every method on a nil *Metrics is a no-op, so call
// sites never need to branch on whether metrics are on.
func NewMetrics(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		nodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smithers",
			Subsystem: "node",
			Name:      "executions_total",
			Help:      "Node executions by node type and terminal status.",
		}, []string{"node_type", "status"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smithers",
			Subsystem: "node",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of a single node execution.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"node_type"}),
		frameRenders: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smithers",
			Subsystem: "scheduler",
			Name:      "frames_rendered_total",
			Help:      "Scheduler frames rendered.",
		}),
		loopTerminated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smithers",
			Subsystem: "scheduler",
			Name:      "loop_terminated_total",
			Help:      "Run terminations by reason.",
		}, []string{"reason"}),
		providerAcquires: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smithers",
			Subsystem: "provider",
			Name:      "acquires_total",
			Help:      "Rate/budget provider Acquire calls by outcome.",
		}, []string{"provider_path", "outcome"}),
		providerDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smithers",
			Subsystem: "provider",
			Name:      "denials_total",
			Help:      "Rate/budget denials by reason (rate, tokens, budget).",
		}, []string{"provider_path", "reason"}),
		providerTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smithers",
			Subsystem: "provider",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction (input, output).",
		}, []string{"provider_path", "direction"}),
		providerCostUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smithers",
			Subsystem: "provider",
			Name:      "cost_usd_total",
			Help:      "Estimated USD cost consumed against a provider's budget.",
		}, []string{"provider_path"}),
		providerQueueWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smithers",
			Subsystem: "provider",
			Name:      "queue_wait_seconds",
			Help:      "Time an Acquire call spent queued before admission or timeout.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// Handler exposes the registry for scraping. A disabled Metrics returns a
// 503 stub so wiring it into an HTTP mux unconditionally is always safe.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry backing m, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) recordNodeExecution(nodeType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.nodeExecutions.WithLabelValues(nodeType, status).Inc()
	m.nodeDuration.WithLabelValues(nodeType).Observe(seconds)
}

func (m *Metrics) recordFrameRender() {
	if m == nil {
		return
	}
	m.frameRenders.Inc()
}

func (m *Metrics) recordLoopTerminated(reason string) {
	if m == nil {
		return
	}
	m.loopTerminated.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordProviderAcquire(providerPath, outcome string) {
	if m == nil {
		return
	}
	m.providerAcquires.WithLabelValues(providerPath, outcome).Inc()
}

func (m *Metrics) recordProviderDenial(providerPath, reason string) {
	if m == nil {
		return
	}
	m.providerDenials.WithLabelValues(providerPath, reason).Inc()
}

func (m *Metrics) recordProviderUsage(providerPath string, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	m.providerTokens.WithLabelValues(providerPath, "input").Add(float64(inputTokens))
	m.providerTokens.WithLabelValues(providerPath, "output").Add(float64(outputTokens))
	m.providerCostUSD.WithLabelValues(providerPath).Add(costUSD)
}

func (m *Metrics) recordProviderQueueWait(seconds float64) {
	if m == nil {
		return
	}
	m.providerQueueWait.Observe(seconds)
}
