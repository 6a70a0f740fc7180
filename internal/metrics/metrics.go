package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paratext"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	chunks     *prometheus.CounterVec
	backendUp  prometheus.Gauge
	setupFails prometheus.Counter
}

// New registers all collectors, including the Go runtime and process ones.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Processed API requests by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling API requests.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"endpoint"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paraphrase_chunks_total",
			Help:      "Paraphrased chunks by mode and the attempt that produced them.",
		}, []string{"mode", "outcome"}),
		backendUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "paraphrase_backend_loaded",
			Help:      "1 once the generation backend has been initialised.",
		}),
		setupFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paraphrase_setup_failures_total",
			Help:      "Requests that failed because no generation backend was usable.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.chunks, m.backendUp, m.setupFails,
	)
	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(endpoint, code string, elapsed time.Duration) {
	m.requests.WithLabelValues(endpoint, code).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveChunks adds per-outcome chunk counts for one paraphrase run.
func (m *Metrics) ObserveChunks(mode string, outcomes map[string]int) {
	for outcome, n := range outcomes {
		m.chunks.WithLabelValues(mode, outcome).Add(float64(n))
	}
}

func (m *Metrics) BackendLoaded() {
	m.backendUp.Set(1)
}

func (m *Metrics) SetupFailed() {
	m.setupFails.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
