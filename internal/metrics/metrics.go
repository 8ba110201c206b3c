package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for the HTTP surface and the
// per-agent publishing pipeline.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	candidatesTotal *prometheus.CounterVec
	publishTotal    *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
	lifetimeCost    *prometheus.GaugeVec
}

// NewCollector constructs a collector with all pipeline and HTTP series
// registered.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pressline",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pressline",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	candidatesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pressline",
		Subsystem: "pipeline",
		Name:      "candidates_total",
		Help:      "Candidates processed, by final result.",
	}, []string{"agent", "result"})

	publishTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pressline",
		Subsystem: "pipeline",
		Name:      "publishes_total",
		Help:      "Publish attempts, by outcome.",
	}, []string{"agent", "outcome"})

	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pressline",
		Subsystem: "pipeline",
		Name:      "queue_depth",
		Help:      "Items currently waiting in the publish queue.",
	}, []string{"agent"})

	lifetimeCost := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pressline",
		Subsystem: "pipeline",
		Name:      "lifetime_cost_usd",
		Help:      "Cumulative language-model spend in USD.",
	}, []string{"agent"})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal, candidatesTotal, publishTotal, queueDepth, lifetimeCost,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		candidatesTotal: candidatesTotal,
		publishTotal:    publishTotal,
		queueDepth:      queueDepth,
		lifetimeCost:    lifetimeCost,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCandidate counts a processed candidate by its final result.
func (c *Collector) ObserveCandidate(agent, result string) {
	c.candidatesTotal.WithLabelValues(agent, result).Inc()
}

// ObservePublish counts a publish attempt.
func (c *Collector) ObservePublish(agent string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.publishTotal.WithLabelValues(agent, outcome).Inc()
}

// SetQueueDepth records the current queue depth for an agent.
func (c *Collector) SetQueueDepth(agent string, depth int) {
	c.queueDepth.WithLabelValues(agent).Set(float64(depth))
}

// SetLifetimeCost records the cumulative spend counter for an agent.
func (c *Collector) SetLifetimeCost(agent string, usd float64) {
	c.lifetimeCost.WithLabelValues(agent).Set(usd)
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)

		c.requestTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
