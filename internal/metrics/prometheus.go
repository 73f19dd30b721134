package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "fxchart"

var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Prometheus 实现 chart.Recorder，并使用独立 registry 暴露 /metrics。
type Prometheus struct {
	registry *prometheus.Registry

	attempts    *prometheus.CounterVec
	fetches     *prometheus.HistogramVec
	renders     *prometheus.HistogramVec
	truncated   prometheus.Counter
	dropped     prometheus.Counter
	results     *prometheus.HistogramVec
	httpReqs    *prometheus.CounterVec
	breakerOpen *prometheus.GaugeVec
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "symbol_attempts_total",
		Help:      "Candidate symbol attempts against the data source, by outcome.",
	}, []string{"source", "outcome"})
	fetches := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "fetch_duration_seconds",
		Help:      "Time spent resolving and fetching a series.",
		Buckets:   durationBuckets,
	}, []string{"status"})
	renders := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering chart artifacts.",
		Buckets:   durationBuckets,
	}, []string{"status"})
	truncated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "series_truncated_total",
		Help:      "Number of series cut down to the configured point limit.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "series_points_dropped_total",
		Help:      "Oldest data points dropped by truncation.",
	})
	results := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "chart_requests_duration_seconds",
		Help:      "End-to-end chart request latency, by result kind.",
		Buckets:   durationBuckets,
	}, []string{"result"})
	httpReqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route and status code.",
	}, []string{"method", "route", "code"})
	breakerOpen := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "breaker_open",
		Help:      "1 when the data source circuit breaker is not closed.",
	}, []string{"name"})

	registry.MustRegister(attempts, fetches, renders, truncated, dropped, results, httpReqs, breakerOpen)

	return &Prometheus{
		registry:    registry,
		attempts:    attempts,
		fetches:     fetches,
		renders:     renders,
		truncated:   truncated,
		dropped:     dropped,
		results:     results,
		httpReqs:    httpReqs,
		breakerOpen: breakerOpen,
	}
}

func (p *Prometheus) ObserveAttempt(source, outcome string) {
	p.attempts.WithLabelValues(source, outcome).Inc()
}

func (p *Prometheus) ObserveFetch(d time.Duration, ok bool) {
	p.fetches.WithLabelValues(status(ok)).Observe(d.Seconds())
}

func (p *Prometheus) ObserveRender(d time.Duration, ok bool) {
	p.renders.WithLabelValues(status(ok)).Observe(d.Seconds())
}

func (p *Prometheus) ObserveTruncation(dropped int) {
	p.truncated.Inc()
	if dropped > 0 {
		p.dropped.Add(float64(dropped))
	}
}

func (p *Prometheus) ObserveResult(kind string, d time.Duration) {
	p.results.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *Prometheus) ObserveHTTP(method, route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	p.httpReqs.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func (p *Prometheus) SetBreakerOpen(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	p.breakerOpen.WithLabelValues(name).Set(v)
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
