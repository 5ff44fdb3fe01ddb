// Package metrics exposes Prometheus instrumentation for the dashboard service.
//
// Collectors live on a per-instance registry rather than the global default so tests and
// multiple servers in one process never collide on registration.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "secdash"

// Outcome labels for exports.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder owns the service's collectors and the registry they are exported from.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	queries      *prometheus.CounterVec
	queryMatches *prometheus.HistogramVec
	exports      *prometheus.CounterVec
	exportBytes  *prometheus.CounterVec
	rateLimited  prometheus.Counter
	datasetSize  *prometheus.GaugeVec
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time taken to serve HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "view_queries_total",
				Help:      "Total number of filter/sort/paginate queries per view",
			},
			[]string{"view"},
		),
		queryMatches: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "view_query_matches",
				Help:      "Number of records matching the filters of a query",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
			},
			[]string{"view"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of CSV exports per view, scope and outcome",
			},
			[]string{"view", "scope", "outcome"},
		),
		exportBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_bytes_total",
				Help:      "Total bytes of CSV produced per view",
			},
			[]string{"view"},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
		datasetSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_records",
				Help:      "Number of records in each loaded dataset",
			},
			[]string{"dataset"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveQuery records one view query and how many records matched its filters.
func (r *Recorder) ObserveQuery(view string, matches int) {
	r.queries.WithLabelValues(view).Inc()
	r.queryMatches.WithLabelValues(view).Observe(float64(matches))
}

// ObserveExport records one export attempt. A nil err counts as success and adds size bytes.
func (r *Recorder) ObserveExport(view, scope string, size int, err error) {
	if err != nil {
		r.exports.WithLabelValues(view, scope, OutcomeFailure).Inc()

		return
	}

	r.exports.WithLabelValues(view, scope, OutcomeSuccess).Inc()
	r.exportBytes.WithLabelValues(view).Add(float64(size))
}

// ObserveRateLimited records a request rejected by the rate limiter.
func (r *Recorder) ObserveRateLimited() {
	r.rateLimited.Inc()
}

// SetDatasetSize records how many records a loaded dataset holds.
func (r *Recorder) SetDatasetSize(dataset string, records int) {
	r.datasetSize.WithLabelValues(dataset).Set(float64(records))
}
