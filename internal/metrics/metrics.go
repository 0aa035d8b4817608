// Package metrics records Prometheus metrics from eventbus events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
)

const namespace = "sirendb"

// Metrics holds the collectors fed by the event subscribers.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	operationErrors  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	queries          *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	pageSize         *prometheus.HistogramVec
	projectedObjects *prometheus.CounterVec
	projectionHits   *prometheus.CounterVec
	resolverCalls    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operations_total",
			Help: "Executed GraphQL operations",
		}, []string{"type"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "errors_total",
			Help: "Errors reported in GraphQL results",
		}, []string{"type"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operation_duration_seconds",
			Help:    "GraphQL operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "storage", Name: "queries_total",
			Help: "Storage statements by table and outcome",
		}, []string{"table", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage", Name: "query_duration_seconds",
			Help:    "Storage statement latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"table"}),
		pageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "paginate", Name: "page_items",
			Help:    "Items returned per page",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"type"}),
		projectedObjects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "projection", Name: "objects_total",
			Help: "Objects built by projections",
		}, []string{"type"}),
		projectionHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "projection", Name: "cache_hits_total",
			Help: "Memoized objects and values reused within a request",
		}, []string{"type"}),
		resolverCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "projection", Name: "resolver_calls_total",
			Help: "Computed field resolver invocations",
		}, []string{"type"}),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequests, m.httpDuration,
		m.operations, m.operationErrors, m.operationLatency,
		m.queries, m.queryDuration, m.pageSize,
		m.projectedObjects, m.projectionHits, m.resolverCalls,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Attach subscribes m to the events published on bus.
func (m *Metrics) Attach(bus *eventbus.Bus) (detach func()) {
	unsubs := []func(){
		eventbus.On(bus, func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.On(bus, func(_ context.Context, e events.GraphQLFinish) {
			m.operations.WithLabelValues(e.OperationType).Inc()
			m.operationLatency.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
			if n := len(e.Errors); n > 0 {
				m.operationErrors.WithLabelValues(e.OperationType).Add(float64(n))
			}
		}),
		eventbus.On(bus, func(_ context.Context, e events.QueryFinish) {
			status := "ok"
			if e.Err != nil {
				status = "error"
			}
			m.queries.WithLabelValues(e.Table, status).Inc()
			m.queryDuration.WithLabelValues(e.Table).Observe(e.Duration.Seconds())
		}),
		eventbus.On(bus, func(_ context.Context, e events.PageFinish) {
			if e.Err == nil {
				m.pageSize.WithLabelValues(e.Type).Observe(float64(e.Count))
			}
		}),
		eventbus.On(bus, func(_ context.Context, e events.ProjectionFinish) {
			m.projectedObjects.WithLabelValues(e.Type).Add(float64(e.Objects))
			m.projectionHits.WithLabelValues(e.Type).Add(float64(e.CacheHits))
			m.resolverCalls.WithLabelValues(e.Type).Add(float64(e.ResolverCalls))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
