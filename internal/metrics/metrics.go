package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bizadmin"

// Metrics holds the client-side collectors. A nil *Metrics records nothing.
type Metrics struct {
	APIRequests        *prometheus.CounterVec
	APIDuration        *prometheus.HistogramVec
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheFetches       *prometheus.CounterVec
	CacheFetchErrors   *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec
	Mutations          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Backend requests by method, resource and outcome",
		}, []string{"method", "resource", "status"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Backend request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "resource"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Query cache reads served without fetching",
		}, []string{"resource"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Query cache reads that needed a fetch",
		}, []string{"resource"}),
		CacheFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fetches_total",
			Help:      "Fetches started by the query cache",
		}, []string{"resource"}),
		CacheFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fetch_errors_total",
			Help:      "Fetches that failed after retries",
		}, []string{"resource"}),
		CacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Entries marked stale",
		}, []string{"resource"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutations by outcome",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.APIRequests, m.APIDuration, m.CacheHits, m.CacheMisses,
			m.CacheFetches, m.CacheFetchErrors, m.CacheInvalidations, m.Mutations)
	}
	return m
}

func (m *Metrics) ObserveRequest(method, resource, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, resource, status).Inc()
	m.APIDuration.WithLabelValues(method, resource).Observe(d.Seconds())
}

func (m *Metrics) CacheHit(resource string) {
	if m != nil {
		m.CacheHits.WithLabelValues(resource).Inc()
	}
}

func (m *Metrics) CacheMiss(resource string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(resource).Inc()
	}
}

func (m *Metrics) CacheFetch(resource string) {
	if m != nil {
		m.CacheFetches.WithLabelValues(resource).Inc()
	}
}

func (m *Metrics) CacheFetchError(resource string) {
	if m != nil {
		m.CacheFetchErrors.WithLabelValues(resource).Inc()
	}
}

func (m *Metrics) CacheInvalidated(resource string, n int) {
	if m != nil && n > 0 {
		m.CacheInvalidations.WithLabelValues(resource).Add(float64(n))
	}
}

func (m *Metrics) Mutation(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.Mutations.WithLabelValues(outcome).Inc()
}
