package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for the proxy.
// Tracks cache hit/miss/eviction counts, cache occupancy, origin
// errors, and per-connection duration, so the accept loop and the
// forwarding pipeline have one place to report through.
type Metrics struct {
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	cacheEvictions    prometheus.Counter
	cacheInsertBytes  prometheus.Counter
	cacheBytes        prometheus.Gauge
	originErrors      prometheus.Counter
	connectionDur     prometheus.Histogram
	activeConnections prometheus.Gauge
}

// NewMetrics creates new metrics collector with Prometheus instruments
// Registers all metrics with default registry for HTTP exposition
// Time Complexity: O(1) - metric registration
// Space Complexity: O(1) - fixed metric storage
func NewMetrics() *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_hits_total",
			Help: "Total number of cache lookups that were satisfied from the cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_misses_total",
			Help: "Total number of cache lookups that required an origin fetch",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_evictions_total",
			Help: "Total number of entries evicted to make room for an insert",
		}),
		cacheInsertBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_inserted_bytes_total",
			Help: "Total bytes inserted into the cache across all insertions",
		}),
		cacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proxy_cache_bytes",
			Help: "Current number of bytes held in the cache",
		}),
		originErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_origin_errors_total",
			Help: "Total number of dial/send/receive failures against an origin",
		}),
		connectionDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "proxy_connection_duration_seconds",
			Help:    "Per-connection duration from accept to handler return",
			Buckets: prometheus.DefBuckets,
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proxy_active_connections",
			Help: "Number of connections currently being handled",
		}),
	}

	prometheus.MustRegister(m.cacheHits)
	prometheus.MustRegister(m.cacheMisses)
	prometheus.MustRegister(m.cacheEvictions)
	prometheus.MustRegister(m.cacheInsertBytes)
	prometheus.MustRegister(m.cacheBytes)
	prometheus.MustRegister(m.originErrors)
	prometheus.MustRegister(m.connectionDur)
	prometheus.MustRegister(m.activeConnections)

	return m
}

// RecordCacheHit records a cache lookup satisfied without an origin fetch.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss records a cache lookup that required an origin fetch.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordCacheInsert records a successful cache insertion of size bytes.
func (m *Metrics) RecordCacheInsert(bytes int64) {
	m.cacheInsertBytes.Add(float64(bytes))
	m.cacheBytes.Add(float64(bytes))
}

// RecordCacheEviction records one entry evicted to make room for an insert.
func (m *Metrics) RecordCacheEviction(freedBytes int64) {
	m.cacheEvictions.Inc()
	m.cacheBytes.Sub(float64(freedBytes))
}

// RecordOriginError records a dial/send/receive failure against an origin.
func (m *Metrics) RecordOriginError() {
	m.originErrors.Inc()
}

// IncrementConnections increments active connection count
// Called when new connection is established
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Inc()
}

// DecrementConnections decrements active connection count
// Called when connection is closed
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Dec()
}

// RecordConnectionDuration records the wall-clock time spent handling
// one accepted connection.
func (m *Metrics) RecordConnectionDuration(d time.Duration) {
	m.connectionDur.Observe(d.Seconds())
}

// Handler returns HTTP handler for Prometheus metrics exposition
// Enables metrics scraping by monitoring systems
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
