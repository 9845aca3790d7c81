// Package metrics exposes the Prometheus collectors recorded by the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinescope_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinescope_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Analytics
	AnalyticsComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinescope_analytics_compute_duration_seconds",
			Help:    "Time spent building analytics reports",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"report"},
	)

	AnalyticsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinescope_analytics_cache_hits_total",
			Help: "Analytics reports served from cache",
		},
		[]string{"report"},
	)

	AnalyticsCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinescope_analytics_cache_misses_total",
			Help: "Analytics reports computed on demand",
		},
		[]string{"report"},
	)

	// Change feed
	ChangeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinescope_change_events_total",
			Help: "Change events published to the in-process feed",
		},
		[]string{"kind"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinescope_websocket_clients",
			Help: "Currently connected event stream clients",
		},
	)

	// Dataset
	DatasetLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinescope_dataset_lookups_total",
			Help: "Original rating lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordHTTPRequest records one served request against its route pattern.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAnalytics records how long a report took to build.
func ObserveAnalytics(report string, duration time.Duration) {
	AnalyticsComputeDuration.WithLabelValues(report).Observe(duration.Seconds())
}

// RecordCacheLookup counts a cache hit or miss for report.
func RecordCacheLookup(report string, hit bool) {
	if hit {
		AnalyticsCacheHits.WithLabelValues(report).Inc()
		return
	}
	AnalyticsCacheMisses.WithLabelValues(report).Inc()
}

// PoolStats is the connection-pool snapshot exported at scrape time.
type PoolStats struct {
	Acquired int32
	Idle     int32
	Total    int32
}

// RegisterDBPool exports gauges that call stats on every scrape.
func RegisterDBPool(reg prometheus.Registerer, stats func() PoolStats) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cinescope_db_pool_acquired_conns",
			Help: "Connections currently checked out of the pool",
		}, func() float64 { return float64(stats().Acquired) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cinescope_db_pool_idle_conns",
			Help: "Idle connections held by the pool",
		}, func() float64 { return float64(stats().Idle) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cinescope_db_pool_total_conns",
			Help: "Total connections owned by the pool",
		}, func() float64 { return float64(stats().Total) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
