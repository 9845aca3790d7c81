package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/movies/{id}", "200"))
	RecordHTTPRequest("GET", "/movies/{id}", 200, 10*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/movies/{id}", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordHTTPRequestUnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordHTTPRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(AnalyticsCacheHits.WithLabelValues("movie"))
	misses := testutil.ToFloat64(AnalyticsCacheMisses.WithLabelValues("movie"))

	RecordCacheLookup("movie", true)
	RecordCacheLookup("movie", false)
	RecordCacheLookup("movie", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(AnalyticsCacheHits.WithLabelValues("movie")))
	assert.Equal(t, misses+2, testutil.ToFloat64(AnalyticsCacheMisses.WithLabelValues("movie")))
}

func TestRegisterDBPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	err := RegisterDBPool(reg, func() PoolStats { return PoolStats{Acquired: 2, Idle: 3, Total: 5} })
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64, len(families))
	for _, mf := range families {
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 2.0, values["cinescope_db_pool_acquired_conns"])
	assert.Equal(t, 3.0, values["cinescope_db_pool_idle_conns"])
	assert.Equal(t, 5.0, values["cinescope_db_pool_total_conns"])

	assert.Error(t, RegisterDBPool(reg, func() PoolStats { return PoolStats{} }), "duplicate registration")
}
