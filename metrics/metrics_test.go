package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersRecord(t *testing.T) {
	m := New()

	m.CacheResult("analytics.fitness", "hit")
	m.CacheResult("analytics.fitness", "hit")
	m.ChartRendered("Muscles worked out", "ready")
	m.ExportFinished("render", "success", 64*1024)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.QueryCacheResults.WithLabelValues("analytics.fitness", "hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChartRenders.WithLabelValues("Muscles worked out", "ready")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Exports.WithLabelValues("render", "success")))
}

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a := New()
	b := New()
	a.CacheResult("q", "miss")
	assert.Equal(t, float64(0), testutil.ToFloat64(b.QueryCacheResults.WithLabelValues("q", "miss")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/analytics", 200, 20*time.Millisecond)
	m.ObserveBackend("userPreferences", "ok", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fitdash_http_request_duration_seconds_count{method="GET",route="/analytics",status_code="200"} 1`)
	assert.Contains(t, string(body), "fitdash_backend_request_duration_seconds")
	assert.Contains(t, string(body), "go_goroutines")
}
