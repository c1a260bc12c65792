package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{302, "3xx"},
		{409, "4xx"},
		{504, "5xx"},
		{0, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusClass(tt.status), "status %d", tt.status)
	}
}

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.RecordPass("refresh", "ok", 120*time.Millisecond)
	m.RecordPass("refresh", "ok", 80*time.Millisecond)
	m.RecordPass("prune", "busy", time.Millisecond)
	m.RecordProbe("ok")
	m.RecordProbe("no_media")
	m.RecordProbe("ok")
	m.SetCacheEntries(7)
	m.RecordPruned(2)
	m.RecordPruned(0)
	m.RecordHTTP(http.MethodGet, 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("refresh", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("prune", "busy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.probesTotal.WithLabelValues("ok")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.cacheEntries))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.prunedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "2xx")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordPass("refresh", "ok", time.Second)
	m.RecordProbe("ok")
	m.SetCacheEntries(1)
	m.RecordPruned(1)
	m.RecordHTTP(http.MethodGet, 200, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesInstruments(t *testing.T) {
	m := New()
	m.SetCacheEntries(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "tabmemory_cache_entries 3"), "body missing gauge")
}
