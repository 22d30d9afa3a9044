package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledMetricsAreNoop(t *testing.T) {
	m := NewMetrics(false)

	assert.False(t, m.Enabled())
	assert.Nil(t, m.Registry())
	assert.NotPanics(t, func() {
		m.ObserveRender("devices", 10, 20)
		m.RecordLoadMore("devices")
		m.RecordImageLoad("loaded")
		m.SetSubscriptions(3, 1)
		m.SetRSS(1024)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(true)
	require.True(t, m.Enabled())

	m.ObserveRender("devices", 21, 21)
	m.RecordLoadMore("devices")
	m.RecordLoadMore("devices")
	m.RecordImageLoad("errored")
	m.SetSubscriptions(4, 2)
	m.SetRSS(4096)

	assert.Equal(t, 21.0, testutil.ToFloat64(m.itemsRendered.WithLabelValues("devices")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loadMore.WithLabelValues("devices")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imageLoads.WithLabelValues("errored")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.visibilitySubs))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scrollSubs))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.rss))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "acqdash_load_more_total")
	assert.Contains(t, string(body), "acqdash_process_rss_bytes")
}

func TestSampleProcess(t *testing.T) {
	stats, err := SampleProcess(context.Background())
	require.NoError(t, err)
	assert.Positive(t, stats.RSS)
	assert.False(t, stats.SampledAt.IsZero())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512B"},
		{2048, "2.0KiB"},
		{5 * 1024 * 1024, "5.0MiB"},
		{3 << 30, "3.0GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
