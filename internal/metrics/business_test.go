package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBatch(t *testing.T) {
	before := testutil.ToFloat64(detailsTotal.WithLabelValues("failed"))
	RecordBatch("succeeded", 15, 20)
	assert.Equal(t, before+5, testutil.ToFloat64(detailsTotal.WithLabelValues("failed")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(batchesTotal.WithLabelValues("succeeded")), 1.0)
}

func TestRecordWindow(t *testing.T) {
	before := testutil.ToFloat64(windowsTotal.WithLabelValues("failure"))
	RecordWindow(false)
	assert.Equal(t, before+1, testutil.ToFloat64(windowsTotal.WithLabelValues("failure")))
}

func TestRecordGrab_SetsLastSuccess(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	RecordGrab(true, 3*time.Second, at)
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(lastSuccess))

	RecordGrab(false, time.Second, at.Add(time.Hour))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(lastSuccess))
}

func TestRecordXMLTVAndRatio(t *testing.T) {
	RecordXMLTV(3, 42)
	RecordEnrichmentRatio(0.75)
	assert.Equal(t, 42.0, testutil.ToFloat64(programmesWritten))
	assert.Equal(t, 0.75, testutil.ToFloat64(enrichmentRatio))
}

func TestPromhttpExposure(t *testing.T) {
	RecordDelivery(true)
	IncGrabFailure("auth")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		"zattoo_epg_deliveries_total",
		"zattoo_epg_grab_failures_total",
		"zattoo_epg_grab_runs_total",
	} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
