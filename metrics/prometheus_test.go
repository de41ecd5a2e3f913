package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	recorder := NewPrometheusRecorder()

	recorder.IncCounter("payment_verified", map[string]string{"outcome": "paid"})
	recorder.IncCounter("payment_verified", map[string]string{"outcome": "paid"})
	recorder.ObserveLatency("swap_execute", 250*time.Millisecond, map[string]string{"outcome": "ok"})

	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.counters.WithLabelValues("payment_verified", "paid")))

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aura_events_total{outcome="paid",type="payment_verified"} 2`)
	assert.Contains(t, rec.Body.String(), `aura_latency_seconds_count{operation="swap_execute",outcome="ok"} 1`)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.IncCounter("x", nil)
		Since(r, "x", time.Now(), nil)
	})
}
