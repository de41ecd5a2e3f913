package handlers

import (
	"net/http"

	"github.com/2HgO/aura-go/metrics"
)

type metricsHandler struct {
	recorder *metrics.PrometheusRecorder
}

func NewMetricsHandler(recorder *metrics.PrometheusRecorder) Handler {
	return &metricsHandler{recorder: recorder}
}

func (m *metricsHandler) ServeHttp(mux *http.ServeMux) {
	mux.Handle("GET /metrics", m.recorder.Handler())
}
