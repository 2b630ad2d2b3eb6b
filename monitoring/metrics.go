// Package monitoring provides the prometheus metric surface and the
// websocket event stream. Both are optional: the prediction path works
// unchanged without them.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// LabelNone is the prediction_label for requests that never produced
	// a prediction.
	LabelNone = "none"
)

// PredictionMetrics owns a private registry so tests can run collectors
// side by side without default-registry collisions.
type PredictionMetrics struct {
	registry *prometheus.Registry

	predictions  *prometheus.CounterVec
	duration     prometheus.Histogram
	confidence   prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

func NewPredictionMetrics() *PredictionMetrics {
	m := &PredictionMetrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions",
		}, []string{"status", "prediction_label"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Time spent processing prediction",
			Buckets: prometheus.DefBuckets,
		}),
		confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "model_confidence",
			Help: "Confidence of the last prediction",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.duration,
		m.confidence,
		m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *PredictionMetrics) RecordPrediction(status, label string) {
	m.predictions.WithLabelValues(status, label).Inc()
}

func (m *PredictionMetrics) ObserveDuration(d time.Duration) {
	m.duration.Observe(d.Seconds())
}

func (m *PredictionMetrics) SetConfidence(confidence float64) {
	m.confidence.Set(confidence)
}

func (m *PredictionMetrics) RecordHTTPRequest(method, endpoint string, status int) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// Handler serves the text exposition for scrapers.
func (m *PredictionMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test gathering.
func (m *PredictionMetrics) Registry() *prometheus.Registry {
	return m.registry
}
