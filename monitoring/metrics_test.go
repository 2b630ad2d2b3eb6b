package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPredictionMetricsExposition(t *testing.T) {
	metrics := NewPredictionMetrics()

	metrics.RecordPrediction(StatusSuccess, "Heart Disease")
	metrics.RecordPrediction(StatusSuccess, "Heart Disease")
	metrics.RecordPrediction(StatusError, LabelNone)
	metrics.SetConfidence(0.87)
	metrics.ObserveDuration(5 * time.Millisecond)
	metrics.RecordHTTPRequest(http.MethodPost, "/predict", http.StatusOK)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		`predictions_total{prediction_label="Heart Disease",status="success"} 2`,
		`predictions_total{prediction_label="none",status="error"} 1`,
		`model_confidence 0.87`,
		`prediction_duration_seconds_count 1`,
		`http_requests_total{endpoint="/predict",method="POST",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestPredictionMetricsIndependentRegistries(t *testing.T) {
	first := NewPredictionMetrics()
	second := NewPredictionMetrics()

	first.RecordPrediction(StatusSuccess, "Heart Disease")

	w := httptest.NewRecorder()
	second.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(w.Body.String(), `status="success"} 1`) {
		t.Fatal("registries are not independent")
	}
}
