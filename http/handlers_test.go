package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"heartserve/db"
	"heartserve/monitoring"
)

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleHome(t *testing.T) {
	mux := newTestMux(healthyFake())

	w := get(t, mux, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["status"] != "healthy" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["service"] == "" || payload["version"] == "" {
		t.Fatalf("missing service metadata: %v", payload)
	}
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(&fakePredictor{loaded: false})
	w := get(t, mux, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["model_loaded"] != false {
		t.Fatalf("expected model_loaded=false, got %v", payload)
	}
	if payload["status"] != "unhealthy" {
		t.Fatalf("expected unhealthy, got %v", payload["status"])
	}

	mux = newTestMux(healthyFake())
	payload = decodeBody(t, get(t, mux, "/health"))
	if payload["model_loaded"] != true {
		t.Fatalf("expected model_loaded=true, got %v", payload)
	}
	if _, ok := payload["uptime_seconds"]; !ok {
		t.Fatal("missing uptime_seconds")
	}
}

type fakeStore struct {
	saved []db.PredictionRecord
}

func (f *fakeStore) SavePrediction(rec db.PredictionRecord) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) RecentPredictions(limit int) ([]db.PredictionRecord, error) {
	if limit > len(f.saved) {
		limit = len(f.saved)
	}
	return f.saved[:limit], nil
}

func TestHandlePredictions(t *testing.T) {
	store := &fakeStore{}
	mux := http.NewServeMux()
	NewHandlers(healthyFake(), Config{Store: store}).Register(mux)

	// a served prediction lands in the store
	w := postPredict(t, mux, `{"features": [63,1,3,145,233,1,0,150,0,2.3,0,0,1]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 stored prediction, got %d", len(store.saved))
	}

	w = get(t, mux, "/predictions?limit=10")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["count"].(float64) != 1 {
		t.Fatalf("expected count 1, got %v", payload["count"])
	}
}

func TestPredictUpdatesMetrics(t *testing.T) {
	metrics := monitoring.NewPredictionMetrics()
	mux := http.NewServeMux()
	NewHandlers(healthyFake(), Config{Metrics: metrics}).Register(mux)

	const n = 5
	for i := 0; i < n; i++ {
		if w := postPredict(t, mux, `{"features": [63,1,3,145,233,1,0,150,0,2.3,0,0,1]}`); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	// validation failure counts as an error outcome
	postPredict(t, mux, `{"features": [1,2,3]}`)

	w := get(t, mux, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `predictions_total{prediction_label="Heart Disease",status="success"} 5`) {
		t.Fatalf("success counter missing or wrong:\n%s", body)
	}
	if !strings.Contains(body, `predictions_total{prediction_label="none",status="error"} 1`) {
		t.Fatalf("error counter missing or wrong:\n%s", body)
	}
	if !strings.Contains(body, "prediction_duration_seconds") {
		t.Fatal("duration histogram missing")
	}
	if !strings.Contains(body, "model_confidence") {
		t.Fatal("confidence gauge missing")
	}
}

func TestRegisterSkipsOptionalRoutes(t *testing.T) {
	mux := newTestMux(healthyFake())
	if w := get(t, mux, "/metrics"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", w.Code)
	}
	if w := get(t, mux, "/predictions"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without store, got %d", w.Code)
	}
}
