package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"heartserve/ml"
	"heartserve/monitoring"
)

type fakePredictor struct {
	prediction ml.Prediction
	err        error
	loaded     bool
	calls      int64
}

func (f *fakePredictor) Predict(features []float64) (ml.Prediction, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.prediction, f.err
}

func (f *fakePredictor) Loaded() bool { return f.loaded }

func healthyFake() *fakePredictor {
	return &fakePredictor{
		prediction: ml.Prediction{
			Label:         1,
			LabelName:     "Heart Disease",
			Confidence:    0.82,
			ProbDisease:   0.82,
			ProbNoDisease: 0.18,
		},
		loaded: true,
	}
}

func newTestMux(predictor Predictor) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandlers(predictor, Config{}).Register(mux)
	return mux
}

func postPredict(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return payload
}

func TestHandlePredict(t *testing.T) {
	fake := healthyFake()
	mux := newTestMux(fake)

	w := postPredict(t, mux, `{"features": [63,1,3,145,233,1,0,150,0,2.3,0,0,1]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	payload := decodeBody(t, w)
	if payload["success"] != true {
		t.Fatalf("expected success, got %v", payload)
	}
	prediction := payload["prediction"].(float64)
	if prediction != 0 && prediction != 1 {
		t.Fatalf("prediction out of range: %v", prediction)
	}
	confidence := payload["confidence"].(float64)
	if confidence < 0 || confidence > 1 {
		t.Fatalf("confidence out of range: %v", confidence)
	}
	sum := payload["probability_disease"].(float64) + payload["probability_no_disease"].(float64)
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("probabilities do not sum to 1: %v", sum)
	}
	if payload["prediction_label"] != "Heart Disease" {
		t.Fatalf("unexpected label: %v", payload["prediction_label"])
	}
	if _, ok := payload["timestamp"]; !ok {
		t.Fatal("missing timestamp")
	}
	if fake.calls != 1 {
		t.Fatalf("expected 1 predictor call, got %d", fake.calls)
	}
}

func TestHandlePredictWrongLength(t *testing.T) {
	fake := healthyFake()
	mux := newTestMux(fake)

	for _, body := range []string{
		`{"features": []}`,
		`{"features": [63,1,3]}`,
		`{"features": [63,1,3,145,233,1,0,150,0,2.3,0,0,1,99]}`,
	} {
		w := postPredict(t, mux, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, w.Code)
		}
		payload := decodeBody(t, w)
		if _, ok := payload["error"]; !ok {
			t.Fatalf("missing error field: %v", payload)
		}
		if _, ok := payload["expected_format"]; !ok {
			t.Fatalf("missing expected_format: %v", payload)
		}
	}
	if fake.calls != 0 {
		t.Fatalf("predictor must not be invoked on validation failure, got %d calls", fake.calls)
	}
}

func TestHandlePredictMissingFeatures(t *testing.T) {
	fake := healthyFake()
	mux := newTestMux(fake)

	for _, body := range []string{`{}`, ``, `{"inputs": [1,2,3]}`} {
		w := postPredict(t, mux, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, w.Code)
		}
		payload := decodeBody(t, w)
		if _, ok := payload["error"]; !ok {
			t.Fatalf("missing error field: %v", payload)
		}
	}
	if fake.calls != 0 {
		t.Fatalf("predictor must not be invoked, got %d calls", fake.calls)
	}
}

func TestHandlePredictNonNumericFeatures(t *testing.T) {
	fake := healthyFake()
	mux := newTestMux(fake)

	w := postPredict(t, mux, `{"features": [63,"high",3,145,233,1,0,150,0,2.3,0,0,1]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if fake.calls != 0 {
		t.Fatalf("predictor must not be invoked, got %d calls", fake.calls)
	}
}

func TestHandlePredictModelUnavailable(t *testing.T) {
	fake := &fakePredictor{err: ml.ErrModelUnavailable}
	mux := newTestMux(fake)

	w := postPredict(t, mux, `{"features": [63,1,3,145,233,1,0,150,0,2.3,0,0,1]}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["success"] != false {
		t.Fatalf("expected success=false, got %v", payload)
	}
	if _, ok := payload["error"]; !ok {
		t.Fatalf("missing error field: %v", payload)
	}
}

func TestHandlePredictInternalFault(t *testing.T) {
	fake := &fakePredictor{err: fmt.Errorf("classifier blew up"), loaded: true}
	mux := newTestMux(fake)

	w := postPredict(t, mux, `{"features": [63,1,3,145,233,1,0,150,0,2.3,0,0,1]}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestHandlePredictConcurrent(t *testing.T) {
	fake := healthyFake()
	metrics := monitoring.NewPredictionMetrics()
	mux := http.NewServeMux()
	NewHandlers(fake, Config{Metrics: metrics}).Register(mux)

	const n = 25
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := postPredict(t, mux, `{"features": [63,1,3,145,233,1,0,150,0,2.3,0,0,1]}`)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Fatalf("expected all 200s, got %d", code)
		}
	}
	if fake.calls != n {
		t.Fatalf("expected %d predictor calls, got %d", n, fake.calls)
	}

	// the success counter advances by exactly one per request
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	want := fmt.Sprintf(`predictions_total{prediction_label="Heart Disease",status="success"} %d`, n)
	if !strings.Contains(w.Body.String(), want) {
		t.Fatalf("exposition missing %q", want)
	}
}
