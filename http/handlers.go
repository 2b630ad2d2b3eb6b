// Package http exposes the prediction service over JSON/HTTP.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"heartserve/db"
	"heartserve/ml"
	"heartserve/monitoring"
)

// Predictor is the handler-side view of the model service.
type Predictor interface {
	Predict(features []float64) (ml.Prediction, error)
	Loaded() bool
}

// HistoryStore persists served predictions. Optional.
type HistoryStore interface {
	SavePrediction(rec db.PredictionRecord) error
	RecentPredictions(limit int) ([]db.PredictionRecord, error)
}

// Config carries the optional collaborators. Nil fields disable the
// corresponding instrumentation without touching the prediction path.
type Config struct {
	Service string
	Version string
	Metrics *monitoring.PredictionMetrics
	Store   HistoryStore
	Hub     *monitoring.Hub
	Logger  *zap.Logger
}

// Handlers holds every dependency explicitly; there is no package state.
type Handlers struct {
	predictor Predictor
	metrics   *monitoring.PredictionMetrics
	store     HistoryStore
	hub       *monitoring.Hub
	logger    *zap.Logger

	service   string
	version   string
	startTime time.Time
}

func NewHandlers(predictor Predictor, cfg Config) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	service := cfg.Service
	if service == "" {
		service = "Heart Disease Prediction API"
	}
	version := cfg.Version
	if version == "" {
		version = "1.0.0"
	}
	return &Handlers{
		predictor: predictor,
		metrics:   cfg.Metrics,
		store:     cfg.Store,
		hub:       cfg.Hub,
		logger:    logger,
		service:   service,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	if h.store != nil {
		mux.HandleFunc("GET /predictions", h.handlePredictions)
	}
	if h.hub != nil {
		mux.HandleFunc("GET /ws/monitor", h.hub.ServeWS)
	}
}

func (h *Handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   h.service,
		"version":   h.version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := h.predictor != nil && h.predictor.Loaded()
	status := "healthy"
	if !loaded {
		status = "unhealthy"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         status,
		"model_loaded":   loaded,
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

type predictRequest struct {
	Features *[]float64 `json:"features"`
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			h.rejectPredict(w, "Missing features in request")
			return
		}
		h.rejectPredict(w, "Request body must be a JSON object with numeric features")
		return
	}
	if req.Features == nil {
		h.rejectPredict(w, "Missing features in request")
		return
	}
	features := *req.Features
	if len(features) != ml.FeatureCount {
		h.logger.Warn("invalid features length", zap.Int("length", len(features)))
		h.rejectPredict(w, "Features must be a list of 13 values")
		return
	}

	prediction, err := h.observedPredict(features)
	latency := time.Since(start)
	if err != nil {
		h.logger.Error("prediction failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	h.logger.Info("prediction served",
		zap.String("label", prediction.LabelName),
		zap.Float64("confidence", prediction.Confidence),
		zap.Duration("latency", latency))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":                true,
		"prediction":             prediction.Label,
		"prediction_label":       prediction.LabelName,
		"confidence":             prediction.Confidence,
		"probability_disease":    prediction.ProbDisease,
		"probability_no_disease": prediction.ProbNoDisease,
		"latency_seconds":        latency.Seconds(),
		"timestamp":              time.Now().Format(time.RFC3339),
	})
}

// observedPredict wraps the core predict call with instrumentation.
// Metrics, the event stream, and the history store are side channels: a
// failure in any of them never fails the request.
func (h *Handlers) observedPredict(features []float64) (ml.Prediction, error) {
	start := time.Now()
	prediction, err := h.predictor.Predict(features)
	elapsed := time.Since(start)

	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordPrediction(monitoring.StatusError, monitoring.LabelNone)
		}
		return ml.Prediction{}, err
	}

	if h.metrics != nil {
		h.metrics.RecordPrediction(monitoring.StatusSuccess, prediction.LabelName)
		h.metrics.SetConfidence(prediction.Confidence)
		h.metrics.ObserveDuration(elapsed)
	}
	if h.hub != nil {
		h.hub.Publish(monitoring.Event{Type: monitoring.EventPrediction, Data: prediction})
	}
	if h.store != nil {
		rec := db.PredictionRecord{
			Label:         prediction.Label,
			LabelName:     prediction.LabelName,
			Confidence:    prediction.Confidence,
			ProbDisease:   prediction.ProbDisease,
			ProbNoDisease: prediction.ProbNoDisease,
			LatencyMs:     float64(elapsed.Microseconds()) / 1000,
		}
		if serr := h.store.SavePrediction(rec); serr != nil {
			h.logger.Warn("failed to record prediction", zap.Error(serr))
		}
	}
	return prediction, nil
}

// rejectPredict reports a validation failure before the predictor is
// invoked.
func (h *Handlers) rejectPredict(w http.ResponseWriter, message string) {
	if h.metrics != nil {
		h.metrics.RecordPrediction(monitoring.StatusError, monitoring.LabelNone)
	}
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error": message,
		"expected_format": map[string]interface{}{
			"features": ml.SampleFeatures(),
		},
	})
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	records, err := h.store.RecentPredictions(limit)
	if err != nil {
		h.logger.Error("failed to query prediction history", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to query prediction history",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(records),
		"predictions": records,
	})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
