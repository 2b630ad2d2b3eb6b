package ml

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModelUnavailable is returned by Predict when no artifact has been
// loaded. The predictor fails closed: it never falls back to a default
// prediction.
var ErrModelUnavailable = errors.New("model artifact not loaded")

const (
	LabelNoDisease = 0
	LabelDisease   = 1
)

type Prediction struct {
	Label         int     `json:"prediction"`
	LabelName     string  `json:"prediction_label"`
	Confidence    float64 `json:"confidence"`
	ProbDisease   float64 `json:"probability_disease"`
	ProbNoDisease float64 `json:"probability_no_disease"`
}

func LabelName(label int) string {
	if label == LabelDisease {
		return "Heart Disease"
	}
	return "No Heart Disease"
}

// Predictor maps raw feature vectors to calibrated predictions using the
// loaded artifact. The artifact is swapped atomically under the lock so the
// watcher can hot-reload a new model while requests are in flight; within a
// single prediction the artifact is read-only.
type Predictor struct {
	mu         sync.RWMutex
	artifact   *Artifact
	classifier Classifier

	cache *PredictionCache
}

func NewPredictor() *Predictor {
	return &Predictor{}
}

// SetCache enables memoization of predictions. Inference is deterministic,
// so a cached result is always identical to a recomputed one.
func (p *Predictor) SetCache(cache *PredictionCache) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = cache
}

// SetArtifact validates and installs a new model bundle. On error the
// previous artifact stays in place.
func (p *Predictor) SetArtifact(artifact *Artifact) error {
	if artifact == nil {
		return errors.New("artifact is nil")
	}
	if err := artifact.Validate(); err != nil {
		return err
	}
	classifier, err := artifact.Classifier()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.artifact = artifact
	p.classifier = classifier
	if p.cache != nil {
		p.cache.Purge()
	}
	return nil
}

func (p *Predictor) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.artifact != nil
}

// Version reports the loaded artifact version, or "" when none is loaded.
func (p *Predictor) Version() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.artifact == nil {
		return ""
	}
	return p.artifact.Version
}

func (p *Predictor) Predict(features []float64) (Prediction, error) {
	p.mu.RLock()
	artifact := p.artifact
	classifier := p.classifier
	cache := p.cache
	p.mu.RUnlock()

	if artifact == nil || classifier == nil {
		return Prediction{}, ErrModelUnavailable
	}
	if err := ValidateFeatures(features); err != nil {
		return Prediction{}, err
	}

	if cache != nil {
		if cached, ok := cache.Get(features); ok {
			return cached, nil
		}
	}

	scaled, err := artifact.Scaler.Transform(features)
	if err != nil {
		return Prediction{}, err
	}
	proba, err := classifier.PredictProba(scaled)
	if err != nil {
		return Prediction{}, err
	}
	if len(proba) != numClasses {
		return Prediction{}, fmt.Errorf("classifier returned %d probabilities, want %d", len(proba), numClasses)
	}

	label := LabelNoDisease
	if proba[LabelDisease] > proba[LabelNoDisease] {
		label = LabelDisease
	}
	prediction := Prediction{
		Label:         label,
		LabelName:     LabelName(label),
		Confidence:    proba[label],
		ProbDisease:   proba[LabelDisease],
		ProbNoDisease: proba[LabelNoDisease],
	}

	if cache != nil {
		cache.Add(features, prediction)
	}
	return prediction, nil
}
