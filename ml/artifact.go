package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Classifier maps a scaled feature vector to a class probability
// distribution ordered [no-disease, disease].
type Classifier interface {
	PredictProba(features []float64) ([]float64, error)
}

const (
	ModelLogisticRegression = "logistic_regression"
	ModelRandomForest       = "random_forest"
)

// Artifact is the versioned model bundle produced by the offline trainer:
// the fitted input scaler plus exactly one trained classifier. It is loaded
// once at service start and treated as read-only afterwards.
type Artifact struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ModelType string    `json:"model_type"`

	Scaler   *StandardScaler     `json:"scaler"`
	Logistic *LogisticRegression `json:"logistic,omitempty"`
	Forest   *RandomForest       `json:"forest,omitempty"`
}

func (a *Artifact) Classifier() (Classifier, error) {
	switch a.ModelType {
	case ModelLogisticRegression:
		if a.Logistic == nil {
			return nil, errors.New("artifact missing logistic model")
		}
		return a.Logistic, nil
	case ModelRandomForest:
		if a.Forest == nil {
			return nil, errors.New("artifact missing forest model")
		}
		return a.Forest, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", a.ModelType)
	}
}

func (a *Artifact) Validate() error {
	if a.Scaler == nil {
		return errors.New("artifact missing scaler")
	}
	if len(a.Scaler.Mean) != FeatureCount || len(a.Scaler.Std) != FeatureCount {
		return fmt.Errorf("scaler fitted for %d features, want %d", len(a.Scaler.Mean), FeatureCount)
	}
	classifier, err := a.Classifier()
	if err != nil {
		return err
	}
	switch model := classifier.(type) {
	case *LogisticRegression:
		if len(model.Weights) != FeatureCount {
			return fmt.Errorf("logistic model has %d weights, want %d", len(model.Weights), FeatureCount)
		}
	case *RandomForest:
		if len(model.Trees) == 0 {
			return errors.New("forest model has no trees")
		}
		for i, tree := range model.Trees {
			if err := tree.validate(FeatureCount); err != nil {
				return fmt.Errorf("forest tree %d: %w", i, err)
			}
		}
	}
	return nil
}

func LoadArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (a *Artifact) Save(path string) error {
	if err := a.Validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
