package ml

import (
	"errors"
	"math"
)

// LogisticRegression is a binary classifier scored by sigmoid(w·x + b),
// trained with full-batch gradient descent on scaled features.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
}

func NewLogisticRegression(learningRate float64, epochs int) *LogisticRegression {
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if epochs <= 0 {
		epochs = 1000
	}
	return &LogisticRegression{LearningRate: learningRate, Epochs: epochs}
}

func (m *LogisticRegression) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}

	width := len(features[0])
	m.Weights = make([]float64, width)
	m.Bias = 0

	n := float64(len(features))
	gradW := make([]float64, width)
	for epoch := 0; epoch < m.Epochs; epoch++ {
		for i := range gradW {
			gradW[i] = 0
		}
		gradB := 0.0

		for i, sample := range features {
			if len(sample) != width {
				return errors.New("features have inconsistent widths")
			}
			diff := sigmoid(m.score(sample)) - float64(labels[i])
			for j, value := range sample {
				gradW[j] += diff * value
			}
			gradB += diff
		}

		for j := range m.Weights {
			m.Weights[j] -= m.LearningRate * gradW[j] / n
		}
		m.Bias -= m.LearningRate * gradB / n
	}
	return nil
}

// PredictProba returns [probNoDisease, probDisease].
func (m *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	if len(m.Weights) == 0 {
		return nil, errors.New("model not trained")
	}
	if len(features) != len(m.Weights) {
		return nil, errors.New("feature count mismatch")
	}
	p := sigmoid(m.score(features))
	return []float64{1 - p, p}, nil
}

func (m *LogisticRegression) score(features []float64) float64 {
	score := m.Bias
	for i, w := range m.Weights {
		score += w * features[i]
	}
	return score
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
