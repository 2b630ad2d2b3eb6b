package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler centers each feature to zero mean and unit variance using
// statistics fitted on the training set. The fitted parameters are part of
// the persisted artifact so serving applies the exact training-time transform.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s *StandardScaler) Fit(samples [][]float64) error {
	if len(samples) == 0 {
		return errors.New("samples is empty")
	}
	width := len(samples[0])
	if width == 0 {
		return errors.New("samples have no features")
	}

	mean := make([]float64, width)
	for _, sample := range samples {
		if len(sample) != width {
			return errors.New("samples have inconsistent widths")
		}
		for i, value := range sample {
			mean[i] += value
		}
	}
	n := float64(len(samples))
	for i := range mean {
		mean[i] /= n
	}

	std := make([]float64, width)
	for _, sample := range samples {
		for i, value := range sample {
			diff := value - mean[i]
			std[i] += diff * diff
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
		if std[i] == 0 {
			// constant feature, pass through unscaled
			std[i] = 1
		}
	}

	s.Mean = mean
	s.Std = std
	return nil
}

func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if len(s.Mean) == 0 || len(s.Std) == 0 {
		return nil, errors.New("scaler not fitted")
	}
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.Mean), len(features))
	}
	scaled := make([]float64, len(features))
	for i, value := range features {
		scaled[i] = (value - s.Mean[i]) / s.Std[i]
	}
	return scaled, nil
}

func (s *StandardScaler) TransformAll(samples [][]float64) ([][]float64, error) {
	scaled := make([][]float64, len(samples))
	for i, sample := range samples {
		vector, err := s.Transform(sample)
		if err != nil {
			return nil, err
		}
		scaled[i] = vector
	}
	return scaled, nil
}
