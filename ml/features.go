package ml

import (
	"fmt"
	"math"
)

// FeatureCount is the number of clinical attributes describing one patient.
// Order is significant and must match the order used at training time.
const FeatureCount = 13

func FeatureNames() []string {
	return []string{
		"age",
		"sex",
		"cp",
		"trestbps",
		"chol",
		"fbs",
		"restecg",
		"thalach",
		"exang",
		"oldpeak",
		"slope",
		"ca",
		"thal",
	}
}

// SampleFeatures is a known-good example vector, used in error responses
// to show callers the expected shape.
func SampleFeatures() []float64 {
	return []float64{63, 1, 3, 145, 233, 1, 0, 150, 0, 2.3, 0, 0, 1}
}

func ValidateFeatures(features []float64) error {
	if len(features) != FeatureCount {
		return fmt.Errorf("expected %d features, got %d", FeatureCount, len(features))
	}
	for i, value := range features {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("feature %s is not finite", FeatureNames()[i])
		}
	}
	return nil
}
