package ml

import (
	"math"
	"testing"
)

func TestStandardScalerFitTransform(t *testing.T) {
	samples := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scaled, err := scaler.TransformAll(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for col := 0; col < 3; col++ {
		sum := 0.0
		for _, row := range scaled {
			sum += row[col]
		}
		if math.Abs(sum/float64(len(scaled))) > 1e-9 {
			t.Fatalf("column %d mean not centered: %f", col, sum)
		}
	}

	// constant column passes through unscaled
	for _, row := range scaled {
		if row[2] != 0 {
			t.Fatalf("expected constant column to scale to 0, got %f", row[2])
		}
	}
}

func TestStandardScalerTransformRejectsWrongWidth(t *testing.T) {
	scaler := &StandardScaler{}
	if err := scaler.Fit([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := scaler.Transform([]float64{1}); err == nil {
		t.Fatal("expected error for wrong width")
	}
}

func TestStandardScalerUnfitted(t *testing.T) {
	scaler := &StandardScaler{}
	if _, err := scaler.Transform([]float64{1}); err == nil {
		t.Fatal("expected error for unfitted scaler")
	}
}
