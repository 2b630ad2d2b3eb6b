package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// LoadDataset reads a heart-disease CSV with a header row: the 13 feature
// columns followed by the binary target. Rows with missing or unparseable
// values are dropped, matching the offline preprocessing step.
func LoadDataset(path string) ([][]float64, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != FeatureCount+1 {
		return nil, nil, fmt.Errorf("expected %d columns, got %d", FeatureCount+1, len(header))
	}

	var features [][]float64
	var labels []int
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	for _, record := range records {
		vector, label, ok := parseRow(record)
		if !ok {
			continue
		}
		features = append(features, vector)
		labels = append(labels, label)
	}

	if len(features) == 0 {
		return nil, nil, errors.New("dataset has no usable rows")
	}
	return features, labels, nil
}

func parseRow(record []string) ([]float64, int, bool) {
	if len(record) != FeatureCount+1 {
		return nil, 0, false
	}
	vector := make([]float64, FeatureCount)
	for i := 0; i < FeatureCount; i++ {
		value, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			// missing values show up as "" or "?"
			return nil, 0, false
		}
		vector[i] = value
	}
	target, err := strconv.ParseFloat(record[FeatureCount], 64)
	if err != nil {
		return nil, 0, false
	}
	label := LabelNoDisease
	if target != 0 {
		label = LabelDisease
	}
	return vector, label, true
}
