package ml

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// NumFeatures is the size of the clinical feature vector.
const NumFeatures = 13

// FeatureNames returns the canonical feature column order shared by the
// CSV loader, the request schema and the classifiers.
func FeatureNames() []string {
	return []string{
		"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
		"thalach", "exang", "oldpeak", "slope", "ca", "thal",
	}
}

// ClassNames maps target labels to readable outcomes. Label 0 means no
// heart disease; any positive label means presence of heart disease.
func ClassNames() []string {
	return []string{"no heart disease", "heart disease"}
}

// Dataset holds feature vectors and targets loaded from a CSV file.
type Dataset struct {
	Features [][]float64
	Labels   []int
}

// LoadCSV reads a dataset with a header row, thirteen feature columns
// and a trailing target column. Files that are not valid UTF-8 are
// decoded as Windows-1252, which covers common hospital CSV exports.
func LoadCSV(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		raw, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, errors.New("csv has no data rows")
	}

	header := records[0]
	if len(header) != NumFeatures+1 {
		return nil, fmt.Errorf("expected %d columns, got %d", NumFeatures+1, len(header))
	}

	dataset := &Dataset{
		Features: make([][]float64, 0, len(records)-1),
		Labels:   make([]int, 0, len(records)-1),
	}
	for rowIdx, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", rowIdx+2, len(record), len(header))
		}
		vector := make([]float64, NumFeatures)
		for i := 0; i < NumFeatures; i++ {
			value, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", rowIdx+2, header[i], err)
			}
			vector[i] = value
		}
		target, err := strconv.ParseFloat(record[NumFeatures], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d target: %w", rowIdx+2, err)
		}
		dataset.Features = append(dataset.Features, vector)
		dataset.Labels = append(dataset.Labels, int(target))
	}

	return dataset, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Features) }

// Split shuffles the dataset and returns train and test subsets. A test
// ratio outside (0, 1) falls back to 0.2.
func (d *Dataset) Split(testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(d.Features))

	split := int(float64(len(d.Features)) * (1 - testRatio))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, d.Features[idx])
			trainY = append(trainY, d.Labels[idx])
		} else {
			testX = append(testX, d.Features[idx])
			testY = append(testY, d.Labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}
