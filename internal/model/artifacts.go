// Package model defines the exported vocabulary and weights artifacts and
// reads and writes them as a consistent pair.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

const (
	VocabularyFile = "vocabulary.json"
	WeightsFile    = "weights.json"
)

var ErrLengthMismatch = errors.New("model: artifact arrays are not aligned")

// Vocabulary lists the n-gram features in column order with their idf
// weights. Features[i] and IDF[i] describe feature i.
type Vocabulary struct {
	Features []string  `json:"features"`
	IDF      []float64 `json:"idf"`
}

// Weights holds the linear scoring function. Coefficients[i] belongs to
// Vocabulary.Features[i].
type Weights struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Validate checks that both artifacts describe the same feature space.
func Validate(v Vocabulary, w Weights) error {
	if len(v.Features) != len(v.IDF) || len(v.Features) != len(w.Coefficients) {
		return fmt.Errorf("%w: %d features, %d idf weights, %d coefficients",
			ErrLengthMismatch, len(v.Features), len(v.IDF), len(w.Coefficients))
	}
	for i, x := range v.IDF {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("model: idf[%d] is not finite", i)
		}
	}
	for i, x := range w.Coefficients {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("model: coefficients[%d] is not finite", i)
		}
	}
	if math.IsNaN(w.Intercept) || math.IsInf(w.Intercept, 0) {
		return errors.New("model: intercept is not finite")
	}
	return nil
}

// Load reads both artifacts from dir and validates their alignment.
func Load(dir, vocabName, weightsName string) (Vocabulary, Weights, error) {
	var v Vocabulary
	var w Weights

	if err := readJSON(filepath.Join(dir, vocabName), &v); err != nil {
		return v, w, err
	}
	if err := readJSON(filepath.Join(dir, weightsName), &w); err != nil {
		return v, w, err
	}
	if err := Validate(v, w); err != nil {
		return v, w, err
	}
	return v, w, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("model: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("model: parse %s: %w", path, err)
	}
	return nil
}
