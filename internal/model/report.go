package model

import (
	"fmt"
	"sort"

	"github.com/mattn/go-runewidth"
)

// Direction selects which end of the coefficient range TopFeatures returns.
type Direction int

const (
	Hustle Direction = iota // largest coefficients first
	Normal                  // smallest coefficients first
)

type FeatureWeight struct {
	Feature string
	Weight  float64
}

// TopFeatures returns up to n features ordered by coefficient, ties broken by
// feature text so the listing is stable across runs.
func TopFeatures(features []string, coef []float64, n int, dir Direction) []FeatureWeight {
	all := make([]FeatureWeight, len(features))
	for i, f := range features {
		all[i] = FeatureWeight{Feature: f, Weight: coef[i]}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Weight != all[j].Weight {
			if dir == Hustle {
				return all[i].Weight > all[j].Weight
			}
			return all[i].Weight < all[j].Weight
		}
		return all[i].Feature < all[j].Feature
	})
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// FormatFeature renders one report line: the feature padded to 30 display
// columns followed by its signed weight.
func FormatFeature(fw FeatureWeight) string {
	return fmt.Sprintf("  %s  %+.4f", runewidth.FillRight(fw.Feature, 30), fw.Weight)
}
