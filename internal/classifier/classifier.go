package classifier

import (
	"context"

	"vibecope/internal/domain"
)

type Result struct {
	Label       domain.Label
	Score       float64
	Probability float64
}

type Classifier interface {
	Classify(ctx context.Context, post domain.Post) (*Result, error)
}
