package classifier

import (
	"context"
	"fmt"

	"vibecope/internal/domain"
	"vibecope/internal/learn"
	"vibecope/internal/model"
	"vibecope/internal/tfidf"
)

// Linear scores posts with exported TF-IDF and logistic regression
// artifacts: score = intercept + coefficients · tfidf(text).
type Linear struct {
	vec       *tfidf.Vectorizer
	coef      []float64
	intercept float64
}

func NewLinear(v model.Vocabulary, w model.Weights) (*Linear, error) {
	if err := model.Validate(v, w); err != nil {
		return nil, err
	}
	vec, err := tfidf.FromArtifacts(tfidf.DefaultOptions(), v.Features, v.IDF)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return &Linear{vec: vec, coef: w.Coefficients, intercept: w.Intercept}, nil
}

// LoadLinear reads the artifact pair from dir.
func LoadLinear(dir, vocabName, weightsName string) (*Linear, error) {
	v, w, err := model.Load(dir, vocabName, weightsName)
	if err != nil {
		return nil, err
	}
	return NewLinear(v, w)
}

func (l *Linear) Classify(ctx context.Context, post domain.Post) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	score, err := l.Score(post.Content)
	if err != nil {
		return nil, err
	}

	label := domain.LabelNormal
	if score > 0 {
		label = domain.LabelHustle
	}
	return &Result{
		Label:       label,
		Score:       score,
		Probability: learn.Sigmoid(score),
	}, nil
}

// Score returns the raw decision value for text.
func (l *Linear) Score(text string) (float64, error) {
	x, err := l.vec.Transform([]string{text})
	if err != nil {
		return 0, fmt.Errorf("classifier: %w", err)
	}
	score := l.intercept
	x.DoRowNonZero(0, func(_, j int, v float64) {
		score += v * l.coef[j]
	})
	return score, nil
}
