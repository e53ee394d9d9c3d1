package learn

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/james-bowman/sparse"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// CVOptions controls fold assignment and parallelism.
type CVOptions struct {
	Folds   int
	Workers int
	Shuffle bool
	Seed    uint64
}

type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64 // population standard deviation
}

// Fold is one train/test split, both as row indices in ascending order.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedFolds splits rows into k folds that preserve class proportions.
// Fold sizes per class come from dealing the class-sorted labels round robin;
// without shuffling, each class then fills fold 0 first, fold 1 next and so
// on in row order. Every class needs at least k members.
func StratifiedFolds(y []int, k int, shuffle bool, seed uint64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("learn: need at least 2 folds, got %d", k)
	}
	if k > len(y) {
		return nil, fmt.Errorf("learn: cannot make %d folds from %d rows", k, len(y))
	}

	// Classes are ordered by first appearance.
	byClass := make(map[int][]int)
	var classes []int
	for i, label := range y {
		if _, seen := byClass[label]; !seen {
			classes = append(classes, label)
		}
		byClass[label] = append(byClass[label], i)
	}
	for _, c := range classes {
		if n := len(byClass[c]); n < k {
			return nil, fmt.Errorf("learn: class %d has %d members, fewer than %d folds", c, n, k)
		}
	}

	// Deal the label-sorted sequence round robin to get per-fold class counts.
	sorted := make([]int, 0, len(y))
	for _, c := range classes {
		for range byClass[c] {
			sorted = append(sorted, c)
		}
	}
	allocation := make([]map[int]int, k)
	for f := range allocation {
		allocation[f] = make(map[int]int)
		for i := f; i < len(sorted); i += k {
			allocation[f][sorted[i]]++
		}
	}

	var rng *rand.Rand
	if shuffle {
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	testFold := make([]int, len(y))
	for _, c := range classes {
		rows := byClass[c]
		assign := make([]int, 0, len(rows))
		for f := 0; f < k; f++ {
			for n := 0; n < allocation[f][c]; n++ {
				assign = append(assign, f)
			}
		}
		if rng != nil {
			rng.Shuffle(len(assign), func(i, j int) { assign[i], assign[j] = assign[j], assign[i] })
		}
		for n, row := range rows {
			testFold[row] = assign[n]
		}
	}

	folds := make([]Fold, k)
	for row, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, row)
			} else {
				folds[g].Train = append(folds[g].Train, row)
			}
		}
	}
	return folds, nil
}

// CrossValidate fits one model per fold on the training rows and scores its
// accuracy on the held-out rows. Scores are ordered by fold.
func CrossValidate(ctx context.Context, x *sparse.CSR, y []int, p Params, opts CVOptions) (*CVResult, error) {
	rows, _ := x.Dims()
	if len(y) != rows {
		return nil, fmt.Errorf("%w: %d labels for %d rows", ErrShapeMismatch, len(y), rows)
	}

	folds, err := StratifiedFolds(y, opts.Folds, opts.Shuffle, opts.Seed)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, fold := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			model, err := Fit(subsetRows(x, fold.Train), pick(y, fold.Train), p)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i+1, err)
			}
			scores[i] = model.Accuracy(subsetRows(x, fold.Test), pick(y, fold.Test))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mean, std := stat.PopMeanStdDev(scores, nil)
	return &CVResult{Scores: scores, Mean: mean, Std: std}, nil
}

func pick(y []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
