// Package trainer runs the full training pipeline: load the labeled corpora,
// fit TF-IDF features and a logistic regression model, evaluate it and export
// the artifact pair.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/james-bowman/sparse"
	"github.com/rcrowley/go-metrics"

	"vibecope/internal/dataset"
	"vibecope/internal/learn"
	"vibecope/internal/logging"
	"vibecope/internal/model"
	"vibecope/internal/tfidf"
)

const (
	// MinCVExamples is the corpus size below which cross-validation is skipped.
	MinCVExamples = 20
	// MaxFolds caps the number of cross-validation folds.
	MaxFolds = 5
	// SmallClass is the per-class count below which the corpus is reported as too small.
	SmallClass = 10
	// TopN is the number of features listed per direction.
	TopN = 15
)

var phases = []string{"load", "vectorize", "train", "evaluate", "export"}

// Options holds every path the pipeline touches. Empty file names fall back
// to the standard artifact and dataset names.
type Options struct {
	Root        string
	DatasetDir  string
	HustleName  string
	NormalName  string
	OutputDir   string
	VocabName   string
	WeightsName string

	Workers int
	Shuffle bool
	Seed    uint64
	Timings bool
}

func (o *Options) setDefaults() {
	if o.Root == "" {
		o.Root = "."
	}
	if o.HustleName == "" {
		o.HustleName = dataset.HustleFile
	}
	if o.NormalName == "" {
		o.NormalName = dataset.NormalFile
	}
	if o.VocabName == "" {
		o.VocabName = model.VocabularyFile
	}
	if o.WeightsName == "" {
		o.WeightsName = model.WeightsFile
	}
}

type Report struct {
	Corpus        *dataset.Corpus
	Vectorizer    *tfidf.Vectorizer
	Model         *learn.LogisticRegression
	TrainAccuracy float64
	CV            *learn.CVResult // nil when cross-validation was skipped or failed
	Export        *model.ExportResult
	Metrics       metrics.Registry
}

// Run executes the pipeline. Any returned error means the artifacts on disk
// were left as they were before the call.
func Run(ctx context.Context, opts Options, log *logging.Logger) (*Report, error) {
	opts.setDefaults()
	if log == nil {
		log = logging.Discard()
	}

	r := &Report{Metrics: metrics.NewRegistry()}
	timer := func(name string) metrics.Timer { return metrics.GetOrRegisterTimer(name, r.Metrics) }

	log.Infof("VibeCope ML classifier trainer")
	log.Infof("Dataset dir: %s", opts.DatasetDir)
	log.Infof("Output dir:  %s", opts.OutputDir)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	log.Infof("Loading dataset...")
	corpus, err := dataset.Load(opts.DatasetDir, opts.HustleName, opts.NormalName)
	if err != nil {
		return nil, err
	}
	log.Infof("  hustle: %d examples", corpus.Hustle)
	log.Infof("  normal: %d examples", corpus.Normal)
	log.Infof("  total:  %d examples", corpus.Len())
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	if corpus.Hustle < SmallClass || corpus.Normal < SmallClass {
		log.Warnf("Very small dataset. Model quality will be poor.")
		log.Infof("  Add more examples to %s for better results.", rel(opts.Root, opts.DatasetDir))
	}
	r.Corpus = corpus
	timer("load").UpdateSince(start)

	start = time.Now()
	topts := tfidf.DefaultOptions()
	log.Infof("Building TF-IDF vocabulary (unigrams + bigrams + trigrams, max %d features)...", topts.MaxFeatures)
	vec := tfidf.New(topts)
	x, err := vec.FitTransform(corpus.Texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataset.ErrDegenerateDataset, err)
	}
	rows, cols := x.Dims()
	nnz := metrics.GetOrRegisterHistogram("doc_features", r.Metrics, metrics.NewUniformSample(1024))
	for i := 0; i < rows; i++ {
		nnz.Update(int64(x.RowNNZ(i)))
	}
	log.Infof("  vocabulary size: %d features", vec.Len())
	log.Infof("  matrix shape:    %d docs x %d features", rows, cols)
	r.Vectorizer = vec
	timer("vectorize").UpdateSince(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	params := learn.DefaultParams()
	log.Infof("Training Logistic Regression...")
	m, err := learn.Fit(x, corpus.Labels, params)
	if err != nil {
		return nil, fitError(err)
	}
	if !m.Converged {
		log.Warnf("solver stopped after %d iterations without converging (%s)", m.Iterations, m.Status)
	}
	log.Infof("  training complete")
	r.Model = m
	timer("train").UpdateSince(start)

	start = time.Now()
	cv, err := evaluate(ctx, x, corpus, params, opts, log)
	if err != nil {
		return nil, err
	}
	r.CV = cv
	r.TrainAccuracy = m.Accuracy(x, corpus.Labels)
	log.Infof("  training accuracy: %.3f", r.TrainAccuracy)
	timer("evaluate").UpdateSince(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	log.Infof("Exporting model...")
	res, err := model.Export(opts.OutputDir, opts.VocabName, opts.WeightsName,
		model.Vocabulary{Features: vec.Features(), IDF: vec.IDF()},
		model.Weights{Coefficients: m.Coef, Intercept: m.Intercept})
	if err != nil {
		return nil, err
	}
	vocabKB := float64(res.VocabularySize) / 1024
	weightsKB := float64(res.WeightsSize) / 1024
	log.Infof("  vocabulary: %s (%.1f KB)", rel(opts.Root, res.VocabularyPath), vocabKB)
	log.Infof("  weights:    %s (%.1f KB)", rel(opts.Root, res.WeightsPath), weightsKB)
	log.Infof("  total size: %.1f KB", vocabKB+weightsKB)
	r.Export = res
	timer("export").UpdateSince(start)

	printTop(log, "hustle", model.TopFeatures(vec.Features(), m.Coef, TopN, model.Hustle))
	printTop(log, "normal", model.TopFeatures(vec.Features(), m.Coef, TopN, model.Normal))

	if opts.Timings {
		printTimings(log, r.Metrics)
	}

	log.Println()
	log.Infof("Done. Run 'bun run build' to bundle the model into the extension.")
	return r, nil
}

// fitError reports label problems as a degenerate dataset. Solver failures
// keep their own identity.
func fitError(err error) error {
	if errors.Is(err, learn.ErrSingleClass) || errors.Is(err, learn.ErrNonBinaryLabels) {
		return fmt.Errorf("%w: %w", dataset.ErrDegenerateDataset, err)
	}
	return fmt.Errorf("trainer: fit: %w", err)
}

// evaluate runs stratified cross-validation when the corpus is large enough.
// Failures other than cancellation are reported as warnings.
func evaluate(ctx context.Context, x *sparse.CSR, corpus *dataset.Corpus, params learn.Params, opts Options, log *logging.Logger) (*learn.CVResult, error) {
	if corpus.Len() < MinCVExamples {
		log.Warnf("Skipping cross-validation: %d examples, need at least %d", corpus.Len(), MinCVExamples)
		return nil, nil
	}
	k := min(MaxFolds, corpus.Hustle, corpus.Normal)
	if k < 2 {
		log.Warnf("Skipping cross-validation: smallest class has %d examples", k)
		return nil, nil
	}

	log.Infof("Running %d-fold cross-validation...", k)
	res, err := learn.CrossValidate(ctx, x, corpus.Labels, params, learn.CVOptions{
		Folds:   k,
		Workers: opts.Workers,
		Shuffle: opts.Shuffle,
		Seed:    opts.Seed,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("cross-validation failed: %v", err)
		return nil, nil
	}
	log.Infof("  CV accuracy: %.3f (+/- %.3f)", res.Mean, res.Std)
	return res, nil
}

func printTop(log *logging.Logger, name string, top []model.FeatureWeight) {
	log.Println()
	log.Infof("Top %d %s indicators:", TopN, name)
	for _, fw := range top {
		log.Println(model.FormatFeature(fw))
	}
}

func printTimings(log *logging.Logger, reg metrics.Registry) {
	log.Println()
	log.Infof("Timings:")
	for _, name := range phases {
		t, ok := reg.Get(name).(metrics.Timer)
		if !ok {
			continue
		}
		log.Infof("  %-10s %v", name, time.Duration(t.Sum()).Round(time.Microsecond))
	}
	if h, ok := reg.Get("doc_features").(metrics.Histogram); ok {
		log.Infof("  features per doc: mean %.1f, max %d", h.Mean(), h.Max())
	}
}

// rel renders path relative to root when possible.
func rel(root, path string) string {
	if r, err := filepath.Rel(root, path); err == nil {
		return r
	}
	return path
}
