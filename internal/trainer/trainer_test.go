package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibecope/internal/classifier"
	"vibecope/internal/dataset"
	"vibecope/internal/learn"
	"vibecope/internal/logging"
	"vibecope/internal/model"
)

var hustleTexts = []string{
	"Quit your 9-5 and make $10k a month with my course",
	"I made six figures in 90 days, DM me to learn how",
	"Passive income is the only way to financial freedom",
	"Stop trading time for money, start your side hustle today",
	"My students hit $5k months, link in bio for the masterclass",
	"Rise and grind at 4am while they sleep, millionaire mindset",
	"Scale your agency to 7 figures with this simple funnel",
	"Drop a comment and I will send you my free passive income blueprint",
	"Your boss is getting rich off your time, build your own empire",
	"Ten side hustles that made me financial freedom before 30",
	"Grind now, shine later. The millionaire mindset never sleeps",
	"Want to make money online? Join my course, only 10 spots left",
}

var normalTexts = []string{
	"Had a great time hiking with friends this weekend",
	"Finally fixed the flaky test in our build pipeline",
	"Reading a good book about the history of Rome",
	"The coffee shop near the office has new pastries",
	"Our team shipped the new search feature today",
	"Weather is lovely, going for a long walk in the park",
	"Cooked pasta from scratch for the first time",
	"Great talk at the meetup about database indexing",
	"Spent the evening fixing my bike chain",
	"Kids had fun at the science museum yesterday",
	"Learning to play the guitar, slow progress but fun",
	"Reviewed a pull request about error handling in the parser",
}

func writeJSONL(t *testing.T, path string, texts []string) {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, text := range texts {
		require.NoError(t, enc.Encode(map[string]string{"text": text}))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// setup lays out a project root with the standard dataset location and
// returns options pointing at it.
func setup(t *testing.T, hustle, normal []string) Options {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "tools", "dataset")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	writeJSONL(t, filepath.Join(dataDir, dataset.HustleFile), hustle)
	writeJSONL(t, filepath.Join(dataDir, dataset.NormalFile), normal)

	return Options{
		Root:       root,
		DatasetDir: dataDir,
		OutputDir:  filepath.Join(root, "utils", "scoring", "ml"),
		Workers:    2,
		Seed:       42,
	}
}

func run(t *testing.T, opts Options) (*Report, string, error) {
	t.Helper()
	var out bytes.Buffer
	r, err := Run(context.Background(), opts, logging.New(&out, "train", logging.ColorOff))
	return r, out.String(), err
}

func TestRun_RoundTrip(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)

	r, out, err := run(t, opts)
	require.NoError(t, err)

	v, w, err := model.Load(opts.OutputDir, model.VocabularyFile, model.WeightsFile)
	require.NoError(t, err)

	assert.NotEmpty(t, v.Features)
	assert.LessOrEqual(t, len(v.Features), 5000)
	assert.Len(t, v.IDF, len(v.Features))
	assert.Len(t, w.Coefficients, len(v.Features))
	assert.True(t, sort.StringsAreSorted(v.Features))

	assert.GreaterOrEqual(t, r.TrainAccuracy, 0.0)
	assert.LessOrEqual(t, r.TrainAccuracy, 1.0)

	require.NotNil(t, r.CV)
	assert.Len(t, r.CV.Scores, 5)

	assert.Contains(t, out, "[train] VibeCope ML classifier trainer\n")
	assert.Contains(t, out, "[train]   hustle: 12 examples\n")
	assert.Contains(t, out, "[train]   total:  24 examples\n")
	assert.Contains(t, out, "[train] Running 5-fold cross-validation...\n")
	assert.Contains(t, out, "[train]   CV accuracy: ")
	assert.Contains(t, out, filepath.Join("utils", "scoring", "ml", "vocabulary.json")+" (")
	assert.Contains(t, out, "[train] Top 15 hustle indicators:\n")
	assert.Contains(t, out, "[train] Top 15 normal indicators:\n")
	assert.NotContains(t, out, "WARNING: Very small dataset")
	assert.True(t, strings.HasSuffix(out, "[train] Done. Run 'bun run build' to bundle the model into the extension.\n"))
}

func TestRun_LabelOrderAndAlignment(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)

	r, _, err := run(t, opts)
	require.NoError(t, err)

	for i, label := range r.Corpus.Labels {
		if i < len(hustleTexts) {
			assert.Equal(t, 1, label, "row %d", i)
		} else {
			assert.Equal(t, 0, label, "row %d", i)
		}
	}
	assert.Len(t, r.Model.Coef, r.Vectorizer.Len())

	top := model.TopFeatures(r.Vectorizer.Features(), r.Model.Coef, 1, model.Hustle)
	require.Len(t, top, 1)
	assert.Positive(t, top[0].Weight)
}

func TestRun_SmallDataset(t *testing.T) {
	opts := setup(t, hustleTexts[:5], normalTexts[:5])

	r, out, err := run(t, opts)
	require.NoError(t, err)

	assert.Nil(t, r.CV)
	assert.Contains(t, out, "[train] WARNING: Very small dataset. Model quality will be poor.\n")
	assert.Contains(t, out, "Add more examples to "+filepath.Join("tools", "dataset")+" for better results.")
	assert.Contains(t, out, "WARNING: Skipping cross-validation")
	assert.NotContains(t, out, "CV accuracy")

	assert.FileExists(t, filepath.Join(opts.OutputDir, model.VocabularyFile))
	assert.FileExists(t, filepath.Join(opts.OutputDir, model.WeightsFile))
}

func TestRun_EmptyClassWritesNothing(t *testing.T) {
	opts := setup(t, hustleTexts, nil)

	_, _, err := run(t, opts)
	assert.ErrorIs(t, err, dataset.ErrDegenerateDataset)
	assert.NoDirExists(t, opts.OutputDir)
}

func TestFitError(t *testing.T) {
	single := fitError(fmt.Errorf("%w: 3 positive, 0 negative", learn.ErrSingleClass))
	assert.ErrorIs(t, single, dataset.ErrDegenerateDataset)
	assert.ErrorIs(t, single, learn.ErrSingleClass)

	assert.ErrorIs(t, fitError(learn.ErrNonBinaryLabels), dataset.ErrDegenerateDataset)

	solver := errors.New("learn: minimize: line search failed")
	err := fitError(solver)
	assert.ErrorIs(t, err, solver)
	assert.NotErrorIs(t, err, dataset.ErrDegenerateDataset)

	err = fitError(learn.ErrShapeMismatch)
	assert.NotErrorIs(t, err, dataset.ErrDegenerateDataset)
	assert.Contains(t, err.Error(), "trainer: fit:")
}

func TestRun_FailureKeepsPreviousArtifacts(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)
	_, _, err := run(t, opts)
	require.NoError(t, err)

	vocabPath := filepath.Join(opts.OutputDir, model.VocabularyFile)
	before, err := os.ReadFile(vocabPath)
	require.NoError(t, err)

	writeJSONL(t, filepath.Join(opts.DatasetDir, dataset.NormalFile), nil)
	_, _, err = run(t, opts)
	require.ErrorIs(t, err, dataset.ErrDegenerateDataset)

	after, err := os.ReadFile(vocabPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_MissingInput(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)
	require.NoError(t, os.Remove(filepath.Join(opts.DatasetDir, dataset.NormalFile)))

	_, _, err := run(t, opts)
	require.ErrorIs(t, err, dataset.ErrMissingInput)
	assert.Contains(t, err.Error(), opts.DatasetDir)
	assert.NoDirExists(t, opts.OutputDir)
}

func TestRun_MalformedRecord(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)
	require.NoError(t, os.WriteFile(filepath.Join(opts.DatasetDir, dataset.HustleFile),
		[]byte("{\"text\": \"fine\"}\n{\"txt\": \"typo\"}\n"), 0o644))

	_, _, err := run(t, opts)
	assert.ErrorIs(t, err, dataset.ErrMalformedRecord)
}

func TestRun_DecisionFunctionMatchesArtifacts(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)

	r, _, err := run(t, opts)
	require.NoError(t, err)

	c, err := classifier.LoadLinear(opts.OutputDir, model.VocabularyFile, model.WeightsFile)
	require.NoError(t, err)

	x, err := r.Vectorizer.Transform(r.Corpus.Texts)
	require.NoError(t, err)
	want := r.Model.Decision(x)

	for i, text := range r.Corpus.Texts {
		got, err := c.Score(text)
		require.NoError(t, err)
		assert.InDelta(t, want[i], got, 1e-9, "doc %d", i)
	}

	for _, held := range []string{
		"Earn passive income with my side hustle course",
		"Fixed a flaky test before lunch",
	} {
		hx, err := r.Vectorizer.Transform([]string{held})
		require.NoError(t, err)
		label := r.Model.Predict(hx)[0]

		score, err := c.Score(held)
		require.NoError(t, err)
		assert.Equal(t, label == 1, score > 0, held)
	}
}

func TestRun_Deterministic(t *testing.T) {
	first := setup(t, hustleTexts, normalTexts)
	second := setup(t, hustleTexts, normalTexts)
	second.Workers = 1

	_, _, err := run(t, first)
	require.NoError(t, err)
	_, _, err = run(t, second)
	require.NoError(t, err)

	for _, name := range []string{model.VocabularyFile, model.WeightsFile} {
		a, err := os.ReadFile(filepath.Join(first.OutputDir, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second.OutputDir, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestRun_Canceled(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, opts, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoDirExists(t, opts.OutputDir)
}

func TestRun_Timings(t *testing.T) {
	opts := setup(t, hustleTexts, normalTexts)
	opts.Timings = true

	r, out, err := run(t, opts)
	require.NoError(t, err)

	assert.Contains(t, out, "[train] Timings:\n")
	for _, phase := range phases {
		assert.Contains(t, out, "[train]   "+phase)
		assert.NotNil(t, r.Metrics.Get(phase), phase)
	}
	assert.Contains(t, out, "features per doc")
}
