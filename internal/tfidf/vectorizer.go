// Package tfidf fits a TF-IDF vocabulary over a corpus and maps documents to
// L2-normalized sparse feature vectors.
//
// Weighting follows the smoothed formulation: a term's value in a document is
// its raw count times idf = ln((1+n)/(1+df)) + 1, and every document row is
// scaled to unit Euclidean length.
package tfidf

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
)

var (
	ErrEmptyCorpus     = errors.New("tfidf: corpus is empty")
	ErrEmptyVocabulary = errors.New("tfidf: empty vocabulary; documents contain no tokens of two or more characters")
	ErrNoTermsRemain   = errors.New("tfidf: after pruning, no terms remain; try a lower min_df or a higher max_df")
)

// Options configures vocabulary selection.
type Options struct {
	NGramMin     int
	NGramMax     int
	MaxFeatures  int     // 0 means unlimited
	Lowercase    bool
	StripAccents bool
	MinDF        int     // minimum number of documents
	MaxDF        float64 // maximum proportion of documents, in (0, 1]
}

// DefaultOptions are the fixed settings used by the trainer.
func DefaultOptions() Options {
	return Options{
		NGramMin:     1,
		NGramMax:     3,
		MaxFeatures:  5000,
		Lowercase:    true,
		StripAccents: true,
		MinDF:        1,
		MaxDF:        0.95,
	}
}

func (o Options) analyzer() Analyzer {
	return Analyzer{
		NGramMin:     o.NGramMin,
		NGramMax:     o.NGramMax,
		Lowercase:    o.Lowercase,
		StripAccents: o.StripAccents,
	}
}

type Vectorizer struct {
	opts       Options
	analyzer   Analyzer
	vocabulary map[string]int
	features   []string
	idf        []float64
}

func New(opts Options) *Vectorizer {
	return &Vectorizer{opts: opts, analyzer: opts.analyzer()}
}

// FromArtifacts rebuilds a fitted vectorizer from an exported feature list and
// its idf weights. Features must be unique.
func FromArtifacts(opts Options, features []string, idf []float64) (*Vectorizer, error) {
	if len(features) != len(idf) {
		return nil, fmt.Errorf("tfidf: %d features but %d idf weights", len(features), len(idf))
	}
	v := New(opts)
	v.vocabulary = make(map[string]int, len(features))
	for i, f := range features {
		if _, dup := v.vocabulary[f]; dup {
			return nil, fmt.Errorf("tfidf: duplicate feature %q", f)
		}
		v.vocabulary[f] = i
	}
	v.features = append([]string(nil), features...)
	v.idf = append([]float64(nil), idf...)
	return v, nil
}

// Features returns the fitted terms in column order.
func (v *Vectorizer) Features() []string { return v.features }

// IDF returns the idf weight of every column.
func (v *Vectorizer) IDF() []float64 { return v.idf }

func (v *Vectorizer) Len() int { return len(v.features) }

// Index returns the column of term, if it is part of the vocabulary.
func (v *Vectorizer) Index(term string) (int, bool) {
	i, ok := v.vocabulary[term]
	return i, ok
}

// FitTransform learns the vocabulary and idf weights from docs and returns the
// document-term matrix. Row i corresponds to docs[i].
func (v *Vectorizer) FitTransform(docs []string) (*sparse.CSR, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	tf := make(map[string]int)
	for i, doc := range docs {
		c := make(map[string]int)
		for _, term := range v.analyzer.Terms(doc) {
			c[term]++
		}
		for term, n := range c {
			df[term]++
			tf[term] += n
		}
		counts[i] = c
	}

	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	n := len(docs)
	maxDocCount := v.opts.MaxDF * float64(n)
	minDocCount := v.opts.MinDF
	if maxDocCount < float64(minDocCount) {
		return nil, fmt.Errorf("tfidf: max_df %.2f of %d documents is fewer than min_df %d", v.opts.MaxDF, n, minDocCount)
	}

	kept := make([]string, 0, len(df))
	for term, d := range df {
		if float64(d) <= maxDocCount && d >= minDocCount {
			kept = append(kept, term)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoTermsRemain
	}

	if v.opts.MaxFeatures > 0 && len(kept) > v.opts.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if tf[kept[i]] != tf[kept[j]] {
				return tf[kept[i]] > tf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:v.opts.MaxFeatures]
	}
	sort.Strings(kept)

	v.features = kept
	v.vocabulary = make(map[string]int, len(kept))
	v.idf = make([]float64, len(kept))
	for j, term := range kept {
		v.vocabulary[term] = j
		v.idf[j] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	rb := newRowBuilder()
	for _, c := range counts {
		v.addRow(rb, c)
	}
	return rb.csr(len(kept)), nil
}

// Transform maps docs onto the fitted vocabulary. Terms outside the
// vocabulary are ignored.
func (v *Vectorizer) Transform(docs []string) (*sparse.CSR, error) {
	if v.vocabulary == nil {
		return nil, errors.New("tfidf: vectorizer is not fitted")
	}
	rb := newRowBuilder()
	for _, doc := range docs {
		c := make(map[string]int)
		for _, term := range v.analyzer.Terms(doc) {
			c[term]++
		}
		v.addRow(rb, c)
	}
	return rb.csr(len(v.features)), nil
}

// rowBuilder accumulates compressed row storage one document at a time.
type rowBuilder struct {
	indptr  []int
	indices []int
	data    []float64
}

func newRowBuilder() *rowBuilder {
	return &rowBuilder{indptr: []int{0}}
}

func (rb *rowBuilder) csr(cols int) *sparse.CSR {
	return sparse.NewCSR(len(rb.indptr)-1, cols, rb.indptr, rb.indices, rb.data)
}

// addRow appends one L2-normalized row with column indices in increasing order.
func (v *Vectorizer) addRow(rb *rowBuilder, counts map[string]int) {
	indices := make([]int, 0, len(counts))
	for term := range counts {
		if j, ok := v.vocabulary[term]; ok {
			indices = append(indices, j)
		}
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	var norm float64
	for k, j := range indices {
		values[k] = float64(counts[v.features[j]]) * v.idf[j]
		norm += values[k] * values[k]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range values {
			values[k] /= norm
		}
	}
	rb.indices = append(rb.indices, indices...)
	rb.data = append(rb.data, values...)
	rb.indptr = append(rb.indptr, len(rb.indices))
}
