// Package dataset reads the labeled JSON Lines corpora used for training.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"vibecope/internal/domain"
)

const (
	HustleFile = "hustle.jsonl"
	NormalFile = "normal.jsonl"

	maxLineSize = 16 << 20
)

var (
	ErrMissingInput      = errors.New("dataset: input file not found")
	ErrMalformedRecord   = errors.New("dataset: malformed record")
	ErrDegenerateDataset = errors.New("dataset: degenerate dataset")
)

type record struct {
	Text *string `json:"text"`
}

// ReadJSONL returns the text field of every non-blank line of path, in file
// order. The first malformed line aborts the read.
func ReadJSONL(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: %s:%d: invalid UTF-8", ErrMalformedRecord, path, line)
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", ErrMalformedRecord, path, line, err)
		}
		if rec.Text == nil {
			return nil, fmt.Errorf("%w: %s:%d: missing \"text\" field", ErrMalformedRecord, path, line)
		}
		texts = append(texts, *rec.Text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}

	return texts, nil
}

// Corpus is the training set: all hustle texts followed by all normal texts.
// Texts[i] is labeled Labels[i].
type Corpus struct {
	Texts  []string
	Labels []int
	Hustle int
	Normal int
}

func NewCorpus(hustle, normal []string) *Corpus {
	c := &Corpus{
		Texts:  make([]string, 0, len(hustle)+len(normal)),
		Labels: make([]int, 0, len(hustle)+len(normal)),
		Hustle: len(hustle),
		Normal: len(normal),
	}
	for _, t := range hustle {
		c.Texts = append(c.Texts, t)
		c.Labels = append(c.Labels, int(domain.LabelHustle))
	}
	for _, t := range normal {
		c.Texts = append(c.Texts, t)
		c.Labels = append(c.Labels, int(domain.LabelNormal))
	}
	return c
}

// Load reads hustleName and normalName from dir. Both files must exist.
func Load(dir, hustleName, normalName string) (*Corpus, error) {
	hustlePath := filepath.Join(dir, hustleName)
	normalPath := filepath.Join(dir, normalName)

	for _, p := range []string{hustlePath, normalPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: dataset files not found in %s", ErrMissingInput, dir)
			}
			return nil, fmt.Errorf("dataset: stat %s: %w", p, err)
		}
	}

	hustle, err := ReadJSONL(hustlePath)
	if err != nil {
		return nil, err
	}
	normal, err := ReadJSONL(normalPath)
	if err != nil {
		return nil, err
	}
	return NewCorpus(hustle, normal), nil
}

func (c *Corpus) Len() int { return len(c.Texts) }

// Validate rejects corpora missing either class.
func (c *Corpus) Validate() error {
	switch {
	case c.Hustle == 0 && c.Normal == 0:
		return fmt.Errorf("%w: both datasets are empty", ErrDegenerateDataset)
	case c.Hustle == 0:
		return fmt.Errorf("%w: no hustle examples", ErrDegenerateDataset)
	case c.Normal == 0:
		return fmt.Errorf("%w: no normal examples", ErrDegenerateDataset)
	}
	return nil
}
