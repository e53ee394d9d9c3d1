package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadJSONL_SkipsBlankLines(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.jsonl", `{"text": "first"}

   {"text": "second", "source": "x"}

{"text": ""}
`)

	texts, err := ReadJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", ""}, texts)
}

func TestReadJSONL_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{\"text\": \"ok\"}\n{not json}\n"},
		{"missing text", "{\"body\": \"no text here\"}\n"},
		{"non-string text", "{\"text\": 42}\n"},
		{"null text", "{\"text\": null}\n"},
		{"invalid utf-8", "{\"text\": \"caf\xe9\"}\n"},
		{"invalid utf-8 in key", "{\"te\xffxt\": \"ok\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.jsonl", tt.content)
			_, err := ReadJSONL(path)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestReadJSONL_ReportsLineNumber(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.jsonl", "{\"text\": \"a\"}\n\n{oops\n")

	_, err := ReadJSONL(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:3")
}

func TestReadJSONL_InvalidUTF8ReportsLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "latin1.jsonl", "{\"text\": \"fine\"}\n{\"text\": \"na\xefve\"}\n")

	_, err := ReadJSONL(path)
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "latin1.jsonl:2: invalid UTF-8")
}

func TestReadJSONL_MissingFile(t *testing.T) {
	_, err := ReadJSONL(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestLoad_LabelOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, HustleFile, "{\"text\": \"h1\"}\n{\"text\": \"h2\"}\n{\"text\": \"h3\"}\n")
	writeFile(t, dir, NormalFile, "{\"text\": \"n1\"}\n{\"text\": \"n2\"}\n")

	c, err := Load(dir, HustleFile, NormalFile)
	require.NoError(t, err)

	assert.Equal(t, []string{"h1", "h2", "h3", "n1", "n2"}, c.Texts)
	assert.Equal(t, []int{1, 1, 1, 0, 0}, c.Labels)
	assert.Equal(t, 3, c.Hustle)
	assert.Equal(t, 2, c.Normal)
	assert.Equal(t, 5, c.Len())
	assert.NoError(t, c.Validate())
}

func TestLoad_MissingInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, HustleFile, "{\"text\": \"h1\"}\n")

	_, err := Load(dir, HustleFile, NormalFile)
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), dir)
}

func TestCorpus_Validate(t *testing.T) {
	assert.ErrorIs(t, NewCorpus(nil, nil).Validate(), ErrDegenerateDataset)
	assert.ErrorIs(t, NewCorpus([]string{"a"}, nil).Validate(), ErrDegenerateDataset)
	assert.ErrorIs(t, NewCorpus(nil, []string{"a"}).Validate(), ErrDegenerateDataset)
	assert.NoError(t, NewCorpus([]string{"a"}, []string{"b"}).Validate())
}

func TestNewCorpus_LabelOrderForAnySize(t *testing.T) {
	for _, sizes := range [][2]int{{1, 1}, {7, 2}, {2, 9}, {0, 3}} {
		hustle := make([]string, sizes[0])
		normal := make([]string, sizes[1])
		c := NewCorpus(hustle, normal)

		for i, label := range c.Labels {
			if i < sizes[0] {
				assert.Equal(t, 1, label)
			} else {
				assert.Equal(t, 0, label)
			}
		}
		assert.Len(t, c.Labels, sizes[0]+sizes[1])
	}
}
