package tfidf

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// wordPattern matches runs of two or more word characters.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Analyzer turns raw text into the n-gram terms counted by the vectorizer.
// It is stateless and safe for concurrent use.
type Analyzer struct {
	NGramMin     int
	NGramMax     int
	Lowercase    bool
	StripAccents bool
}

func (a Analyzer) Preprocess(text string) string {
	if a.Lowercase {
		text = strings.ToLower(text)
	}
	if a.StripAccents {
		text = stripAccents(text)
	}
	return text
}

func (a Analyzer) Tokens(text string) []string {
	return wordPattern.FindAllString(a.Preprocess(text), -1)
}

// Terms returns all n-grams for n in [NGramMin, NGramMax], unigrams first,
// then bigrams, then trigrams. Tokens in an n-gram are joined by one space.
func (a Analyzer) Terms(text string) []string {
	tokens := a.Tokens(text)

	minN, maxN := a.NGramMin, a.NGramMax
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}

	var terms []string
	if minN == 1 {
		terms = append(terms, tokens...)
		minN = 2
	}
	for n := minN; n <= maxN && n <= len(tokens); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// stripAccents decomposes to NFKD and drops nonspacing marks, so "café"
// becomes "cafe" and compatibility forms such as "ﬁ" become "fi".
func stripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
