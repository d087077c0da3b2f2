package preprocessing

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/mat"

	"rentsignal/core/model"
	"rentsignal/pkg/errors"
)

// CountVectorizer turns the joined feature-tag text into term-count columns.
// Tokens are NFKC-normalized, lower-cased, stripped of surrounding
// punctuation and filtered against the English stop-word list; the
// vocabulary keeps the MaxFeatures most frequent terms. Terms unseen during
// Fit are ignored at transform time.
type CountVectorizer struct {
	model.BaseEstimator

	// MaxFeatures caps the vocabulary size (most frequent terms win).
	MaxFeatures int

	// Vocabulary maps a term to its output column.
	Vocabulary map[string]int

	terms []string
}

// NewCountVectorizer creates a vectorizer with the given vocabulary cap.
func NewCountVectorizer(maxFeatures int) *CountVectorizer {
	if maxFeatures <= 0 {
		maxFeatures = 400
	}
	return &CountVectorizer{MaxFeatures: maxFeatures}
}

// Fit builds the vocabulary from the corpus.
func (v *CountVectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return errors.NewModelError("CountVectorizer.Fit", "empty data", errors.ErrEmptyData)
	}

	counts := map[string]int{}
	for _, doc := range docs {
		for _, term := range Tokenize(doc) {
			counts[term]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	// Most frequent first; ties resolved lexically so fits are stable.
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	// Column order is alphabetical over the retained vocabulary.
	sort.Strings(terms)

	v.terms = terms
	v.Vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		v.Vocabulary[term] = i
	}

	v.SetFitted()
	return nil
}

// Transform maps documents to term-count rows.
func (v *CountVectorizer) Transform(docs []string) (*mat.Dense, error) {
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError("CountVectorizer", "Transform")
	}
	if len(v.terms) == 0 {
		return nil, errors.NewModelError("CountVectorizer.Transform", "empty vocabulary", errors.ErrEmptyData)
	}

	out := mat.NewDense(len(docs), len(v.terms), nil)
	for i, doc := range docs {
		for _, term := range Tokenize(doc) {
			if j, ok := v.Vocabulary[term]; ok {
				out.Set(i, j, out.At(i, j)+1)
			}
		}
	}
	return out, nil
}

// FitTransform fits the vocabulary and returns the corpus counts.
func (v *CountVectorizer) FitTransform(docs []string) (*mat.Dense, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

// FeatureNames returns the vocabulary in output-column order.
func (v *CountVectorizer) FeatureNames() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// String returns the vectorizer's description.
func (v *CountVectorizer) String() string {
	if !v.IsFitted() {
		return fmt.Sprintf("CountVectorizer(max_features=%d)", v.MaxFeatures)
	}
	return fmt.Sprintf("CountVectorizer(max_features=%d, vocabulary=%d)", v.MaxFeatures, len(v.terms))
}

// Tokenize splits a document into normalized terms. Tokens shorter than two
// runes and stop words are dropped.
func Tokenize(doc string) []string {
	normalized := strings.ToLower(norm.NFKC.String(doc))
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return unicode.IsSpace(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		term := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
		})
		if len([]rune(term)) < 2 {
			continue
		}
		if _, stop := englishStopWords[term]; stop {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}
