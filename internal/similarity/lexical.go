package similarity

import (
	"context"
	"math"
	"regexp"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/pdfqa/internal/model"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

// Lexical scores texts by cosine similarity of TF-IDF vectors. IDF is learned
// once from the document's pages; terms outside that vocabulary are ignored.
type Lexical struct {
	vocabulary map[string]int
	idf        []float64
	stopwords  map[string]struct{}
	prepared   bool
}

// NewLexical creates an unprepared scorer.
func NewLexical() *Lexical {
	return &Lexical{stopwords: defaultStopwords()}
}

// Prepare builds the vocabulary and smoothed IDF from corpus, normally the
// document's page texts.
func (l *Lexical) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return &model.SimilarityError{Backend: BackendLexical, Err: eris.New("empty corpus")}
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range l.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	l.vocabulary = make(map[string]int, len(terms))
	l.idf = make([]float64, len(terms))
	for i, term := range terms {
		l.vocabulary[term] = i
		l.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	l.prepared = true
	return nil
}

// Similarity returns the cosine of the TF-IDF vectors of a and b.
func (l *Lexical) Similarity(_ context.Context, a, b string) (float64, error) {
	if !l.prepared {
		return 0, &model.SimilarityError{Backend: BackendLexical, Err: eris.New("scorer not prepared")}
	}
	s, err := cosine(l.vector(a), l.vector(b))
	if err != nil {
		return 0, &model.SimilarityError{Backend: BackendLexical, Err: err}
	}
	return s, nil
}

func (l *Lexical) vector(text string) []float64 {
	vec := make([]float64, len(l.idf))
	tf := make(map[int]int)
	total := 0
	for _, tok := range l.tokenize(text) {
		if idx, ok := l.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * l.idf[idx]
	}
	return vec
}

func (l *Lexical) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(cases.Fold().String(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := l.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into",
		"about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own",
		"same", "too", "very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "whom",
		"where", "when", "why", "how", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
