// Package tfidf is a corpus-local embedder for student documents. It needs no
// network access.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotPrepared = errors.New("tfidf embedder not prepared")

	// Words, hyphenated compounds like problem-solving, and numbers with an
	// optional decimal part like 78.5.
	tokenPattern = regexp.MustCompile(`\p{L}+(?:[-'’]\p{L}+)*|\p{N}+(?:\.\p{N}+)?`)
)

// Embedder weighs terms by sublinear term frequency and smoothed inverse
// document frequency over the corpus given to Prepare. Vectors are L2
// normalised.
type Embedder struct {
	mu    sync.RWMutex
	terms map[string]int
	idf   []float64
}

func New() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// Prepare rebuilds the vocabulary. Calling it again replaces the old one.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for tfidf prepare")
	}

	df := documentFrequencies(corpus)
	if len(df) == 0 {
		return errors.New("no tokens found in corpus")
	}

	vocabulary := make([]string, 0, len(df))
	for term := range df {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)

	terms := make(map[string]int, len(vocabulary))
	idf := make([]float64, len(vocabulary))
	docs := float64(len(corpus))
	for i, term := range vocabulary {
		terms[term] = i
		idf[i] = math.Log((1+docs)/(1+float64(df[term]))) + 1
	}

	e.mu.Lock()
	e.terms, e.idf = terms, idf
	e.mu.Unlock()
	return nil
}

func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.idf)
}

// Embed returns a zero vector when text shares no terms with the corpus.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.terms == nil {
		return nil, ErrNotPrepared
	}

	counts := make(map[int]int)
	for _, tok := range tokenize(text) {
		if idx, ok := e.terms[tok]; ok {
			counts[idx]++
		}
	}

	vec := make([]float64, len(e.idf))
	if len(counts) == 0 {
		return vec, nil
	}

	var norm float64
	for idx, count := range counts {
		w := (1 + math.Log(float64(count))) * e.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx := range counts {
		vec[idx] /= norm
	}
	return vec, nil
}

func documentFrequencies(corpus []string) map[string]int {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	return df
}

// tokenize lowercases text and drops stopwords. A hyphenated compound is kept
// whole and also split into its parts, so "problem-solving" matches a query
// for "problem solving".
func tokenize(text string) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		tok = strings.TrimSuffix(strings.TrimSuffix(tok, "'s"), "’s")
		out = appendTerm(out, tok)
		if strings.Contains(tok, "-") {
			for _, part := range strings.Split(tok, "-") {
				out = appendTerm(out, part)
			}
		}
	}
	return out
}

func appendTerm(out []string, term string) []string {
	if term == "" {
		return out
	}
	if _, stop := stopwords[term]; stop {
		return out
	}
	return append(out, term)
}

var stopwords = func() map[string]struct{} {
	lists := [][]string{
		// function words
		{
			"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by",
			"with", "as", "is", "are", "was", "were", "be", "been", "it", "its", "this", "that", "these",
			"those", "from", "than", "so", "into", "about", "has", "have", "had", "do", "does", "any", "all",
		},
		// question phrasing
		{
			"who", "what", "which", "how", "show", "list", "find", "tell", "give", "me", "us", "our",
			"someone", "anyone", "student", "students", "candidate", "candidates", "doing",
		},
		// labels every student document carries
		{
			"name", "performance", "completion", "assessment", "initial", "profile", "summary", "status",
		},
	}

	m := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			m[w] = struct{}{}
		}
	}
	return m
}()
