// Package memory is an in-process vector store with brute-force cosine
// ranking and a lexical fallback for queries the embedder cannot place.
package memory

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/spigell/placement-readiness/internal/embedding"
	"github.com/spigell/placement-readiness/internal/retrieval"
)

const minScore = 1e-9

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

type Store struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	docs     []retrieval.Document
	vectors  [][]float64
}

func New(embedder embedding.Embedder) *Store {
	return &Store{embedder: embedder}
}

func (s *Store) Name() string {
	return "memory/" + s.embedder.Name()
}

// Upsert replaces documents with matching IDs and appends the rest. All
// vectors are recomputed because corpus-local embedders change with every
// new document.
func (s *Store) Upsert(ctx context.Context, docs []retrieval.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append([]retrieval.Document(nil), s.docs...)
	position := make(map[string]int, len(merged))
	for i, d := range merged {
		position[d.ID] = i
	}
	for _, d := range docs {
		if i, ok := position[d.ID]; ok {
			merged[i] = d
			continue
		}
		position[d.ID] = len(merged)
		merged = append(merged, d)
	}

	corpus := make([]string, len(merged))
	for i, d := range merged {
		corpus[i] = d.Text
	}
	if err := s.embedder.Prepare(corpus); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}

	vectors := make([][]float64, len(merged))
	for i, d := range merged {
		vec, err := s.embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", d.ID, err)
		}
		vectors[i] = vec
	}

	s.docs = merged
	s.vectors = vectors
	return nil
}

// Query ranks documents by cosine similarity. When the query vector is zero
// or nothing scores above zero, token overlap is used instead.
func (s *Store) Query(ctx context.Context, text string, k int) ([]retrieval.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scores := make([]float64, len(s.docs))
	if !embedding.IsZero(vec) {
		for i := range s.vectors {
			scores[i] = cosine(s.vectors[i], vec)
		}
	}
	if allBelow(scores, minScore) {
		query := tokenSet(text)
		for i, d := range s.docs {
			scores[i] = ochiai(query, d.Text)
		}
	}

	return s.top(scores, k), nil
}

func (s *Store) GetByMetadata(_ context.Context, filter map[string]any) ([]retrieval.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []retrieval.Document
	for _, d := range s.docs {
		if matches(d.Metadata, filter) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.vectors = nil
	return nil
}

func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *Store) top(scores []float64, k int) []retrieval.Match {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	if k <= 0 || k > len(idx) {
		k = len(idx)
	}
	out := make([]retrieval.Match, 0, k)
	for _, i := range idx[:k] {
		out = append(out, retrieval.Match{Document: s.docs[i], Score: scores[i]})
	}
	return out
}

func matches(md, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := md[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func allBelow(scores []float64, limit float64) bool {
	for _, s := range scores {
		if s > limit {
			return false
		}
	}
	return true
}

func tokenSet(text string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// ochiai is |A∩B| / sqrt(|A||B|) over distinct tokens.
func ochiai(query map[string]struct{}, text string) float64 {
	doc := tokenSet(text)
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	shared := 0
	for t := range doc {
		if _, ok := query[t]; ok {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(query))*float64(len(doc)))
}
