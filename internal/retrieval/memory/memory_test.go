package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/placement-readiness/internal/embedding/tfidf"
	"github.com/spigell/placement-readiness/internal/retrieval"
)

func docs() []retrieval.Document {
	return []retrieval.Document{
		{ID: "1", Text: "Resume: built a compiler in Rust", Metadata: map[string]any{"name": "A", "attendance": 90.0}},
		{ID: "2", Text: "Bio: passionate about public speaking and debate", Metadata: map[string]any{"name": "B", "attendance": 70.0}},
		{ID: "3", Text: "Resume: internship at a fintech startup", Metadata: map[string]any{"name": "C", "attendance": 90.0}},
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	s := New(tfidf.New())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, docs()))
	updated := retrieval.Document{ID: "2", Text: "Bio: quiet", Metadata: map[string]any{"name": "B2"}}
	require.NoError(t, s.Upsert(ctx, []retrieval.Document{updated}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.GetByMetadata(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "Bio: quiet", all[1].Text)
}

func TestQueryRanksByCosine(t *testing.T) {
	s := New(tfidf.New())
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, docs()))

	matches, err := s.Query(ctx, "public speaking", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "2", matches[0].Document.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestQueryFallsBackToTokenOverlap(t *testing.T) {
	s := New(tfidf.New())
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, docs()))

	// Words outside the vocabulary give a zero vector, so token overlap decides.
	matches, err := s.Query(ctx, "zzz qqq", 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Zero(t, m.Score)
	}
	assert.Equal(t, "1", matches[0].Document.ID, "ties keep insertion order")
}

func TestOchiai(t *testing.T) {
	q := tokenSet("public speaking")
	assert.InDelta(t, 2/2.0, ochiai(q, "Public speaking"), 1e-9)
	assert.Zero(t, ochiai(q, "compilers"))
	assert.Zero(t, ochiai(map[string]struct{}{}, "anything"))
}

func TestGetByMetadataFilters(t *testing.T) {
	s := New(tfidf.New())
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, docs()))

	got, err := s.GetByMetadata(ctx, map[string]any{"attendance": 90})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	got, err = s.GetByMetadata(ctx, map[string]any{"name": "B", "attendance": 90.0})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmptyStore(t *testing.T) {
	s := New(tfidf.New())
	ctx := context.Background()

	matches, err := s.Query(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, s.DeleteAll(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "memory/tfidf", s.Name())
}
