// Package retrieval keeps the searchable student index.
package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/metrics"
	"github.com/spigell/placement-readiness/internal/student"
)

const defaultSearchResults = 10

// Index owns one Store. Loading replaces the whole index under the write
// lock; reads share the read lock. Read failures are logged and reported
// as empty results.
type Index struct {
	mu      sync.RWMutex
	store   Store
	logger  *zap.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

func NewIndex(store Store, log *zap.Logger, rec metrics.Recorder) *Index {
	return &Index{
		store:   store,
		logger:  logger.WithFields(log, zap.String("index", store.Name())),
		metrics: metrics.OrNop(rec),
		now:     time.Now,
	}
}

// UpsertAll replaces the index contents with recs.
func (i *Index) UpsertAll(ctx context.Context, recs []student.Record) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	indexedAt := i.now()
	docs := make([]Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, NewDocument(rec, indexedAt))
	}
	if len(docs) == 0 {
		return nil
	}

	if err := i.store.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upsert %d documents: %w", len(docs), err)
	}

	i.logger.Info("index loaded", zap.Int("documents", len(docs)))
	return nil
}

func (i *Index) SimilaritySearch(ctx context.Context, query string, k int) []Match {
	if k <= 0 {
		k = defaultSearchResults
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	matches, err := i.store.Query(ctx, query, k)
	if err != nil {
		i.failure("similarity_search", err)
		return nil
	}
	return matches
}

func (i *Index) GetByName(ctx context.Context, name string) (student.Record, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docs, err := i.store.GetByMetadata(ctx, map[string]any{KeyName: name})
	if err != nil {
		i.failure("get_by_name", err)
		return student.Record{}, false
	}
	if len(docs) == 0 {
		return student.Record{}, false
	}

	rec, err := RecordFromMetadata(docs[0].Metadata)
	if err != nil {
		i.failure("get_by_name", err)
		return student.Record{}, false
	}
	return rec, true
}

// GetAll returns every indexed record in load order. Documents whose
// metadata cannot be decoded are skipped.
func (i *Index) GetAll(ctx context.Context) []student.Record {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docs, err := i.store.GetByMetadata(ctx, nil)
	if err != nil {
		i.failure("get_all", err)
		return nil
	}
	return i.records(docs)
}

func (i *Index) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	i.logger.Info("index cleared")
	return nil
}

func (i *Index) Stats(ctx context.Context) Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	stats := Stats{Backend: i.store.Name()}
	count, err := i.store.Count(ctx)
	if err != nil {
		i.failure("stats", err)
		return stats
	}
	stats.Documents = count
	return stats
}

// Records decodes the records behind search matches, keeping match order.
func (i *Index) Records(matches []Match) []student.Record {
	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, m.Document)
	}
	return i.records(docs)
}

func (i *Index) records(docs []Document) []student.Record {
	recs := make([]student.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := RecordFromMetadata(doc.Metadata)
		if err != nil {
			i.logger.Warn("skipping undecodable document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func (i *Index) failure(op string, err error) {
	i.logger.Error("retrieval failed", zap.String("operation", op), zap.Error(err))
	i.metrics.RetrievalFailure(op)
}
