// Package anchors maintains the core anchor index: a small curated set of
// hand-authored identity documents, embedded and searchable by semantic
// similarity.
//
// Anchor bodies live in the ledger; their embeddings live in the vector
// store keyed by anchor name. Authoring is always explicit (Put), retrieval
// is either by recency (startup package) or by similarity (query recall).
// Anchors are never deleted automatically.
package anchors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/embeddings"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/vector"
)

// Scored pairs an anchor with its similarity score from a semantic search.
type Scored struct {
	Anchor *ledger.Anchor
	Score  float32
}

// Index coordinates the anchor documents and their embeddings.
type Index struct {
	store    ledger.Driver
	vectors  vector.Driver
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewIndex creates an anchor index over the given stores.
func NewIndex(store ledger.Driver, vectors vector.Driver, embedder embeddings.Embedder, logger *zap.Logger) *Index {
	return &Index{
		store:    store,
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
	}
}

// Put authors or updates an anchor document. The body is persisted first;
// embedding failures leave the document readable by recency and are repaired
// by the next Reindex.
func (i *Index) Put(ctx context.Context, name, body string) error {
	if name == "" {
		return fmt.Errorf("anchor name is required")
	}

	if err := i.store.PutAnchor(ctx, name, body); err != nil {
		return fmt.Errorf("storing anchor %s: %w", name, err)
	}

	if err := i.embedAnchor(ctx, name, body); err != nil {
		i.logger.Warn("anchor stored without embedding",
			zap.String("name", name),
			zap.Error(err),
		)
	}

	return nil
}

func (i *Index) embedAnchor(ctx context.Context, name, body string) error {
	embedding, err := i.embedder.Embed(ctx, body)
	if err != nil {
		return fmt.Errorf("embedding anchor: %w", err)
	}

	doc := vector.Document{
		ID:        name,
		Label:     name,
		Embedding: embedding,
	}

	if err := i.vectors.Add(ctx, []vector.Document{doc}); err != nil {
		return fmt.Errorf("storing anchor embedding: %w", err)
	}

	return nil
}

// Recent returns the n most recently modified anchors, newest first.
// This is a fixed package operation, not a search: no ranking is applied.
func (i *Index) Recent(ctx context.Context, n int) ([]*ledger.Anchor, error) {
	return i.store.RecentAnchors(ctx, n)
}

// Search returns the topK anchors most semantically similar to the query.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]Scored, error) {
	embedding, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := i.vectors.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("querying anchor vectors: %w", err)
	}

	names := make([]string, 0, len(results))
	scores := make(map[string]float32, len(results))
	for _, r := range results {
		names = append(names, r.ID)
		scores[r.ID] = r.Score
	}

	docs, err := i.store.Anchors(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("loading anchor bodies: %w", err)
	}

	scored := make([]Scored, 0, len(docs))
	for _, a := range docs {
		scored = append(scored, Scored{Anchor: a, Score: scores[a.Name]})
	}

	return scored, nil
}

// Reindex re-embeds every anchor. Used after switching embedding models or
// to repair anchors whose embedding failed at Put time.
func (i *Index) Reindex(ctx context.Context) (int, error) {
	all, err := i.store.AllAnchors(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading anchors: %w", err)
	}

	reindexed := 0
	for _, a := range all {
		if err := i.embedAnchor(ctx, a.Name, a.Body); err != nil {
			i.logger.Warn("reindex failed for anchor",
				zap.String("name", a.Name),
				zap.Error(err),
			)
			continue
		}
		reindexed++
	}

	return reindexed, nil
}
