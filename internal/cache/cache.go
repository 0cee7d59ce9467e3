package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/semstore/internal/docstore"
)

var cacheTracer = otel.Tracer("semstore.cache")

// vectorField is the JSON field holding the prompt embedding.
const vectorField = "vectors"

// RemoveThreshold is the similarity bound for RemoveByVector: only a
// near-exact match of the stored embedding qualifies for removal.
const RemoveThreshold = 0.99

// Item is one cached (prompt embedding, completion) pair. Items are not
// tenant-scoped; the cache is a single shared space ranked purely by
// similarity. Each item lives in its own single-level partition keyed by id.
type Item struct {
	ID         string    `json:"id"`
	Vectors    []float32 `json:"vectors"`
	Prompt     string    `json:"prompt"`
	Completion string    `json:"completion"`
}

// SemanticCache stores previously computed completions and serves them back
// by embedding proximity instead of exact key equality.
//
// Similarity convention: cosine similarity, higher is more similar. Get
// returns the single best match whose score exceeds the caller's threshold,
// ordered descending. The original store predicate mixed ascending distance
// ordering with a greater-than filter; this implementation keeps the intent
// (reject weak matches, return only the best) under one consistent
// convention.
type SemanticCache struct {
	container docstore.Container
	logger    *zap.Logger
}

// New creates a semantic cache over the given container.
func New(container docstore.Container, logger *zap.Logger) (*SemanticCache, error) {
	if container == nil {
		return nil, fmt.Errorf("%w: container is required", docstore.ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticCache{container: container, logger: logger}, nil
}

func itemScope(id string) (docstore.PartitionKey, error) {
	return docstore.NewPartitionKey(id)
}

// Put upserts a cache item by id. Near-identical vectors under different ids
// are allowed to coexist; only an exact id collision overwrites.
func (c *SemanticCache) Put(ctx context.Context, item Item) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Put")
	defer span.End()

	if len(item.Vectors) == 0 {
		return fmt.Errorf("%w: cache item requires vectors", docstore.ErrInvalidArgument)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("item_id", item.ID))

	scope, err := itemScope(item.ID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := c.container.UpsertItem(ctx, scope, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("caching item %q: %w", item.ID, err)
	}

	PutsTotal.Inc()
	c.logger.Debug("cached completion", zap.String("item_id", item.ID))
	return nil
}

// Get returns the completion of the single closest cached item whose
// similarity to vectors exceeds threshold. A miss returns ok=false with a
// nil error; store failures and malformed vectors are errors, never misses.
func (c *SemanticCache) Get(ctx context.Context, vectors []float32, threshold float64) (string, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Get")
	defer span.End()
	span.SetAttributes(attribute.Float64("threshold", threshold))

	it, err := c.container.Query(ctx, docstore.Query{
		Vector: &docstore.VectorQuery{
			Field:    vectorField,
			Query:    vectors,
			MinScore: &threshold,
		},
		TopN: 1,
	})
	if err != nil {
		LookupsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", false, fmt.Errorf("querying cache: %w", err)
	}

	items, err := docstore.All[Item](ctx, it)
	if err != nil {
		LookupsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", false, fmt.Errorf("draining cache results: %w", err)
	}
	if len(items) == 0 {
		LookupsTotal.WithLabelValues("miss").Inc()
		span.SetAttributes(attribute.Bool("hit", false))
		return "", false, nil
	}

	LookupsTotal.WithLabelValues("hit").Inc()
	span.SetAttributes(attribute.Bool("hit", true))
	c.logger.Debug("cache hit", zap.String("item_id", items[0].ID))
	return items[0].Completion, true, nil
}

// RemoveByVector deletes the single cached item that near-exactly matches
// vectors. At most one entry is removed even when duplicates qualify; a miss
// is a no-op.
func (c *SemanticCache) RemoveByVector(ctx context.Context, vectors []float32) error {
	ctx, span := cacheTracer.Start(ctx, "cache.RemoveByVector")
	defer span.End()

	threshold := RemoveThreshold
	it, err := c.container.Query(ctx, docstore.Query{
		Vector: &docstore.VectorQuery{
			Field:    vectorField,
			Query:    vectors,
			MinScore: &threshold,
		},
		TopN:       1,
		Projection: []string{"id"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("querying cache for removal: %w", err)
	}

	matches, err := docstore.All[Item](ctx, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("draining removal candidates: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}

	id := matches[0].ID
	scope, err := itemScope(id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := c.container.DeleteItem(ctx, scope, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("removing cache item %q: %w", id, err)
	}

	RemovalsTotal.Inc()
	c.logger.Debug("removed cache item", zap.String("item_id", id))
	return nil
}

// Clear deletes every cache entry, draining the id query across all pages
// first. Entries span partitions, so deletion is per-item rather than one
// atomic batch.
func (c *SemanticCache) Clear(ctx context.Context) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Clear")
	defer span.End()

	it, err := c.container.Query(ctx, docstore.Query{
		Projection: []string{"id"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("querying cache entries: %w", err)
	}

	entries, err := docstore.All[Item](ctx, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("draining cache entries: %w", err)
	}

	for _, entry := range entries {
		scope, err := itemScope(entry.ID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if err := c.container.DeleteItem(ctx, scope, entry.ID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("clearing cache item %q: %w", entry.ID, err)
		}
		ClearedEntriesTotal.Inc()
	}

	span.SetAttributes(attribute.Int("cleared_count", len(entries)))
	c.logger.Info("cleared semantic cache", zap.Int("entries", len(entries)))
	return nil
}
