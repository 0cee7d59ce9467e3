package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MemoryConfig holds configuration for the embedded in-memory container.
type MemoryConfig struct {
	// PageSize is the maximum number of items per query result page.
	// Default: 100
	PageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *MemoryConfig) ApplyDefaults() {
	if c.PageSize == 0 {
		c.PageSize = 100
	}
}

// Validate validates the configuration.
func (c *MemoryConfig) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidArgument)
	}
	return nil
}

// MemoryContainer is an embedded Container implementation backed by
// mutex-guarded maps. It is the default backend for tests and local
// development; production deployments plug in a remote store behind the
// same interface.
//
// Queries snapshot matching documents at execution time, so a paginated
// drain observes a consistent view even while writers proceed.
type MemoryContainer struct {
	config MemoryConfig
	logger *zap.Logger

	mu         sync.RWMutex
	partitions map[string]map[string]storedDoc
	keys       map[string]PartitionKey
}

type storedDoc struct {
	id     string
	raw    json.RawMessage
	fields map[string]any
}

// NewMemoryContainer creates an empty in-memory container.
func NewMemoryContainer(config MemoryConfig, logger *zap.Logger) (*MemoryContainer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &MemoryContainer{
		config:     config,
		logger:     logger,
		partitions: make(map[string]map[string]storedDoc),
		keys:       make(map[string]PartitionKey),
	}, nil
}

// encode marshals an item and extracts its identity and filterable fields.
func encode(item any) (storedDoc, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return storedDoc{}, fmt.Errorf("%w: marshaling document: %v", ErrInvalidArgument, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return storedDoc{}, fmt.Errorf("%w: document must be a JSON object", ErrInvalidArgument)
	}
	id, _ := fields["id"].(string)
	if id == "" {
		return storedDoc{}, fmt.Errorf("%w: document missing id", ErrInvalidArgument)
	}
	return storedDoc{id: id, raw: raw, fields: fields}, nil
}

func (c *MemoryContainer) partition(pk PartitionKey) map[string]storedDoc {
	key := pk.String()
	p, ok := c.partitions[key]
	if !ok {
		p = make(map[string]storedDoc)
		c.partitions[key] = p
		c.keys[key] = pk
	}
	return p
}

func checkKey(pk PartitionKey) error {
	if pk.IsZero() {
		return fmt.Errorf("%w: partition key required", ErrInvalidArgument)
	}
	return nil
}

// ReadItem performs a point read and decodes the document into out.
func (c *MemoryContainer) ReadItem(ctx context.Context, pk PartitionKey, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(pk); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.partitions[pk.String()][id]
	if !ok {
		return fmt.Errorf("%w: id %q in partition %s", ErrNotFound, id, pk)
	}
	return json.Unmarshal(doc.raw, out)
}

// CreateItem inserts a new document, failing with ErrConflict on duplicates.
func (c *MemoryContainer) CreateItem(ctx context.Context, pk PartitionKey, item any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(pk); err != nil {
		return err
	}
	doc, err := encode(item)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.partition(pk)
	if _, exists := p[doc.id]; exists {
		return fmt.Errorf("%w: id %q in partition %s", ErrConflict, doc.id, pk)
	}
	p[doc.id] = doc

	c.logger.Debug("created document",
		zap.String("partition", pk.String()),
		zap.String("id", doc.id),
	)
	return nil
}

// ReplaceItem overwrites an existing document in full.
func (c *MemoryContainer) ReplaceItem(ctx context.Context, pk PartitionKey, id string, item any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(pk); err != nil {
		return err
	}
	doc, err := encode(item)
	if err != nil {
		return err
	}
	if doc.id != id {
		return fmt.Errorf("%w: document id %q does not match replace target %q", ErrInvalidArgument, doc.id, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.partition(pk)
	if _, exists := p[id]; !exists {
		return fmt.Errorf("%w: id %q in partition %s", ErrNotFound, id, pk)
	}
	p[id] = doc
	return nil
}

// UpsertItem inserts or fully replaces a document.
func (c *MemoryContainer) UpsertItem(ctx context.Context, pk PartitionKey, item any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(pk); err != nil {
		return err
	}
	doc, err := encode(item)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.partition(pk)[doc.id] = doc
	return nil
}

// DeleteItem removes a document, failing with ErrNotFound if absent.
func (c *MemoryContainer) DeleteItem(ctx context.Context, pk PartitionKey, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(pk); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.partitions[pk.String()]
	if !ok {
		return fmt.Errorf("%w: id %q in partition %s", ErrNotFound, id, pk)
	}
	if _, exists := p[id]; !exists {
		return fmt.Errorf("%w: id %q in partition %s", ErrNotFound, id, pk)
	}
	delete(p, id)
	return nil
}

// Query executes a paginated query against a snapshot of matching documents.
func (c *MemoryContainer) Query(ctx context.Context, q Query) (Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ranker *vectorRanker
	if q.Vector != nil {
		r, err := newVectorRanker(q.Vector)
		if err != nil {
			return nil, err
		}
		ranker = r
	}

	c.mu.RLock()
	matched := c.collect(q)
	c.mu.RUnlock()

	if ranker != nil {
		ranked := make([]scoredDoc, 0, len(matched))
		for _, doc := range matched {
			score, ok, err := ranker.score(doc)
			if err != nil {
				return nil, err
			}
			if ok {
				ranked = append(ranked, scoredDoc{doc: doc, score: score})
			}
		}
		// Descending similarity; ties broken by id for determinism.
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return ranked[i].doc.id < ranked[j].doc.id
		})
		matched = matched[:0]
		for _, s := range ranked {
			matched = append(matched, s.doc)
		}
	}

	if q.TopN > 0 && len(matched) > q.TopN {
		matched = matched[:q.TopN]
	}

	items, err := project(matched, q.Projection)
	if err != nil {
		return nil, err
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = c.config.PageSize
	}
	return &memoryIterator{items: items, pageSize: pageSize}, nil
}

// collect gathers and orders documents matching the query scope and filters.
// Caller holds at least a read lock.
func (c *MemoryContainer) collect(q Query) []storedDoc {
	var matched []storedDoc
	seen := make(map[string]bool)

	partitionKeys := make([]string, 0, len(c.partitions))
	for key := range c.partitions {
		partitionKeys = append(partitionKeys, key)
	}
	sort.Strings(partitionKeys)

	for _, key := range partitionKeys {
		pk := c.keys[key]
		if !q.Partition.IsZero() {
			if q.PrefixScope {
				if !q.Partition.IsPrefixOf(pk) {
					continue
				}
			} else if !q.Partition.Equal(pk) {
				continue
			}
		}
		ids := make([]string, 0, len(c.partitions[key]))
		for id := range c.partitions[key] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			doc := c.partitions[key][id]
			if !matchFilters(doc.fields, q.Filters) {
				continue
			}
			if q.Distinct {
				if seen[doc.id] {
					continue
				}
				seen[doc.id] = true
			}
			matched = append(matched, doc)
		}
	}
	return matched
}

func matchFilters(fields map[string]any, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := fields[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// project reduces documents to the selected fields, or returns them whole.
func project(docs []storedDoc, fields []string) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		if len(fields) == 0 {
			items = append(items, doc.raw)
			continue
		}
		subset := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := doc.fields[f]; ok {
				subset[f] = v
			}
		}
		raw, err := json.Marshal(subset)
		if err != nil {
			return nil, fmt.Errorf("projecting document %q: %w", doc.id, err)
		}
		items = append(items, raw)
	}
	return items, nil
}

type scoredDoc struct {
	doc   storedDoc
	score float64
}

type memoryIterator struct {
	items    []json.RawMessage
	pageSize int
	offset   int
}

func (it *memoryIterator) HasMore() bool {
	return it.offset < len(it.items)
}

func (it *memoryIterator) ReadNext(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if !it.HasMore() {
		return Page{}, nil
	}
	end := it.offset + it.pageSize
	if end > len(it.items) {
		end = len(it.items)
	}
	page := Page{Items: it.items[it.offset:end]}
	it.offset = end
	return page, nil
}

// NewBatch starts a transactional batch scoped to one partition key.
func (c *MemoryContainer) NewBatch(pk PartitionKey) TransactionalBatch {
	return &memoryBatch{container: c, pk: pk}
}

type batchOp struct {
	upsert   bool
	item     any
	deleteID string
}

type memoryBatch struct {
	container *MemoryContainer
	pk        PartitionKey
	ops       []batchOp
	done      bool
}

func (b *memoryBatch) Upsert(item any) {
	b.ops = append(b.ops, batchOp{upsert: true, item: item})
}

func (b *memoryBatch) Delete(id string) {
	b.ops = append(b.ops, batchOp{deleteID: id})
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

// Execute applies every queued operation under one lock, or none of them.
func (b *memoryBatch) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.done {
		return fmt.Errorf("%w: batch already executed", ErrInvalidArgument)
	}
	if err := checkKey(b.pk); err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidArgument)
	}

	// Encode upserts before taking the lock so a malformed document
	// rejects the batch without touching the store.
	encoded := make([]storedDoc, len(b.ops))
	for i, op := range b.ops {
		if !op.upsert {
			continue
		}
		doc, err := encode(op.item)
		if err != nil {
			return err
		}
		encoded[i] = doc
	}

	c := b.container
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.partition(b.pk)

	// Validate deletes first: a missing id rejects the whole batch.
	for _, op := range b.ops {
		if op.upsert {
			continue
		}
		if _, exists := p[op.deleteID]; !exists {
			return fmt.Errorf("%w: batch delete target %q in partition %s", ErrNotFound, op.deleteID, b.pk)
		}
	}

	for i, op := range b.ops {
		if op.upsert {
			p[encoded[i].id] = encoded[i]
		} else {
			delete(p, op.deleteID)
		}
	}
	b.done = true

	c.logger.Debug("executed transactional batch",
		zap.String("partition", b.pk.String()),
		zap.Int("operations", len(b.ops)),
	)
	return nil
}

// Ensure MemoryContainer implements Container.
var _ Container = (*MemoryContainer)(nil)
