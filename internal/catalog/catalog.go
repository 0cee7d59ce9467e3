// Package catalog serves a read-mostly product catalog with vector
// similarity search, bootstrapped once from a remote JSON source.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/semstore/internal/docstore"
)

var catalogTracer = otel.Tracer("semstore.catalog")

// Sentinel product used to detect an already-seeded catalog.
const (
	sentinelProductID  = "027D0B9A-F9D9-4C96-8213-C8546C4AAE71"
	sentinelCategoryID = "26C74104-40BC-4541-8EF5-9892F7F03D72"
)

// vectorField is the JSON field holding the product embedding.
const vectorField = "vectors"

// Product is one catalog entry, partitioned by category.
type Product struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Tags         []Tag     `json:"tags"`
	Vectors      []float32 `json:"vectors,omitempty"`
}

// Tag is a product tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Config holds catalog configuration.
type Config struct {
	// SourceURI is the remote JSON product list used to seed an empty
	// catalog.
	SourceURI string
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SourceURI == "" {
		return fmt.Errorf("%w: source URI is required", docstore.ErrInvalidArgument)
	}
	return nil
}

// Catalog serves products over a partitioned container.
type Catalog struct {
	container docstore.Container
	client    *http.Client
	config    Config
	logger    *zap.Logger
}

// New creates a catalog over the given container. httpClient may be nil,
// in which case http.DefaultClient is used.
func New(config Config, container docstore.Container, httpClient *http.Client, logger *zap.Logger) (*Catalog, error) {
	if container == nil {
		return nil, fmt.Errorf("%w: container is required", docstore.ErrInvalidArgument)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		container: container,
		client:    httpClient,
		config:    config,
		logger:    logger,
	}, nil
}

// BootstrapIfEmpty seeds the catalog from the configured source URI when the
// sentinel product is absent. Seeding is best effort: a non-success response
// leaves the catalog unpopulated without failing, and per-item conflicts are
// logged and skipped rather than aborting the remaining products.
func (c *Catalog) BootstrapIfEmpty(ctx context.Context) error {
	ctx, span := catalogTracer.Start(ctx, "catalog.BootstrapIfEmpty")
	defer span.End()

	sentinelScope, err := docstore.NewPartitionKey(sentinelCategoryID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	var sentinel Product
	err = c.container.ReadItem(ctx, sentinelScope, sentinelProductID, &sentinel)
	if err == nil {
		span.SetAttributes(attribute.Bool("seeded", false))
		c.logger.Debug("catalog already seeded, skipping bootstrap")
		return nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("checking catalog sentinel: %w", err)
	}

	products, err := c.fetchProducts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if products == nil {
		span.SetAttributes(attribute.Bool("seeded", false))
		return nil
	}

	var conflicts int
	for _, product := range products {
		if err := c.Insert(ctx, product); err != nil {
			if errors.Is(err, docstore.ErrConflict) {
				conflicts++
				c.logger.Warn("product already exists, skipping",
					zap.String("product_id", product.ID),
					zap.String("name", product.Name),
				)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("seeding product %q: %w", product.ID, err)
		}
	}

	span.SetAttributes(
		attribute.Bool("seeded", true),
		attribute.Int("product_count", len(products)),
		attribute.Int("conflict_count", conflicts),
	)
	c.logger.Info("bootstrapped product catalog",
		zap.Int("products", len(products)),
		zap.Int("conflicts", conflicts),
	)
	return nil
}

// fetchProducts downloads and decodes the product list. A non-success
// response returns (nil, nil) so bootstrap stays best effort.
func (c *Catalog) fetchProducts(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.SourceURI, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building bootstrap request: %v", docstore.ErrInvalidArgument, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching product data: %v", docstore.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("product source returned non-success status, leaving catalog unpopulated",
			zap.Int("status", resp.StatusCode),
			zap.String("uri", c.config.SourceURI),
		)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading product data: %v", docstore.ErrUnavailable, err)
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("%w: decoding product data: %v", docstore.ErrInvalidArgument, err)
	}
	return products, nil
}

// Insert creates a new product in its category partition.
func (c *Catalog) Insert(ctx context.Context, product Product) error {
	ctx, span := catalogTracer.Start(ctx, "catalog.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("product_id", product.ID))

	scope, err := docstore.NewPartitionKey(product.CategoryID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := c.container.CreateItem(ctx, scope, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("inserting product %q: %w", product.ID, err)
	}
	return nil
}

// Delete removes a product from its category partition.
func (c *Catalog) Delete(ctx context.Context, product Product) error {
	ctx, span := catalogTracer.Start(ctx, "catalog.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("product_id", product.ID))

	scope, err := docstore.NewPartitionKey(product.CategoryID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := c.container.DeleteItem(ctx, scope, product.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting product %q: %w", product.ID, err)
	}
	return nil
}

// Search returns up to maxResults products closest to the query vector,
// most similar first. Embeddings are projected out of the results; only the
// fields needed to describe a product come back.
func (c *Catalog) Search(ctx context.Context, vectors []float32, maxResults int) ([]Product, error) {
	ctx, span := catalogTracer.Start(ctx, "catalog.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("max_results", maxResults))

	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: max results must be positive, got %d", docstore.ErrInvalidArgument, maxResults)
	}

	it, err := c.container.Query(ctx, docstore.Query{
		Vector: &docstore.VectorQuery{
			Field: vectorField,
			Query: vectors,
		},
		TopN:       maxResults,
		Projection: []string{"categoryName", "sku", "name", "description", "price", "tags"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching products: %w", err)
	}

	products, err := docstore.All[Product](ctx, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("draining product results: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(products)))
	return products, nil
}
