package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/semstore/internal/catalog"
	"github.com/fyrsmithlabs/semstore/internal/docstore"
)

// sentinel ids used by the bootstrap check, mirrored from the catalog package.
const (
	sentinelProductID  = "027D0B9A-F9D9-4C96-8213-C8546C4AAE71"
	sentinelCategoryID = "26C74104-40BC-4541-8EF5-9892F7F03D72"
)

func testProducts() []catalog.Product {
	return []catalog.Product{
		{
			ID:           sentinelProductID,
			CategoryID:   sentinelCategoryID,
			CategoryName: "Bikes",
			SKU:          "BK-0001",
			Name:         "Touring Bike",
			Description:  "A comfortable touring bike",
			Price:        1249.99,
			Vectors:      []float32{1, 0, 0},
		},
		{
			ID:           "8B363B6C-FD84-4F0B-8B0D-7F6B7D5E1F2A",
			CategoryID:   sentinelCategoryID,
			CategoryName: "Bikes",
			SKU:          "BK-0002",
			Name:         "Mountain Bike",
			Description:  "A rugged mountain bike",
			Price:        899.99,
			Vectors:      []float32{0.9, 0.1, 0},
		},
		{
			ID:           "5F9A1C2D-3E4B-4A5C-9D6E-7F8A9B0C1D2E",
			CategoryID:   "9E8D7C6B-5A4F-4E3D-2C1B-0A9F8E7D6C5B",
			CategoryName: "Helmets",
			SKU:          "HL-0001",
			Name:         "Road Helmet",
			Description:  "A lightweight road helmet",
			Price:        99.99,
			Vectors:      []float32{0, 0, 1},
		},
	}
}

func newTestContainer(t *testing.T) *docstore.MemoryContainer {
	t.Helper()
	container, err := docstore.NewMemoryContainer(docstore.MemoryConfig{}, zap.NewNop())
	require.NoError(t, err)
	return container
}

func productServer(t *testing.T, products []catalog.Product, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(products))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNew_Validation(t *testing.T) {
	container := newTestContainer(t)

	_, err := catalog.New(catalog.Config{SourceURI: "http://example.com"}, nil, nil, zap.NewNop())
	assert.ErrorIs(t, err, docstore.ErrInvalidArgument)

	_, err = catalog.New(catalog.Config{}, container, nil, zap.NewNop())
	assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
}

func TestCatalog_BootstrapIfEmpty_SeedsAllProducts(t *testing.T) {
	ctx := context.Background()
	container := newTestContainer(t)
	products := testProducts()
	server := productServer(t, products, nil)

	cat, err := catalog.New(catalog.Config{SourceURI: server.URL}, container, server.Client(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, cat.BootstrapIfEmpty(ctx))

	results, err := cat.Search(ctx, []float32{1, 0, 0}, len(products))
	require.NoError(t, err)
	assert.Len(t, results, len(products))
}

func TestCatalog_BootstrapIfEmpty_SentinelPresentSkipsFetch(t *testing.T) {
	ctx := context.Background()
	container := newTestContainer(t)
	products := testProducts()

	var requests atomic.Int32
	server := productServer(t, products, &requests)

	cat, err := catalog.New(catalog.Config{SourceURI: server.URL}, container, server.Client(), zap.NewNop())
	require.NoError(t, err)

	// Pre-seed the sentinel product.
	require.NoError(t, cat.Insert(ctx, products[0]))

	require.NoError(t, cat.BootstrapIfEmpty(ctx))
	assert.Zero(t, requests.Load(), "bootstrap must not fetch when the sentinel exists")
}

func TestCatalog_BootstrapIfEmpty_NonSuccessLeavesCatalogUnpopulated(t *testing.T) {
	ctx := context.Background()
	container := newTestContainer(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cat, err := catalog.New(catalog.Config{SourceURI: server.URL}, container, server.Client(), zap.NewNop())
	require.NoError(t, err)

	// Best-effort bootstrap: no error, no products.
	require.NoError(t, cat.BootstrapIfEmpty(ctx))

	results, err := cat.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCatalog_BootstrapIfEmpty_ConflictsAreToleratedPerItem(t *testing.T) {
	ctx := context.Background()
	container := newTestContainer(t)
	products := testProducts()
	server := productServer(t, products, nil)

	cat, err := catalog.New(catalog.Config{SourceURI: server.URL}, container, server.Client(), zap.NewNop())
	require.NoError(t, err)

	// Pre-seed a non-sentinel product so the seed loop hits a conflict.
	require.NoError(t, cat.Insert(ctx, products[1]))

	require.NoError(t, cat.BootstrapIfEmpty(ctx))

	results, err := cat.Search(ctx, []float32{1, 0, 0}, len(products))
	require.NoError(t, err)
	assert.Len(t, results, len(products))
}

func TestCatalog_Search_OrdersByDescendingSimilarityAndCapsResults(t *testing.T) {
	ctx := context.Background()
	container := newTestContainer(t)
	products := testProducts()
	server := productServer(t, products, nil)

	cat, err := catalog.New(catalog.Config{SourceURI: server.URL}, container, server.Client(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, cat.BootstrapIfEmpty(ctx))

	results, err := cat.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Touring Bike", results[0].Name)
	assert.Equal(t, "Mountain Bike", results[1].Name)

	// Embeddings are projected out of search results.
	assert.Empty(t, results[0].Vectors)

	_, err = cat.Search(ctx, []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
}

func TestCatalog_InsertAndDelete(t *testing.T) {
	ctx := context.Background()
	container := newTestContainer(t)
	server := productServer(t, nil, nil)

	cat, err := catalog.New(catalog.Config{SourceURI: server.URL}, container, server.Client(), zap.NewNop())
	require.NoError(t, err)

	product := testProducts()[0]
	require.NoError(t, cat.Insert(ctx, product))

	err = cat.Insert(ctx, product)
	assert.ErrorIs(t, err, docstore.ErrConflict)

	require.NoError(t, cat.Delete(ctx, product))
	err = cat.Delete(ctx, product)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}
