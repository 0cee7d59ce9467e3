package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/semstore/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 100, cfg.Store.PageSize)
	assert.Equal(t, 0.95, cfg.Cache.SimilarityThreshold)
	assert.Equal(t, 10, cfg.Catalog.MaxResults)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
  format: console
store:
  page_size: 50
cache:
  similarity_threshold: 0.9
catalog:
  source_uri: https://example.com/products.json
  max_results: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 50, cfg.Store.PageSize)
	assert.Equal(t, 0.9, cfg.Cache.SimilarityThreshold)
	assert.Equal(t, "https://example.com/products.json", cfg.Catalog.SourceURI)
	assert.Equal(t, 5, cfg.Catalog.MaxResults)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  page_size: 50\n"), 0600))

	t.Setenv("SEMSTORE_STORE_PAGE_SIZE", "25")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Store.PageSize)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad level", key: "SEMSTORE_LOGGING_LEVEL", value: "verbose"},
		{name: "bad format", key: "SEMSTORE_LOGGING_FORMAT", value: "xml"},
		{name: "negative page size", key: "SEMSTORE_STORE_PAGE_SIZE", value: "-1"},
		{name: "threshold out of range", key: "SEMSTORE_CACHE_SIMILARITY_THRESHOLD", value: "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load("")
			assert.Error(t, err)
		})
	}
}
