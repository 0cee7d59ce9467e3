// Package config provides configuration loading for semstore.
package config

import (
	"fmt"
)

// Config is the root configuration for the semstore components.
type Config struct {
	Logging LoggingConfig `koanf:"logging"`
	Store   StoreConfig   `koanf:"store"`
	Cache   CacheConfig   `koanf:"cache"`
	Catalog CatalogConfig `koanf:"catalog"`
}

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format selects the encoder: json or console.
	Format string `koanf:"format"`
}

// StoreConfig controls the document store backend.
type StoreConfig struct {
	// PageSize is the query result page size.
	PageSize int `koanf:"page_size"`
}

// CacheConfig controls the semantic cache.
type CacheConfig struct {
	// SimilarityThreshold is the default lower bound a cached entry must
	// exceed to count as a hit.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
}

// CatalogConfig controls the product catalog.
type CatalogConfig struct {
	// SourceURI is the remote JSON product list used for bootstrap.
	SourceURI string `koanf:"source_uri"`

	// MaxResults caps product similarity searches.
	MaxResults int `koanf:"max_results"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Store.PageSize == 0 {
		cfg.Store.PageSize = 100
	}
	if cfg.Cache.SimilarityThreshold == 0 {
		cfg.Cache.SimilarityThreshold = 0.95
	}
	if cfg.Catalog.MaxResults == 0 {
		cfg.Catalog.MaxResults = 10
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	if c.Store.PageSize <= 0 {
		return fmt.Errorf("store page size must be positive, got %d", c.Store.PageSize)
	}
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold >= 1 {
		return fmt.Errorf("cache similarity threshold must be in (0, 1), got %v", c.Cache.SimilarityThreshold)
	}
	if c.Catalog.MaxResults <= 0 {
		return fmt.Errorf("catalog max results must be positive, got %d", c.Catalog.MaxResults)
	}
	return nil
}
