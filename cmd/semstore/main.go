// Package main implements the semstore CLI for manual operations against
// the embedded document store backend.
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/semstore/internal/cache"
	"github.com/fyrsmithlabs/semstore/internal/catalog"
	"github.com/fyrsmithlabs/semstore/internal/config"
	"github.com/fyrsmithlabs/semstore/internal/docstore"
	"github.com/fyrsmithlabs/semstore/internal/logging"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "semstore",
	Short: "CLI for semstore data-access operations",
	Long: `semstore is a command-line interface for exercising the semstore
data-access layer against its embedded document store backend. It provides
commands for validating a product data source and probing the semantic cache.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(cacheProbeCmd)
}

// seedCmd seeds an embedded catalog from the configured source URI
var seedCmd = &cobra.Command{
	Use:   "seed [source-uri]",
	Short: "Validate a product data source by seeding an embedded catalog",
	Long: `Fetch the product JSON from the configured (or given) source URI,
seed an embedded catalog with it, and report the resulting product count.

Examples:
  # Seed from the configured source
  semstore seed

  # Seed from an explicit source
  semstore seed https://example.com/products.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

// cacheProbeCmd round-trips a vector through an embedded semantic cache
var cacheProbeCmd = &cobra.Command{
	Use:   "cache-probe [vector.csv]",
	Short: "Probe semantic cache matching for a vector file",
	Long: `Load newline-separated CSV vectors from a file, cache all but the
last as completions, then look the last one up at the configured similarity
threshold and report whether it hits.

Examples:
  semstore cache-probe vectors.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheProbe,
}

func setup() (*config.Config, *zap.Logger, *docstore.MemoryContainer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	container, err := docstore.NewMemoryContainer(docstore.MemoryConfig{PageSize: cfg.Store.PageSize}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, container, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, container, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sourceURI := cfg.Catalog.SourceURI
	if len(args) == 1 {
		sourceURI = args[0]
	}

	cat, err := catalog.New(catalog.Config{SourceURI: sourceURI}, container, nil, logger)
	if err != nil {
		return err
	}
	if err := cat.BootstrapIfEmpty(cmd.Context()); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "catalog seeded from %s\n", sourceURI)
	return nil
}

func runCacheProbe(cmd *cobra.Command, args []string) error {
	cfg, logger, container, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	vectors, err := readVectors(args[0])
	if err != nil {
		return err
	}
	if len(vectors) < 2 {
		return fmt.Errorf("need at least two vectors, got %d", len(vectors))
	}

	sc, err := cache.New(container, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	for i, v := range vectors[:len(vectors)-1] {
		item := cache.Item{
			Vectors:    v,
			Prompt:     fmt.Sprintf("probe-%d", i),
			Completion: fmt.Sprintf("completion-%d", i),
		}
		if err := sc.Put(ctx, item); err != nil {
			return err
		}
	}

	completion, ok, err := sc.Get(ctx, vectors[len(vectors)-1], cfg.Cache.SimilarityThreshold)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "miss at threshold %v\n", cfg.Cache.SimilarityThreshold)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "hit: %s\n", completion)
	return nil
}

// readVectors parses one embedding per CSV record.
func readVectors(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	vectors := make([][]float32, 0, len(records))
	for i, record := range records {
		vec := make([]float32, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("parsing %s record %d field %d: %w", path, i+1, j+1, err)
			}
			vec[j] = float32(v)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
