// Package config loads engine configuration from defaults, .env, environment and YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "NORMATIVE_"

// Config represents the application configuration
type Config struct {
	Index     IndexConfig     `json:"index" yaml:"index"`
	Conflict  ConflictConfig  `json:"conflict" yaml:"conflict"`
	Hierarchy HierarchyConfig `json:"hierarchy" yaml:"hierarchy"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
}

// IndexConfig tunes the framework store and its inverted index.
type IndexConfig struct {
	// OverlapThreshold is the keyword Jaccard above which two frameworks
	// sharing a jurisdiction are considered potentially conflicting.
	OverlapThreshold float64 `json:"overlap_threshold" yaml:"overlap_threshold"`
}

// ConflictConfig tunes the reference conflict detector.
type ConflictConfig struct {
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	TagOverlapThreshold float64 `json:"tag_overlap_threshold" yaml:"tag_overlap_threshold"`
	DetectorWorkers     int     `json:"detector_workers" yaml:"detector_workers"`
}

// HierarchyConfig controls when the jurisdiction hierarchy is rebuilt.
type HierarchyConfig struct {
	RebuildOnBulkChange bool `json:"rebuild_on_bulk_change" yaml:"rebuild_on_bulk_change"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// CatalogConfig points at an optional YAML corpus loaded at startup.
type CatalogConfig struct {
	Path string `json:"path,omitempty" yaml:"path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			OverlapThreshold: 0.3,
		},
		Conflict: ConflictConfig{
			SimilarityThreshold: 0.75,
			TagOverlapThreshold: 0.6,
			DetectorWorkers:     4,
		},
		Hierarchy: HierarchyConfig{
			RebuildOnBulkChange: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from environment variables and defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := DefaultConfig()
	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFile overlays a YAML file on the defaults, then applies the
// environment so that env vars always win.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func loadFromEnv(config *Config) {
	loadIndexConfig(config)
	loadConflictConfig(config)
	loadHierarchyConfig(config)
	loadLoggingConfig(config)

	if path := os.Getenv(envPrefix + "CATALOG_PATH"); path != "" {
		config.Catalog.Path = path
	}
}

func loadIndexConfig(config *Config) {
	if v := os.Getenv(envPrefix + "OVERLAP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Index.OverlapThreshold = f
		}
	}
}

func loadConflictConfig(config *Config) {
	if v := os.Getenv(envPrefix + "SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Conflict.SimilarityThreshold = f
		}
	}
	if v := os.Getenv(envPrefix + "TAG_OVERLAP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Conflict.TagOverlapThreshold = f
		}
	}
	if v := os.Getenv(envPrefix + "DETECTOR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Conflict.DetectorWorkers = n
		}
	}
}

func loadHierarchyConfig(config *Config) {
	if v := os.Getenv(envPrefix + "REBUILD_ON_BULK_CHANGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Hierarchy.RebuildOnBulkChange = b
		}
	}
}

func loadLoggingConfig(config *Config) {
	if level := os.Getenv(envPrefix + "LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv(envPrefix + "LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Index.OverlapThreshold < 0 || c.Index.OverlapThreshold > 1 {
		return fmt.Errorf("overlap threshold must be between 0 and 1")
	}
	if c.Conflict.SimilarityThreshold < 0 || c.Conflict.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be between 0 and 1")
	}
	if c.Conflict.TagOverlapThreshold < 0 || c.Conflict.TagOverlapThreshold > 1 {
		return fmt.Errorf("tag overlap threshold must be between 0 and 1")
	}
	if c.Conflict.DetectorWorkers <= 0 {
		return fmt.Errorf("detector workers must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Logging.Level)
	}

	return nil
}

// JSONLogs reports whether log lines should be emitted as JSON.
func (c LoggingConfig) JSONLogs() bool {
	return strings.EqualFold(c.Format, "json")
}
