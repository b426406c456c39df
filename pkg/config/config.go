// Package config provides the unified configuration system for the harvester.
// It defines a single Config structure that every source connector and its
// worker share, organized into logical sections:
//
//   - HTTP: client timeouts and rate limiting
//   - Reliability: retry attempts, backoff, page pacing
//   - Crawl: pagination and partition traversal settings
//   - Storage: output and checkpoint locations
//
// Example usage:
//
//	cfg := config.NewConfig("ah", "ah")
//	cfg.Crawl.PageSize = 750
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the unified configuration structure for one source.
type Config struct {
	// Name identifies the source instance (also its state namespace)
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector type (e.g., "ah", "jumbo", "aldi", "plus")
	Type string `yaml:"type" json:"type"`

	// HTTP settings for the source's API client
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Reliability settings for retries and backoff
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Crawl settings for pagination and partition traversal
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Storage settings for records and checkpoint files
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Credentials stores connector-specific secrets and knobs
	// (use ${ENV_VAR} substitution in config files for real secrets)
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// HTTPConfig contains HTTP client settings.
type HTTPConfig struct {
	// RequestTimeout bounds a single page fetch
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	// DialTimeout bounds connection establishment
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	// IdleConnTimeout closes idle keep-alive connections
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" json:"idle_conn_timeout"`
	// UserAgent overrides the connector's default user agent when set
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// RateLimitPerSec limits requests per second (0 = unlimited)
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// RateBurst sets the rate limiter burst size
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`
}

// ReliabilityConfig contains retry and backoff settings.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum attempts for a transient page-fetch failure
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryMultiplier increases the delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// MaxRetryDelay caps the retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
}

// CrawlConfig contains pagination traversal settings.
type CrawlConfig struct {
	// PageSize is the requested page size where the source supports it
	PageSize int `yaml:"page_size" json:"page_size"`
	// PageDelay is the base delay inserted between page fetches
	PageDelay time.Duration `yaml:"page_delay" json:"page_delay"`
	// PageDelayJitter randomizes PageDelay by +/- this fraction (0.0-1.0)
	PageDelayJitter float64 `yaml:"page_delay_jitter" json:"page_delay_jitter"`
	// MaxPartitionDepth bounds category-tree expansion
	MaxPartitionDepth int `yaml:"max_partition_depth" json:"max_partition_depth"`
}

// StorageConfig contains output and checkpoint locations.
type StorageConfig struct {
	// DataDir is the directory holding per-source records and checkpoints
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// Compress enables zstd compression of the records file
	Compress bool `yaml:"compress" json:"compress"`
}

// NewConfig creates a Config with production-ready defaults. Connectors
// override the crawl pacing to match each source's tolerance.
func NewConfig(name, connectorType string) *Config {
	return &Config{
		Name: name,
		Type: connectorType,
		HTTP: HTTPConfig{
			RequestTimeout:  30 * time.Second,
			DialTimeout:     10 * time.Second,
			IdleConnTimeout: 90 * time.Second,
			RateLimitPerSec: 0,
			RateBurst:       1,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			RetryMultiplier: 2.0,
			MaxRetryDelay:   30 * time.Second,
		},
		Crawl: CrawlConfig{
			PageSize:          100,
			PageDelay:         500 * time.Millisecond,
			PageDelayJitter:   0.25,
			MaxPartitionDepth: 4,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Credentials: make(map[string]string),
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.Reliability.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	if c.Reliability.RetryMultiplier < 1.0 {
		return fmt.Errorf("retry_multiplier must be at least 1.0")
	}
	if c.Crawl.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}
	if c.Crawl.PageDelayJitter < 0 || c.Crawl.PageDelayJitter > 1 {
		return fmt.Errorf("page_delay_jitter must be between 0 and 1")
	}
	if c.Crawl.MaxPartitionDepth <= 0 {
		return fmt.Errorf("max_partition_depth must be positive")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// RecordsPath returns the path of the source's records file.
func (c *Config) RecordsPath() string {
	name := c.Name + "_products.jsonl"
	if c.Storage.Compress {
		name += ".zst"
	}
	return filepath.Join(c.Storage.DataDir, name)
}

// CheckpointPath returns the path of the source's checkpoint file.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Storage.DataDir, c.Name+"_checkpoint.json")
}

// Credential returns a credential value, or the fallback when unset.
func (c *Config) Credential(key, fallback string) string {
	if v, ok := c.Credentials[key]; ok && v != "" {
		return v
	}
	return fallback
}
