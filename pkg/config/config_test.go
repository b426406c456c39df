package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("ah", "ah")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Reliability.RetryAttempts)
	assert.Equal(t, 2.0, cfg.Reliability.RetryMultiplier)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.PageDelay)
	assert.Equal(t, "data", cfg.Storage.DataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing name", func(c *Config) { c.Name = "" }, "name is required"},
		{"missing type", func(c *Config) { c.Type = "" }, "type is required"},
		{"zero retries", func(c *Config) { c.Reliability.RetryAttempts = 0 }, "retry_attempts"},
		{"bad multiplier", func(c *Config) { c.Reliability.RetryMultiplier = 0.5 }, "retry_multiplier"},
		{"bad page size", func(c *Config) { c.Crawl.PageSize = 0 }, "page_size"},
		{"bad jitter", func(c *Config) { c.Crawl.PageDelayJitter = 1.5 }, "page_delay_jitter"},
		{"bad depth", func(c *Config) { c.Crawl.MaxPartitionDepth = 0 }, "max_partition_depth"},
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }, "data_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("jumbo", "jumbo")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := NewConfig("aldi", "aldi")
	cfg.Storage.DataDir = "/var/lib/harvester"

	assert.Equal(t, filepath.Join("/var/lib/harvester", "aldi_products.jsonl"), cfg.RecordsPath())
	assert.Equal(t, filepath.Join("/var/lib/harvester", "aldi_checkpoint.json"), cfg.CheckpointPath())

	cfg.Storage.Compress = true
	assert.Equal(t, filepath.Join("/var/lib/harvester", "aldi_products.jsonl.zst"), cfg.RecordsPath())
}

func TestCredential(t *testing.T) {
	cfg := NewConfig("plus", "plus")
	cfg.Credentials["csrf_token"] = "abc"

	assert.Equal(t, "abc", cfg.Credential("csrf_token", "zzz"))
	assert.Equal(t, "zzz", cfg.Credential("missing", "zzz"))
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("HARVESTER_TEST_TOKEN", "s3cret")

	dir := t.TempDir()
	path := filepath.Join(dir, "source.yaml")
	content := []byte("name: ah\ntype: ah\ncredentials:\n  api_token: ${HARVESTER_TEST_TOKEN}\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	var cfg Config
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "ah", cfg.Name)
	assert.Equal(t, "s3cret", cfg.Credentials["api_token"])
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := NewConfig("jumbo", "jumbo")
	cfg.Crawl.PageSize = 30
	require.NoError(t, Save(path, cfg))

	var loaded Config
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, 30, loaded.Crawl.PageSize)
	assert.Equal(t, cfg.Reliability.RetryAttempts, loaded.Reliability.RetryAttempts)
}
