package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDecodesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  num_shards: 4\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pipeline.NumShards)
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 8, cfg.Pipeline.NumShards)
	assert.Equal(t, ":8080", cfg.Server.RESTAddr)
	assert.Equal(t, "core-events", cfg.PubSub.TopicID)
}

func TestEnvOverrideWinsOverFileValue(t *testing.T) {
	t.Setenv("CORE_NUM_SHARDS", "16")

	cfg := &Config{Pipeline: PipelineConfig{NumShards: 4}}
	cfg.applyEnvOverrides()

	assert.Equal(t, 16, cfg.Pipeline.NumShards)
}
