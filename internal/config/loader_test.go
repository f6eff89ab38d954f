package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Gateway.Host)
	assert.Equal(t, 8090, cfg.Gateway.Port)
	assert.Equal(t, "streamable-http", cfg.Gateway.Transport)
	assert.Equal(t, ArtifactStoreMemory, cfg.Gateway.ArtifactStore)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := writeConfig(t, `
gateway:
  port: 9999
  transport: sse
  excludePatterns:
    - "internal_.*"
  thresholds:
    inlineImageMaxBytes: 1024
mesh:
  manifestDir: /etc/meshgate/agents
  loopback: true
`)
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, "sse", cfg.Gateway.Transport)
	assert.Equal(t, []string{"internal_.*"}, cfg.Gateway.ExcludePatterns)
	assert.Equal(t, int64(1024), cfg.Gateway.Thresholds.InlineImageMaxBytes)
	// Unset fields keep their defaults.
	assert.Equal(t, "localhost", cfg.Gateway.Host)
	assert.Equal(t, "/etc/meshgate/agents", cfg.Mesh.ManifestDir)
	assert.True(t, cfg.Mesh.Loopback)
}

func TestLoadConfigRejectsBadTransport(t *testing.T) {
	dir := writeConfig(t, "gateway:\n  transport: carrier-pigeon\n")
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigRejectsSQLiteWithoutPath(t *testing.T) {
	dir := writeConfig(t, "gateway:\n  artifactStore: sqlite\n")
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := writeConfig(t, "gateway: [not a map")
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
