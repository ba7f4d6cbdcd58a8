package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultProviderID, cfg.ProviderID)
	assert.Equal(t, DefaultModelID, cfg.ModelID)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("base_url: http://example:9000\nmodel_id: other-model\nport: 8081\napp_info_ttl: 0s\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	t.Setenv("OPENCODE_PROVIDER_ID", "openai")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://example:9000", cfg.BaseURL)
	assert.Equal(t, "other-model", cfg.ModelID)
	assert.Equal(t, "openai", cfg.ProviderID)
	assert.Equal(t, 9999, cfg.Port)
	assert.Zero(t, cfg.AppInfoTTL)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "abc")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
