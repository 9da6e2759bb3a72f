package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Tasks", cfg.Calendar)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "Jan 02, 2006 15:04", cfg.DateLayout)
	assert.Error(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api_url: https://api.example.com/prod
region: eu-central-1
user_pool_client_id: abc123
timeout: 5s
log:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/prod", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "Tasks", cfg.Calendar)
	assert.NoError(t, cfg.Validate())
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: eu-central-1\n"), 0600))
	t.Setenv("CLOUDTODO_REGION", "us-east-1")
	t.Setenv("CLOUDTODO_API_URL", "https://env.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "https://env.example.com", cfg.APIURL)
}

func TestSetWritesBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	_, err := Set(path, "api_url", "https://api.example.com")
	require.NoError(t, err)
	_, err = Set(path, "timeout", "30s")
	require.NoError(t, err)
	_, err = Set(path, "log.development", "true")
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Log.Development)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSetRejectsUnknownKey(t *testing.T) {
	_, err := Set(filepath.Join(t.TempDir(), "config.yaml"), "colour", "blue")
	assert.Error(t, err)
}
