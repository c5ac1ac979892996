package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.APIServer.Port)
	assert.Equal(t, int64(20), cfg.Upload.MaxFileSizeMB)
	assert.Equal(t, int64(20<<20), cfg.Upload.MaxFileSizeBytes())
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.InDelta(t, 0.7, cfg.Gemini.Temperature, 0.0001)
	assert.Equal(t, int32(40), cfg.Gemini.TopK)
	assert.Equal(t, time.Duration(0), cfg.Gemini.Timeout)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GEMINI_API_KEY", "secret-key")
	t.Setenv("UPLOAD_MAX_FILE_SIZE_MB", "5")
	t.Setenv("SESSION_BACKEND", "redis")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.Gemini.APIKey)
	assert.Equal(t, int64(5), cfg.Upload.MaxFileSizeMB)
	assert.Equal(t, "redis", cfg.Session.Backend)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "custom.yaml")
	content := "GEMINI:\n  MODEL: gemini-2.0-flash\nUPLOAD:\n  DIR: /tmp/gp-uploads\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "/tmp/gp-uploads", cfg.Upload.Dir)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.Gemini.ImageModel)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SESSION_BACKEND", "postgres")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

// chdir switches the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
