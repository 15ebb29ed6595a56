package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpec(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10*time.Second, cfg.Tools.Timeout)
	assert.Equal(t, 2, cfg.Tools.MaxRetries)
	assert.False(t, cfg.Tools.UseTaskRouter)
	assert.True(t, cfg.Performance.CacheEnabled)
	assert.Equal(t, 3600*time.Second, cfg.Performance.CacheTTL)
	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, 200, cfg.Observability.MaxEvents)
	assert.Equal(t, 500, cfg.Observability.MaxPreview)
	assert.True(t, cfg.Observability.IncludeInResponse)
	assert.Equal(t, 100, cfg.Memory.ShortTermSize)
	assert.Equal(t, 300*time.Second, cfg.Task.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Tools.Timeout, cfg.Tools.Timeout)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "tools:\n  timeout: 5s\n  max_retries: 4\ntask:\n  timeout: 60s\nmemory:\n  short_term_size: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Tools.Timeout)
	assert.Equal(t, 4, cfg.Tools.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.Task.Timeout)
	assert.Equal(t, 50, cfg.Memory.ShortTermSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RESEARCHCORE_TOOLS_TIMEOUT", "2s")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Tools.Timeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Task.Timeout = 0
	assert.Error(t, cfg.Validate())
}
