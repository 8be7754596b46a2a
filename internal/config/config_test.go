package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Model)
	assert.Equal(t, "classic", cfg.TemplateID)
	assert.Equal(t, 3, cfg.RetryCeiling)
	assert.Equal(t, 50, cfg.MinDescription)
	assert.Equal(t, 4, cfg.ResumeParallel)
	assert.Equal(t, 120*time.Second, cfg.ComposeTimeout)
	assert.Equal(t, "manual", cfg.ApplyMethod)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JOBAGENT_MODEL", "gemini-2.5-pro")
	t.Setenv("JOBAGENT_RETRY_CEILING", "5")
	t.Setenv("JOBAGENT_APPLY_METHOD", "browser")
	t.Setenv("JOBAGENT_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.Equal(t, 5, cfg.RetryCeiling)
	assert.Equal(t, "browser", cfg.ApplyMethod)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 9090\nfilter_criteria: remote Go roles\nretry_ceiling: 1\n",
	), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "remote Go roles", cfg.FilterCriteria)
	assert.Equal(t, 1, cfg.RetryCeiling)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("JOBAGENT_APPLY_METHOD", "carrier_pigeon")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("JOBAGENT_PORT", "70000")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
