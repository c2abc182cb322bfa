package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "aider", cfg.Editor.Path)
	assert.Equal(t, 128000, cfg.Phase.ModelTokenLimit)
	assert.Equal(t, 0.60, cfg.Phase.ConvergenceRatio)
	assert.Equal(t, 0.50, cfg.Phase.ExpansionRatio)
	assert.Equal(t, 6000, cfg.Map.WarningTokens)
	assert.Equal(t, 12000, cfg.Map.ErrorTokens)
	assert.Equal(t, 3, cfg.Runner.Concurrency)
	assert.Equal(t, 25000, cfg.Model.HistoryTailChars)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
editor:
  path: /opt/aider/bin/aider
  model: gpt-4o
runner:
  concurrency: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/aider/bin/aider", cfg.Editor.Path)
	assert.Equal(t, "gpt-4o", cfg.Editor.Model)
	assert.Equal(t, 5, cfg.Runner.Concurrency)
	// Untouched keys keep defaults.
	assert.Equal(t, 0.60, cfg.Phase.ConvergenceRatio)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KILN_RUNNER_CONCURRENCY", "7")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Runner.Concurrency)
}

func TestValidate_HysteresisGap(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	cfg.Phase.ExpansionRatio = 0.70 // above convergence
	err = NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expansion_ratio")
}

func TestValidate_Durations(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	cfg.Runner.StaggerDelay = "not-a-duration"
	err = NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stagger_delay")
}

func TestValidate_MapThresholdOrder(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	cfg.Map.ErrorTokens = cfg.Map.WarningTokens
	err = NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error_tokens")
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "map.md")

	require.NoError(t, AtomicWrite(path, []byte("first")))
	require.NoError(t, AtomicWrite(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
