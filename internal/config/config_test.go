package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25.0, cfg.Markers.UserRadius)
	assert.Equal(t, 10.0, cfg.Markers.ResultRadius)
	assert.Equal(t, 0.2, cfg.Markers.ResultAlpha)
	assert.Equal(t, "konfig.json", cfg.Output.ConfigFilename)
}

func TestLoad_NoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotator.json")
	content := `{
		"viewport": {"window_width": 1920, "window_height": 1080},
		"markers": {"user_radius": 12.5},
		"output": {"dir": "/tmp/out", "preview_format": "webp"},
		"log": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1920, cfg.Viewport.WindowWidth)
	assert.Equal(t, 1080, cfg.Viewport.WindowHeight)
	assert.Equal(t, 40, cfg.Viewport.ControlBarHeight, "default kept")
	assert.Equal(t, 12.5, cfg.Markers.UserRadius)
	assert.Equal(t, 10.0, cfg.Markers.ResultRadius, "default kept")
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, "konfig.json", cfg.Output.ConfigFilename, "default kept")
	assert.Equal(t, "webp", cfg.Output.PreviewFormat)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"markers": {"result_alpha": 3}}`), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero width", func(c *Config) { c.Viewport.WindowWidth = 0 }},
		{"bar taller than window", func(c *Config) { c.Viewport.ControlBarHeight = 900 }},
		{"negative radius", func(c *Config) { c.Markers.UserRadius = -1 }},
		{"alpha above one", func(c *Config) { c.Markers.ResultAlpha = 1.5 }},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }},
		{"no filename", func(c *Config) { c.Output.ConfigFilename = "" }},
		{"bad preview format", func(c *Config) { c.Output.PreviewFormat = "bmp" }},
		{"quality too high", func(c *Config) { c.Output.PreviewQuality = 101 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Output.PreviewQuality = 75
	cfg.Markers.UserRadius = 30

	require.NoError(t, cfg.SaveToFile(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.json", filepath.Base(GetConfigPath()))
}
