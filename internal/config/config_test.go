package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/archive"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/atlas"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("THEMEPACK_THEME_DIR", dir)
	for _, key := range []string{
		"THEMEPACK_CONFIG", "THEMEPACK_LOG_LEVEL", "THEMEPACK_JSON_LOG",
		"THEMEPACK_ATLAS_WIDTH", "THEMEPACK_ATLAS_PADDING",
		"THEMEPACK_OPERATIONS", "THEMEPACK_INTEGRITY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, dir, cfg.ThemeDir)
	assert.Equal(t, atlas.DefaultWidth, cfg.AtlasWidth)
	assert.Equal(t, atlas.DefaultPadding, cfg.AtlasPadding)
	assert.Equal(t, archive.DefaultOperations, cfg.Operations)
	assert.Equal(t, archive.ChecksumSHA256, cfg.ChecksumAlgorithm())
	assert.Equal(t, 1<<16, cfg.AssetLimits().MaxAssets)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	content := `log_level = "debug"
atlas_width = 256
atlas_padding = 0
operations = "bzip2|zstd"
integrity = "blake2b"

[limits]
max_assets = 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	t.Setenv("THEMEPACK_LOG_LEVEL", "info")
	t.Setenv("THEMEPACK_JSON_LOG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel, "environment wins over the file")
	assert.True(t, cfg.JSONLog)
	assert.Equal(t, 256, cfg.AtlasWidth)
	assert.Equal(t, "bzip2|zstd", cfg.Operations)
	assert.Equal(t, archive.ChecksumBlake2b, cfg.ChecksumAlgorithm())
	assert.Equal(t, 500, cfg.AssetLimits().MaxAssets)
	assert.Equal(t, atlas.Options{Width: 256, Padding: -1}, cfg.AtlasOptions())
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "absent.toml"))
	require.Error(t, err)

	t.Setenv("THEMEPACK_CONFIG", filepath.Join(dir, "also-absent.toml"))
	_, err = Load("")
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "width not a number", env: map[string]string{"THEMEPACK_ATLAS_WIDTH": "wide"}},
		{name: "width out of range", env: map[string]string{"THEMEPACK_ATLAS_WIDTH": "0"}},
		{name: "padding out of range", env: map[string]string{"THEMEPACK_ATLAS_PADDING": "65"}},
		{name: "blank log level", env: map[string]string{"THEMEPACK_LOG_LEVEL": "  "}},
		{name: "bad bool", env: map[string]string{"THEMEPACK_JSON_LOG": "sometimes"}},
		{name: "unknown operation", env: map[string]string{"THEMEPACK_OPERATIONS": "lz4"}},
		{name: "unknown integrity", env: map[string]string{"THEMEPACK_INTEGRITY": "md5"}},
		{name: "unknown key", file: "colour_depth = 8\n"},
		{name: "bad toml", file: "atlas_width = \n"},
		{name: "negative limit", file: "[limits]\nmax_pixels = -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(tt.file), 0o644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
