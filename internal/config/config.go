// Package config resolves themepack settings: built-in defaults, then an
// optional themepack.toml, then THEMEPACK_* environment variables. Command
// line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/provide-io/themepack/go/themepack/internal/themedir"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/archive"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/atlas"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/operations"
)

// FileName is the config file looked up in the theme directory.
const FileName = "themepack.toml"

const (
	defaultLogLevel = "warn"
	maxAtlasWidth   = 1 << 15
	maxPadding      = 64
)

// Config captures settings shared by every command.
type Config struct {
	LogLevel     string `toml:"log_level"`
	JSONLog      bool   `toml:"json_log"`
	ThemeDir     string `toml:"theme_dir"`
	AtlasWidth   int    `toml:"atlas_width"`
	AtlasPadding int    `toml:"atlas_padding"`
	Operations   string `toml:"operations"`
	Integrity    string `toml:"integrity"`
	Limits       Limits `toml:"limits"`
}

// Limits mirrors asset.Limits with TOML names. Zero means the default.
type Limits struct {
	MaxAssets   int   `toml:"max_assets"`
	MaxIDLength int   `toml:"max_id_length"`
	MaxPixels   int64 `toml:"max_pixels"`
	MaxBytes    int64 `toml:"max_bytes"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:     defaultLogLevel,
		ThemeDir:     themedir.Root(),
		AtlasWidth:   atlas.DefaultWidth,
		AtlasPadding: atlas.DefaultPadding,
		Operations:   archive.DefaultOperations,
		Integrity:    archive.ChecksumSHA256.String(),
	}
}

// Load resolves the configuration. An explicit path must exist; with an
// empty path THEMEPACK_CONFIG is used, and failing that FileName in the
// theme directory is read if present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env, ok := os.LookupEnv("THEMEPACK_CONFIG"); ok && env != "" {
			path, explicit = env, true
		} else {
			path = filepath.Join(cfg.ThemeDir, FileName)
		}
	}

	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown keys %v", path, undecoded)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error

	if c.LogLevel, err = readRequiredOrDefault("THEMEPACK_LOG_LEVEL", c.LogLevel); err != nil {
		return err
	}
	if c.JSONLog, err = readBool("THEMEPACK_JSON_LOG", c.JSONLog); err != nil {
		return err
	}
	if c.ThemeDir, err = readRequiredOrDefault("THEMEPACK_THEME_DIR", c.ThemeDir); err != nil {
		return err
	}
	if c.AtlasWidth, err = readInt("THEMEPACK_ATLAS_WIDTH", c.AtlasWidth, 1, maxAtlasWidth); err != nil {
		return err
	}
	if c.AtlasPadding, err = readInt("THEMEPACK_ATLAS_PADDING", c.AtlasPadding, 0, maxPadding); err != nil {
		return err
	}
	if c.Operations, err = readRequiredOrDefault("THEMEPACK_OPERATIONS", c.Operations); err != nil {
		return err
	}
	if c.Integrity, err = readRequiredOrDefault("THEMEPACK_INTEGRITY", c.Integrity); err != nil {
		return err
	}
	return nil
}

// Validate checks values that came from a file, the environment or flags.
func (c *Config) Validate() error {
	c.ThemeDir = filepath.Clean(c.ThemeDir)
	if c.ThemeDir == "." {
		return fmt.Errorf("theme_dir must not resolve to current directory")
	}
	if c.AtlasWidth < 1 || c.AtlasWidth > maxAtlasWidth {
		return fmt.Errorf("atlas_width must be between 1 and %d", maxAtlasWidth)
	}
	if c.AtlasPadding < 0 || c.AtlasPadding > maxPadding {
		return fmt.Errorf("atlas_padding must be between 0 and %d", maxPadding)
	}
	if _, err := operations.StringToOperations(c.Operations); err != nil {
		return fmt.Errorf("operations: %w", err)
	}
	if _, err := archive.ParseChecksumAlgorithm(c.Integrity); err != nil {
		return fmt.Errorf("integrity: %w", err)
	}
	if c.Limits.MaxAssets < 0 || c.Limits.MaxIDLength < 0 || c.Limits.MaxPixels < 0 || c.Limits.MaxBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

// AssetLimits returns the configured limits with defaults filled in.
func (c Config) AssetLimits() asset.Limits {
	return asset.Limits{
		MaxAssets:   c.Limits.MaxAssets,
		MaxIDLength: c.Limits.MaxIDLength,
		MaxPixels:   c.Limits.MaxPixels,
		MaxBytes:    c.Limits.MaxBytes,
	}.OrDefault()
}

// AtlasOptions returns packing options. Padding 0 is passed as -1, which
// the packer reads as "no padding" rather than "default".
func (c Config) AtlasOptions() atlas.Options {
	pad := c.AtlasPadding
	if pad == 0 {
		pad = -1
	}
	return atlas.Options{Width: c.AtlasWidth, Padding: pad}
}

// ChecksumAlgorithm returns the parsed integrity algorithm.
func (c Config) ChecksumAlgorithm() archive.ChecksumAlgorithm {
	algo, _ := archive.ParseChecksumAlgorithm(c.Integrity)
	return algo
}

func readRequiredOrDefault(key, fallback string) (string, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}

	return raw, nil
}

func readInt(key string, fallback, min, max int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}

	return parsed, nil
}

func readBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}
