// Package pkg is the high-level entry point for programs that load themes:
// read a theme package, or fall back to a default table when it cannot be
// used.
package pkg

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/archive"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/compat"
)

// LoadPackage opens, validates and materializes the package at path for a
// program running format version running that knows the ids in known (nil
// for all). An Incompatible outcome is returned together with its
// ErrIncompatible error and a nil table.
func LoadPackage(path string, running compat.Version, known asset.IDSet, logger hclog.Logger) (*asset.Table, compat.Outcome, error) {
	logger = logging.OrNull(logger)

	p, err := archive.OpenWithOptions(path, archive.ReadOptions{Logger: logger})
	if err != nil {
		return nil, compat.Outcome{}, err
	}
	outcome, err := p.Validate(running, known)
	if err != nil {
		return nil, compat.Outcome{}, err
	}
	if !outcome.Loadable() {
		return nil, outcome, outcome.Err()
	}
	return p.Materialize(), outcome, nil
}

// Loader supplies the table used when a package cannot be loaded, typically
// one compiled into the program from emitted source.
type Loader func() (*asset.Table, error)

// LoadResult is what LoadOrFallback settled on.
type LoadResult struct {
	Table    *asset.Table
	Outcome  compat.Outcome
	Fallback bool  // Table came from the fallback loader
	Cause    error // why the package was not used, when Fallback
}

// LoadOrFallback loads the package at path and, if that fails for any
// reason, returns the table from fallback instead. It only fails when the
// fallback does.
func LoadOrFallback(path string, running compat.Version, known asset.IDSet, fallback Loader, logger hclog.Logger) (LoadResult, error) {
	logger = logging.OrNull(logger)

	table, outcome, err := LoadPackage(path, running, known, logger)
	if err == nil {
		return LoadResult{Table: table, Outcome: outcome}, nil
	}

	logger.Warn("Theme package unusable, loading defaults", "path", path, "reason", Describe(err))
	if fallback == nil {
		return LoadResult{}, fmt.Errorf("no fallback theme: %w", err)
	}
	table, ferr := fallback()
	if ferr != nil {
		return LoadResult{}, errors.Join(err, fmt.Errorf("fallback theme: %w", ferr))
	}
	return LoadResult{Table: table, Outcome: outcome, Fallback: true, Cause: err}, nil
}
