package pkg

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/archive"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/compat"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Category groups load failures the way a user needs to hear about them.
type Category int

const (
	CategoryNone Category = iota
	CategoryInvalidArgument
	CategoryMemory
	CategoryIncompatible
	CategoryCorrupt
	CategoryInvalidArchive
	CategoryOperational
	CategoryOther
)

// Classify maps an error from any codec to its Category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, themeerrors.ErrInvalidArgument):
		return CategoryInvalidArgument
	case errors.Is(err, themeerrors.ErrResourceExhausted):
		return CategoryMemory
	case errors.Is(err, themeerrors.ErrIncompatible):
		return CategoryIncompatible
	case errors.Is(err, themeerrors.ErrCorruptPayload),
		errors.Is(err, themeerrors.ErrCorruptLayout),
		errors.Is(err, themeerrors.ErrDanglingAssetReference),
		errors.Is(err, themeerrors.ErrUnsupportedPixelFormat),
		errors.Is(err, themeerrors.ErrMalformedAsset),
		errors.Is(err, themeerrors.ErrDuplicateAsset),
		errors.Is(err, themeerrors.ErrMissingAsset):
		return CategoryCorrupt
	case errors.Is(err, themeerrors.ErrInvalidArchive):
		return CategoryInvalidArchive
	case errors.Is(err, themeerrors.ErrOperational):
		return CategoryOperational
	default:
		return CategoryOther
	}
}

// Describe returns a one-line, user-facing explanation of err.
func Describe(err error) string {
	var prefix string
	switch Classify(err) {
	case CategoryNone:
		return "ok"
	case CategoryInvalidArgument:
		prefix = "invalid argument"
	case CategoryMemory:
		prefix = "theme is too large to load"
	case CategoryIncompatible:
		prefix = "theme was made for a different version"
	case CategoryCorrupt:
		prefix = "theme data is damaged"
	case CategoryInvalidArchive:
		prefix = "not a valid theme package"
	case CategoryOperational:
		prefix = "could not access theme"
	default:
		prefix = "theme could not be loaded"
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

// Report is the result of VerifyPackageWithLogger.
type Report struct {
	Path     string
	Metadata *archive.Metadata
	Outcome  compat.Outcome
	Assets   int
	Errors   []string
}

// OK reports whether the package can be loaded by the verifying version.
func (r *Report) OK() bool {
	return len(r.Errors) == 0 && r.Outcome.Loadable()
}

// VerifyPackageWithLogger checks a package step by step, logging each step,
// and returns a report. The error is the first failure, if any.
func VerifyPackageWithLogger(path string, running compat.Version, known asset.IDSet, logger hclog.Logger) (*Report, error) {
	logger = logging.OrNull(logger)
	report := &Report{Path: path}

	fail := func(step string, err error) (*Report, error) {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", step, Describe(err)))
		logger.Error("✗ "+step+" failed", "error", err)
		logger.Error("✗ Package verification failed", "error_count", len(report.Errors))
		return report, err
	}

	logger.Info("Verifying theme package", "path", path)

	p, err := archive.OpenWithOptions(path, archive.ReadOptions{Logger: logger})
	if err != nil {
		return fail("Container", err)
	}
	meta := p.Metadata()
	report.Metadata = &meta
	logger.Info("✓ Header and entry table valid", "entries", len(p.Entries()))
	logger.Info("✓ Metadata checksum valid",
		"format_version", meta.FormatVersion,
		"min_compatible_version", meta.MinCompatibleVersion,
		"theme", meta.Theme.Name,
	)

	outcome, err := p.Validate(running, known)
	if err != nil {
		return fail("Payload", err)
	}
	report.Outcome = outcome
	logger.Info("✓ Payload integrity valid", "integrity", meta.Integrity)

	if !outcome.Loadable() {
		return fail("Compatibility", outcome.Err())
	}
	if len(outcome.Dropped) > 0 {
		logger.Warn("Package is newer; some assets will be dropped", "dropped", len(outcome.Dropped))
		for _, id := range outcome.Dropped {
			logger.Debug("  Dropped asset", "id", id)
		}
	}

	report.Assets = p.Materialize().Len()
	logger.Info("✓ Package verification passed", "status", outcome.Status, "assets", report.Assets)
	return report, nil
}
