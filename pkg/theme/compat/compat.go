// Package compat decides whether a theme package written by one version of
// the codec can be read by another.
package compat

import (
	"fmt"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Version is a package format version. Versions are totally ordered.
type Version uint32

// Status is the verdict of Decide.
type Status int

const (
	Incompatible Status = iota
	Compatible
	CompatibleWithLoss
)

func (s Status) String() string {
	switch s {
	case Compatible:
		return "compatible"
	case CompatibleWithLoss:
		return "compatible with loss"
	default:
		return "incompatible"
	}
}

// Outcome is computed once per package before any asset is exposed.
type Outcome struct {
	Status  Status
	Dropped []asset.ID // ids the running codec will ignore; CompatibleWithLoss only
	Reason  string     // why; Incompatible only
}

// Loadable reports whether the package may be materialized.
func (o Outcome) Loadable() bool {
	return o.Status == Compatible || o.Status == CompatibleWithLoss
}

// WithDropped returns a copy of o listing ids as dropped.
func (o Outcome) WithDropped(ids []asset.ID) Outcome {
	o.Dropped = append([]asset.ID(nil), ids...)
	return o
}

// Err converts an Incompatible outcome to an error wrapping ErrIncompatible,
// for callers that want one. Loadable outcomes return nil.
func (o Outcome) Err() error {
	if o.Loadable() {
		return nil
	}
	return fmt.Errorf("%w: %s", themeerrors.ErrIncompatible, o.Reason)
}

func (o Outcome) String() string {
	switch o.Status {
	case CompatibleWithLoss:
		return fmt.Sprintf("%s (%d assets dropped)", o.Status, len(o.Dropped))
	case Incompatible:
		return fmt.Sprintf("%s: %s", o.Status, o.Reason)
	default:
		return o.Status.String()
	}
}

// Decide applies the compatibility rule. A package is Compatible when it was
// written by the running version, CompatibleWithLoss when it is newer but
// declares that the running version can still read it, and Incompatible in
// every other case, including packages older than the running version.
func Decide(format, minCompatible, running Version) Outcome {
	switch {
	case minCompatible > format:
		return Outcome{Status: Incompatible, Reason: fmt.Sprintf(
			"package declares minimum version %d above its own format %d", minCompatible, format)}
	case format == running:
		return Outcome{Status: Compatible}
	case format < running:
		return Outcome{Status: Incompatible, Reason: fmt.Sprintf(
			"package format %d is older than %d and no longer supported", format, running)}
	case minCompatible > running:
		return Outcome{Status: Incompatible, Reason: fmt.Sprintf(
			"package requires version %d or later, running %d", minCompatible, running)}
	default:
		return Outcome{Status: CompatibleWithLoss}
	}
}
