// Package errors defines the failure taxonomy shared by every theme codec.
//
// Codecs wrap these sentinels with fmt.Errorf("%w: ...") so callers can
// branch with errors.Is. Two conditions carry structured data and have their
// own types: MissingAssetError (the id that was missing) and ArchiveError
// (whether a package failed for data or environment reasons).
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// Asset errors 🖼️
	ErrMalformedAsset = errors.New("❌ malformed asset")
	ErrDuplicateAsset = errors.New("❌ duplicate asset id")
	ErrMissingAsset   = errors.New("❌ missing asset")

	// Decoding a size field would allocate more than the configured limits 💾
	ErrResourceExhausted = errors.New("❌ resource limit exceeded")

	// A caller passed a value no codec can act on
	ErrInvalidArgument = errors.New("❌ invalid argument")

	// Image cache errors 🗺️
	ErrCorruptLayout          = errors.New("❌ corrupt layout")
	ErrDanglingAssetReference = errors.New("❌ dangling asset reference")
	ErrUnsupportedPixelFormat = errors.New("❌ unsupported pixel format")

	// Package errors 📦
	ErrInvalidArchive = errors.New("❌ invalid archive")
	ErrOperational    = errors.New("❌ operational error")
	ErrCorruptPayload = errors.New("❌ corrupt payload")
	ErrIncompatible   = errors.New("❌ incompatible theme package")
)

// MissingAssetError reports an asset that a manifest or layout names but
// whose data could not be found.
type MissingAssetError struct {
	ID   string
	Path string // where the data was expected, if known
}

func (e *MissingAssetError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%v: %q (expected at %s)", ErrMissingAsset, e.ID, e.Path)
	}
	return fmt.Sprintf("%v: %q", ErrMissingAsset, e.ID)
}

func (e *MissingAssetError) Is(target error) bool {
	return target == ErrMissingAsset
}

// ArchiveErrorType separates data problems from environment problems.
type ArchiveErrorType int

const (
	InvalidArchive ArchiveErrorType = iota
	OperationalError
)

func (t ArchiveErrorType) String() string {
	switch t {
	case InvalidArchive:
		return "invalid archive"
	case OperationalError:
		return "operational error"
	default:
		return "unknown"
	}
}

// ArchiveError is returned by package and file codecs when a container
// cannot be opened or written.
type ArchiveError struct {
	Type ArchiveErrorType
	Op   string // e.g. "open", "read header", "write"
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Op)
	// *fs.PathError already names the path
	var pathErr *fs.PathError
	if e.Path != "" && !errors.As(e.Err, &pathErr) {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidArchive) and errors.Is(err, ErrOperational)
// match on the error type.
func (e *ArchiveError) Is(target error) bool {
	switch target {
	case ErrInvalidArchive:
		return e.Type == InvalidArchive
	case ErrOperational:
		return e.Type == OperationalError
	}
	return false
}

// Invalid builds an InvalidArchive error.
func Invalid(op, path string, err error) *ArchiveError {
	return &ArchiveError{Type: InvalidArchive, Op: op, Path: path, Err: err}
}

// Operational builds an OperationalError error.
func Operational(op, path string, err error) *ArchiveError {
	return &ArchiveError{Type: OperationalError, Op: op, Path: path, Err: err}
}

// IsArchiveError reports whether err is an ArchiveError of the given type.
func IsArchiveError(err error, t ArchiveErrorType) bool {
	var ae *ArchiveError
	return errors.As(err, &ae) && ae.Type == t
}
