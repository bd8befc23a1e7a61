// Package operations implements the reversible transforms applied to a
// theme package payload. A chain of up to eight operations is stored packed
// into one uint64, first operation in the low byte.
package operations

import (
	"fmt"
	"io"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Operation ids. Values are part of the package format.
const (
	// No operation - raw data
	OP_NONE = 0x00

	// Compression operations (0x10-0x2F)
	OP_GZIP  = 0x10 // GZIP compression
	OP_BZIP2 = 0x13 // BZIP2 compression
	OP_ZSTD  = 0x1B // Zstandard compression
)

// Operation is one payload transform.
type Operation interface {
	// ID returns the operation identifier (e.g., OP_GZIP)
	ID() uint8

	// Name returns the human-readable name
	Name() string

	// Apply applies the operation to input data
	Apply(input []byte) ([]byte, error)

	// Reverse undoes Apply, producing at most limit bytes. Output that
	// would exceed limit is ErrResourceExhausted.
	Reverse(input []byte, limit int64) ([]byte, error)
}

// BaseOperation provides common functionality for operations
type BaseOperation struct {
	OpID   uint8
	OpName string
}

func (o *BaseOperation) ID() uint8 {
	return o.OpID
}

func (o *BaseOperation) Name() string {
	return o.OpName
}

// registry maps operation IDs to implementations. It is filled by init
// functions of the implementing packages and read-only afterwards.
var registry = make(map[uint8]Operation)

// Register registers an operation implementation
func Register(op Operation) {
	registry[op.ID()] = op
}

// Get retrieves an operation by ID
func Get(id uint8) (Operation, error) {
	op, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown operation: 0x%02x", id)
	}
	return op, nil
}

// GetName returns the name of an operation by ID
func GetName(id uint8) string {
	switch id {
	case OP_NONE:
		return "NONE"
	case OP_GZIP:
		return "GZIP"
	case OP_BZIP2:
		return "BZIP2"
	case OP_ZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("UNKNOWN_%02x", id)
	}
}

// ReadLimited reads r to EOF, failing with ErrResourceExhausted as soon as
// more than limit bytes arrive.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: decompressed payload exceeds %d bytes", themeerrors.ErrResourceExhausted, limit)
	}
	return data, nil
}
