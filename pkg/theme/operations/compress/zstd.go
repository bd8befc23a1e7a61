package compress

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/operations"
)

func init() {
	operations.Register(NewZstdOperation())
}

// maxWindow is the window the encoder uses and the largest one the decoder
// accepts. Small inputs get a smaller window in the frame header, but never
// less than zstd.MinWindowSize.
const maxWindow = 1 << 23

// ZstdOperation implements Zstandard compression
type ZstdOperation struct {
	operations.BaseOperation
}

// NewZstdOperation creates a new ZSTD operation
func NewZstdOperation() *ZstdOperation {
	return &ZstdOperation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_ZSTD,
			OpName: "ZSTD",
		},
	}
}

// Apply compresses data using ZSTD. A single-goroutine encoder keeps the
// output identical from run to run.
func (o *ZstdOperation) Apply(input []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderConcurrency(1),
		zstd.WithWindowSize(maxWindow),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(input, make([]byte, 0, len(input)/2)), nil
}

// Reverse decompresses ZSTD data. The output is bounded by limit through
// ReadLimited; the decoder's memory cap leaves room for a full window on
// top of it, since even an 8-byte frame declares a window of 1 KiB.
func (o *ZstdOperation) Reverse(input []byte, limit int64) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(input),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxWindow(maxWindow),
		zstd.WithDecoderMaxMemory(uint64(limit)+maxWindow),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", sizeError(err, limit))
	}
	defer dec.Close()

	data, err := operations.ReadLimited(dec, limit)
	if err != nil {
		return nil, fmt.Errorf("reading zstd data: %w", sizeError(err, limit))
	}

	return data, nil
}

// sizeError maps the decoder's own memory guards, which trip on the frame
// header before any output is produced, onto ErrResourceExhausted.
func sizeError(err error, limit int64) error {
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return fmt.Errorf("%w: frame exceeds %d bytes of output or a %d byte window: %v",
			themeerrors.ErrResourceExhausted, limit, maxWindow, err)
	}
	return err
}
