package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/operations"
)

func TestOperationsRoundTrip(t *testing.T) {
	inputs := []struct {
		name string
		data []byte
	}{
		{"large", bytes.Repeat([]byte("theme payload "), 500)},
		{"8 bytes", []byte("TPAY\x00\x00\x00\x00")},
		{"100 bytes", bytes.Repeat([]byte("icon.a 4x4 "), 10)[:100]},
	}

	tests := []struct {
		name  string
		chain string
	}{
		{"raw", "raw"},
		{"gzip", "gzip"},
		{"bzip2", "bzip2"},
		{"zstd", "zstd"},
		{"chain", "bzip2|zstd"},
	}

	for _, in := range inputs {
		for _, tt := range tests {
			t.Run(in.name+"/"+tt.name, func(t *testing.T) {
				packed, err := operations.StringToOperations(tt.chain)
				require.NoError(t, err)

				out, err := operations.ApplyChain(in.data, packed)
				require.NoError(t, err)
				if packed != 0 && in.name == "large" {
					assert.Less(t, len(out), len(in.data))
				}

				// the limit is exactly the original size, as in a package descriptor
				back, err := operations.ReverseChain(out, packed, int64(len(in.data)))
				require.NoError(t, err)
				assert.Equal(t, in.data, back)
			})
		}
	}
}

func TestZstdWindowAboveLimit(t *testing.T) {
	op := NewZstdOperation()
	out, err := op.Apply([]byte("tiny"))
	require.NoError(t, err)

	back, err := op.Reverse(out, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), back)

	_, err = op.Reverse(out, 3)
	require.ErrorIs(t, err, themeerrors.ErrResourceExhausted)
}

func TestReverseHonoursLimit(t *testing.T) {
	input := bytes.Repeat([]byte{0}, 1<<16)

	for _, op := range []operations.Operation{NewGzipOperation(), NewBzip2Operation(), NewZstdOperation()} {
		t.Run(op.Name(), func(t *testing.T) {
			out, err := op.Apply(input)
			require.NoError(t, err)

			_, err = op.Reverse(out, 1024)
			require.ErrorIs(t, err, themeerrors.ErrResourceExhausted)
		})
	}
}

func TestZstdIsDeterministic(t *testing.T) {
	input := bytes.Repeat([]byte("abcdefgh"), 4096)
	op := NewZstdOperation()
	a, err := op.Apply(input)
	require.NoError(t, err)
	b, err := op.Apply(input)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestReverseGarbage(t *testing.T) {
	_, err := NewGzipOperation().Reverse([]byte("definitely not gzip"), 1024)
	require.Error(t, err)
	_, err = NewZstdOperation().Reverse([]byte("definitely not zstd"), 1024)
	require.Error(t, err)
}
