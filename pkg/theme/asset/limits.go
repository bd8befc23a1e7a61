package asset

import (
	"fmt"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Limits bound what a decoder will allocate on behalf of size fields it
// reads from untrusted input.
type Limits struct {
	MaxAssets   int   // entries in one table
	MaxIDLength int   // bytes in one id
	MaxPixels   int64 // pixels in one image (atlas or bitmap)
	MaxBytes    int64 // decompressed bytes in one payload
}

// DefaultLimits are generous for real themes. A full theme is a few hundred
// assets in an atlas well under 1024x4096.
func DefaultLimits() Limits {
	return Limits{
		MaxAssets:   1 << 16,
		MaxIDLength: 1 << 10,
		MaxPixels:   1 << 26,
		MaxBytes:    1 << 30,
	}
}

// OrDefault fills unset fields from DefaultLimits.
func (l Limits) OrDefault() Limits {
	d := DefaultLimits()
	if l.MaxAssets <= 0 {
		l.MaxAssets = d.MaxAssets
	}
	if l.MaxIDLength <= 0 {
		l.MaxIDLength = d.MaxIDLength
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = d.MaxPixels
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	return l
}

// CheckCount rejects an asset count over the limit.
func (l Limits) CheckCount(n uint64) error {
	if n > uint64(l.MaxAssets) {
		return fmt.Errorf("%w: %d assets (limit %d)", themeerrors.ErrResourceExhausted, n, l.MaxAssets)
	}
	return nil
}

// CheckIDLength rejects an id length over the limit.
func (l Limits) CheckIDLength(n uint64) error {
	if n > uint64(l.MaxIDLength) {
		return fmt.Errorf("%w: id of %d bytes (limit %d)", themeerrors.ErrResourceExhausted, n, l.MaxIDLength)
	}
	return nil
}

// CheckPixels rejects an image whose w*h is over the limit, without
// overflowing on hostile dimensions.
func (l Limits) CheckPixels(w, h uint64) error {
	if w != 0 && h > uint64(l.MaxPixels)/w {
		return fmt.Errorf("%w: %dx%d image (limit %d pixels)", themeerrors.ErrResourceExhausted, w, h, l.MaxPixels)
	}
	return nil
}
