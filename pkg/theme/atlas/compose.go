package atlas

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Compose renders every bitmap named by layout into a fresh atlas. The
// bitmaps come from table; an entry with no matching bitmap, or one whose
// size differs from the table's, is ErrMalformedAsset.
func Compose(layout Layout, table *asset.Table) (*image.NRGBA, error) {
	dst := image.NewNRGBA(layout.Bounds())

	for _, e := range layout.Entries {
		a, ok := table.Get(e.ID)
		if !ok {
			return nil, &themeerrors.MissingAssetError{ID: string(e.ID)}
		}
		bm, ok := a.Bitmap()
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a bitmap", themeerrors.ErrMalformedAsset, e.ID)
		}
		if bm.Width() != e.Width || bm.Height() != e.Height {
			return nil, fmt.Errorf("%w: %q is %dx%d, layout says %dx%d",
				themeerrors.ErrMalformedAsset, e.ID, bm.Width(), bm.Height(), e.Width, e.Height)
		}
		draw.Draw(dst, e.Rect(), bm.Image, image.Point{}, draw.Src)
	}

	return dst, nil
}

// Validate checks that layout describes an atlas of the given bounds: every
// rectangle is non-empty and inside the atlas, no two rectangles share a
// pixel, and ids are unique. Any violation is ErrCorruptLayout.
func Validate(layout Layout, bounds image.Rectangle) error {
	if bounds.Dx() != layout.Width || bounds.Dy() != layout.Height {
		return fmt.Errorf("%w: atlas is %dx%d, layout says %dx%d",
			themeerrors.ErrCorruptLayout, bounds.Dx(), bounds.Dy(), layout.Width, layout.Height)
	}

	occ := newOccupancy(layout.Width, layout.Height)
	ids := make(map[asset.ID]struct{}, len(layout.Entries))
	full := image.Rect(0, 0, layout.Width, layout.Height)

	for _, e := range layout.Entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry with empty id", themeerrors.ErrCorruptLayout)
		}
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("%w: %q placed twice", themeerrors.ErrCorruptLayout, e.ID)
		}
		ids[e.ID] = struct{}{}

		r := e.Rect()
		if e.Width <= 0 || e.Height <= 0 {
			return fmt.Errorf("%w: %q has empty rectangle %v", themeerrors.ErrCorruptLayout, e.ID, r)
		}
		if !r.In(full) {
			return fmt.Errorf("%w: %q at %v lies outside %v", themeerrors.ErrCorruptLayout, e.ID, r, full)
		}
		if !occ.claim(r) {
			return fmt.Errorf("%w: %q at %v overlaps another entry", themeerrors.ErrCorruptLayout, e.ID, r)
		}
	}

	return nil
}

// Unpack cuts every entry of layout out of img. The layout is validated
// against img first; nothing is clipped and nothing is reordered.
func Unpack(layout Layout, img image.Image) (map[asset.ID]*asset.Bitmap, error) {
	if err := Validate(layout, img.Bounds()); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	out := make(map[asset.ID]*asset.Bitmap, len(layout.Entries))
	for _, e := range layout.Entries {
		dst := image.NewNRGBA(image.Rect(0, 0, e.Width, e.Height))
		draw.Draw(dst, dst.Rect, img, origin.Add(image.Pt(e.X, e.Y)), draw.Src)
		out[e.ID] = &asset.Bitmap{Role: e.Role, Image: dst}
	}
	return out, nil
}

// occupancy is one bit per atlas pixel.
type occupancy struct {
	width int
	bits  []uint64
}

func newOccupancy(w, h int) *occupancy {
	return &occupancy{width: w, bits: make([]uint64, (w*h+63)/64)}
}

// claim marks every pixel of r and reports false if any was already taken.
func (o *occupancy) claim(r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := y * o.width
		for x := r.Min.X; x < r.Max.X; x++ {
			i := row + x
			word, mask := i/64, uint64(1)<<(uint(i)%64)
			if o.bits[word]&mask != 0 {
				return false
			}
			o.bits[word] |= mask
		}
	}
	return true
}
