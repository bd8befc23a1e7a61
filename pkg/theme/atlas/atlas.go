/*
Package atlas assigns every bitmap in a theme a fixed rectangle inside one
packed image and recovers the bitmaps from such an image.

Packing is a shelf algorithm. Bitmaps are grouped by role (icons first), and
within a group sorted by descending height with ties broken by id, so the same
set of bitmaps always produces the same layout. Shelves are filled left to
right up to a fixed width and stacked downwards; the atlas is exactly as tall
as its last shelf.
*/
package atlas

import (
	"fmt"
	"image"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

const (
	// DefaultWidth matches the historical image cache width.
	DefaultWidth   = 440
	DefaultPadding = 1
)

// Options tune the packer. The zero value selects the defaults.
type Options struct {
	Width   int // primary-axis width; grown to fit the widest bitmap
	Padding int // empty pixels around every bitmap; negative means none
	Logger  hclog.Logger
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Padding == 0 {
		o.Padding = DefaultPadding
	} else if o.Padding < 0 {
		o.Padding = 0
	}
	o.Logger = logging.OrNull(o.Logger)
	return o
}

// Entry places one bitmap.
type Entry struct {
	ID     asset.ID
	Role   asset.Role
	X, Y   int
	Width  int
	Height int
}

// Rect returns the entry rectangle in atlas coordinates.
func (e Entry) Rect() image.Rectangle {
	return image.Rect(e.X, e.Y, e.X+e.Width, e.Y+e.Height)
}

// Layout is the packed atlas size plus one entry per bitmap, in placement
// order.
type Layout struct {
	Width   int
	Height  int
	Entries []Entry
}

// Bounds returns the atlas rectangle.
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}

// Equal reports whether two layouts are identical, entry order included.
func (l Layout) Equal(o Layout) bool {
	if l.Width != o.Width || l.Height != o.Height || len(l.Entries) != len(o.Entries) {
		return false
	}
	for i := range l.Entries {
		if l.Entries[i] != o.Entries[i] {
			return false
		}
	}
	return true
}

type byShelfOrder []asset.Asset

func (p byShelfOrder) Len() int      { return len(p) }
func (p byShelfOrder) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p byShelfOrder) Less(i, j int) bool {
	bi, _ := p[i].Bitmap()
	bj, _ := p[j].Bitmap()
	// Icons before everything else
	if bi.Role != bj.Role {
		return bi.Role == asset.RoleIcon
	}
	if bi.Height() != bj.Height() {
		return bi.Height() > bj.Height()
	}
	return p[i].ID() < p[j].ID()
}

// Pack lays out bitmaps. Every asset must be a non-empty bitmap; anything
// else is rejected with ErrMalformedAsset before placement starts. The input
// slice is not modified.
func Pack(bitmaps []asset.Asset, opts Options) (Layout, error) {
	opts = opts.withDefaults()

	if len(bitmaps) == 0 {
		return Layout{}, nil
	}

	width := opts.Width
	seen := make(map[asset.ID]struct{}, len(bitmaps))
	for _, a := range bitmaps {
		bm, ok := a.Bitmap()
		if !ok {
			return Layout{}, fmt.Errorf("%w: %q is a %s, not a bitmap", themeerrors.ErrMalformedAsset, a.ID(), a.Kind())
		}
		if bm.Image == nil || bm.Width() <= 0 || bm.Height() <= 0 {
			return Layout{}, fmt.Errorf("%w: %q has zero width or height", themeerrors.ErrMalformedAsset, a.ID())
		}
		if _, dup := seen[a.ID()]; dup {
			return Layout{}, fmt.Errorf("%w: %q", themeerrors.ErrDuplicateAsset, a.ID())
		}
		seen[a.ID()] = struct{}{}
		if w := bm.Width() + 2*opts.Padding; w > width {
			width = w
		}
	}

	sorted := append(byShelfOrder(nil), bitmaps...)
	sort.Sort(sorted)

	pad := opts.Padding
	layout := Layout{Width: width, Entries: make([]Entry, 0, len(sorted))}

	// Shelf state: top edge, tallest item so far, next free x
	var shelfY, shelfH, x int
	var group asset.Role
	for i, a := range sorted {
		bm, _ := a.Bitmap()
		w, h := bm.Width()+2*pad, bm.Height()+2*pad

		newGroup := i > 0 && bm.Role != group
		if i == 0 || newGroup || x+w > width {
			if i > 0 {
				shelfY += shelfH
			}
			shelfH, x = 0, 0
		}
		group = bm.Role

		layout.Entries = append(layout.Entries, Entry{
			ID:     a.ID(),
			Role:   bm.Role,
			X:      x + pad,
			Y:      shelfY + pad,
			Width:  bm.Width(),
			Height: bm.Height(),
		})

		x += w
		if h > shelfH {
			shelfH = h
		}
	}
	layout.Height = shelfY + shelfH

	opts.Logger.Debug("📐 Packed atlas",
		"entries", len(layout.Entries),
		"width", layout.Width,
		"height", layout.Height,
	)

	return layout, nil
}
