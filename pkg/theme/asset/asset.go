// Package asset holds the in-memory theme asset table every codec reads from
// and writes into.
//
// An asset is either a bitmap or a colour. The two kinds share one id
// namespace inside a Table, and a Table owns its assets exclusively: codecs
// build a fresh Table per call and never keep one between calls.
package asset

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// ID names an asset. Ids are compared byte-wise.
type ID string

// Kind discriminates the Asset variant.
type Kind uint8

const (
	KindBitmap Kind = iota + 1
	KindColor
)

func (k Kind) String() string {
	switch k {
	case KindBitmap:
		return "bitmap"
	case KindColor:
		return "color"
	default:
		return "unknown"
	}
}

// Role groups bitmaps in the atlas. It carries no other meaning.
type Role uint8

const (
	RoleOther Role = iota
	RoleIcon
)

func (r Role) String() string {
	switch r {
	case RoleIcon:
		return "icon"
	default:
		return "other"
	}
}

// ParseRole is the inverse of Role.String. Unknown names are an error.
func ParseRole(s string) (Role, error) {
	switch s {
	case "icon":
		return RoleIcon, nil
	case "other", "":
		return RoleOther, nil
	default:
		return RoleOther, fmt.Errorf("%w: unknown role %q", themeerrors.ErrMalformedAsset, s)
	}
}

// Bitmap is an 8-bit non-premultiplied RGBA image whose bounds start at the
// origin.
type Bitmap struct {
	Role  Role
	Image *image.NRGBA
}

// Width returns the bitmap width in pixels.
func (b *Bitmap) Width() int { return b.Image.Rect.Dx() }

// Height returns the bitmap height in pixels.
func (b *Bitmap) Height() int { return b.Image.Rect.Dy() }

// Asset is a tagged variant: exactly one of bitmap or colour is set,
// according to kind.
type Asset struct {
	id     ID
	kind   Kind
	bitmap *Bitmap
	color  color.NRGBA
}

// NewBitmap wraps img as a bitmap asset. Any image type is accepted; it is
// converted to origin-based NRGBA. Zero-sized images are rejected.
func NewBitmap(id ID, role Role, img image.Image) (Asset, error) {
	if id == "" {
		return Asset{}, fmt.Errorf("%w: empty id", themeerrors.ErrMalformedAsset)
	}
	if img == nil {
		return Asset{}, fmt.Errorf("%w: %q has no image", themeerrors.ErrMalformedAsset, id)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Asset{}, fmt.Errorf("%w: %q is %dx%d", themeerrors.ErrMalformedAsset, id, b.Dx(), b.Dy())
	}
	return Asset{
		id:     id,
		kind:   KindBitmap,
		bitmap: &Bitmap{Role: role, Image: ToNRGBA(img)},
	}, nil
}

// NewColor wraps c as a colour asset.
func NewColor(id ID, c color.NRGBA) (Asset, error) {
	if id == "" {
		return Asset{}, fmt.Errorf("%w: empty id", themeerrors.ErrMalformedAsset)
	}
	return Asset{id: id, kind: KindColor, color: c}, nil
}

// ID returns the asset id.
func (a Asset) ID() ID { return a.id }

// Kind returns which variant a holds.
func (a Asset) Kind() Kind { return a.kind }

// Bitmap returns the bitmap when a is a bitmap asset.
func (a Asset) Bitmap() (*Bitmap, bool) {
	return a.bitmap, a.kind == KindBitmap
}

// Color returns the colour when a is a colour asset.
func (a Asset) Color() (color.NRGBA, bool) {
	return a.color, a.kind == KindColor
}

// Equal reports whether a and b have the same id, kind and content, with
// bitmaps compared pixel by pixel.
func (a Asset) Equal(b Asset) bool {
	if a.id != b.id || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindColor:
		return a.color == b.color
	case KindBitmap:
		return a.bitmap.Role == b.bitmap.Role && PixelsEqual(a.bitmap.Image, b.bitmap.Image)
	}
	return false
}

// ToNRGBA returns img as origin-based, tightly packed *image.NRGBA. An image
// that already has that shape is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// PixelsEqual compares two NRGBA images row by row, ignoring stride and
// origin differences.
func PixelsEqual(a, b *image.NRGBA) bool {
	if a.Rect.Dx() != b.Rect.Dx() || a.Rect.Dy() != b.Rect.Dy() {
		return false
	}
	w := a.Rect.Dx() * 4
	for y := 0; y < a.Rect.Dy(); y++ {
		ra := a.Pix[a.PixOffset(a.Rect.Min.X, a.Rect.Min.Y+y):][:w]
		rb := b.Pix[b.PixOffset(b.Rect.Min.X, b.Rect.Min.Y+y):][:w]
		for i := range ra {
			if ra[i] != rb[i] {
				return false
			}
		}
	}
	return true
}
