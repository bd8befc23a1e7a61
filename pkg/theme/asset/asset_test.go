package asset

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNewBitmapRejectsEmptyImages(t *testing.T) {
	_, err := NewBitmap("icon.empty", RoleIcon, image.NewNRGBA(image.Rect(0, 0, 0, 4)))
	require.ErrorIs(t, err, themeerrors.ErrMalformedAsset)

	_, err = NewBitmap("", RoleIcon, solid(1, 1, color.NRGBA{A: 255}))
	require.ErrorIs(t, err, themeerrors.ErrMalformedAsset)
}

func TestNewBitmapNormalisesOrigin(t *testing.T) {
	src := solid(8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 6, 5))

	a, err := NewBitmap("icon.sub", RoleOther, sub)
	require.NoError(t, err)

	bm, ok := a.Bitmap()
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 4, 3), bm.Image.Rect)
	assert.Equal(t, 16, bm.Image.Stride)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, bm.Image.NRGBAAt(3, 2))
}

func TestVariantAccessors(t *testing.T) {
	c, err := NewColor("color.bg", color.NRGBA{A: 255})
	require.NoError(t, err)
	assert.Equal(t, KindColor, c.Kind())
	_, isBitmap := c.Bitmap()
	assert.False(t, isBitmap)
	got, isColor := c.Color()
	assert.True(t, isColor)
	assert.Equal(t, color.NRGBA{A: 255}, got)
}

func TestTableAddAndOrder(t *testing.T) {
	tbl := NewTable()
	red, _ := NewBitmap("icon.b", RoleIcon, solid(2, 2, color.NRGBA{R: 255, A: 255}))
	bg, _ := NewColor("color.a", color.NRGBA{A: 255})

	require.NoError(t, tbl.Add(red))
	require.NoError(t, tbl.Add(bg))
	require.ErrorIs(t, tbl.Add(bg), themeerrors.ErrDuplicateAsset)

	assert.Equal(t, []ID{"icon.b", "color.a"}, tbl.IDs())
	assert.Equal(t, []ID{"color.a", "icon.b"}, tbl.SortedIDs())
	assert.Len(t, tbl.Bitmaps(), 1)
	assert.Len(t, tbl.Colors(), 1)

	assert.True(t, tbl.Remove("icon.b"))
	assert.False(t, tbl.Remove("icon.b"))
	assert.Equal(t, []ID{"color.a"}, tbl.IDs())
}

func TestTableEqualIgnoresOrder(t *testing.T) {
	a1, _ := NewBitmap("icon.a", RoleIcon, solid(4, 4, color.NRGBA{R: 255, A: 255}))
	c1, _ := NewColor("color.bg", color.NRGBA{A: 255})

	left := NewTable()
	require.NoError(t, left.Add(a1))
	require.NoError(t, left.Add(c1))

	right := NewTable()
	require.NoError(t, right.Add(c1))
	require.NoError(t, right.Add(a1))

	assert.True(t, left.Equal(right))

	changed := right.Clone()
	bm, _ := changed.entries["icon.a"].Bitmap()
	bm.Image.SetNRGBA(0, 0, color.NRGBA{G: 255, A: 255})
	assert.False(t, left.Equal(changed))
	assert.True(t, left.Equal(right), "clone must not share pixels")
}

func TestIDSetNilContainsEverything(t *testing.T) {
	var s IDSet
	assert.True(t, s.Contains("anything"))
	assert.False(t, NewIDSet("a").Contains("b"))
}
