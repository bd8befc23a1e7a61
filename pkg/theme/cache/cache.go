// Package cache converts an asset table to and from the image cache: one
// packed RGBA atlas plus a layout map naming every rectangle in it and
// carrying the colour assets.
package cache

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/atlas"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Options configure Encode and Decode.
type Options struct {
	Atlas  atlas.Options
	Limits asset.Limits
	Logger hclog.Logger
}

func (o Options) withDefaults() Options {
	o.Logger = logging.OrNull(o.Logger)
	if o.Atlas.Logger == nil {
		o.Atlas.Logger = o.Logger
	}
	o.Limits = o.Limits.OrDefault()
	return o
}

// Encode packs the bitmaps of table into a PNG atlas and returns it together
// with the encoded layout map. A table without bitmaps yields an empty atlas
// slice: a zero-area image has no PNG encoding.
func Encode(table *asset.Table, opts Options) (atlasPNG, layoutMap []byte, err error) {
	opts = opts.withDefaults()

	m, img, err := build(table, opts)
	if err != nil {
		return nil, nil, err
	}

	if img != nil {
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, nil, fmt.Errorf("failed to encode atlas: %w", err)
		}
		atlasPNG = buf.Bytes()
	}

	layoutMap, err = m.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	opts.Logger.Debug("🗺️ Encoded image cache",
		"bitmaps", len(m.Layout.Entries),
		"colors", len(m.Colors),
		"atlas_bytes", len(atlasPNG),
		"layout_bytes", len(layoutMap),
	)

	return atlasPNG, layoutMap, nil
}

// build packs and composes table. img is nil when there are no bitmaps.
func build(table *asset.Table, opts Options) (*LayoutMap, *image.NRGBA, error) {
	layout, err := atlas.Pack(table.Bitmaps(), opts.Atlas)
	if err != nil {
		return nil, nil, err
	}

	m := &LayoutMap{Layout: layout}
	for _, a := range table.Colors() {
		c, _ := a.Color()
		m.Colors = append(m.Colors, ColorEntry{ID: a.ID(), Color: c})
	}

	if len(layout.Entries) == 0 {
		return m, nil, nil
	}

	img, err := atlas.Compose(layout, table)
	if err != nil {
		return nil, nil, err
	}
	return m, img, nil
}

// Decode rebuilds a table from an atlas and its layout map. An empty atlas
// slice is accepted only together with a layout of zero area.
func Decode(atlasPNG, layoutMap []byte, opts Options) (*asset.Table, error) {
	opts = opts.withDefaults()

	m, err := UnmarshalLayoutMap(layoutMap, opts.Limits)
	if err != nil {
		return nil, err
	}

	var img image.Image
	if len(atlasPNG) > 0 {
		if img, err = decodeAtlas(atlasPNG, opts.Limits); err != nil {
			return nil, err
		}
	}

	table, err := m.materialize(img)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("🗺️ Decoded image cache", "assets", table.Len())
	return table, nil
}

// decodeAtlas checks the PNG header before decoding any pixels, so a hostile
// size field fails with ErrResourceExhausted instead of a huge allocation.
func decodeAtlas(data []byte, limits asset.Limits) (image.Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: atlas is not a PNG image: %v", themeerrors.ErrUnsupportedPixelFormat, err)
	}
	if !rgbaCompatible(cfg.ColorModel) {
		return nil, fmt.Errorf("%w: atlas colour model %T", themeerrors.ErrUnsupportedPixelFormat, cfg.ColorModel)
	}
	if err := limits.CheckPixels(uint64(cfg.Width), uint64(cfg.Height)); err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: atlas pixels: %v", themeerrors.ErrUnsupportedPixelFormat, err)
	}
	return img, nil
}

// rgbaCompatible accepts the 8-bit RGB(A) models. Opaque atlases are stored
// as 8-bit RGB by the PNG encoder and come back as RGBA; that conversion is
// exact. Grey, paletted and 16-bit images would not round trip.
func rgbaCompatible(m color.Model) bool {
	return m == color.RGBAModel || m == color.NRGBAModel
}

// materialize cuts the bitmaps out of img and adds the colours.
func (m *LayoutMap) materialize(img image.Image) (*asset.Table, error) {
	table := asset.NewTable()

	if img == nil {
		if len(m.Layout.Entries) > 0 {
			return nil, fmt.Errorf("%w: %q is placed in an empty atlas",
				themeerrors.ErrDanglingAssetReference, m.Layout.Entries[0].ID)
		}
		if m.Layout.Width != 0 || m.Layout.Height != 0 {
			return nil, fmt.Errorf("%w: layout is %dx%d but the atlas is empty",
				themeerrors.ErrCorruptLayout, m.Layout.Width, m.Layout.Height)
		}
	} else {
		bounds := img.Bounds()
		atlasRect := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
		for _, e := range m.Layout.Entries {
			if e.Width > 0 && e.Height > 0 && !e.Rect().In(atlasRect) {
				return nil, fmt.Errorf("%w: %q at %v is not inside the %dx%d atlas",
					themeerrors.ErrDanglingAssetReference, e.ID, e.Rect(), bounds.Dx(), bounds.Dy())
			}
		}

		bitmaps, err := atlas.Unpack(m.Layout, img)
		if err != nil {
			return nil, err
		}
		for _, e := range m.Layout.Entries {
			bm := bitmaps[e.ID]
			a, err := asset.NewBitmap(e.ID, bm.Role, bm.Image)
			if err != nil {
				return nil, err
			}
			if err := table.Add(a); err != nil {
				return nil, fmt.Errorf("%w: %v", themeerrors.ErrCorruptLayout, err)
			}
		}
	}

	for _, c := range m.Colors {
		if other, clash := table.Get(c.ID); clash && other.Kind() == asset.KindBitmap {
			return nil, fmt.Errorf("%w: colour %q collides with a bitmap",
				themeerrors.ErrDanglingAssetReference, c.ID)
		}
		a, err := asset.NewColor(c.ID, c.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", themeerrors.ErrCorruptLayout, err)
		}
		if err := table.Add(a); err != nil {
			return nil, fmt.Errorf("%w: %v", themeerrors.ErrCorruptLayout, err)
		}
	}

	return table, nil
}
