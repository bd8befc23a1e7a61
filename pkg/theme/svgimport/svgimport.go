// Package svgimport rasterises SVG artwork into bitmap assets, so a theme
// can be authored as vectors and stored as the bitmaps the codecs expect.
package svgimport

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Options configure Rasterize. With neither Width nor Height set the
// viewBox size is used; with one set the other follows the aspect ratio.
type Options struct {
	Width  int
	Height int
	Role   asset.Role
	Strict bool // fail on SVG elements the rasteriser does not support
	Limits asset.Limits
	Logger hclog.Logger
}

// Rasterize reads one SVG document from r and returns it as a bitmap asset.
func Rasterize(id asset.ID, r io.Reader, opts Options) (asset.Asset, error) {
	logger := logging.OrNull(opts.Logger)
	limits := opts.Limits.OrDefault()

	mode := oksvg.IgnoreErrorMode
	if opts.Strict {
		mode = oksvg.StrictErrorMode
	}
	icon, err := oksvg.ReadIconStream(r, mode)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("%w: svg %q: %v", themeerrors.ErrMalformedAsset, id, err)
	}

	w, h, err := targetSize(icon.ViewBox.W, icon.ViewBox.H, opts.Width, opts.Height)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("svg %q: %w", id, err)
	}
	if err := limits.CheckPixels(uint64(w), uint64(h)); err != nil {
		return asset.Asset{}, fmt.Errorf("svg %q: %w", id, err)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	logger.Debug("Rasterised svg", "id", id, "width", w, "height", h)
	return asset.NewBitmap(id, opts.Role, img)
}

func targetSize(vbW, vbH float64, w, h int) (int, int, error) {
	if w < 0 || h < 0 {
		return 0, 0, fmt.Errorf("%w: negative size %dx%d", themeerrors.ErrInvalidArgument, w, h)
	}
	if w > 0 && h > 0 {
		return w, h, nil
	}
	if vbW <= 0 || vbH <= 0 || math.IsInf(vbW, 0) || math.IsInf(vbH, 0) {
		return 0, 0, fmt.Errorf("%w: no usable viewBox and no explicit size", themeerrors.ErrMalformedAsset)
	}
	switch {
	case w > 0:
		h = int(math.Max(1, math.Round(float64(w)*vbH/vbW)))
	case h > 0:
		w = int(math.Max(1, math.Round(float64(h)*vbW/vbH)))
	default:
		w, h = int(math.Ceil(vbW)), int(math.Ceil(vbH))
	}
	return w, h, nil
}

// IDFromPath names an asset after its file: "art/icon.play.svg" is
// "icon.play".
func IDFromPath(path string) asset.ID {
	return asset.ID(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// ImportFile rasterises the SVG at path. An empty id means IDFromPath.
func ImportFile(path string, id asset.ID, opts Options) (asset.Asset, error) {
	if id == "" {
		id = IDFromPath(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return asset.Asset{}, themeerrors.Operational("open svg", path, err)
	}
	defer f.Close()
	return Rasterize(id, f, opts)
}
