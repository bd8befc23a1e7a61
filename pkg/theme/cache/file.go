package cache

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"

	"github.com/provide-io/themepack/go/themepack/internal/atomicfile"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// SidecarSuffix names the layout-map file kept next to an image cache for
// editors that drop unknown PNG chunks.
const SidecarSuffix = ".layout"

// FileOptions extend Options for the single-file form.
type FileOptions struct {
	Options
	Sidecar bool // also write <path>.layout
}

// WriteFile stores table as one PNG at path with the layout map embedded in
// a private chunk. An empty table is stored as a 1x1 transparent image whose
// layout map says 0x0; ReadFile ignores its pixels.
func WriteFile(path string, table *asset.Table, opts FileOptions) error {
	opts.Options = opts.Options.withDefaults()

	atlasPNG, layoutMap, err := Encode(table, opts.Options)
	if err != nil {
		return err
	}
	if len(atlasPNG) == 0 {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
			return fmt.Errorf("failed to encode placeholder atlas: %w", err)
		}
		atlasPNG = buf.Bytes()
	}

	data, err := embedChunk(atlasPNG, layoutChunk, layoutMap)
	if err != nil {
		return err
	}

	if opts.Sidecar {
		if err := atomicfile.WriteFile(path+SidecarSuffix, layoutMap, 0o644, opts.Logger); err != nil {
			return themeerrors.Operational("write layout", path+SidecarSuffix, err)
		}
	}
	if err := atomicfile.WriteFile(path, data, 0o644, opts.Logger); err != nil {
		return themeerrors.Operational("write image cache", path, err)
	}

	opts.Logger.Info("💾 Saved image cache", "path", path, "assets", table.Len())
	return nil
}

// ReadFile loads an image cache written by WriteFile. When the PNG has lost
// its layout chunk, <path>.layout is used instead.
func ReadFile(path string, opts Options) (*asset.Table, error) {
	opts = opts.withDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, themeerrors.Operational("read image cache", path, err)
	}

	layoutMap, found, err := extractChunk(data, layoutChunk)
	if err != nil {
		return nil, err
	}
	if !found {
		sidecar := path + SidecarSuffix
		layoutMap, err = os.ReadFile(sidecar)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no layout chunk and no %s", themeerrors.ErrCorruptLayout, path, sidecar)
		}
		if err != nil {
			return nil, themeerrors.Operational("read layout", sidecar, err)
		}
		opts.Logger.Debug("Layout chunk missing, using sidecar", "path", sidecar)
	}

	m, err := UnmarshalLayoutMap(layoutMap, opts.Limits)
	if err != nil {
		return nil, err
	}
	if m.Layout.Width == 0 && m.Layout.Height == 0 {
		data = nil
	}

	table, err := Decode(data, layoutMap, opts)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("📂 Loaded image cache", "path", path, "assets", table.Len())
	return table, nil
}
