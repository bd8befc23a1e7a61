// Package components stores an asset table as a directory a person can edit:
// one PNG per bitmap and a theme.toml manifest that lists every bitmap file
// and every colour.
package components

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/cases"

	"github.com/provide-io/themepack/go/themepack/internal/atomicfile"
	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// ManifestName is the manifest file inside a components directory.
const ManifestName = "theme.toml"

// Options configure Save and Load.
type Options struct {
	Limits asset.Limits
	Logger hclog.Logger
}

func (o Options) withDefaults() Options {
	o.Logger = logging.OrNull(o.Logger)
	o.Limits = o.Limits.OrDefault()
	return o
}

type manifest struct {
	Bitmaps []bitmapRecord `toml:"bitmap"`
	Colors  []colorRecord  `toml:"color"`
}

type bitmapRecord struct {
	ID   string `toml:"id"`
	File string `toml:"file"`
	Role string `toml:"role"`
}

type colorRecord struct {
	ID   string `toml:"id"`
	RGBA string `toml:"rgba"`
}

// Save writes table into dir, creating dir if needed, and returns how many
// files it wrote. Every file is published atomically and the manifest goes
// last, so an interrupted Save leaves the previous manifest in charge.
func Save(table *asset.Table, dir string, opts Options) (int, error) {
	opts = opts.withDefaults()

	m, files, err := plan(table)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, themeerrors.Operational("create components directory", dir, err)
	}

	written := 0
	for _, rec := range m.Bitmaps {
		var buf bytes.Buffer
		if err := png.Encode(&buf, files[rec.File]); err != nil {
			return written, fmt.Errorf("failed to encode %q: %w", rec.ID, err)
		}
		path := filepath.Join(dir, rec.File)
		if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644, opts.Logger); err != nil {
			return written, themeerrors.Operational("write component", path, err)
		}
		written++
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return written, fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644, opts.Logger); err != nil {
		return written, themeerrors.Operational("write manifest", path, err)
	}
	written++

	opts.Logger.Info("💾 Saved components",
		"dir", dir,
		"bitmaps", len(m.Bitmaps),
		"colors", len(m.Colors),
		"files", written,
	)
	return written, nil
}

// plan builds the manifest in id order and rejects ids whose file names
// would collide on a case-insensitive file system.
func plan(table *asset.Table) (*manifest, map[string]*image.NRGBA, error) {
	m := &manifest{}
	files := make(map[string]*image.NRGBA)
	folded := make(map[string]asset.ID)
	fold := cases.Fold()

	for _, id := range table.SortedIDs() {
		a, _ := table.Get(id)

		if c, ok := a.Color(); ok {
			m.Colors = append(m.Colors, colorRecord{ID: string(id), RGBA: FormatRGBA(c)})
			continue
		}

		bm, _ := a.Bitmap()
		name := FileName(id)
		key := fold.String(name)
		if other, clash := folded[key]; clash {
			return nil, nil, fmt.Errorf("%w: %q and %q map to the same file name ignoring case",
				themeerrors.ErrMalformedAsset, other, id)
		}
		folded[key] = id

		m.Bitmaps = append(m.Bitmaps, bitmapRecord{ID: string(id), File: name, Role: bm.Role.String()})
		files[name] = bm.Image
	}

	return m, files, nil
}

// Load reads a directory written by Save. Files the manifest does not name
// are ignored. A named file that is absent is a *MissingAssetError.
func Load(dir string, opts Options) (*asset.Table, error) {
	opts = opts.withDefaults()

	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, themeerrors.Operational("read manifest", path, err)
	}

	var m manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", themeerrors.ErrMalformedAsset, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		opts.Logger.Warn("Ignoring unknown manifest keys", "path", path, "keys", fmt.Sprint(undecoded))
	}
	if err := opts.Limits.CheckCount(uint64(len(m.Bitmaps) + len(m.Colors))); err != nil {
		return nil, err
	}

	table := asset.NewTable()
	for _, rec := range m.Bitmaps {
		a, err := loadBitmap(dir, rec, opts.Limits)
		if err != nil {
			return nil, err
		}
		if err := table.Add(a); err != nil {
			return nil, err
		}
	}

	for _, rec := range m.Colors {
		c, err := ParseRGBA(rec.RGBA)
		if err != nil {
			return nil, fmt.Errorf("colour %q: %w", rec.ID, err)
		}
		a, err := asset.NewColor(asset.ID(rec.ID), c)
		if err != nil {
			return nil, err
		}
		if err := table.Add(a); err != nil {
			return nil, err
		}
	}

	opts.Logger.Info("📂 Loaded components", "dir", dir, "assets", table.Len())
	return table, nil
}

func loadBitmap(dir string, rec bitmapRecord, limits asset.Limits) (asset.Asset, error) {
	role, err := asset.ParseRole(rec.Role)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("bitmap %q: %w", rec.ID, err)
	}

	name := rec.File
	if name == "" {
		name = FileName(asset.ID(rec.ID))
	}
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return asset.Asset{}, fmt.Errorf("%w: bitmap %q names file %q outside the directory",
			themeerrors.ErrMalformedAsset, rec.ID, rec.File)
	}

	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return asset.Asset{}, &themeerrors.MissingAssetError{ID: rec.ID, Path: path}
	}
	if err != nil {
		return asset.Asset{}, themeerrors.Operational("open component", path, err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("%w: %s: %v", themeerrors.ErrMalformedAsset, path, err)
	}
	if err := limits.CheckPixels(uint64(cfg.Width), uint64(cfg.Height)); err != nil {
		return asset.Asset{}, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return asset.Asset{}, themeerrors.Operational("seek component", path, err)
	}

	img, err := png.Decode(f)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("%w: %s: %v", themeerrors.ErrMalformedAsset, path, err)
	}
	return asset.NewBitmap(asset.ID(rec.ID), role, img)
}

// FileName maps an id to the file that holds its bitmap. Bytes outside
// [A-Za-z0-9._-] become %XX, so the mapping is reversible.
func FileName(id asset.ID) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	b.WriteString(".png")
	return b.String()
}

// IDFromFileName inverts FileName.
func IDFromFileName(name string) (asset.ID, bool) {
	stem, ok := strings.CutSuffix(name, ".png")
	if !ok || stem == "" {
		return "", false
	}
	var out []byte
	for i := 0; i < len(stem); i++ {
		c := stem[i]
		if c != '%' {
			if !isSafe(c) {
				return "", false
			}
			out = append(out, c)
			continue
		}
		if i+2 >= len(stem) {
			return "", false
		}
		v, err := strconv.ParseUint(stem[i+1:i+3], 16, 8)
		if err != nil {
			return "", false
		}
		out = append(out, byte(v))
		i += 2
	}
	// Only the canonical spelling maps back
	if FileName(asset.ID(out)) != name {
		return "", false
	}
	return asset.ID(out), true
}

func isSafe(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '.' || c == '_' || c == '-'
}

// FormatRGBA renders c as #rrggbbaa.
func FormatRGBA(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ParseRGBA accepts #rrggbbaa and #rrggbb (opaque).
func ParseRGBA(s string) (color.NRGBA, error) {
	var c color.NRGBA
	switch len(s) {
	case 9:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A); err == nil {
			return c, nil
		}
	case 7:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err == nil {
			c.A = 0xFF
			return c, nil
		}
	}
	return color.NRGBA{}, fmt.Errorf("%w: colour %q is not #rrggbbaa", themeerrors.ErrMalformedAsset, s)
}
