// Package source snapshots an asset table as Go source, so a known-good
// theme can be compiled into a program as its default, and as a plain-text
// listing of every asset for review.
//
// Output depends only on table contents: ids are emitted in sorted order and
// the embedded image cache is itself deterministic, so regenerating from an
// unchanged table produces identical bytes.
package source

import (
	"bytes"
	"fmt"
	"go/format"
	"image/color"
	"text/tabwriter"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/cache"
)

const (
	DefaultPackage = "themedata"
	generatedLine  = "// Code generated by themepack; DO NOT EDIT."
	bytesPerLine   = 16
)

// Options configure EmitSource.
type Options struct {
	Package string // Go package clause; DefaultPackage when empty
	Cache   cache.Options
	Logger  hclog.Logger
}

// EmitSource returns a gofmt'd Go file that declares the encoded image cache
// of table as ImageCacheAtlas (PNG) and ImageCacheLayout (layout map), ready
// for cache.Decode.
func EmitSource(table *asset.Table, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	opts.Logger = logging.OrNull(opts.Logger)
	if opts.Cache.Logger == nil {
		opts.Cache.Logger = opts.Logger
	}

	atlasPNG, layoutMap, err := cache.Encode(table, opts.Cache)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, generatedLine)
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "package %s\n\n", opts.Package)
	fmt.Fprintf(&buf, "// ImageCacheAtlas holds %d bitmaps packed into one PNG.\n", len(table.Bitmaps()))
	writeBytes(&buf, "ImageCacheAtlas", atlasPNG)
	fmt.Fprintf(&buf, "// ImageCacheLayout places the bitmaps and carries %d colours.\n", len(table.Colors()))
	writeBytes(&buf, "ImageCacheLayout", layoutMap)

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated source: %w", err)
	}

	opts.Logger.Debug("Emitted source",
		"package", opts.Package,
		"assets", table.Len(),
		"bytes", len(out),
	)
	return out, nil
}

func writeBytes(buf *bytes.Buffer, name string, data []byte) {
	fmt.Fprintf(buf, "var %s = []byte{", name)
	for i, b := range data {
		if i%bytesPerLine == 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(buf, "0x%02x,", b)
	}
	if len(data) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n\n")
}

// EmitDefinitions returns a tab-aligned listing of every asset in id order:
// kind, size or colour value, role and, for bitmaps, the mean colour.
func EmitDefinitions(table *asset.Table) ([]byte, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 8, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tKIND\tSIZE\tROLE\tRGBA")
	for _, id := range table.SortedIDs() {
		a, _ := table.Get(id)
		if c, ok := a.Color(); ok {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%s\n", id, a.Kind(), hex(c))
			continue
		}
		bm, _ := a.Bitmap()
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%s\t%s\n", id, a.Kind(), bm.Width(), bm.Height(), bm.Role, hex(meanColor(bm)))
	}

	if err := tw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// meanColor is the single-entry median-cut palette of the bitmap, which with
// mean aggregation is the average colour.
func meanColor(bm *asset.Bitmap) color.NRGBA {
	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean}
	p := q.Quantize(make(color.Palette, 0, 1), bm.Image)
	if len(p) == 0 {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(p[0]).(color.NRGBA)
}

func hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
