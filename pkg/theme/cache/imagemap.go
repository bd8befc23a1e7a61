package cache

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/nfnt/resize"

	"github.com/provide-io/themepack/go/themepack/internal/atomicfile"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/atlas"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// ThumbnailSize bounds the longer side of each image-map thumbnail.
const ThumbnailSize = 48

var imageMapTemplate = template.Must(template.New("imagemap").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Theme image map</title>
<style>
td { font-family: monospace; padding: 2px 8px; }
.swatch { display: inline-block; width: 32px; height: 16px; border: 1px solid #888; }
</style>
</head>
<body>
<p>Atlas {{.Width}}x{{.Height}}, {{len .Bitmaps}} bitmaps, {{len .Colors}} colours.</p>
{{- if .Atlas}}
<img src="data:image/png;base64,{{.Atlas}}" usemap="#theme" alt="atlas">
<map name="theme">
{{- range .Bitmaps}}
<area shape="rect" coords="{{.X}},{{.Y}},{{.X2}},{{.Y2}}" title="{{.ID}}" alt="{{.ID}}">
{{- end}}
</map>
{{- end}}
<table>
<tr><th>id</th><th>role</th><th>x</th><th>y</th><th>w</th><th>h</th><th></th></tr>
{{- range .Bitmaps}}
<tr><td>{{.ID}}</td><td>{{.Role}}</td><td>{{.X}}</td><td>{{.Y}}</td><td>{{.W}}</td><td>{{.H}}</td><td><img src="data:image/png;base64,{{.Thumb}}" alt=""></td></tr>
{{- end}}
</table>
<table>
<tr><th>id</th><th>rgba</th><th></th></tr>
{{- range .Colors}}
<tr><td>{{.ID}}</td><td>{{.Hex}}</td><td><span class="swatch" style="background: {{.CSS}}"></span></td></tr>
{{- end}}
</table>
</body>
</html>
`))

type mapBitmap struct {
	ID           asset.ID
	Role         asset.Role
	X, Y, X2, Y2 int
	W, H         int
	Thumb        string
}

type mapColor struct {
	ID  asset.ID
	Hex string
	CSS template.CSS
}

// WriteImageMap renders an HTML page describing where every asset of table
// sits in the atlas, with a thumbnail per bitmap. The page is documentation
// only; nothing reads it back.
func WriteImageMap(w io.Writer, table *asset.Table, opts Options) error {
	opts = opts.withDefaults()

	m, img, err := build(table, opts)
	if err != nil {
		return err
	}

	data := struct {
		Width, Height int
		Atlas         string
		Bitmaps       []mapBitmap
		Colors        []mapColor
	}{Width: m.Layout.Width, Height: m.Layout.Height}

	if img != nil {
		if data.Atlas, err = pngBase64(img); err != nil {
			return err
		}
	}

	for _, e := range m.Layout.Entries {
		thumb, err := thumbnail(img, e)
		if err != nil {
			return err
		}
		data.Bitmaps = append(data.Bitmaps, mapBitmap{
			ID: e.ID, Role: e.Role,
			X: e.X, Y: e.Y, X2: e.X + e.Width - 1, Y2: e.Y + e.Height - 1,
			W: e.Width, H: e.Height,
			Thumb: thumb,
		})
	}

	for _, id := range table.SortedIDs() {
		a, _ := table.Get(id)
		c, ok := a.Color()
		if !ok {
			continue
		}
		data.Colors = append(data.Colors, mapColor{
			ID:  id,
			Hex: fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A),
			CSS: template.CSS(fmt.Sprintf("rgba(%d,%d,%d,%.3f)", c.R, c.G, c.B, float64(c.A)/255)),
		})
	}

	return imageMapTemplate.Execute(w, data)
}

// WriteImageMapFile is WriteImageMap published atomically at path.
func WriteImageMapFile(path string, table *asset.Table, opts Options) error {
	opts = opts.withDefaults()
	var buf bytes.Buffer
	if err := WriteImageMap(&buf, table, opts); err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), os.FileMode(0o644), opts.Logger); err != nil {
		return themeerrors.Operational("write image map", path, err)
	}
	opts.Logger.Info("🗺️ Wrote image map", "path", path)
	return nil
}

func thumbnail(img *image.NRGBA, e atlas.Entry) (string, error) {
	sub := img.SubImage(e.Rect())
	return pngBase64(resize.Thumbnail(ThumbnailSize, ThumbnailSize, sub, resize.Bilinear))
}

func pngBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
