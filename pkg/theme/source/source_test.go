package source

import (
	"go/parser"
	"go/token"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func build(t *testing.T, reverse bool) *asset.Table {
	t.Helper()
	var assets []asset.Asset
	for _, b := range []struct {
		id string
		w  int
	}{{"icon.a", 4}, {"icon.b", 6}, {"panel", 20}} {
		a, err := asset.NewBitmap(asset.ID(b.id), asset.RoleIcon, solid(b.w, 4, color.NRGBA{R: 255, A: 255}))
		require.NoError(t, err)
		assets = append(assets, a)
	}
	bg, err := asset.NewColor("color.bg", color.NRGBA{A: 255})
	require.NoError(t, err)
	assets = append(assets, bg)

	tbl := asset.NewTable()
	for i := range assets {
		a := assets[i]
		if reverse {
			a = assets[len(assets)-1-i]
		}
		require.NoError(t, tbl.Add(a))
	}
	return tbl
}

func TestEmitSourceIsStable(t *testing.T) {
	first, err := EmitSource(build(t, false), Options{})
	require.NoError(t, err)
	second, err := EmitSource(build(t, true), Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	src := string(first)
	assert.True(t, strings.HasPrefix(src, "// Code generated by themepack; DO NOT EDIT.\n"))

	f, err := parser.ParseFile(token.NewFileSet(), "themedata.go", first, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPackage, f.Name.Name)
	assert.Contains(t, src, "var ImageCacheAtlas = []byte{")
	assert.Contains(t, src, "var ImageCacheLayout = []byte{")
}

func TestEmitSourceEmptyTable(t *testing.T) {
	out, err := EmitSource(asset.NewTable(), Options{Package: "defaults"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "package defaults")
	assert.Contains(t, string(out), "var ImageCacheAtlas = []byte{}")
}

func TestEmitDefinitions(t *testing.T) {
	first, err := EmitDefinitions(build(t, false))
	require.NoError(t, err)
	second, err := EmitDefinitions(build(t, true))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	lines := strings.Split(strings.TrimSpace(string(first)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "color.bg"))
	assert.Contains(t, lines[1], "#000000ff")
	assert.True(t, strings.HasPrefix(lines[2], "icon.a"))
	assert.Contains(t, lines[2], "4x4")
	assert.Contains(t, lines[2], "#ff0000ff")
	assert.True(t, strings.HasPrefix(lines[4], "panel"))
}
