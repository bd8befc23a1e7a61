package components

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

func testOptions(t *testing.T) Options {
	return Options{Logger: hclog.New(&hclog.LoggerOptions{
		Name:   t.Name(),
		Level:  hclog.Debug,
		Output: hclog.DefaultOutput,
	})}
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 7, A: uint8(255 - x*y)})
		}
	}
	return img
}

func sampleTable(t *testing.T) *asset.Table {
	t.Helper()
	tbl := asset.NewTable()
	add := func(a asset.Asset, err error) {
		require.NoError(t, err)
		require.NoError(t, tbl.Add(a))
	}
	add(asset.NewBitmap("icon.a", asset.RoleIcon, gradient(4, 4)))
	add(asset.NewBitmap("toolbar/Play Button", asset.RoleOther, gradient(12, 6)))
	add(asset.NewColor("color.bg", color.NRGBA{A: 255}))
	add(asset.NewColor("color.clear", color.NRGBA{R: 1, G: 2, B: 3}))
	return tbl
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := sampleTable(t)

	n, err := Save(tbl, dir, testOptions(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n, "two bitmaps plus the manifest")

	assert.FileExists(t, filepath.Join(dir, "icon.a.png"))
	assert.FileExists(t, filepath.Join(dir, "toolbar%2FPlay%20Button.png"))
	assert.FileExists(t, filepath.Join(dir, ManifestName))

	got, err := Load(dir, testOptions(t))
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got))
}

func TestLoadIgnoresExtraFiles(t *testing.T) {
	dir := t.TempDir()
	tbl := sampleTable(t)
	_, err := Save(tbl, dir, Options{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.png"), []byte("not even a png"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "backup"), 0o755))

	got, err := Load(dir, Options{})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got))
}

func TestLoadMissingAsset(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(sampleTable(t), dir, Options{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "icon.a.png")))

	_, err = Load(dir, Options{})
	require.ErrorIs(t, err, themeerrors.ErrMissingAsset)

	var missing *themeerrors.MissingAssetError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "icon.a", missing.ID)
	assert.NotErrorIs(t, err, themeerrors.ErrOperational)
}

func TestLoadWithoutManifestIsOperational(t *testing.T) {
	_, err := Load(t.TempDir(), Options{})
	require.ErrorIs(t, err, themeerrors.ErrOperational)
}

func TestLoadRejectsBadManifests(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"not toml", "[[bitmap]\nid ="},
		{"bad colour", "[[color]]\nid = \"c\"\nrgba = \"red\"\n"},
		{"bad role", "[[bitmap]]\nid = \"b\"\nfile = \"b.png\"\nrole = \"hero\"\n"},
		{"escaping path", "[[bitmap]]\nid = \"b\"\nfile = \"../b.png\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(tt.manifest), 0o644))
			_, err := Load(dir, Options{})
			require.ErrorIs(t, err, themeerrors.ErrMalformedAsset)
		})
	}
}

func TestSaveRejectsCaseFoldCollisions(t *testing.T) {
	tbl := asset.NewTable()
	for _, id := range []asset.ID{"Icon.Play", "icon.play"} {
		a, err := asset.NewBitmap(id, asset.RoleIcon, gradient(2, 2))
		require.NoError(t, err)
		require.NoError(t, tbl.Add(a))
	}

	dir := t.TempDir()
	_, err := Save(tbl, dir, Options{})
	require.ErrorIs(t, err, themeerrors.ErrMalformedAsset)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written when the plan is rejected")
}

func TestFileNameIsReversible(t *testing.T) {
	for _, id := range []asset.ID{"icon.a", "a b", "x/y\\z", "100%", "ünï", "..", "-_."} {
		name := FileName(id)
		back, ok := IDFromFileName(name)
		require.True(t, ok, name)
		assert.Equal(t, id, back)
	}

	for _, bad := range []string{"x.jpg", ".png", "a%2.png", "a%zz.png", "a b.png", "a%2f.png"} {
		_, ok := IDFromFileName(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseRGBA(t *testing.T) {
	c, err := ParseRGBA("#0a0b0cff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 11, B: 12, A: 255}, c)

	c, err = ParseRGBA("#102030")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 16, G: 32, B: 48, A: 255}, c)

	assert.Equal(t, "#0a0b0cff", FormatRGBA(color.NRGBA{R: 10, G: 11, B: 12, A: 255}))

	_, err = ParseRGBA("#12345")
	require.ErrorIs(t, err, themeerrors.ErrMalformedAsset)
}
