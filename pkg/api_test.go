package pkg

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/archive"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/compat"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

func testLogger(t *testing.T) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   t.Name(),
		Level:  hclog.Debug,
		Output: hclog.DefaultOutput,
	})
}

func sampleTable(t *testing.T) *asset.Table {
	t.Helper()
	tbl := asset.NewTable()
	icon, err := asset.NewBitmap("icon.a", asset.RoleIcon, image.NewNRGBA(image.Rect(0, 0, 3, 3)))
	require.NoError(t, err)
	bg, err := asset.NewColor("color.bg", color.NRGBA{A: 255})
	require.NoError(t, err)
	require.NoError(t, tbl.Add(icon))
	require.NoError(t, tbl.Add(bg))
	return tbl
}

func writePackage(t *testing.T) (string, *asset.Table) {
	t.Helper()
	tbl := sampleTable(t)
	path := filepath.Join(t.TempDir(), "theme.themepkg")
	require.NoError(t, archive.Write(tbl, archive.Metadata{Theme: archive.ThemeInfo{Name: "test"}}, path))
	return path, tbl
}

func TestLoadPackage(t *testing.T) {
	path, tbl := writePackage(t)

	got, outcome, err := LoadPackage(path, archive.FormatVersion, nil, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, compat.Compatible, outcome.Status)
	assert.True(t, tbl.Equal(got))

	got, outcome, err = LoadPackage(path, archive.FormatVersion+1, nil, testLogger(t))
	require.ErrorIs(t, err, themeerrors.ErrIncompatible)
	assert.Nil(t, got)
	assert.Equal(t, compat.Incompatible, outcome.Status)
}

func TestLoadOrFallback(t *testing.T) {
	path, tbl := writePackage(t)
	defaults := asset.NewTable()
	fallback := func() (*asset.Table, error) { return defaults, nil }

	res, err := LoadOrFallback(path, archive.FormatVersion, nil, fallback, testLogger(t))
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.True(t, tbl.Equal(res.Table))

	res, err = LoadOrFallback(filepath.Join(t.TempDir(), "absent"), archive.FormatVersion, nil, fallback, testLogger(t))
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Same(t, defaults, res.Table)
	require.ErrorIs(t, res.Cause, themeerrors.ErrOperational)

	_, err = LoadOrFallback(filepath.Join(t.TempDir(), "absent"), archive.FormatVersion, nil, nil, testLogger(t))
	require.ErrorIs(t, err, themeerrors.ErrOperational)

	broken := func() (*asset.Table, error) { return nil, errors.New("no defaults compiled in") }
	_, err = LoadOrFallback(filepath.Join(t.TempDir(), "absent"), archive.FormatVersion, nil, broken, testLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, themeerrors.ErrOperational)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{nil, CategoryNone},
		{fmt.Errorf("%w: x", themeerrors.ErrInvalidArgument), CategoryInvalidArgument},
		{fmt.Errorf("%w: x", themeerrors.ErrResourceExhausted), CategoryMemory},
		{compat.Decide(1, 1, 2).Err(), CategoryIncompatible},
		{fmt.Errorf("%w: x", themeerrors.ErrCorruptPayload), CategoryCorrupt},
		{&themeerrors.MissingAssetError{ID: "a"}, CategoryCorrupt},
		{themeerrors.Invalid("read header", "p", errors.New("x")), CategoryInvalidArchive},
		{themeerrors.Operational("open", "p", os.ErrNotExist), CategoryOperational},
		{errors.New("something else"), CategoryOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "ok", Describe(nil))
}

func TestVerifyPackage(t *testing.T) {
	path, _ := writePackage(t)

	report, err := VerifyPackageWithLogger(path, archive.FormatVersion, nil, testLogger(t))
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Assets)
	require.NotNil(t, report.Metadata)
	assert.Equal(t, "test", report.Metadata.Theme.Name)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	report, err = VerifyPackageWithLogger(path, archive.FormatVersion, nil, testLogger(t))
	require.ErrorIs(t, err, themeerrors.ErrCorruptPayload)
	assert.False(t, report.OK())
	assert.Len(t, report.Errors, 1)
}
