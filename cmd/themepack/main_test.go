package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

const square = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 8 8">
  <rect width="8" height="8" fill="#336699"/>
</svg>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("THEMEPACK_THEME_DIR", dir)
	t.Setenv("THEMEPACK_CONFIG", "")
	os.Unsetenv("THEMEPACK_CONFIG")

	svg := filepath.Join(dir, "icon.square.svg")
	require.NoError(t, os.WriteFile(svg, []byte(square), 0o644))

	out, err := run(t, "import-svg", svg)
	require.NoError(t, err)
	assert.Contains(t, out, "as icon.square")

	_, err = run(t, "save-cache", "--image-map")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "ImageCacheV1.png"))
	assert.FileExists(t, filepath.Join(dir, "ImageCacheV1.htm"))

	out, err = run(t, "load-cache")
	require.NoError(t, err)
	assert.Contains(t, out, "icon.square")

	_, err = run(t, "emit-source")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "themedata.go"))
	assert.FileExists(t, filepath.Join(dir, "ThemeImageDefs.txt"))

	pkgPath := filepath.Join(dir, "dark.themepkg")
	_, err = run(t, "pack", "--name", "dark", "--operations", "bzip2|zstd")
	require.NoError(t, err)

	out, err = run(t, "verify", pkgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:  compatible")
	assert.Contains(t, out, "Assets:  1")

	_, err = run(t, "verify", "--running", "2", pkgPath)
	require.ErrorIs(t, err, themeerrors.ErrIncompatible)
	assert.Equal(t, exitIncompatible, exitCode(err))
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{usageError{errors.New("bad flag")}, exitInvalidArgument},
		{fmt.Errorf("%w: big", themeerrors.ErrResourceExhausted), exitMemory},
		{fmt.Errorf("%w: bits", themeerrors.ErrCorruptPayload), exitCorrupt},
		{themeerrors.Invalid("read header", "x", nil), exitInvalidArchive},
		{themeerrors.Operational("open", "x", os.ErrNotExist), exitOperational},
		{errors.New("other"), exitOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}

	_, err := run(t, "pack", "--no-such-flag")
	assert.Equal(t, exitInvalidArgument, exitCode(err))
}
