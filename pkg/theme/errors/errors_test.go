package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingAssetError(t *testing.T) {
	err := fmt.Errorf("loading: %w", &MissingAssetError{ID: "icon.a", Path: "/t/icon.a.png"})

	require.ErrorIs(t, err, ErrMissingAsset)
	assert.NotErrorIs(t, err, ErrOperational)

	var missing *MissingAssetError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "icon.a", missing.ID)
	assert.Contains(t, err.Error(), "/t/icon.a.png")

	assert.NotContains(t, (&MissingAssetError{ID: "x"}).Error(), "expected at")
}

func TestArchiveError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ArchiveError
		matches  error
		excludes error
		typ      ArchiveErrorType
	}{
		{"invalid", Invalid("read header", "a.themepkg", errors.New("bad magic")), ErrInvalidArchive, ErrOperational, InvalidArchive},
		{"operational", Operational("open", "a.themepkg", fs.ErrNotExist), ErrOperational, ErrInvalidArchive, OperationalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("theme: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.matches)
			assert.NotErrorIs(t, wrapped, tt.excludes)
			assert.True(t, IsArchiveError(wrapped, tt.typ))
			assert.Contains(t, tt.err.Error(), tt.typ.String())
			assert.Contains(t, tt.err.Error(), "a.themepkg")
		})
	}

	// the cause stays reachable
	assert.ErrorIs(t, Operational("open", "p", fs.ErrNotExist), fs.ErrNotExist)
	assert.False(t, IsArchiveError(errors.New("plain"), InvalidArchive))
}

func TestArchiveErrorMessageNamesPathOnce(t *testing.T) {
	_, statErr := fs.Stat(fstest.MapFS{}, "theme.themepkg")
	require.Error(t, statErr)

	msg := Operational("open", "theme.themepkg", statErr).Error()
	assert.Equal(t, 1, strings.Count(msg, "theme.themepkg"), msg)

	msg = Invalid("read header", "theme.themepkg", errors.New("bad magic")).Error()
	assert.Equal(t, "invalid archive: read header theme.themepkg: bad magic", msg)
}
