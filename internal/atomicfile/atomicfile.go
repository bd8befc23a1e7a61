// Package atomicfile publishes files so that a reader sees either the old
// content or the new content, never a partial write.
package atomicfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
)

// WriteFile writes data to path via a temp file in the same directory.
func WriteFile(path string, data []byte, perm os.FileMode, logger hclog.Logger) error {
	return Write(path, perm, logger, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Write streams fill into a temp file next to path, syncs it and renames it
// over path. On any error the temp file is removed and path is untouched.
func Write(path string, perm os.FileMode, logger hclog.Logger, fill func(io.Writer) error) (err error) {
	logger = logging.OrNull(logger)

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return replace(tmpPath, path, logger)
}
