//go:build !windows
// +build !windows

package atomicfile

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// replace renames src over dst. os.Rename is atomic on Unix.
func replace(src, dst string, logger hclog.Logger) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	logger.Debug("✅ Published file", "path", dst)
	return nil
}
