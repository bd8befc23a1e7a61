//go:build windows
// +build windows

package atomicfile

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sys/windows"
)

// replace moves src over dst with MoveFileEx, retrying a few times because
// virus scanners and indexers briefly hold new files open.
func replace(src, dst string, logger hclog.Logger) error {
	fromPtr, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return fmt.Errorf("failed to convert source path to UTF-16: %w", err)
	}
	toPtr, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return fmt.Errorf("failed to convert dest path to UTF-16: %w", err)
	}

	var flags uint32 = windows.MOVEFILE_REPLACE_EXISTING | windows.MOVEFILE_WRITE_THROUGH

	const maxAttempts = 3
	delay := 50 * time.Millisecond

	for attempt := 1; ; attempt++ {
		err = windows.MoveFileEx(fromPtr, toPtr, flags)
		if err == nil {
			logger.Debug("✅ Published file", "path", dst, "attempt", attempt)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("failed after %d attempts (Windows file lock): %w", maxAttempts, err)
		}

		logger.Debug("Retrying file replacement",
			"attempt", attempt,
			"next_delay_ms", delay.Milliseconds(),
			"error", err)

		time.Sleep(delay)
		delay *= 2
	}
}
