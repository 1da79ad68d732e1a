//go:build unix

package preflight

import (
	"fmt"
	"syscall"
)

// checkDiskSpace validates that dir's filesystem has room left. Returns an
// error if disk usage exceeds maxDiskUsagePct.
func checkDiskSpace(dir string) error {
	dir = absDir(dir)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("checking disk space in %s: %w", dir, err)
	}

	// Use Bavail (available to non-root) for more accurate free space
	totalBlocks := stat.Blocks
	availBlocks := stat.Bavail
	if totalBlocks == 0 {
		return nil // Can't calculate, allow operation
	}

	usedPct := float64(totalBlocks-availBlocks) / float64(totalBlocks) * 100

	if usedPct > maxDiskUsagePct {
		return fmt.Errorf("insufficient disk space in %s: %.1f%% used (max %d%%)",
			dir, usedPct, maxDiskUsagePct)
	}

	return nil
}
