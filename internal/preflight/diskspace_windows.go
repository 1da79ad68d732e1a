//go:build windows

package preflight

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// checkDiskSpace validates that dir's filesystem has room left. Returns an
// error if disk usage exceeds maxDiskUsagePct.
func checkDiskSpace(dir string) error {
	dir = absDir(dir)

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	dirPtr, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return nil // Can't check, allow operation
	}

	if err := windows.GetDiskFreeSpaceEx(dirPtr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return fmt.Errorf("checking disk space in %s: %w", dir, err)
	}

	if totalBytes == 0 {
		return nil // Can't calculate, allow operation
	}

	usedPct := float64(totalBytes-freeBytesAvailable) / float64(totalBytes) * 100

	if usedPct > maxDiskUsagePct {
		return fmt.Errorf("insufficient disk space in %s: %.1f%% used (max %d%%)",
			dir, usedPct, maxDiskUsagePct)
	}

	return nil
}
