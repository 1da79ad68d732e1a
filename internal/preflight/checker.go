// Package preflight checks the working directory before a build starts, so
// predictable environment problems fail with a clear message instead of a
// half-finished build.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxDiskUsagePct is the disk usage above which builds refuse to start.
// Actions that fill the disk mid-run leave partial outputs everywhere.
const maxDiskUsagePct = 98

// Check verifies that dir is writable and its filesystem is not nearly full.
func Check(dir string) error {
	if err := checkWritable(dir); err != nil {
		return err
	}
	return checkDiskSpace(dir)
}

// checkWritable probes dir with a throwaway file.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".weft-preflight-*")
	if err != nil {
		return fmt.Errorf("working directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
