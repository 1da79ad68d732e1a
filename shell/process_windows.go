//go:build windows

package shell

import (
	"os/exec"
)

// setupProcessGroup is a no-op on Windows (process groups work differently).
// Cancellation falls back to Go's os.Process.Kill through the command's
// context, bounded by WaitDelay.
func setupProcessGroup(cmd *exec.Cmd) {
}
