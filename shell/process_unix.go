//go:build unix

package shell

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup configures the command to run in its own process group.
// With Setpgid: true, the child's PGID equals its PID, allowing us to kill
// the entire process tree with syscall.Kill(-pid, signal). On cancellation
// the group first gets SIGTERM; WaitDelay forces a kill if the script
// ignores it.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process.Pid, syscall.SIGTERM)
	}
}

// killProcessGroup sends a signal to an entire process group.
func killProcessGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}
