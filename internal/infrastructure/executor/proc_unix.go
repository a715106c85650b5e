//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcess starts the shell in its own process group so a timeout
// kills every child it spawned, not just the shell.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
