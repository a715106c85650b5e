//go:build windows

package executor

import "os/exec"

// configureProcess is a no-op on Windows; exec.CommandContext kills the shell process.
func configureProcess(cmd *exec.Cmd) {}
