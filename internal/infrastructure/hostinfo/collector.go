// Package hostinfo inspects the local host for diagnostics: the execution
// shell and the operator tools found on PATH.
package hostinfo

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"sort"

	"github.com/doeshing/shellgate/internal/domain"
)

var defaultTools = []string{"ssh", "ssh-agent", "systemctl", "journalctl", "docker", "git", "sudo", "df", "ps"}

// Collector detects the shell and tools available to local execution.
type Collector struct {
	shell        string
	toolsToCheck []string
	lookPath     func(string) (string, error)
}

// NewCollector checks for shell plus the default tool list.
func NewCollector(shell string) *Collector {
	if shell == "" {
		shell = domain.DefaultShell
	}
	return &Collector{
		shell:        shell,
		toolsToCheck: defaultTools,
		lookPath:     exec.LookPath,
	}
}

// Collect never fails; missing facts are left empty.
func (c *Collector) Collect(ctx context.Context) domain.HostInfo {
	wd, _ := os.Getwd()
	info := domain.HostInfo{
		OS:         runtime.GOOS,
		User:       currentUser(),
		WorkingDir: wd,
	}
	if path, err := c.lookPath(c.shell); err == nil {
		info.ShellPath = path
	}
	info.Tools = c.detectTools(ctx)
	return info
}

func (c *Collector) detectTools(ctx context.Context) []string {
	var available []string
	for _, tool := range c.toolsToCheck {
		if ctx.Err() != nil {
			break
		}
		if _, err := c.lookPath(tool); err == nil {
			available = append(available, tool)
		}
	}
	sort.Strings(available)
	return available
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return os.Getenv("USERNAME")
}
