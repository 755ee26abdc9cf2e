//go:build !windows

package osutils

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// ExecutionPolicy has no equivalent outside Windows
func ExecutionPolicy(ctx context.Context) (string, error) {
	return "", ErrNotApplicable
}

// RelaunchElevated is only supported on Windows
func RelaunchElevated(args []string) error {
	return fmt.Errorf("elevated relaunch not supported on %s; rerun with sudo", runtime.GOOS)
}

func shellCommand(line string) (string, []string) {
	return "sh", []string{"-c", line}
}

func hideWindow(cmd *exec.Cmd) {}
