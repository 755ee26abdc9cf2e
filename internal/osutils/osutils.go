// Package osutils probes the operating system facilities the engine relies on.
package osutils

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotApplicable is returned by probes that have no meaning on this OS
var ErrNotApplicable = errors.New("not applicable on this platform")

// PermissivePolicies are execution policies that allow local scripts
var PermissivePolicies = []string{"RemoteSigned", "Unrestricted", "Bypass"}

// IsPermissivePolicy reports whether policy lets local scripts run
func IsPermissivePolicy(policy string) bool {
	for _, p := range PermissivePolicies {
		if strings.EqualFold(strings.TrimSpace(policy), p) {
			return true
		}
	}
	return false
}

// runShell runs a command and returns its trimmed combined output
func runShell(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() != nil {
			return text, fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return text, fmt.Errorf("%s failed: %w (output: %s)", name, err, text)
	}
	return text, nil
}

// ShellWorks runs a trivial command through the system shell
func ShellWorks(ctx context.Context) error {
	name, args := shellCommand("echo clicker-ok")
	out, err := runShell(ctx, name, args...)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "clicker-ok") {
		return fmt.Errorf("unexpected shell output %q", out)
	}
	return nil
}
