// Package diag checks whether this machine can run capture and replay.
// Every check is advisory; a failing check never blocks other commands.
package diag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/kbinani/screenshot"

	"clicker/internal/coords"
	"clicker/internal/driver"
	"clicker/internal/fault"
	"clicker/internal/osutils"
	"clicker/internal/platform"
)

// ProbeTimeout bounds every individual check
const ProbeTimeout = 10 * time.Second

// Check is the outcome of one probe
type Check struct {
	Name        string
	Pass        bool
	Detail      string
	Remediation string
	// Critical failures make the doctor command exit non-zero
	Critical bool
}

// Probes are the facilities under test. Nil probes are skipped.
type Probes struct {
	Shell     func(ctx context.Context) error
	Policy    func(ctx context.Context) (string, error)
	IsAdmin   func() bool
	Hooks     HookInstaller
	Locate    func(ctx context.Context) (coords.WindowGeometry, error)
	Handshake func(ctx context.Context) (driver.Version, error)
	Store     func() error
	Displays  func() int

	// Timeout overrides ProbeTimeout
	Timeout time.Duration
}

// HookInstaller is the part of the platform the hook check needs
type HookInstaller interface {
	InstallHook(h platform.HookHandler) (platform.Hook, error)
}

// DefaultProbes wires the real OS facilities
func DefaultProbes(hooks HookInstaller, locate func(ctx context.Context) (coords.WindowGeometry, error), endpoint string, store func() error) Probes {
	return Probes{
		Shell:   osutils.ShellWorks,
		Policy:  osutils.ExecutionPolicy,
		IsAdmin: osutils.IsAdmin,
		Hooks:   hooks,
		Locate:  locate,
		Handshake: func(ctx context.Context) (driver.Version, error) {
			return driver.FetchVersion(ctx, endpoint)
		},
		Store:    store,
		Displays: screenshot.NumActiveDisplays,
	}
}

// Run executes every configured probe in order
func Run(ctx context.Context, p Probes) []Check {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = ProbeTimeout
	}

	var checks []Check
	add := func(name string, critical bool, fn func(ctx context.Context) Check) {
		c := bounded(ctx, timeout, name, fn)
		c.Name = name
		c.Critical = critical
		if c.Pass {
			log.Printf("Diagnostics: %s ok", name)
		} else {
			log.Printf("Diagnostics: %s failed: %s", name, c.Detail)
		}
		checks = append(checks, c)
	}

	if p.Shell != nil {
		add("Shell execution", true, func(ctx context.Context) Check {
			if err := p.Shell(ctx); err != nil {
				return Check{Detail: err.Error(), Remediation: "Check that the system shell is on PATH and not blocked by policy"}
			}
			return Check{Pass: true, Detail: "commands run"}
		})
	}

	if p.Policy != nil {
		add(policyName(), false, func(ctx context.Context) Check {
			return checkPolicy(ctx, p.Policy, p.IsAdmin)
		})
	}

	if p.Hooks != nil {
		add("Global input hook", true, func(ctx context.Context) Check {
			return checkHook(p.Hooks)
		})
	}

	if p.Locate != nil {
		add("Target window", false, func(ctx context.Context) Check {
			g, err := p.Locate(ctx)
			if err != nil {
				return Check{Detail: err.Error(), Remediation: orDefault(fault.Remediation(err), "Open the target application and make sure its window is visible")}
			}
			return Check{Pass: true, Detail: g.String()}
		})
	}

	if p.Handshake != nil {
		add("Automation driver", false, func(ctx context.Context) Check {
			v, err := p.Handshake(ctx)
			if err != nil {
				return Check{Detail: err.Error(), Remediation: fault.Remediation(err)}
			}
			return Check{Pass: true, Detail: fmt.Sprintf("%s (protocol %s)", v.Browser, v.ProtocolVersion)}
		})
	}

	if p.Store != nil {
		add("Coordinate store", true, func(ctx context.Context) Check {
			if err := p.Store(); err != nil {
				return Check{Detail: err.Error(), Remediation: "Check that the database directory is writable, or set CLICKER_DB"}
			}
			return Check{Pass: true, Detail: "database reachable"}
		})
	}

	if p.Displays != nil {
		add("Screen capture", false, func(ctx context.Context) Check {
			n := p.Displays()
			if n <= 0 {
				return Check{Detail: "no active displays", Remediation: "Screen capture needs an attached display session"}
			}
			return Check{Pass: true, Detail: fmt.Sprintf("%d active display(s)", n)}
		})
	}

	return checks
}

// Critical reports whether any critical check failed
func Critical(checks []Check) bool {
	for _, c := range checks {
		if c.Critical && !c.Pass {
			return true
		}
	}
	return false
}

func policyName() string {
	if runtime.GOOS == "windows" {
		return "Execution policy"
	}
	return "Elevation"
}

func checkPolicy(ctx context.Context, policy func(ctx context.Context) (string, error), isAdmin func() bool) Check {
	value, err := policy(ctx)
	if errors.Is(err, osutils.ErrNotApplicable) {
		if isAdmin != nil && isAdmin() {
			return Check{Pass: true, Detail: "running with elevated privileges"}
		}
		return Check{Detail: "running unprivileged", Remediation: "Global hooks may need elevated privileges or an accessibility grant; rerun with sudo if capture fails"}
	}
	if err != nil {
		return Check{Detail: err.Error(), Remediation: "Make sure PowerShell is installed and on PATH"}
	}
	if !osutils.IsPermissivePolicy(value) {
		return Check{Detail: "policy is " + value, Remediation: "Run: Set-ExecutionPolicy -Scope CurrentUser RemoteSigned"}
	}
	return Check{Pass: true, Detail: "policy is " + value}
}

func checkHook(hooks HookInstaller) Check {
	h, err := hooks.InstallHook(platform.HookHandler{
		OnPointer: func(platform.PointerEvent) {},
		OnKey:     func(platform.KeyEvent) {},
	})
	if err != nil {
		remediation := "Run as administrator, or record in manual-entry mode"
		if errors.Is(err, platform.ErrUnsupported) {
			remediation = "Global hooks are unavailable on this platform; use manual-entry mode"
		}
		return Check{Detail: err.Error(), Remediation: remediation}
	}
	if err := h.Uninstall(); err != nil {
		return Check{Detail: "hook installed but could not be removed: " + err.Error(), Remediation: "Restart the session before recording"}
	}
	return Check{Pass: true, Detail: "install and uninstall succeeded"}
}

// bounded runs fn and gives up after timeout
func bounded(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) Check) Check {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Check, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case c := <-done:
		return c
	case <-ctx.Done():
		return Check{
			Detail:      fmt.Sprintf("%s did not answer within %v", name, timeout),
			Remediation: "Retry; if it keeps timing out the facility is likely blocked",
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
