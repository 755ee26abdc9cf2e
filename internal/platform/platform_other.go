//go:build !windows

package platform

import (
	"context"
	"fmt"

	"github.com/go-vgo/robotgo"

	"clicker/internal/coords"
)

// native drives macOS and X11 desktops through robotgo
type native struct{}

// New returns the platform integration for this OS
func New() Platform {
	return &native{}
}

// Windows lists the main window of every process that owns one
func (p *native) Windows(ctx context.Context) ([]WindowInfo, error) {
	procs, err := robotgo.Process()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var out []WindowInfo
	for _, proc := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x, y, w, h := robotgo.GetBounds(proc.Pid)
		if w <= 0 || h <= 0 {
			continue
		}
		out = append(out, WindowInfo{
			PID:     proc.Pid,
			Process: ProcessName(proc.Name),
			Title:   robotgo.GetTitle(proc.Pid),
			Visible: true,
			X:       x,
			Y:       y,
			Width:   w,
			Height:  h,
		})
	}
	return out, nil
}

// WindowByClass has no equivalent outside Win32
func (p *native) WindowByClass(ctx context.Context, class string) (WindowInfo, bool, error) {
	return WindowInfo{}, false, nil
}

// InstallHook is not supported here
func (p *native) InstallHook(h HookHandler) (Hook, error) {
	return nil, fmt.Errorf("global input hooks: %w", ErrUnsupported)
}

// Click moves the pointer to p and clicks the left button
func (p *native) Click(ctx context.Context, pt coords.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.Move(pt.X, pt.Y)
	robotgo.MilliSleep(50)
	robotgo.Click("left", false)
	return nil
}
