// Package platform is the OS integration surface: window enumeration,
// global input hooks and synthetic clicks.
package platform

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"clicker/internal/coords"
)

// ErrUnsupported is returned when the running OS lacks a facility
var ErrUnsupported = errors.New("not supported on this platform")

// WindowInfo describes one top-level window
type WindowInfo struct {
	Handle    uintptr
	PID       int
	Process   string
	Title     string
	Class     string
	Visible   bool
	Minimized bool
	X, Y      int
	Width     int
	Height    int
}

// Geometry converts the window bounds to a mapper geometry.
func (w WindowInfo) Geometry() coords.WindowGeometry {
	return coords.WindowGeometry{
		Origin:       coords.Point{X: w.X, Y: w.Y},
		Width:        w.Width,
		Height:       w.Height,
		ProcessLabel: w.Process,
		Title:        w.Title,
	}
}

// PointerEvent is a pointer-button-down observed by the global hook
type PointerEvent struct {
	X, Y    int
	Ticks   int64
	Process string
	Title   string
}

// KeyEvent is a key transition observed by the global hook
type KeyEvent struct {
	Key     string
	Pressed bool
}

// HookHandler receives hook events. Callbacks run off the hook thread.
type HookHandler struct {
	OnPointer func(PointerEvent)
	OnKey     func(KeyEvent)
}

// Hook is an installed global hook
type Hook interface {
	Uninstall() error
}

// Platform is implemented natively per operating system
type Platform interface {
	// Windows lists top-level windows
	Windows(ctx context.Context) ([]WindowInfo, error)

	// WindowByClass looks up a window by its platform class name
	WindowByClass(ctx context.Context, class string) (WindowInfo, bool, error)

	// InstallHook installs global pointer and keyboard hooks
	InstallHook(h HookHandler) (Hook, error)

	// Click issues a synthetic left click at an absolute screen point
	Click(ctx context.Context, p coords.Point) error
}

// ProcessName normalises an executable path or name to a lower-case base
// name without extension, e.g. `C:\Program Files\Mozilla Firefox\firefox.exe` -> "firefox".
func ProcessName(path string) string {
	if path == "" {
		return ""
	}
	path = strings.ReplaceAll(path, `\`, "/")
	base := strings.ToLower(filepath.Base(path))
	return strings.TrimSuffix(base, ".exe")
}

// MatchesTarget reports whether a window owned by process with the given
// title belongs to the target described by the hints.
func MatchesTarget(process, title string, processHints, titleHints []string) bool {
	name := ProcessName(process)
	for _, hint := range processHints {
		if name != "" && name == ProcessName(hint) {
			return true
		}
	}
	lower := strings.ToLower(title)
	for _, hint := range titleHints {
		if hint != "" && strings.Contains(lower, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}
