// Package platformtest provides an in-memory Platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"clicker/internal/coords"
	"clicker/internal/platform"
)

// Fake is a scriptable platform.Platform
type Fake struct {
	mu sync.Mutex

	// WindowList is returned by Windows
	WindowList []platform.WindowInfo
	// Classes maps class names to windows for WindowByClass
	Classes map[string]platform.WindowInfo
	// EnumErr fails Windows when set
	EnumErr error
	// HookErr fails InstallHook when set
	HookErr error
	// ClickErr decides the outcome of each click by 1-based call number
	ClickErr func(call int, p coords.Point) error

	Clicks      []coords.Point
	Installed   int
	Uninstalled int
	handler     platform.HookHandler
}

// Windows returns WindowList
func (f *Fake) Windows(ctx context.Context) ([]platform.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnumErr != nil {
		return nil, f.EnumErr
	}
	return append([]platform.WindowInfo(nil), f.WindowList...), nil
}

// WindowByClass looks the class up in Classes
func (f *Fake) WindowByClass(ctx context.Context, class string) (platform.WindowInfo, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.Classes[class]
	return w, ok, nil
}

// InstallHook records the handler
func (f *Fake) InstallHook(h platform.HookHandler) (platform.Hook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HookErr != nil {
		return nil, f.HookErr
	}
	if f.Installed > f.Uninstalled {
		return nil, fmt.Errorf("hook already installed")
	}
	f.Installed++
	f.handler = h
	return hookFunc(func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.Uninstalled++
		f.handler = platform.HookHandler{}
		return nil
	}), nil
}

// Click records the point and applies ClickErr
func (f *Fake) Click(ctx context.Context, p coords.Point) error {
	f.mu.Lock()
	f.Clicks = append(f.Clicks, p)
	call := len(f.Clicks)
	fn := f.ClickErr
	f.mu.Unlock()
	if fn != nil {
		return fn(call, p)
	}
	return nil
}

// Pointer delivers a pointer event to the installed handler
func (f *Fake) Pointer(ev platform.PointerEvent) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h.OnPointer != nil {
		h.OnPointer(ev)
	}
}

// Key delivers a key event to the installed handler
func (f *Fake) Key(ev platform.KeyEvent) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h.OnKey != nil {
		h.OnKey(ev)
	}
}

// ClickCount returns the number of clicks issued
func (f *Fake) ClickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Clicks)
}

type hookFunc func() error

func (h hookFunc) Uninstall() error { return h() }
