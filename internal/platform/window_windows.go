//go:build windows

package platform

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procIsIconic                 = user32.NewProc("IsIconic")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procFindWindowW              = user32.NewProc("FindWindowW")
	procWindowFromPoint          = user32.NewProc("WindowFromPoint")
	procGetAncestor              = user32.NewProc("GetAncestor")
	kernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle          = kernel32.NewProc("GetModuleHandleW")
)

const gaRoot = 2

type rect struct {
	Left, Top, Right, Bottom int32
}

// native is the Win32 implementation
type native struct{}

// New returns the platform integration for this OS
func New() Platform {
	return &native{}
}

var (
	enumMu    sync.Mutex
	enumFound []uintptr

	// EnumWindows runs the callback synchronously on the calling thread
	enumCallback = syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		enumFound = append(enumFound, hwnd)
		return 1
	})
)

// Windows lists all top-level windows
func (p *native) Windows(ctx context.Context) ([]WindowInfo, error) {
	enumMu.Lock()
	enumFound = enumFound[:0]
	ret, _, err := procEnumWindows.Call(enumCallback, 0)
	handles := append([]uintptr(nil), enumFound...)
	enumMu.Unlock()

	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows failed: %v", err)
	}

	out := make([]WindowInfo, 0, len(handles))
	for _, hwnd := range handles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, describeWindow(hwnd))
	}
	return out, nil
}

// WindowByClass finds a top-level window by class name
func (p *native) WindowByClass(ctx context.Context, class string) (WindowInfo, bool, error) {
	name, err := windows.UTF16PtrFromString(class)
	if err != nil {
		return WindowInfo{}, false, err
	}
	hwnd, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(name)), 0)
	if hwnd == 0 {
		return WindowInfo{}, false, nil
	}
	return describeWindow(hwnd), true, nil
}

func describeWindow(hwnd uintptr) WindowInfo {
	info := WindowInfo{Handle: hwnd}

	visible, _, _ := procIsWindowVisible.Call(hwnd)
	info.Visible = visible != 0
	iconic, _, _ := procIsIconic.Call(hwnd)
	info.Minimized = iconic != 0

	var r rect
	if ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r))); ret != 0 {
		info.X, info.Y = int(r.Left), int(r.Top)
		info.Width, info.Height = int(r.Right-r.Left), int(r.Bottom-r.Top)
	}

	info.Title = windowString(procGetWindowTextW, hwnd)
	info.Class = windowString(procGetClassNameW, hwnd)

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	info.PID = int(pid)
	info.Process = processImageName(pid)

	return info
}

func windowString(proc *windows.LazyProc, hwnd uintptr) string {
	buf := make([]uint16, 512)
	n, _, _ := proc.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if int(n) > len(buf) {
		n = uintptr(len(buf))
	}
	return windows.UTF16ToString(buf[:n])
}

func processImageName(pid uint32) string {
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return ProcessName(windows.UTF16ToString(buf[:size]))
}

// windowAt returns the top-level window under an absolute screen point
func windowAt(x, y int32) WindowInfo {
	// POINT is passed by value, packed into one register on amd64/arm64
	packed := uintptr(uint32(x)) | uintptr(uint32(y))<<32
	hwnd, _, _ := procWindowFromPoint.Call(packed)
	if hwnd == 0 {
		return WindowInfo{}
	}
	if root, _, _ := procGetAncestor.Call(hwnd, gaRoot); root != 0 {
		hwnd = root
	}
	return describeWindow(hwnd)
}
