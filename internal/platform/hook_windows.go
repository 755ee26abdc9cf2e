//go:build windows

package platform

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPeekMessage         = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_QUIT        = 0x0012
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	WM_LBUTTONDOWN = 0x0201
	PM_NOREMOVE    = 0x0000
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSLLHOOKSTRUCT struct {
	Point       struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSG struct {
	Hwnd    syscall.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// rawEvent keeps pointer and key events on one queue so their order survives
type rawEvent struct {
	pointer bool
	x, y    int32
	ticks   int64
	key     KeyEvent
}

// winHook owns the low-level hooks and the thread running their message loop
type winHook struct {
	handler  HookHandler
	threadID uint32
	events   chan rawEvent
	done     chan struct{}
	stop     chan struct{}
	once     sync.Once
}

var (
	activeHook atomic.Pointer[winHook]

	// callbacks are created once; Windows callback slots are never released
	mouseCallback    = syscall.NewCallback(mouseHookProc)
	keyboardCallback = syscall.NewCallback(keyboardHookProc)
)

// InstallHook installs WH_MOUSE_LL and WH_KEYBOARD_LL on a dedicated locked thread
func (p *native) InstallHook(h HookHandler) (Hook, error) {
	wh := &winHook{
		handler: h,
		events:  make(chan rawEvent, 1000),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	if !activeHook.CompareAndSwap(nil, wh) {
		return nil, fmt.Errorf("hook already installed in this process")
	}

	installed := make(chan error, 1)
	go wh.hookThread(installed)
	if err := <-installed; err != nil {
		activeHook.CompareAndSwap(wh, nil)
		return nil, err
	}

	go wh.dispatch()
	return wh, nil
}

// Hooks must be registered in the same thread that runs the message loop
func (wh *winHook) hookThread(installed chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(wh.done)

	wh.threadID = windows.GetCurrentThreadId()
	hMod, _, _ := procGetModuleHandle.Call(0)

	mouseHook, _, err := procSetWindowsHookEx.Call(WH_MOUSE_LL, mouseCallback, hMod, 0)
	if mouseHook == 0 {
		installed <- fmt.Errorf("failed to set mouse hook: %v", err)
		return
	}
	keyHook, _, err := procSetWindowsHookEx.Call(WH_KEYBOARD_LL, keyboardCallback, hMod, 0)
	if keyHook == 0 {
		procUnhookWindowsHookEx.Call(mouseHook)
		installed <- fmt.Errorf("failed to set keyboard hook: %v", err)
		return
	}

	// Force creation of the thread message queue so WM_QUIT can be posted
	var msg MSG
	procPeekMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0, PM_NOREMOVE)

	log.Println("Platform: Windows global hooks installed")
	installed <- nil

	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
	}

	procUnhookWindowsHookEx.Call(keyHook)
	procUnhookWindowsHookEx.Call(mouseHook)
	log.Println("Platform: Windows global hooks removed")
}

// dispatch resolves the window under each click off the hook thread
func (wh *winHook) dispatch() {
	for {
		select {
		case ev := <-wh.events:
			if ev.pointer {
				if wh.handler.OnPointer == nil {
					continue
				}
				win := windowAt(ev.x, ev.y)
				wh.handler.OnPointer(PointerEvent{
					X:       int(ev.x),
					Y:       int(ev.y),
					Ticks:   ev.ticks,
					Process: win.Process,
					Title:   win.Title,
				})
			} else if wh.handler.OnKey != nil {
				wh.handler.OnKey(ev.key)
			}
		case <-wh.stop:
			return
		}
	}
}

func (wh *winHook) post(ev rawEvent) {
	select {
	case wh.events <- ev:
	default:
		// Channel full, drop event
	}
}

// Uninstall stops the message loop, which removes both hooks
func (wh *winHook) Uninstall() error {
	var err error
	wh.once.Do(func() {
		defer activeHook.CompareAndSwap(wh, nil)
		defer close(wh.stop)

		ret, _, e := procPostThreadMessage.Call(uintptr(wh.threadID), WM_QUIT, 0, 0)
		if ret == 0 {
			err = fmt.Errorf("failed to stop hook thread: %v", e)
			return
		}
		select {
		case <-wh.done:
		case <-time.After(time.Second):
			err = fmt.Errorf("hook thread did not exit within 1s")
		}
	})
	return err
}

func mouseHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 && wParam == WM_LBUTTONDOWN {
		if wh := activeHook.Load(); wh != nil {
			ms := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
			wh.post(rawEvent{pointer: true, x: ms.Point.X, y: ms.Point.Y, ticks: int64(ms.Time)})
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 {
		if wh := activeHook.Load(); wh != nil {
			kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
			if name := vkCodeToName(kbd.VkCode); name != "" {
				pressed := wParam == WM_KEYDOWN || wParam == WM_SYSKEYDOWN
				wh.post(rawEvent{key: KeyEvent{Key: name, Pressed: pressed}})
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func vkCodeToName(vk uint32) string {
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x09:
		return "TAB"
	case 0x08:
		return "BACKSPACE"
	}

	// Letters A-Z and digits 0-9
	if (vk >= 0x41 && vk <= 0x5A) || (vk >= 0x30 && vk <= 0x39) {
		return string(rune(vk))
	}

	// F1-F12
	if vk >= 0x70 && vk <= 0x7B {
		return fmt.Sprintf("F%d", vk-0x6F)
	}

	return ""
}
