//go:build windows

package platform

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"clicker/internal/coords"
)

var (
	procSetCursorPos = user32.NewProc("SetCursorPos")
	procSendInput    = user32.NewProc("SendInput")
)

const (
	INPUT_MOUSE          = 0
	MOUSEEVENTF_LEFTDOWN = 0x0002
	MOUSEEVENTF_LEFTUP   = 0x0004
)

type MOUSEINPUT struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type INPUT struct {
	Type uint32
	Mi   MOUSEINPUT
}

// Click moves the cursor to p and sends a left button down/up pair
func (p *native) Click(ctx context.Context, pt coords.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ret, _, err := procSetCursorPos.Call(uintptr(int32(pt.X)), uintptr(int32(pt.Y)))
	if ret == 0 {
		return fmt.Errorf("SetCursorPos(%d, %d) failed: %v", pt.X, pt.Y, err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := sendMouse(MOUSEEVENTF_LEFTDOWN); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return sendMouse(MOUSEEVENTF_LEFTUP)
}

func sendMouse(flags uint32) error {
	in := INPUT{Type: INPUT_MOUSE, Mi: MOUSEINPUT{DwFlags: flags}}
	ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if ret != 1 {
		return fmt.Errorf("SendInput failed: %v", err)
	}
	return nil
}
