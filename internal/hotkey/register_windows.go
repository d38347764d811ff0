//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

func init() {
	registerHotkey = registerHotkeyWindows
}

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadId = kernel32.NewProc("GetCurrentThreadId")
)

const (
	wmHotkey = 0x0312
	wmQuit   = 0x0012
	hotkeyID = 1
)

type point struct{ X, Y int32 }

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

// registerHotkeyWindows registers binding as a process-global hotkey and
// runs a dedicated message-loop goroutine: RegisterHotKey delivers
// WM_HOTKEY to whichever thread registered it, so that thread must pump
// a message loop for the lifetime of the registration (hence
// runtime.LockOSThread — a goroutine that migrated OS threads mid-loop
// would stop receiving the messages it registered for).
func registerHotkeyWindows(binding string) (<-chan struct{}, func(), error) {
	mods, vk, err := parseBinding(binding)
	if err != nil {
		return nil, nil, err
	}

	presses := make(chan struct{})
	ready := make(chan error, 1)
	quit := make(chan struct{})
	done := make(chan struct{})
	threadID := make(chan uint32, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		tid, _, _ := procGetCurrentThreadId.Call()
		threadID <- uint32(tid)

		ret, _, _ := procRegisterHotKey.Call(0, hotkeyID, uintptr(mods), uintptr(vk))
		if ret == 0 {
			ready <- fmt.Errorf("hotkey: RegisterHotKey(%s) failed", binding)
			return
		}
		defer procUnregisterHotKey.Call(0, hotkeyID)
		ready <- nil

		for {
			var m msg
			r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(r) <= 0 {
				return
			}
			if m.Message == wmQuit {
				return
			}
			if m.Message == wmHotkey && m.WParam == hotkeyID {
				select {
				case presses <- struct{}{}:
				case <-quit:
					return
				}
			}
		}
	}()

	if err := <-ready; err != nil {
		return nil, nil, err
	}
	tid := <-threadID

	teardown := func() {
		close(quit)
		procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
		<-done
	}
	return presses, teardown, nil
}
