//go:build windows

package winprobe

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

func init() {
	findWindow = findWindowWindows
	clientSize = clientSizeWindows
}

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW   = user32.NewProc("FindWindowW")
	procGetClientRect = user32.NewProc("GetClientRect")
)

type rect struct {
	Left, Top, Right, Bottom int32
}

func findWindowWindows() (Handle, bool, error) {
	classPtr, err := syscall.UTF16PtrFromString(Class)
	if err != nil {
		return 0, false, err
	}
	titlePtr, err := syscall.UTF16PtrFromString(Title)
	if err != nil {
		return 0, false, err
	}

	h, _, _ := procFindWindowW.Call(
		uintptr(unsafe.Pointer(classPtr)),
		uintptr(unsafe.Pointer(titlePtr)),
	)
	if h == 0 {
		return 0, false, nil
	}
	return Handle(h), true, nil
}

func clientSizeWindows(h Handle) (Size, bool, error) {
	var r rect
	ret, _, _ := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return Size{}, false, nil
	}

	// When the LoL ingame window is first created, Windows briefly
	// reports a 1x1 client rect under per-monitor DPI awareness; treat
	// that as "not ready" rather than a real size.
	if r.Right <= 1 || r.Bottom <= 1 {
		return Size{}, false, nil
	}
	return Size{Width: int(r.Right), Height: int(r.Bottom)}, true, nil
}
