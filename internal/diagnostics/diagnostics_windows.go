//go:build windows

package diagnostics

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/lorec-gg/recorder-core/internal/winprobe"
)

// collectDiskUsage reports total and free bytes on the volume containing
// path, via GetDiskFreeSpaceExW.
func collectDiskUsage(path string) (total uint64, free uint64, err error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, fmt.Errorf("encode path: %w", err)
	}

	var freeAvail, totalBytes, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeAvail, &totalBytes, &totalFree); err != nil {
		return 0, 0, fmt.Errorf("GetDiskFreeSpaceEx: %w", err)
	}
	return totalBytes, freeAvail, nil
}

var user32 = windows.NewLazySystemDLL("user32.dll")

// collectWindowProbe delegates to the Game Client Probe's own window
// lookup, so diagnostics reports exactly what the listener will see at
// session start rather than duplicating the FindWindow call.
func collectWindowProbe() (found bool, title string, err error) {
	_, err = winprobe.FindWindow()
	if errors.Is(err, winprobe.ErrNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, winprobe.Title, nil
}

// collectDPIAwareness reports whether this process has been placed in a
// per-monitor DPI awareness context, required so window-rect-derived
// capture geometry lines up on scaled displays.
func collectDPIAwareness() (bool, error) {
	proc := user32.NewProc("GetDpiAwarenessContextForProcess")
	if proc.Find() != nil {
		// Not available on this Windows version; awareness can't be queried.
		return false, fmt.Errorf("GetDpiAwarenessContextForProcess unavailable")
	}

	h, err := windows.GetCurrentProcess()
	if err != nil {
		return false, err
	}
	ctx, _, _ := proc.Call(uintptr(h))
	if ctx == 0 {
		return false, nil
	}

	awareProc := user32.NewProc("AreDpiAwarenessContextsEqual")
	const perMonitorV2 = uintptr(^uint32(4-1)) // DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2 == -4 as DPI_AWARENESS_CONTEXT
	equal, _, _ := awareProc.Call(ctx, perMonitorV2)
	return equal != 0, nil
}
