// SPDX-License-Identifier: MIT

//go:build windows

package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/windows"
)

// FileLock is a file-based exclusive lock backed by LockFileEx, used to
// enforce the singleton-engine invariant (P1: at most one Recorder Engine
// child process exists at a time).
//
// Provides:
//   - Stale-lock detection (dead process holding the PID written inside)
//   - Timeout / context-cancellable acquisition
//   - PID tracking
//   - Thread-safe operations
type FileLock struct {
	mu     sync.Mutex
	path   string
	handle windows.Handle
	pid    int
}

// DefaultAcquireTimeout is the default timeout for lock acquisition.
const DefaultAcquireTimeout = 30 * time.Second

// NewFileLock creates a new file-based lock. The lock file is created if
// it doesn't exist; the parent directory is created if needed.
func NewFileLock(path string) (*FileLock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	return &FileLock{
		path: path,
		pid:  os.Getpid(),
	}, nil
}

// Acquire attempts to acquire the exclusive lock, retrying until timeout
// elapses (0 = try once, no wait).
func (fl *FileLock) Acquire(timeout time.Duration) error {
	return fl.acquire(context.Background(), timeout)
}

// AcquireContext attempts to acquire the exclusive lock, retrying until
// either timeout elapses or ctx is cancelled.
func (fl *FileLock) AcquireContext(ctx context.Context, timeout time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return fl.acquire(ctx, timeout)
}

func (fl *FileLock) acquire(ctx context.Context, timeout time.Duration) error {
	if stale, _ := isLockStale(fl.path); stale {
		_ = os.Remove(fl.path)
	}

	pathPtr, err := windows.UTF16PtrFromString(fl.path)
	if err != nil {
		return fmt.Errorf("encode lock path: %w", err)
	}

	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_ALWAYS,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	overlapped := new(windows.Overlapped)

	for {
		err = windows.LockFileEx(
			handle,
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
			0, 1, 0,
			overlapped,
		)
		if err == nil {
			break
		}

		select {
		case <-ctx.Done():
			_ = windows.CloseHandle(handle)
			return ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			_ = windows.CloseHandle(handle)
			return fmt.Errorf("acquire lock after %v: %w", timeout, err)
		}

		time.Sleep(100 * time.Millisecond)
	}

	if err := writePID(handle, fl.pid); err != nil {
		_ = windows.CloseHandle(handle)
		return err
	}

	fl.mu.Lock()
	fl.handle = handle
	fl.mu.Unlock()
	return nil
}

func writePID(handle windows.Handle, pid int) error {
	if _, err := windows.SetFilePointer(handle, 0, nil, windows.FILE_BEGIN); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if err := windows.SetEndOfFile(handle); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	data := []byte(strconv.Itoa(pid) + "\n")
	var written uint32
	if err := windows.WriteFile(handle, data, &written, nil); err != nil {
		return fmt.Errorf("write PID to lock file: %w", err)
	}
	return nil
}

// Release releases the lock.
func (fl *FileLock) Release() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.handle == 0 {
		return fmt.Errorf("lock not held")
	}

	overlapped := new(windows.Overlapped)
	if err := windows.UnlockFileEx(fl.handle, 0, 1, 0, overlapped); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	if err := windows.CloseHandle(fl.handle); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}

	fl.handle = 0
	return nil
}

// Close releases the lock if held.
func (fl *FileLock) Close() error {
	fl.mu.Lock()
	held := fl.handle != 0
	fl.mu.Unlock()

	if held {
		return fl.Release()
	}
	return nil
}

// isLockStale reports whether the lock file names a PID that is no longer
// a live process. A missing lock file is not stale, just absent.
func isLockStale(lockPath string) (bool, error) {
	_, err := os.Stat(lockPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(lockPath) // #nosec G304 - lock path is application-controlled
	if err != nil {
		return true, nil
	}

	pidStr := strings.TrimSpace(string(data))
	if pidStr == "" {
		return true, nil
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return true, nil
	}

	return !processAlive(pid), nil
}

// processAlive reports whether pid names a currently-running process, by
// attempting to open it with the most limited query access right.
func processAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(h, &exitCode); err != nil {
		return false
	}
	return exitCode == 259 // STILL_ACTIVE
}
