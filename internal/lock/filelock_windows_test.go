// SPDX-License-Identifier: MIT

//go:build windows

package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.lock")

	fl, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock() error: %v", err)
	}

	if err := fl.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected lock file to contain our PID")
	}

	if err := fl.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	if err := fl.Release(); err == nil {
		t.Error("Release() on an unheld lock should error")
	}
}

func TestFileLockSecondAcquireTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.lock")

	first, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock() error: %v", err)
	}
	if err := first.Acquire(time.Second); err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	defer first.Close()

	second, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock() error: %v", err)
	}

	if err := second.Acquire(200 * time.Millisecond); err == nil {
		t.Error("expected second Acquire() to time out while the first holds the lock")
	}
}

func TestFileLockAcquireContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.lock")

	first, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock() error: %v", err)
	}
	if err := first.Acquire(time.Second); err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	defer first.Close()

	second, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := second.AcquireContext(ctx, 5*time.Second); err == nil {
		t.Error("expected AcquireContext() to return once ctx is done")
	}
}

func TestFileLockStaleLockReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.lock")

	// A PID that is very unlikely to be a live process.
	if err := os.WriteFile(path, []byte("999999999\n"), 0644); err != nil {
		t.Fatalf("seed stale lock file: %v", err)
	}

	fl, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("NewFileLock() error: %v", err)
	}

	if err := fl.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire() over a stale lock should succeed, got: %v", err)
	}
	_ = fl.Close()
}
