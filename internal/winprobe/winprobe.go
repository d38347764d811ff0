// SPDX-License-Identifier: MIT

// Package winprobe locates the game window and watches its client-area
// size, C1 of the coordinator. It has no state beyond the handle it
// returns: callers poll FindWindow and ClientSize rather than
// registering for change notifications, since the only signal the game
// client exposes is "does this window currently exist".
package winprobe

import "errors"

// Title and Class identify the game's top-level OS window. These are
// fixed by the game client itself, not configurable.
const (
	Title   = "League of Legends (TM) Client"
	Class   = "RiotWindowClass"
	Process = "League of Legends.exe"
)

// Handle is an opaque native window handle.
type Handle uintptr

// ErrNotFound indicates no matching window currently exists — a routine
// condition while the game client is loading or closed, not a failure.
var ErrNotFound = errors.New("winprobe: window not found")

// Size is a window's client-area dimensions in pixels.
type Size struct {
	Width  int
	Height int
}

// findWindow and clientSize are implemented per-platform (winprobe_windows.go /
// winprobe_other.go), following the same hook pattern used for resource
// metrics collection.
var (
	findWindow func() (Handle, bool, error)
	clientSize func(Handle) (Size, bool, error)
)

// FindWindow locates the game window by its fixed title and class. It
// returns ErrNotFound rather than a zero Handle when none exists, so
// callers can use errors.Is to distinguish "not up yet" from a real
// platform failure.
func FindWindow() (Handle, error) {
	if findWindow == nil {
		return 0, errors.New("winprobe: platform hook not installed")
	}
	h, ok, err := findWindow()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	return h, nil
}

// ClientSize reads handle's client-area rectangle. It returns
// ErrNotFound when the window reports a size of 1x1 or smaller in
// either axis — the documented window-creation transient under
// per-monitor DPI awareness (V2) — so callers poll again rather than
// recording a bogus capture resolution.
func ClientSize(h Handle) (Size, error) {
	if clientSize == nil {
		return Size{}, errors.New("winprobe: platform hook not installed")
	}
	size, ok, err := clientSize(h)
	if err != nil {
		return Size{}, err
	}
	if !ok {
		return Size{}, ErrNotFound
	}
	return size, nil
}

// Exists reports whether the game window is currently present, without
// distinguishing why not (closed, not yet launched, crashed).
func Exists() (bool, error) {
	_, err := FindWindow()
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
