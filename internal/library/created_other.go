// SPDX-License-Identifier: MIT

//go:build !windows

package library

import (
	"os"
	"time"
)

// createdTime falls back to modification time on non-Windows builds.
// There is no portable stdlib accessor for file birth time outside of
// Windows, and this coordinator only ships on Windows (spec.md §1) —
// this file exists only so the package builds and its tests run on a
// non-Windows development machine.
func createdTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
