// SPDX-License-Identifier: MIT

//go:build windows

package library

import (
	"os"
	"syscall"
	"time"
)

// createdTime reports path's file creation time, the basis for
// age-based retention (spec.md §4.9). NTFS tracks this as a distinct
// attribute from modification time, exposed by the standard library's
// os.FileInfo.Sys() on Windows builds.
func createdTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	attr, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return info.ModTime(), nil
	}
	return time.Unix(0, attr.CreationTime.Nanoseconds()), nil
}
