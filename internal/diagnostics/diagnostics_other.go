//go:build !windows

package diagnostics

import "errors"

// errUnsupportedPlatform marks checks that only have meaning on the
// Windows target this coordinator actually ships on (spec.md §1); this
// package still needs to build on a non-Windows development machine.
var errUnsupportedPlatform = errors.New("not supported on this platform")

func collectDiskUsage(path string) (total uint64, free uint64, err error) {
	return 0, 0, errUnsupportedPlatform
}

func collectWindowProbe() (found bool, title string, err error) {
	return false, "", errUnsupportedPlatform
}

func collectDPIAwareness() (bool, error) {
	return false, errUnsupportedPlatform
}
