//go:build !windows

package controlplane

import "errors"

// findLauncherCommandLine has no equivalent off Windows; the launcher
// this coordinator talks to only ships there (spec.md §1). This file
// exists only so the package builds on a non-Windows development
// machine.
func findLauncherCommandLine() (string, error) {
	return "", errors.New("controlplane: process discovery not supported on this platform")
}
