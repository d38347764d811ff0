//go:build !windows

package winprobe

import "errors"

// errUnsupportedPlatform is returned by both hooks off Windows; the game
// client this coordinator watches only ships there (spec.md §1). This
// file exists only so the package builds on a non-Windows development
// machine.
var errUnsupportedPlatform = errors.New("winprobe: window lookup not supported on this platform")

func init() {
	findWindow = findWindowUnsupported
	clientSize = clientSizeUnsupported
}

func findWindowUnsupported() (Handle, bool, error) {
	return 0, false, errUnsupportedPlatform
}

func clientSizeUnsupported(Handle) (Size, bool, error) {
	return Size{}, false, errUnsupportedPlatform
}
