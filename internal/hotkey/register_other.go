//go:build !windows

package hotkey

import "errors"

var errUnsupportedPlatform = errors.New("hotkey: global hotkey registration is only supported on windows")

func init() {
	registerHotkey = registerHotkeyUnsupported
}

func registerHotkeyUnsupported(binding string) (<-chan struct{}, func(), error) {
	return nil, nil, errUnsupportedPlatform
}
