// SPDX-License-Identifier: MIT

package hotkey

import (
	"fmt"
	"strings"
)

// Win32 hotkey modifier bits (winuser.h MOD_*), used regardless of
// platform since parsing a binding string is not itself a Windows call.
const (
	modAlt     = 0x0001
	modControl = 0x0002
	modShift   = 0x0004
	modWin     = 0x0008
)

// virtualKeys maps the key names accepted in a highlight-hotkey setting
// (e.g. "Alt+F6") to their Win32 virtual-key codes.
var virtualKeys = func() map[string]uint32 {
	vk := map[string]uint32{}
	for c := 'A'; c <= 'Z'; c++ {
		vk[string(c)] = uint32(c)
	}
	for c := '0'; c <= '9'; c++ {
		vk[string(c)] = uint32(c)
	}
	for n := 1; n <= 24; n++ {
		vk[fmt.Sprintf("F%d", n)] = uint32(0x70 + n - 1)
	}
	return vk
}()

// parseBinding splits a "Mod+Mod+Key" setting string into the Win32
// modifier mask and virtual-key code RegisterHotKey expects.
func parseBinding(binding string) (mods uint32, vk uint32, err error) {
	parts := strings.Split(binding, "+")
	if len(parts) == 0 {
		return 0, 0, fmt.Errorf("hotkey: empty binding")
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	code, ok := virtualKeys[strings.ToUpper(key)]
	if !ok {
		return 0, 0, fmt.Errorf("hotkey: unrecognized key %q in binding %q", key, binding)
	}

	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(mod)) {
		case "alt":
			mods |= modAlt
		case "ctrl", "control":
			mods |= modControl
		case "shift":
			mods |= modShift
		case "win", "super":
			mods |= modWin
		default:
			return 0, 0, fmt.Errorf("hotkey: unrecognized modifier %q in binding %q", mod, binding)
		}
	}

	return mods, code, nil
}
