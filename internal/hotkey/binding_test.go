// SPDX-License-Identifier: MIT

package hotkey

import "testing"

func TestParseBindingSingleKey(t *testing.T) {
	mods, vk, err := parseBinding("F6")
	if err != nil {
		t.Fatalf("parseBinding: %v", err)
	}
	if mods != 0 {
		t.Errorf("got mods %#x, want 0", mods)
	}
	if vk != 0x75 {
		t.Errorf("got vk %#x, want F6 (0x75)", vk)
	}
}

func TestParseBindingWithModifiers(t *testing.T) {
	mods, vk, err := parseBinding("Alt+Shift+F6")
	if err != nil {
		t.Fatalf("parseBinding: %v", err)
	}
	if mods != modAlt|modShift {
		t.Errorf("got mods %#x, want alt|shift", mods)
	}
	if vk != 0x75 {
		t.Errorf("got vk %#x, want F6", vk)
	}
}

func TestParseBindingLetterKey(t *testing.T) {
	_, vk, err := parseBinding("Ctrl+K")
	if err != nil {
		t.Fatalf("parseBinding: %v", err)
	}
	if vk != uint32('K') {
		t.Errorf("got vk %#x, want 'K'", vk)
	}
}

func TestParseBindingUnknownModifier(t *testing.T) {
	if _, _, err := parseBinding("Meta+F6"); err == nil {
		t.Fatal("expected error for unrecognized modifier")
	}
}

func TestParseBindingUnknownKey(t *testing.T) {
	if _, _, err := parseBinding("Alt+Numpad5"); err == nil {
		t.Fatal("expected error for unrecognized key")
	}
}

func TestParseBindingEmpty(t *testing.T) {
	if _, _, err := parseBinding(""); err == nil {
		t.Fatal("expected error for empty binding")
	}
}
