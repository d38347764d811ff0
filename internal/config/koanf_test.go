// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestKoanfConfigLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
recordings_folder: C:\Recordings
encoding_quality: 28
only_record_ranked: true
max_age_days: 14
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	kc, err := NewKoanfConfig(WithYAMLFile(path))
	if err != nil {
		t.Fatalf("NewKoanfConfig() error: %v", err)
	}

	s, err := kc.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if s.RecordingsFolder != `C:\Recordings` {
		t.Errorf("RecordingsFolder = %q", s.RecordingsFolder)
	}
	if s.EncodingQuality != 28 {
		t.Errorf("EncodingQuality = %d, want 28", s.EncodingQuality)
	}
	if !s.OnlyRecordRanked {
		t.Error("OnlyRecordRanked = false, want true")
	}
	if s.MaxAgeDays != 14 {
		t.Errorf("MaxAgeDays = %d, want 14", s.MaxAgeDays)
	}
}

func TestKoanfConfigEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("max_age_days: 7\n"), 0644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	t.Setenv("RECORDER_MAX_AGE_DAYS", "30")

	kc, err := NewKoanfConfig(WithYAMLFile(path), WithEnvPrefix("RECORDER"))
	if err != nil {
		t.Fatalf("NewKoanfConfig() error: %v", err)
	}

	s, err := kc.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if s.MaxAgeDays != 30 {
		t.Errorf("MaxAgeDays = %d, want env override 30", s.MaxAgeDays)
	}
}

func TestKoanfConfigReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("encoding_quality: 20\n"), 0644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	kc, err := NewKoanfConfig(WithYAMLFile(path))
	if err != nil {
		t.Fatalf("NewKoanfConfig() error: %v", err)
	}

	if got := kc.GetInt("encoding_quality"); got != 20 {
		t.Fatalf("GetInt(encoding_quality) = %d, want 20", got)
	}

	if err := os.WriteFile(path, []byte("encoding_quality: 40\n"), 0644); err != nil {
		t.Fatalf("rewrite settings file: %v", err)
	}

	if err := kc.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	if got := kc.GetInt("encoding_quality"); got != 40 {
		t.Errorf("GetInt(encoding_quality) after reload = %d, want 40", got)
	}
}

func TestKoanfConfigWatchRequiresFilePath(t *testing.T) {
	kc, err := NewKoanfConfig()
	if err != nil {
		t.Fatalf("NewKoanfConfig() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := kc.Watch(ctx, func(string, error) {}); err == nil {
		t.Error("Watch() with no file path should return an error")
	}
}

func TestKoanfConfigAccessors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
recordings_folder: C:\Recordings
encoding_quality: 25
max_total_size_gb: 50.5
confirm_delete: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	kc, err := NewKoanfConfig(WithYAMLFile(path))
	if err != nil {
		t.Fatalf("NewKoanfConfig() error: %v", err)
	}

	if got := kc.GetString("recordings_folder"); got != `C:\Recordings` {
		t.Errorf("GetString = %q", got)
	}
	if got := kc.GetFloat64("max_total_size_gb"); got != 50.5 {
		t.Errorf("GetFloat64 = %v, want 50.5", got)
	}
	if !kc.GetBool("confirm_delete") {
		t.Error("GetBool(confirm_delete) = false, want true")
	}
	if !kc.Exists("encoding_quality") {
		t.Error("Exists(encoding_quality) = false, want true")
	}
	if all := kc.All(); len(all) == 0 {
		t.Error("All() returned empty map")
	}
}
