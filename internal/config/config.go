// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ConfigFilePath is the default location for the coordinator's settings file.
const ConfigFilePath = "/etc/recorder-agent/settings.yaml"

// Settings is the read-only-to-the-core configuration described by the
// external settings editor collaborator. The core never mutates this
// structure; it only reloads it when Watch reports a change.
type Settings struct {
	RecordingsFolder string `yaml:"recordings_folder" koanf:"recordings_folder"`
	FilenameFormat   string `yaml:"filename_format" koanf:"filename_format"` // strftime-style
	EncodingQuality  int    `yaml:"encoding_quality" koanf:"encoding_quality"`

	// OutputResolution is optional; an unset (zero) value means "derive from
	// the measured client window aspect ratio" per the resolution table.
	OutputResolution Resolution `yaml:"output_resolution" koanf:"output_resolution"`

	Framerate Framerate `yaml:"framerate" koanf:"framerate"`

	AudioSource      string `yaml:"audio_source" koanf:"audio_source"`
	OnlyRecordRanked bool   `yaml:"only_record_ranked" koanf:"only_record_ranked"`

	MaxAgeDays     int     `yaml:"max_age_days" koanf:"max_age_days"`
	MaxTotalSizeGB float64 `yaml:"max_total_size_gb" koanf:"max_total_size_gb"`

	HighlightHotkey string `yaml:"highlight_hotkey" koanf:"highlight_hotkey"`
	ConfirmDelete   bool   `yaml:"confirm_delete" koanf:"confirm_delete"`
	DebugLog        bool   `yaml:"debug_log" koanf:"debug_log"`
}

// Resolution is a width/height pair in pixels. The zero value means unset.
type Resolution struct {
	Width  int `yaml:"width" koanf:"width"`
	Height int `yaml:"height" koanf:"height"`
}

// IsZero reports whether the resolution is unset.
func (r Resolution) IsZero() bool { return r.Width == 0 && r.Height == 0 }

// Framerate is expressed as a rational numerator/denominator, matching the
// `framerate: num/den` field the Recorder Engine's configure() call takes.
type Framerate struct {
	Num int `yaml:"num" koanf:"num"`
	Den int `yaml:"den" koanf:"den"`
}

// Float returns the framerate as frames per second.
func (f Framerate) Float() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

// LoadSettings reads and parses the settings file. Unlike earlier drafts,
// this never fails the coordinator over a malformed file: per the settings
// invalid handling rule, a parse or validation failure results in the
// default substituted field-by-field rather than a fatal error. Callers
// that need to distinguish "file missing" from "parsed fine" should stat
// path themselves; LoadSettings itself always returns a valid *Settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is administrator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("read settings file: %w", err)
	}

	var parsed Settings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings YAML: %w", err)
	}

	return repair(&parsed), nil
}

// repair substitutes the default value for any field that is invalid or
// left at its zero value, field-by-field, so a partially-malformed settings
// file never blocks the core from running with reasonable behavior.
func repair(s *Settings) *Settings {
	d := DefaultSettings()

	if s.RecordingsFolder == "" {
		s.RecordingsFolder = d.RecordingsFolder
	}
	if s.FilenameFormat == "" {
		s.FilenameFormat = d.FilenameFormat
	}
	if s.EncodingQuality <= 0 || s.EncodingQuality > 51 {
		s.EncodingQuality = d.EncodingQuality
	}
	if s.Framerate.Num <= 0 || s.Framerate.Den <= 0 {
		s.Framerate = d.Framerate
	}
	if s.AudioSource == "" {
		s.AudioSource = d.AudioSource
	}
	if s.MaxAgeDays < 0 {
		s.MaxAgeDays = d.MaxAgeDays
	}
	if s.MaxTotalSizeGB < 0 {
		s.MaxTotalSizeGB = d.MaxTotalSizeGB
	}
	if s.HighlightHotkey == "" {
		s.HighlightHotkey = d.HighlightHotkey
	}

	return s
}

// Save writes settings atomically: write to a temp file in the same
// directory, sync, chmod, then rename. Rename is atomic on NTFS and most
// filesystems, so a crash mid-write leaves either the old or the new file.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".settings.*.yaml") // #nosec G304
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp settings file: %w", err)
	}
	if err := tmp.Chmod(0640); err != nil {
		return fmt.Errorf("chmod temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp settings file: %w", err)
	}

	success = true
	return nil
}

// DefaultSettings returns the settings used when no file exists or a field
// fails validation.
func DefaultSettings() *Settings {
	return &Settings{
		RecordingsFolder: filepath.Join(os.Getenv("USERPROFILE"), "Videos", "LeagueRecordings"),
		FilenameFormat:   "%Y-%m-%d_%H-%M-%S",
		EncodingQuality:  23,
		Framerate:        Framerate{Num: 60, Den: 1},
		AudioSource:      "default",
		OnlyRecordRanked: false,
		MaxAgeDays:       7,
		MaxTotalSizeGB:   20,
		HighlightHotkey:  "F8",
		ConfirmDelete:    true,
		DebugLog:         false,
	}
}
