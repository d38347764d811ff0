// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// KoanfConfig loads Settings from a YAML file layered with environment
// variable overrides, and can hot-reload both on file change.
//
// It provides:
//   - YAML file + environment variable sources
//   - Hot-reload via file watching (fsnotify, through koanf's file.Provider)
//   - Override precedence (env vars override YAML, which overrides defaults)
type KoanfConfig struct {
	k         *koanf.Koanf
	mu        sync.RWMutex
	filePath  string
	envPrefix string
}

// Option configures a KoanfConfig.
type Option func(*KoanfConfig) error

// WithYAMLFile sets the YAML settings file path.
func WithYAMLFile(path string) Option {
	return func(kc *KoanfConfig) error {
		kc.filePath = path
		return nil
	}
}

// WithEnvPrefix sets the environment variable prefix (default: "RECORDER").
func WithEnvPrefix(prefix string) Option {
	return func(kc *KoanfConfig) error {
		kc.envPrefix = prefix
		return nil
	}
}

// NewKoanfConfig creates a new koanf-based settings loader.
//
// Precedence (highest to lowest):
//  1. Environment variables (RECORDER_*)
//  2. YAML settings file
//  3. Built-in defaults (applied by Load via repair, not by koanf itself)
func NewKoanfConfig(opts ...Option) (*KoanfConfig, error) {
	kc := &KoanfConfig{
		k:         koanf.New("."),
		envPrefix: "RECORDER",
	}

	for _, opt := range opts {
		if err := opt(kc); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if err := kc.reload(); err != nil {
		return nil, err
	}

	return kc, nil
}

// Load unmarshals the layered configuration into a Settings struct. Any
// field left unset or invalid is repaired to its default, matching the
// "settings invalid: substitute defaults field-by-field" rule. If the
// layered values cannot be unmarshalled at all, it returns
// DefaultSettings() together with the unmarshal error.
func (kc *KoanfConfig) Load() (*Settings, error) {
	var s Settings

	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()

	if err := k.Unmarshal("", &s); err != nil {
		return DefaultSettings(), fmt.Errorf("unmarshal settings: %w", err)
	}

	return repair(&s), nil
}

// Reload reloads configuration from all sources. Called internally by
// Watch on file-change events; can also be invoked manually (e.g. on
// SIGHUP).
func (kc *KoanfConfig) Reload() error {
	return kc.reload()
}

func (kc *KoanfConfig) reload() error {
	newK := koanf.New(".")

	if kc.filePath != "" {
		if err := newK.Load(file.Provider(kc.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("load YAML file: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: kc.envPrefix + "_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.TrimPrefix(k, kc.envPrefix+"_")
			k = strings.ToLower(k)
			return k, v
		},
	})

	if err := newK.Load(envProvider, nil); err != nil {
		return fmt.Errorf("load environment variables: %w", err)
	}

	kc.mu.Lock()
	kc.k = newK
	kc.mu.Unlock()

	return nil
}

// Watch starts watching the settings file for changes, reloading and
// invoking callback on each event. This backs the "replaced atomically
// under a leaf mutex" file-watcher handle both the Game Listener and the
// Library Manager select on.
//
// Known limitation: the underlying koanf file.Provider spawns an fsnotify
// goroutine internally; koanf v2 does not expose a Stop() on file.Provider,
// so that goroutine outlives ctx cancellation and is collected at process
// exit. Long-lived processes that need a clean shutdown can instead trigger
// manual Reload() calls.
func (kc *KoanfConfig) Watch(ctx context.Context, callback func(event string, err error)) error {
	if kc.filePath == "" {
		return fmt.Errorf("cannot watch: no file path specified")
	}

	fp := file.Provider(kc.filePath)

	watchErr := fp.Watch(func(event interface{}, err error) {
		if err != nil {
			callback("watch error", fmt.Errorf("file watch error: %w", err))
			return
		}

		if err := kc.reload(); err != nil {
			callback("reload error", fmt.Errorf("settings reload failed: %w", err))
			return
		}

		callback("settings reloaded", nil)
	})

	if watchErr != nil {
		return fmt.Errorf("start watching: %w", watchErr)
	}

	<-ctx.Done()

	return nil
}

// GetString retrieves a string value from configuration.
func (kc *KoanfConfig) GetString(key string) string {
	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()
	return k.String(key)
}

// GetInt retrieves an integer value from configuration.
func (kc *KoanfConfig) GetInt(key string) int {
	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()
	return k.Int(key)
}

// GetBool retrieves a boolean value from configuration.
func (kc *KoanfConfig) GetBool(key string) bool {
	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()
	return k.Bool(key)
}

// GetFloat64 retrieves a float value from configuration.
func (kc *KoanfConfig) GetFloat64(key string) float64 {
	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()
	return k.Float64(key)
}

// GetDuration retrieves a duration value from configuration.
func (kc *KoanfConfig) GetDuration(key string) time.Duration {
	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()
	return k.Duration(key)
}

// Exists checks if a configuration key exists.
func (kc *KoanfConfig) Exists(key string) bool {
	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()
	return k.Exists(key)
}

// All returns the entire configuration as a map.
func (kc *KoanfConfig) All() map[string]interface{} {
	kc.mu.RLock()
	k := kc.k
	kc.mu.RUnlock()
	return k.All()
}
