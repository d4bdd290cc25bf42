// Package config loads and saves AppConfig, the process-lifetime
// configuration for the sync core, as JSON at a platform-default path.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultMaxBackups is the retention ceiling applied when a config file
	// omits max_backups (or is absent entirely).
	DefaultMaxBackups = 20
	// DefaultDebounceSeconds is the watcher debounce window applied when a
	// config file omits debounce_seconds.
	DefaultDebounceSeconds = 3

	configFileName = "ggsync-config.json"
)

// VariantKind tags which provider variant is active.
type VariantKind string

const (
	VariantFolder VariantKind = "Folder"
	VariantHosted VariantKind = "Hosted"
)

// ProviderVariant is the tagged union of the two supported remote
// endpoints. Exactly one of the variant-specific field groups is
// meaningful, selected by Type.
type ProviderVariant struct {
	Type VariantKind `json:"type"`

	// Folder fields.
	SyncDir string `json:"sync_dir,omitempty"`

	// Hosted fields.
	APIURL string `json:"api_url,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}

// AppConfig is the process-lifetime configuration the engine, watcher, and
// backup manager are built from.
type AppConfig struct {
	LocalDBDir       string          `json:"local_db_dir"`
	BackupDir        string          `json:"backup_dir"`
	MaxBackups       int             `json:"max_backups"`
	DebounceSeconds  int             `json:"debounce_seconds"`
	Provider         ProviderVariant `json:"provider"`
	DeviceName       string          `json:"device_name"`
}

// Validate checks that the provider variant's type tag is one this
// implementation understands. Loading (or saving) a config with an
// unrecognized variant type is a hard error, never silently defaulted.
func (c AppConfig) Validate() error {
	switch c.Provider.Type {
	case VariantFolder, VariantHosted:
		return nil
	default:
		return fmt.Errorf("config: unsupported provider variant %q", c.Provider.Type)
	}
}

// DebounceWindow converts DebounceSeconds into the duration the watcher
// actually compares against.
func (c AppConfig) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// Path returns the platform-default path for the config file: the OS
// user-config directory, e.g. %AppData% on Windows or ~/.config on Linux.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "ggsync", configFileName), nil
}

// Load reads the config file at path, merging documented defaults over
// any fields the file omits. A missing file is not an error: it yields a
// zero-value config with defaults applied, so first-run behaves like an
// explicit "nothing configured yet" rather than failing.
func Load(path string) (AppConfig, error) {
	cfg := AppConfig{
		MaxBackups:      DefaultMaxBackups,
		DebounceSeconds: DefaultDebounceSeconds,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	// Decode onto the defaulted struct so omitted fields retain defaults
	// rather than being zeroed by the unmarshal.
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Provider.Type != "" {
		if err := cfg.Validate(); err != nil {
			return AppConfig{}, err
		}
	}

	return cfg, nil
}

// Save writes cfg to path, validating the provider variant first. The
// write goes to a temporary file in the same directory and is renamed
// over path, so a crash mid-write never leaves a torn config file.
func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ggsync-config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config into place: %w", err)
	}

	return nil
}
