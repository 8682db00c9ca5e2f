// Package config loads and saves the planner configuration stored in the
// store root as config.yaml (or config.toml).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	YAMLFile = "config.yaml"
	TOMLFile = "config.toml"
)

var ErrUnknownKey = errors.New("unknown config key")

type StorageConfig struct {
	// Backend is dir, sqlite or memory.
	Backend string `yaml:"backend" toml:"backend" json:"backend"`
	// Path is relative to the store root unless absolute.
	Path string `yaml:"path" toml:"path" json:"path"`
	// Quota caps stored bytes; 0 disables the limit.
	Quota int64 `yaml:"quota" toml:"quota" json:"quota"`
}

type LogConfig struct {
	Level      string `yaml:"level" toml:"level" json:"level"`
	Format     string `yaml:"format" toml:"format" json:"format"`
	Timestamps bool   `yaml:"timestamps" toml:"timestamps" json:"timestamps"`
}

type Config struct {
	Schema  int           `yaml:"schema" toml:"schema" json:"schema"`
	Storage StorageConfig `yaml:"storage" toml:"storage" json:"storage"`
	Log     LogConfig     `yaml:"log" toml:"log" json:"log"`
	// PruneDays is the age after which buckets are dropped when storage is full.
	PruneDays int `yaml:"prune_days" toml:"prune_days" json:"prune_days"`
	// Theme is used until the user picks one explicitly.
	Theme string `yaml:"theme" toml:"theme" json:"theme"`
	// Filter is the default task filter: all, active or completed.
	Filter string `yaml:"filter" toml:"filter" json:"filter"`
}

func Default() Config {
	return Config{
		Schema: 1,
		Storage: StorageConfig{
			Backend: "dir",
			Path:    "data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		PruneDays: 30,
		Theme:     "light",
		Filter:    "all",
	}
}

// Normalize fills zero values so older or partial files still work.
func (c *Config) Normalize() {
	def := Default()
	if c.Schema == 0 {
		c.Schema = 1
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		if c.Storage.Backend == "sqlite" {
			c.Storage.Path = "agenda.db"
		} else {
			c.Storage.Path = def.Storage.Path
		}
	}
	if c.Storage.Quota < 0 {
		c.Storage.Quota = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.PruneDays <= 0 {
		c.PruneDays = def.PruneDays
	}
	switch strings.ToLower(strings.TrimSpace(c.Theme)) {
	case "light", "dark":
		c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	default:
		c.Theme = def.Theme
	}
	switch strings.ToLower(strings.TrimSpace(c.Filter)) {
	case "all", "active", "completed":
		c.Filter = strings.ToLower(strings.TrimSpace(c.Filter))
	default:
		c.Filter = def.Filter
	}
}

// StoragePath resolves the backend path against root.
func (c Config) StoragePath(root string) string {
	p := strings.TrimSpace(c.Storage.Path)
	if p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Path returns the config file in use under root, preferring an existing
// TOML file and defaulting to YAML.
func Path(root string) string {
	tomlPath := filepath.Join(root, TOMLFile)
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	return filepath.Join(root, YAMLFile)
}

// Load reads the config under root. A missing file yields the defaults and
// exists=false; nothing is written until Save.
func Load(root string) (cfg Config, exists bool, err error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), false, nil
		}
		return Default(), false, err
	}
	if strings.HasSuffix(path, ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Default(), true, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Default(), true, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
	}
	cfg.Normalize()
	return cfg, true, nil
}

// Save writes cfg in the format of the file Path selects.
func Save(root string, cfg Config) error {
	return saveFile(Path(root), cfg)
}

// SaveAs writes cfg to name (YAMLFile or TOMLFile) under root.
func SaveAs(root, name string, cfg Config) error {
	if name != YAMLFile && name != TOMLFile {
		return fmt.Errorf("unsupported config file %q", name)
	}
	return saveFile(filepath.Join(root, name), cfg)
}

func saveFile(path string, cfg Config) error {
	cfg.Normalize()
	var data []byte
	if strings.HasSuffix(path, ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		data = b
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".agenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Keys lists the keys Set accepts.
func Keys() []string {
	return []string{
		"storage.backend", "storage.path", "storage.quota",
		"log.level", "log.format", "log.timestamps",
		"prune_days", "theme", "filter",
	}
}

// Set assigns a single dotted key from its string form.
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	switch key {
	case "storage.backend":
		switch strings.ToLower(value) {
		case "dir", "sqlite", "memory":
			c.Storage.Backend = strings.ToLower(value)
		default:
			return invalidValue(key, value)
		}
	case "storage.path":
		c.Storage.Path = value
	case "storage.quota":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return invalidValue(key, value)
		}
		c.Storage.Quota = n
	case "log.level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			c.Log.Level = strings.ToLower(value)
		default:
			return invalidValue(key, value)
		}
	case "log.format":
		switch strings.ToLower(value) {
		case "text", "json", "logfmt":
			c.Log.Format = strings.ToLower(value)
		default:
			return invalidValue(key, value)
		}
	case "log.timestamps":
		v, ok := parseBool(value)
		if !ok {
			return invalidValue(key, value)
		}
		c.Log.Timestamps = v
	case "prune_days":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return invalidValue(key, value)
		}
		c.PruneDays = n
	case "theme":
		switch strings.ToLower(value) {
		case "light", "dark":
			c.Theme = strings.ToLower(value)
		default:
			return invalidValue(key, value)
		}
	case "filter":
		switch strings.ToLower(value) {
		case "all", "active", "completed":
			c.Filter = strings.ToLower(value)
		default:
			return invalidValue(key, value)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

func invalidValue(key, value string) error {
	return fmt.Errorf("invalid value for %s: %q", key, value)
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
