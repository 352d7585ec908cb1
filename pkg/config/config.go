// Package config loads and validates the runtime configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/patchboard/pkg/autosave"
	"github.com/dd0wney/patchboard/pkg/docstore"
	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/validation"
)

// Duration is a time.Duration that reads and writes YAML as a string
// ("2s", "1500ms"). Bare integers are accepted as nanoseconds.
type Duration time.Duration

// MarshalYAML renders the duration in time.Duration's string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML parses a duration string or a nanosecond integer.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		var n int64
		if value.Decode(&n) == nil {
			*d = Duration(n)
			return nil
		}
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full runtime configuration for the patchboard tools.
type Config struct {
	Document DocumentConfig `yaml:"document"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Watch    WatchConfig    `yaml:"watch"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DocumentConfig names the board document the tools operate on.
type DocumentConfig struct {
	// Path is the XML board document.
	Path string `yaml:"path"`
}

// AutosaveConfig controls the debounced background saver.
type AutosaveConfig struct {
	Enabled bool `yaml:"enabled"`

	// Delay is the quiet period between the last change and the flush.
	Delay Duration `yaml:"delay"`
}

// WatchConfig controls on-disk change detection for the document.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`

	// Debounce is the window used to coalesce raw filesystem events.
	Debounce Duration `yaml:"debounce"`
}

// ArchiveConfig controls the append-only revision archive kept next to
// the document.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CatalogConfig points at an optional node-type catalog file.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the logger's verbosity.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig exposes Prometheus metrics over HTTP when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given: autosave
// and watching on, archive on, info-level logs, metrics endpoint off.
func Default() *Config {
	return &Config{
		Document: DocumentConfig{Path: "board.xml"},
		Autosave: AutosaveConfig{Enabled: true, Delay: Duration(autosave.DefaultDelay)},
		Watch:    WatchConfig{Enabled: true, Debounce: Duration(docstore.DefaultDebounce)},
		Archive:  ArchiveConfig{Enabled: true},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file on top of the defaults, applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment overrides on top of the file. Only the log
// level can be overridden, matching the logging package's own default.
func (c *Config) applyEnv() {
	if level := os.Getenv("PATCHBOARD_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

// Validate reports everything wrong with the configuration in one pass:
// struct tags cover enums and address formats, explicit checks cover the
// document path and duration ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validation.FormatTagError(err)
	}

	return validation.NewChecker("config").
		Require("document.path", c.Document.Path).
		When(c.Autosave.Enabled, func(ck *validation.Checker) {
			ck.PositiveDuration("autosave.delay", time.Duration(c.Autosave.Delay)).
				MaxDuration("autosave.delay", time.Duration(c.Autosave.Delay), time.Hour)
		}).
		When(c.Watch.Enabled, func(ck *validation.Checker) {
			ck.PositiveDuration("watch.debounce", time.Duration(c.Watch.Debounce)).
				MaxDuration("watch.debounce", time.Duration(c.Watch.Debounce), time.Hour)
		}).
		Err()
}

// LogLevel parses the configured level; unknown values fall back to info.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}
