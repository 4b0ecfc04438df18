// Package config loads the runtime configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shopfloor-io/floorline/internal/core"
)

// Duration wraps time.Duration so YAML can spell values like "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler, accepting Go duration strings
// and plain integers (nanoseconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ns int64
	if err := value.Decode(&ns); err != nil {
		return fmt.Errorf("invalid duration at line %d", value.Line)
	}
	*d = Duration(ns)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the runtime configuration of the floorline CLI and daemon.
type Config struct {
	// DatabasePath is the SQLite database file. Created on first open.
	DatabasePath string `yaml:"database_path"`
	// Tenant every command runs as.
	Tenant string `yaml:"tenant"`
	// Actor recorded on writes; defaults to the OS username when empty.
	Actor string `yaml:"actor,omitempty"`
	// LayoutDir holds the CUE floor layout.
	LayoutDir string `yaml:"layout_dir,omitempty"`
	// WIPCacheTTL bounds staleness of cached occupancy counts. Zero disables
	// the cache.
	WIPCacheTTL Duration `yaml:"wip_cache_ttl,omitempty"`
	// NATSURL enables the external event sink when set.
	NATSURL string `yaml:"nats_url,omitempty"`
	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DatabasePath: "floorline.db",
		Tenant:       "default",
		LayoutDir:    "layout",
		WIPCacheTTL:  Duration(2 * time.Second),
	}
}

// Load reads a YAML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, core.NewConfigurationError(fmt.Sprintf("reading config %s: %v", path, err))
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, core.NewConfigurationError(fmt.Sprintf("parsing config %s: %v", path, err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for internally inconsistent values.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return core.NewConfigurationError("database_path must not be empty")
	}
	if c.Tenant == "" {
		return core.NewConfigurationError("tenant must not be empty")
	}
	if c.WIPCacheTTL < 0 {
		return core.NewConfigurationError("wip_cache_ttl must not be negative")
	}
	return nil
}
