package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Object-file sources.
const (
	SourceNM  = "nm"
	SourceELF = "elf"
)

// Config holds all runtime configuration for an audit.
// Values are populated from .depcheck.yaml, DEPCHECK_* env vars, and CLI flags.
type Config struct {
	SpecFile        string   `mapstructure:"spec_file"`
	ObjectSuffix    string   `mapstructure:"object_suffix"`
	Source          string   `mapstructure:"source"`
	NMPath          string   `mapstructure:"nm_path"`
	Jobs            int      `mapstructure:"jobs"`
	AllowListFile   string   `mapstructure:"allowlist_file"`
	HazardNamespace string   `mapstructure:"hazard_namespace"`
	IgnoreSymbols   []string `mapstructure:"ignore_symbols"`
	EventsFile      string   `mapstructure:"events_file"`
	ReportFile      string   `mapstructure:"report_file"`
	Color           string   `mapstructure:"color"`
	Verbose         bool     `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags, and validates the
// result.
func Load() (Config, error) {
	viper.SetDefault("spec_file", "dependencies.txt")
	viper.SetDefault("object_suffix", ".o")
	viper.SetDefault("source", SourceNM)
	viper.SetDefault("nm_path", "nm")
	viper.SetDefault("jobs", 0)
	viper.SetDefault("allowlist_file", "")
	viper.SetDefault("hazard_namespace", "")
	viper.SetDefault("ignore_symbols", []string{})
	viper.SetDefault("events_file", "")
	viper.SetDefault("report_file", "")
	viper.SetDefault("color", "auto")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have a closed set of options.
func (c Config) Validate() error {
	switch c.Source {
	case SourceNM, SourceELF:
	default:
		return fmt.Errorf("invalid source %q (want %s or %s)", c.Source, SourceNM, SourceELF)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color %q (want auto, always, or never)", c.Color)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if c.ObjectSuffix == "" {
		return fmt.Errorf("object_suffix must not be empty")
	}
	return nil
}
