// Package spconfig loads the profiler's configuration: the table of traced
// primitive names and their opaque flag, plus run options such as the
// output path and format.
//
// Grounded in a feeders package layout (feeders/toml.go, feeders/yaml.go):
// one small feeder type per supported format, selected by file extension,
// each satisfying the same Feeder interface.
package spconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Primitive describes one configured breakpoint target.
type Primitive struct {
	Name   string `toml:"name" yaml:"name"`
	Opaque bool   `toml:"opaque" yaml:"opaque"`
}

// Config is the full on-disk configuration document.
type Config struct {
	// Primitives lists every synchronization function or access expression
	// to trace, and whether its internals should be suppressed (opaque).
	Primitives []Primitive `toml:"primitives" yaml:"primitives"`

	// OutputFormat is "text" or "chrome".
	OutputFormat string `toml:"output_format" yaml:"output_format"`

	// OutputPath is where the rendered trace is written.
	OutputPath string `toml:"output_path" yaml:"output_path"`

	// TimeoutSeconds is the configured limit, in seconds, on how long to
	// wait for the target. It is loaded and defaulted here; the trace
	// command does not consult it and waits until gdb's output closes.
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// OpaqueTable returns name -> opaque, ready for the driver to consult on
// every trap. Names not present default to non-opaque, matching
// sp_gdb_ctrl.installBreakpoints's SPTraceFunction(fun, opaque=False)
// default.
func (c *Config) OpaqueTable() map[string]bool {
	out := make(map[string]bool, len(c.Primitives))
	for _, p := range c.Primitives {
		out[p.Name] = p.Opaque
	}
	return out
}

// Names returns the configured primitive names in declaration order, for
// installing breakpoints.
func (c *Config) Names() []string {
	out := make([]string, len(c.Primitives))
	for i, p := range c.Primitives {
		out[i] = p.Name
	}
	return out
}

// Feeder loads a Config from one on-disk format.
type Feeder interface {
	Feed(path string, cfg *Config) error
}

// TomlFeeder reads the TOML configuration format.
type TomlFeeder struct{}

func (TomlFeeder) Feed(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("feed toml config %s: %w", path, err)
	}
	return nil
}

// YamlFeeder reads the YAML configuration format.
type YamlFeeder struct{}

func (YamlFeeder) Feed(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("feed yaml config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("feed yaml config %s: %w", path, err)
	}
	return nil
}

// Load picks a Feeder by path extension and applies defaults for any run
// option left unset.
func Load(path string) (*Config, error) {
	var feeder Feeder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		feeder = TomlFeeder{}
	case ".yaml", ".yml":
		feeder = YamlFeeder{}
	default:
		return nil, fmt.Errorf("spconfig: unrecognized config extension for %s", path)
	}

	cfg := &Config{}
	if err := feeder.Feed(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "sync-prof.out"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
}
