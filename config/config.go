// Package config loads the tstmpl command's configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

// Config holds the complete command configuration
type Config struct {
	Templates TemplatesConfig `toml:"templates"`
	Generate  GenerateConfig  `toml:"generate"`
	Render    RenderConfig    `toml:"render"`
	Watch     WatchConfig     `toml:"watch"`
}

// TemplatesConfig holds settings shared by all commands
type TemplatesConfig struct {
	Extension string `toml:"extension"`
	Globals   string `toml:"globals"`
	Locale    string `toml:"locale"`
}

// GenerateConfig holds settings of the generate command
type GenerateConfig struct {
	OutDir  string   `toml:"out_dir"`
	Outputs []string `toml:"outputs"`
}

// RenderConfig holds settings of the render command
type RenderConfig struct {
	Engine  string   `toml:"engine"`
	Timeout Duration `toml:"timeout"`
}

// WatchConfig holds settings for watching template files
type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

// Output kinds for GenerateConfig.Outputs
const (
	OutputDTS = "dts"
	OutputJS  = "js"
)

// Engines for RenderConfig.Engine
const (
	EngineBuiltin = "builtin"
	EngineOtto    = "otto"
)

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is found
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration from the TSTMPL_CONFIG environment
// variable, or else from the first default location that exists.  Without
// any config file, the defaults are used.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("TSTMPL_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./tstmpl.toml",
			filepath.Join(os.Getenv("HOME"), ".config/tstmpl/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Templates.Extension == "" {
		c.Templates.Extension = ".tmpl"
	}
	if c.Templates.Locale == "" {
		c.Templates.Locale = "en-US"
	}

	if c.Generate.Outputs == nil {
		c.Generate.Outputs = []string{OutputDTS, OutputJS}
	}

	if c.Render.Engine == "" {
		c.Render.Engine = EngineBuiltin
	}
	if c.Render.Timeout.Duration == 0 {
		c.Render.Timeout.Duration = 5 * time.Second
	}

	if c.Watch.Debounce.Duration == 0 {
		c.Watch.Debounce.Duration = 100 * time.Millisecond
	}
}

// expandEnvVars expands environment variables in paths
func (c *Config) expandEnvVars() {
	c.Templates.Globals = os.ExpandEnv(c.Templates.Globals)
	c.Generate.OutDir = os.ExpandEnv(c.Generate.OutDir)
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if _, err := language.Parse(c.Templates.Locale); err != nil {
		return fmt.Errorf("templates.locale: %w", err)
	}
	for _, out := range c.Generate.Outputs {
		if out != OutputDTS && out != OutputJS {
			return fmt.Errorf("generate.outputs: unknown output %q (want %q or %q)", out, OutputDTS, OutputJS)
		}
	}
	if c.Render.Engine != EngineBuiltin && c.Render.Engine != EngineOtto {
		return fmt.Errorf("render.engine: unknown engine %q (want %q or %q)", c.Render.Engine, EngineBuiltin, EngineOtto)
	}
	if c.Render.Timeout.Duration < 0 {
		return fmt.Errorf("render.timeout: must not be negative")
	}
	return nil
}

// HasOutput reports whether the generate command writes the given output
func (c *Config) HasOutput(out string) bool {
	for _, o := range c.Generate.Outputs {
		if o == out {
			return true
		}
	}
	return false
}

// LocaleTag returns the configured locale
func (c *Config) LocaleTag() language.Tag {
	tag, err := language.Parse(c.Templates.Locale)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}
