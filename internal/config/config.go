// Package config loads the optional interpreter settings file.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"lox-lang/internal/runtime"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = ".loxrc.yaml"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the interpreter settings.
type Config struct {
	MaxCallDepth int    `yaml:"max_call_depth"`
	Warnings     bool   `yaml:"warnings"` // print warning diagnostics
	Color        string `yaml:"color"`    // auto, always or never
	REPL         REPL   `yaml:"repl"`
}

// REPL holds the interactive-mode settings.
type REPL struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"` // empty disables history
}

// Default returns the settings used when no file is present.
func Default() Config {
	cfg := Config{
		MaxCallDepth: runtime.DefaultMaxCallDepth,
		Warnings:     true,
		Color:        ColorAuto,
		REPL:         REPL{Prompt: "> "},
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.REPL.HistoryFile = filepath.Join(home, ".lox_history")
	}
	return cfg
}

// Load reads the settings file at path. An empty path means DefaultFile in
// the working directory, and a missing default file yields Default().
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errors.Wrapf(err, "reading config '%s'", path)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading config '%s'", path)
	}
	return cfg, nil
}

// Parse decodes YAML settings over the defaults. Unknown keys are errors.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decoding YAML")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.MaxCallDepth < 1 || c.MaxCallDepth > runtime.MaxCallDepthLimit {
		return errors.Errorf("max_call_depth must be between 1 and %d, got %d",
			runtime.MaxCallDepthLimit, c.MaxCallDepth)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.Errorf("color must be one of auto, always, never; got %q", c.Color)
	}
	return nil
}

// RuntimeOptions converts the settings to interpreter options.
func (c Config) RuntimeOptions() runtime.Options {
	return runtime.Options{MaxCallDepth: c.MaxCallDepth}
}
