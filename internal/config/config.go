// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package config loads the starpipe configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/starpipe/internal/cap"
)

// EnvPath names the environment variable that overrides the config file
// location.
const EnvPath = "STARPIPE_CONFIG"

// Config holds the global starpipe configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Journal  JournalConfig  `yaml:"journal"`
}

// PipelineConfig sets the names expressions use for the item and the
// stream.
type PipelineConfig struct {
	Variable       string `yaml:"variable" validate:"required,ident"`
	StreamVariable string `yaml:"stream_variable" validate:"required,ident,nefield=Variable"`
}

// CatalogConfig controls which capabilities expressions may import.
type CatalogConfig struct {
	Disabled []string   `yaml:"disabled" validate:"dive,ident"`
	Kinds    KindConfig `yaml:"kinds"`
}

// KindConfig enables or disables whole kinds of capability.
type KindConfig struct {
	Module   bool `yaml:"module"`
	Function bool `yaml:"function"`
	Constant bool `yaml:"constant"`
}

// OutputConfig controls how output items are written.
type OutputConfig struct {
	LineSeparator string `yaml:"line_separator"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// JournalConfig controls the run journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Pipeline: PipelineConfig{
			Variable:       "i",
			StreamVariable: "stream",
		},
		Catalog: CatalogConfig{
			Kinds: KindConfig{Module: true, Function: true, Constant: true},
		},
		Output: OutputConfig{LineSeparator: "\n"},
		Log:    LogConfig{Level: "warn", Format: "console"},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(home, ".local", "share", "starpipe", "journal.jsonl"),
		},
	}
}

// Load reads the config from $STARPIPE_CONFIG, or from
// ~/.config/starpipe/config.yaml. A missing file yields the default
// config.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config from the given path. Settings absent from
// the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if strings.HasPrefix(cfg.Journal.Path, "~") {
		home, _ := os.UserHomeDir()
		cfg.Journal.Path = filepath.Join(home, cfg.Journal.Path[1:])
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the config file location.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "starpipe", "config.yaml")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return IsIdent(fl.Field().String())
	})
	return v
}

// Validate checks every field against its constraints and reports all
// failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: %s", strings.TrimPrefix(fe.Namespace(), "Config."), describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + strings.ReplaceAll(fe.Param(), " ", " is ")
	case "ident":
		return fmt.Sprintf("%q is not an identifier", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of: %s", fe.Value(), fe.Param())
	case "nefield":
		return "must differ from " + fe.Param()
	default:
		return "is invalid"
	}
}

// IsIdent reports whether s is usable as a variable name.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// Apply pushes the catalog settings onto the registry.
func (c *Config) Apply(reg *cap.Registry) {
	reg.SetKindEnabled(cap.KindModule, c.Catalog.Kinds.Module)
	reg.SetKindEnabled(cap.KindFunction, c.Catalog.Kinds.Function)
	reg.SetKindEnabled(cap.KindConstant, c.Catalog.Kinds.Constant)
	for _, name := range c.Catalog.Disabled {
		reg.Disable(name)
	}
}
