// Package config loads the proxygen configuration file.
package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-json-experiment/json"

	"proxygen/internal/generation"
	"proxygen/internal/logger"
	"proxygen/internal/render"
)

// Config represents the proxygen configuration.
type Config struct {
	// Metadata file: a JSON dump (.json) or an ECMA-335 file (.winmd, .dll).
	MetadataPath string `json:"metadataPath"`
	OutputPath   string `json:"outputPath"`
	// Import path prefix of the generated packages.
	ModulePath string `json:"modulePath"`
	// Import path of the runtime support package the generated code calls into.
	RuntimeImport string `json:"runtimeImport"`
	// Write every namespace into the single package at ModulePath.
	Flat bool `json:"flat,omitempty"`

	// Full type names or namespaces to generate. Empty means every top-level type.
	Include []string `json:"include,omitempty"`
	// Glob patterns (path.Match syntax) of full type names to leave out of the generation set.
	Exclude []string `json:"exclude,omitempty"`
	// Full name -> replacement full name.
	Renames map[string]string `json:"renames,omitempty"`

	ExcludedMethods []string `json:"excludedMethods,omitempty"`
	MaxFields       int      `json:"maxFields,omitempty"`

	LogLevel  string `json:"logLevel,omitempty"`
	LogFormat string `json:"logFormat,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MetadataPath:    "metadata.json",
		OutputPath:      "./output/",
		ModulePath:      "proxies",
		RuntimeImport:   "proxygen/rt",
		ExcludedMethods: append([]string(nil), generation.DefaultExcludedMethods...),
		MaxFields:       generation.DefaultMaxFields,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads and parses a proxygen config file. Unset keys keep their defaults.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filePath, err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filePath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", filePath, err)
	}

	return &config, nil
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	if c.MetadataPath == "" {
		return fmt.Errorf("metadataPath must not be empty")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("outputPath must not be empty")
	}
	if c.ModulePath == "" || strings.ContainsAny(c.ModulePath, " \\") {
		return fmt.Errorf("modulePath must be a valid import path, got %q", c.ModulePath)
	}
	if c.RuntimeImport == "" {
		return fmt.Errorf("runtimeImport must not be empty")
	}
	if c.MaxFields <= 0 {
		return fmt.Errorf("maxFields must be positive, got %d", c.MaxFields)
	}

	for _, pattern := range c.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
	}

	for from, to := range c.Renames {
		if from == "" || to == "" {
			return fmt.Errorf("renames must map non-empty names, got %q -> %q", from, to)
		}
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("logFormat must be \"text\" or \"json\", got %q", c.LogFormat)
	}

	return nil
}

// The synthesizer options described by this config.
func (c *Config) GenerationOptions() generation.Options {
	return generation.Options{
		MaxFields:       c.MaxFields,
		ExcludedMethods: c.ExcludedMethods,
	}
}

// Where and how the proxies are printed.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		ModulePath:    c.ModulePath,
		RuntimeImport: c.RuntimeImport,
		Flat:          c.Flat,
	}
}

// Reports whether a full type name matches one of the exclude patterns.
func (c *Config) IsExcluded(fullName string) bool {
	for _, pattern := range c.Exclude {
		if matched, _ := path.Match(pattern, fullName); matched {
			return true
		}
	}
	return false
}
