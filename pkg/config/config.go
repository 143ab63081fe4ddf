// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads rpipe settings from an optional .rpipe.yaml, .hcl or
// .json file. Command line flags are applied on top by the caller.
package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Engine values
const (
	EngineAuto     = "auto"
	EngineNative   = "native"
	EngineExternal = "external"
)

// Color values
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DefaultNames are the file names Find looks for, in order.
var DefaultNames = []string{".rpipe.yaml", ".rpipe.yml", ".rpipe.hcl", ".rpipe.json"}

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔍 SearchConfig configures the search engine
type SearchConfig struct {
	Engine         string   `json:"engine,omitempty" yaml:"engine,omitempty"`                   // auto, native or external
	Binary         string   `json:"binary,omitempty" yaml:"binary,omitempty"`                   // ripgrep binary
	Args           []string `json:"args,omitempty" yaml:"args,omitempty"`                       // extra ripgrep arguments
	IgnorePatterns []string `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty"` // globs skipped by searches
	Hidden         bool     `json:"hidden,omitempty" yaml:"hidden,omitempty"`                   // search hidden files
}

// ✏️ EditConfig configures the edit engine
type EditConfig struct {
	Engine      string   `json:"engine,omitempty" yaml:"engine,omitempty"`               // auto, native or external
	Binary      string   `json:"binary,omitempty" yaml:"binary,omitempty"`               // sed binary
	InPlaceArgs []string `json:"in_place_args,omitempty" yaml:"in_place_args,omitempty"` // defaults to -i
}

// 📚 Config represents the complete configuration
type Config struct {
	Root             string       `json:"root,omitempty" yaml:"root,omitempty"`
	Jobs             int          `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	Color            string       `json:"color,omitempty" yaml:"color,omitempty"`
	LogLevel         string       `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	UnscopedSearches bool         `json:"unscoped_searches,omitempty" yaml:"unscoped_searches,omitempty"`
	Search           SearchConfig `json:"search,omitempty" yaml:"search,omitempty"`
	Edit             EditConfig   `json:"edit,omitempty" yaml:"edit,omitempty"`
}

// 🏭 Default returns a validated config with every default applied
func Default() *Config {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// 🔎 Find returns the first default config file in dir, or "" when there is none
func Find(dir string) (string, error) {
	for _, name := range DefaultNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", errors.Errorf("checking %s: %w", path, err)
		}
		if !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate sets defaults and checks values
func (cfg *Config) Validate() error {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	cfg.Root = filepath.Clean(cfg.Root)

	if cfg.Jobs < 0 {
		return errors.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.NumCPU()
	}

	if cfg.Color == "" {
		cfg.Color = ColorAuto
	}
	if !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, cfg.Color) {
		return errors.Errorf("color must be one of auto, always, never; got %q", cfg.Color)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = zerolog.InfoLevel.String()
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Errorf("log_level: %w", err)
	}

	if err := validateEngine("search.engine", &cfg.Search.Engine); err != nil {
		return err
	}
	if err := validateEngine("edit.engine", &cfg.Edit.Engine); err != nil {
		return err
	}
	if cfg.Search.Binary == "" {
		cfg.Search.Binary = "rg"
	}
	if cfg.Edit.Binary == "" {
		cfg.Edit.Binary = "sed"
	}

	for _, pattern := range cfg.Search.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("search.ignore_patterns: invalid glob %q", pattern)
		}
	}

	return nil
}

// 📝 Level returns the parsed log level
func (cfg *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func validateEngine(field string, engine *string) error {
	if *engine == "" {
		*engine = EngineAuto
	}
	switch *engine {
	case EngineAuto, EngineNative, EngineExternal:
		return nil
	default:
		return errors.Errorf("%s must be one of auto, native, external; got %q", field, *engine)
	}
}
