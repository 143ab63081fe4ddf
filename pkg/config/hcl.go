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

package config

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL. Expressions may read the environment
// through the env object, e.g. root = env.HOME.
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": environment(),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		Root             string `hcl:"root,optional"`
		Jobs             int    `hcl:"jobs,optional"`
		Color            string `hcl:"color,optional"`
		LogLevel         string `hcl:"log_level,optional"`
		UnscopedSearches bool   `hcl:"unscoped_searches,optional"`
		Search           *struct {
			Engine         string   `hcl:"engine,optional"`
			Binary         string   `hcl:"binary,optional"`
			Args           []string `hcl:"args,optional"`
			IgnorePatterns []string `hcl:"ignore_patterns,optional"`
			Hidden         bool     `hcl:"hidden,optional"`
		} `hcl:"search,block"`
		Edit *struct {
			Engine      string   `hcl:"engine,optional"`
			Binary      string   `hcl:"binary,optional"`
			InPlaceArgs []string `hcl:"in_place_args,optional"`
		} `hcl:"edit,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		Root:             hclCfg.Root,
		Jobs:             hclCfg.Jobs,
		Color:            hclCfg.Color,
		LogLevel:         hclCfg.LogLevel,
		UnscopedSearches: hclCfg.UnscopedSearches,
	}
	if s := hclCfg.Search; s != nil {
		cfg.Search = SearchConfig{
			Engine:         s.Engine,
			Binary:         s.Binary,
			Args:           s.Args,
			IgnorePatterns: s.IgnorePatterns,
			Hidden:         s.Hidden,
		}
	}
	if e := hclCfg.Edit; e != nil {
		cfg.Edit = EditConfig{
			Engine:      e.Engine,
			Binary:      e.Binary,
			InPlaceArgs: e.InPlaceArgs,
		}
	}

	return cfg, nil
}

func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(k) || !utf8.ValidString(v) {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vars)
}
