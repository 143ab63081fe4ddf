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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/rpipe/pkg/config"
	"github.com/walteh/rpipe/pkg/edit"
	"github.com/walteh/rpipe/pkg/log"
	"github.com/walteh/rpipe/pkg/search"
	"github.com/walteh/rpipe/pkg/stage"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestExecute(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name       string
		files      map[string]string
		args       func(root string) []string
		stdin      string
		wantCode   int
		wantStdout string
		wantStderr string
		check      func(t *testing.T, root string)
	}{
		{
			name:  "search_then_substitute",
			files: map[string]string{"f.txt": "foo\nfoo\nbaz\n", "g.txt": "nothing\n"},
			args: func(root string) []string {
				return []string{"-C", root, "--engine", "native", "--color", "never", "g/foo/", "s/foo/bar/"}
			},
			wantStdout: "f.txt:1:bar\nf.txt:2:bar\n",
			wantStderr: "1 file edited (2 replacements)",
			check: func(t *testing.T, root string) {
				got, err := os.ReadFile(filepath.Join(root, "f.txt"))
				require.NoError(t, err)
				assert.Equal(t, "bar\nbar\nbaz\n", string(got))
			},
		},
		{
			name:  "stdin_seed_and_file_report",
			files: map[string]string{"a.txt": "x\n", "b.txt": "y\n"},
			args: func(root string) []string {
				return []string{"-C", root, "--engine", "native", "-", "l"}
			},
			stdin:      "b.txt\na.txt\n",
			wantStdout: "b.txt\na.txt\n",
		},
		{
			name:  "glob_and_negated_search",
			files: map[string]string{"a.js": "todo one\n", "b.ts": "todo two\n", "c.ts": "todo three\nskip\n"},
			args: func(root string) []string {
				return []string{"-C", root, "--engine", "native", "g/todo/", "f/*.ts/", "v/three/", "p"}
			},
			wantStdout: "b.ts:1:todo two\n",
		},
		{
			name:  "config_file_ignore_patterns",
			files: map[string]string{"keep/a.txt": "hit\n", "vendor/b.txt": "hit\n", ".rpipe.yaml": "search:\n  engine: native\n  ignore_patterns: [vendor]\n"},
			args: func(root string) []string {
				return []string{"-C", root, "g/hit/", "l"}
			},
			wantStdout: "keep/a.txt\n",
		},
		{
			name:  "unknown_stage",
			files: map[string]string{"a.txt": "x\n"},
			args: func(root string) []string {
				return []string{"-C", root, "x/y/"}
			},
			wantCode:   1,
			wantStderr: "unknown stage type",
		},
		{
			name:  "bad_config",
			files: map[string]string{".rpipe.yaml": "color: rainbow\n"},
			args: func(root string) []string {
				return []string{"-C", root, "g/x/"}
			},
			wantCode:   1,
			wantStderr: "color must be one of",
		},
		{
			name:  "no_stages",
			files: map[string]string{},
			args: func(root string) []string {
				return []string{"-C", root}
			},
			wantCode:   1,
			wantStderr: "requires at least 1 arg",
		},
		{
			name:  "bad_pattern_aborts",
			files: map[string]string{"a.txt": "x\n"},
			args: func(root string) []string {
				return []string{"-C", root, "--engine", "native", "g/(/", "l"}
			},
			wantCode:   1,
			wantStderr: "stage 1 (search)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, tt.files)
			var stdout, stderr bytes.Buffer

			code := execute(context.Background(), tt.args(root), strings.NewReader(tt.stdin), &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code, "stderr: %s", stderr.String())
			assert.Equal(t, tt.wantStdout, stdout.String())
			if tt.wantStderr != "" {
				assert.Contains(t, stderr.String(), tt.wantStderr)
			}
			if tt.check != nil {
				tt.check(t, root)
			}
		})
	}
}

func TestExecuteAbsoluteStdinPaths(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	root := writeTree(t, map[string]string{"a.txt": "foo\nbar\n", "b.txt": "bar\n"})
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")

	var stdout, stderr bytes.Buffer
	args := []string{"-C", root, "--engine", "native", "--color", "never", "-", "g/foo/", "s/foo/baz/"}
	code := execute(context.Background(), args, strings.NewReader(a+"\n"+b+"\n"), &stdout, &stderr)

	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	assert.Equal(t, a+":1:baz\n", stdout.String())

	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "baz\nbar\n", string(got))
}

func TestWarnTerminalFileList(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		args     []string
		terminal bool
		want     string
	}{
		{name: "terminal_seed", args: []string{"g/x/", "-"}, terminal: true, want: "stage 2 reads the file list from the terminal"},
		{name: "piped_seed", args: []string{"-"}, terminal: false},
		{name: "terminal_without_seed", args: []string{"g/x/"}, terminal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := stage.ParseAll(tt.args)
			require.NoError(t, err)

			var console bytes.Buffer
			ctx := log.NewContext(context.Background(), log.New(&console, zerolog.InfoLevel))
			warnTerminalFileList(ctx, stages, tt.terminal)

			if tt.want == "" {
				assert.Empty(t, console.String())
				return
			}
			assert.Contains(t, console.String(), tt.want)
		})
	}
}

func TestConfigureColor(t *testing.T) {
	defer func() {
		color.NoColor = false
		pterm.EnableColor()
	}()

	tests := []struct {
		name      string
		mode      string
		noColor   bool
		wantColor bool
	}{
		{name: "auto_without_terminal", mode: config.ColorAuto, noColor: true, wantColor: false},
		{name: "auto_with_terminal", mode: config.ColorAuto, noColor: false, wantColor: true},
		{name: "always", mode: config.ColorAlways, noColor: true, wantColor: true},
		{name: "never", mode: config.ColorNever, noColor: false, wantColor: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			color.NoColor = tt.noColor
			configureColor(tt.mode)
			assert.Equal(t, !tt.wantColor, color.NoColor)
			assert.Equal(t, tt.wantColor, pterm.PrintColor, "pterm should follow color")
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"version"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "rpipe version info")

	stdout.Reset()
	code = execute(context.Background(), []string{"version", "--json"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var info VersionInfo
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &info))
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Version)
}

func TestEngineSelection(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		wantSearch any
		wantEdit   any
		wantErr    string
	}{
		{
			name:       "native",
			cfg:        config.Config{Search: config.SearchConfig{Engine: config.EngineNative}, Edit: config.EditConfig{Engine: config.EngineNative}},
			wantSearch: &search.Native{},
			wantEdit:   &edit.Native{},
		},
		{
			name:       "auto_without_binary",
			cfg:        config.Config{Search: config.SearchConfig{Binary: "rpipe-missing-rg"}, Edit: config.EditConfig{Binary: "rpipe-missing-sed"}},
			wantSearch: &search.Native{},
			wantEdit:   &edit.Native{},
		},
		{
			name:    "external_without_binary",
			cfg:     config.Config{Search: config.SearchConfig{Engine: config.EngineExternal, Binary: "rpipe-missing-rg"}},
			wantErr: "search engine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			require.NoError(t, cfg.Validate())

			s, err := newSearcher(context.Background(), &cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantSearch, s)

			e, err := newEditor(context.Background(), &cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.wantEdit, e)
		})
	}
}
