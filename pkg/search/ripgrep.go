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

package search

import (
	"context"
	"iter"

	"github.com/walteh/rpipe/pkg/proc"
)

// rgNoMatches is ripgrep's exit status when nothing matched.
const rgNoMatches = 1

// maxFilesPerCall keeps scoped invocations under the argument length limit.
const maxFilesPerCall = 512

// 🦀 Ripgrep runs rg in Root
type Ripgrep struct {
	Binary         string
	Root           string
	ExtraArgs      []string
	IgnorePatterns []string
	Hidden         bool
}

var _ Searcher = (*Ripgrep)(nil)

// Search implements Searcher. A scoped query is split into batches that run
// one after another, so the stream keeps the order of q.Files.
func (r *Ripgrep) Search(ctx context.Context, q Query) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, batch := range batches(q.Files) {
			for line, err := range proc.Lines(ctx, r.command(q, batch)) {
				if !yield(line, err) || err != nil {
					return
				}
			}
		}
	}
}

func (r *Ripgrep) command(q Query, files []string) proc.Command {
	binary := r.Binary
	if binary == "" {
		binary = "rg"
	}
	return proc.Command{
		Name:        binary,
		Args:        r.Args(q, files),
		Dir:         r.Root,
		OKExitCodes: []int{rgNoMatches},
	}
}

// Args builds the rg argument list for q restricted to files.
func (r *Ripgrep) Args(q Query, files []string) []string {
	args := []string{
		"--line-number",
		"--with-filename",
		"--no-heading",
		"--color", "never",
		"--sort", "path",
	}
	if q.Has('i') {
		args = append(args, "--ignore-case")
	}
	if q.Has('m') {
		args = append(args, "--multiline")
	}
	if q.Has('w') {
		args = append(args, "--word-regexp")
	}
	if q.Has('F') {
		args = append(args, "--fixed-strings")
	}
	if r.Hidden {
		args = append(args, "--hidden")
	}
	for _, p := range r.IgnorePatterns {
		args = append(args, "--glob", "!"+p)
	}
	args = append(args, r.ExtraArgs...)
	args = append(args, "--regexp", q.Pattern)
	if len(files) > 0 {
		args = append(args, "--")
		args = append(args, files...)
	}
	return args
}

// batches splits files into argument-sized groups. An unscoped query is a
// single batch with no files.
func batches(files []string) [][]string {
	if files == nil {
		return [][]string{nil}
	}
	var out [][]string
	for len(files) > maxFilesPerCall {
		out = append(out, files[:maxFilesPerCall])
		files = files[maxFilesPerCall:]
	}
	if len(files) > 0 {
		out = append(out, files)
	}
	return out
}
