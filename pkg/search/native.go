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
	"bytes"
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// binarySniffSize is how much of a file is checked for NUL bytes.
const binarySniffSize = 8000

// 🐹 Native searches Root in process with the regexp package
type Native struct {
	Root           string
	IgnorePatterns []string
	Hidden         bool
}

var _ Searcher = (*Native)(nil)

// Search implements Searcher. Paths are yielded relative to Root for a
// walk, and exactly as given for a scoped query. Binary files are skipped.
func (n *Native) Search(ctx context.Context, q Query) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		re, err := Compile(q)
		if err != nil {
			yield("", err)
			return
		}

		for path, err := range n.files(ctx, q.Files) {
			if err != nil {
				yield("", err)
				return
			}
			if !n.searchFile(ctx, re, q.Has('m'), path, yield) {
				return
			}
		}
	}
}

// Compile turns a query into the regular expression the native engine runs.
func Compile(q Query) (*regexp.Regexp, error) {
	pattern := q.Pattern
	if q.Has('F') {
		pattern = regexp.QuoteMeta(pattern)
	}
	if q.Has('w') {
		pattern = `\b(?:` + pattern + `)\b`
	}
	prefix := ""
	if q.Has('i') {
		prefix += "i"
	}
	if q.Has('m') {
		prefix += "m"
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("compiling pattern %q: %w", q.Pattern, err)
	}
	return re, nil
}

func (n *Native) root() string {
	if n.Root == "" {
		return "."
	}
	return n.Root
}

func (n *Native) files(ctx context.Context, scope []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if scope != nil {
			for _, f := range scope {
				if !yield(f, nil) {
					return
				}
			}
			return
		}

		root := n.root()
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == root {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			slashed := filepath.ToSlash(rel)
			if (!n.Hidden && strings.HasPrefix(d.Name(), ".")) || Ignored(n.IgnorePatterns, slashed) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !yield(rel, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", errors.Errorf("walking %s: %w", root, err))
		}
	}
}

func (n *Native) searchFile(ctx context.Context, re *regexp.Regexp, multiline bool, path string, yield func(string, error) bool) bool {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(n.root(), full)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return yield("", errors.Errorf("reading %s: %w", path, err))
	}
	if bytes.IndexByte(data[:min(len(data), binarySniffSize)], 0) >= 0 {
		zerolog.Ctx(ctx).Trace().Str("path", path).Msg("skipping binary file")
		return true
	}

	lines := splitLines(data)
	emit := func(i int) bool {
		return yield(path+":"+strconv.Itoa(i+1)+":"+lines[i], nil)
	}

	if !multiline {
		for i, line := range lines {
			if re.MatchString(line) && !emit(i) {
				return false
			}
		}
		return true
	}

	// mark every line a match touches, then emit in order
	starts := lineStarts(data)
	hit := make([]bool, len(lines))
	for _, loc := range re.FindAllIndex(data, -1) {
		first := lineOf(starts, loc[0])
		last := first
		if loc[1] > loc[0] {
			last = lineOf(starts, loc[1]-1)
		}
		for i := first; i <= last && i < len(hit); i++ {
			hit[i] = true
		}
	}
	for i, ok := range hit {
		if ok && !emit(i) {
			return false
		}
	}
	return true
}

// splitLines drops line terminators, including a trailing \r.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func lineStarts(data []byte) []int {
	starts := []int{0}
	for i, b := range data {
		if b == '\n' && i+1 < len(data) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf returns the 0-indexed line containing byte offset off.
func lineOf(starts []int, off int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
