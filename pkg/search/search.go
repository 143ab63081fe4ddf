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

// Package search produces "path:line:text" match streams for a pattern,
// either by running ripgrep or by walking the tree in process.
package search

import (
	"context"
	"iter"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// 🔍 Query is one search request
type Query struct {
	Pattern string
	// Flags: i ignore case, m multiline, w whole word, F fixed string
	Flags string
	// Files restricts the search; nil searches the whole root.
	Files []string
}

// Has reports whether flag f is set.
func (q Query) Has(f rune) bool {
	return strings.ContainsRune(q.Flags, f)
}

// 🔌 Searcher yields matched lines grouped by file, ascending within a file
type Searcher interface {
	Search(ctx context.Context, q Query) iter.Seq2[string, error]
}

// Ignored reports whether rel matches any of patterns. Patterns without a
// slash are also tried against each path element, so "node_modules" skips
// that directory anywhere in the tree.
func Ignored(patterns []string, rel string) bool {
	rel = strings.TrimPrefix(rel, "./")
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if strings.Contains(pattern, "/") {
			continue
		}
		for _, part := range strings.Split(rel, "/") {
			if ok, _ := doublestar.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}
