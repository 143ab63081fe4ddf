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

// Package stage defines the steps of a region pipeline and their command-line
// encoding. A Stage is a closed set of types; code outside this package
// dispatches on it with a type switch.
package stage

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// 🏷️ Kind names a stage type
type Kind string

const (
	KindSearch        Kind = "search"
	KindNegatedSearch Kind = "negated-search"
	KindSubstitute    Kind = "substitute"
	KindPathFilter    Kind = "path-filter"
	KindSeedList      Kind = "seed-list"
	KindReportFiles   Kind = "report-files"
	KindReportRegions Kind = "report-regions"
)

// 🧱 Stage is one pipeline step
type Stage interface {
	Kind() Kind
	String() string
	isStage()
}

// Search narrows the working set to regions matching Pattern.
type Search struct {
	Pattern string
	Flags   string
}

// NegatedSearch drops regions touched by a match of Pattern.
type NegatedSearch struct {
	Pattern string
	Flags   string
}

// Substitute edits every region in place.
type Substitute struct {
	Pattern     string
	Replacement string
	Flags       string
	Separator   rune
}

// PathFilter keeps regions whose path matches Glob, or does not when Negate is set.
type PathFilter struct {
	Glob   string
	Negate bool
}

// SeedList seeds whole-file regions from an external file list, or filters
// the current regions by membership in it.
type SeedList struct{}

// ReportFiles prints each distinct file of the working set once.
type ReportFiles struct{}

// ReportRegions prints every line of every region, re-read from disk.
type ReportRegions struct{}

func (Search) Kind() Kind        { return KindSearch }
func (NegatedSearch) Kind() Kind { return KindNegatedSearch }
func (Substitute) Kind() Kind    { return KindSubstitute }
func (PathFilter) Kind() Kind    { return KindPathFilter }
func (SeedList) Kind() Kind      { return KindSeedList }
func (ReportFiles) Kind() Kind   { return KindReportFiles }
func (ReportRegions) Kind() Kind { return KindReportRegions }

func (Search) isStage()        {}
func (NegatedSearch) isStage() {}
func (Substitute) isStage()    {}
func (PathFilter) isStage()    {}
func (SeedList) isStage()      {}
func (ReportFiles) isStage()   {}
func (ReportRegions) isStage() {}

func (s Search) String() string {
	return encode('g', '/', s.Pattern, s.Flags)
}

func (s NegatedSearch) String() string {
	return encode('v', '/', s.Pattern, s.Flags)
}

func (s Substitute) String() string {
	sep := s.Separator
	if sep == 0 {
		sep = '/'
	}
	return encode('s', sep, s.Pattern, s.Replacement, s.Flags)
}

func (s PathFilter) String() string {
	glob := s.Glob
	if s.Negate {
		glob = "!" + glob
	}
	return encode('f', '/', glob, "")
}

// Match reports whether the filter keeps path. A glob with no slash is also
// tried against the base name, so "*.ts" keeps "src/b.ts".
func (s PathFilter) Match(p string) bool {
	p = strings.TrimPrefix(filepath.ToSlash(p), "./")
	ok, _ := doublestar.Match(s.Glob, p)
	if !ok && !strings.Contains(s.Glob, "/") {
		ok, _ = doublestar.Match(s.Glob, path.Base(p))
	}
	return ok != s.Negate
}

func (SeedList) String() string      { return "-" }
func (ReportFiles) String() string   { return "l" }
func (ReportRegions) String() string { return "p" }

// IsReport reports whether s renders the working set.
func IsReport(s Stage) bool {
	switch s.(type) {
	case ReportFiles, ReportRegions:
		return true
	default:
		return false
	}
}

// WithDefaultReport appends a ReportRegions stage when stages has no report
// stage of its own. The input slice is not modified.
func WithDefaultReport(stages []Stage) []Stage {
	for _, s := range stages {
		if IsReport(s) {
			return stages
		}
	}
	out := make([]Stage, 0, len(stages)+1)
	out = append(out, stages...)
	return append(out, ReportRegions{})
}

func encode(tag, delim rune, fields ...string) string {
	var b strings.Builder
	b.WriteRune(tag)
	b.WriteRune(delim)
	for i, f := range fields {
		b.WriteString(strings.ReplaceAll(f, string(delim), `\`+string(delim)))
		if i < len(fields)-1 {
			b.WriteRune(delim)
		}
	}
	return b.String()
}
