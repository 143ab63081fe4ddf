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

package region

import (
	"fmt"
	"math"
)

// WholeFile is the LastLine of a region that extends to the end of its file.
// It is a marker, not a line count: readers must stop at EOF.
const WholeFile = math.MaxInt

// 📍 Region is a maximal contiguous run of matched lines within one file
type Region struct {
	Path      string   // File path as produced by the search stage
	FirstLine int      // 1-indexed, inclusive
	LastLine  int      // Inclusive, or WholeFile
	Content   []string // Matched text, diagnostics only
}

// IsWholeFile reports whether the region runs to the end of its file.
func (r Region) IsWholeFile() bool {
	return r.LastLine == WholeFile
}

// Overlaps reports whether r and o share at least one line of the same file.
func (r Region) Overlaps(o Region) bool {
	return r.Path == o.Path && o.FirstLine <= r.LastLine && o.LastLine >= r.FirstLine
}

// Len returns the number of lines covered, or -1 for whole-file regions.
func (r Region) Len() int {
	if r.IsWholeFile() {
		return -1
	}
	return r.LastLine - r.FirstLine + 1
}

func (r Region) String() string {
	if r.IsWholeFile() {
		return fmt.Sprintf("%s:%d-$", r.Path, r.FirstLine)
	}
	return fmt.Sprintf("%s:%d-%d", r.Path, r.FirstLine, r.LastLine)
}

// 📦 Set is the ordered working selection of a pipeline
type Set []Region

// Files returns each distinct path once, in first-occurrence order.
func (s Set) Files() []string {
	seen := make(map[string]struct{}, len(s))
	files := make([]string, 0, len(s))
	for _, r := range s {
		if _, ok := seen[r.Path]; ok {
			continue
		}
		seen[r.Path] = struct{}{}
		files = append(files, r.Path)
	}
	return files
}

// ByFile groups the set per path, keeping every region of a file in set order.
func (s Set) ByFile() map[string][]Region {
	out := make(map[string][]Region)
	for _, r := range s {
		out[r.Path] = append(out[r.Path], r)
	}
	return out
}

// Canonical reports whether no two regions of the same file overlap or touch.
func (s Set) Canonical() bool {
	for _, regions := range s.ByFile() {
		for i := range regions {
			for j := i + 1; j < len(regions); j++ {
				a, b := regions[i], regions[j]
				if a.FirstLine <= addSat(b.LastLine, 1) && b.FirstLine <= addSat(a.LastLine, 1) {
					return false
				}
			}
		}
	}
	return true
}

func addSat(n, d int) int {
	if n > math.MaxInt-d {
		return math.MaxInt
	}
	return n + d
}
