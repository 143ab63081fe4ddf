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
	"iter"
)

// 🧲 Coalesce groups consecutive same-file, consecutive-line matches into regions.
//
// The input must already be grouped by file and ascending by line within a
// file, which is how search tools emit it; nothing is re-sorted. The result
// is lazy and can be ranged over once. An error from the input is yielded
// after the region that was open at that point is dropped.
func Coalesce(matches iter.Seq2[Match, error]) iter.Seq2[Region, error] {
	return func(yield func(Region, error) bool) {
		var open *Region
		for m, err := range matches {
			if err != nil {
				yield(Region{}, err)
				return
			}
			if open != nil && open.Path == m.Path && m.Line == open.LastLine+1 {
				open.LastLine = m.Line
				open.Content = append(open.Content, m.Text)
				continue
			}
			if open != nil && !yield(*open, nil) {
				return
			}
			open = &Region{
				Path:      m.Path,
				FirstLine: m.Line,
				LastLine:  m.Line,
				Content:   []string{m.Text},
			}
		}
		if open != nil {
			yield(*open, nil)
		}
	}
}

// Collect drains a region sequence into a Set, stopping at the first error.
func Collect(regions iter.Seq2[Region, error]) (Set, error) {
	var out Set
	for r, err := range regions {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FromLines parses, coalesces and collects raw "path:line:text" output.
func FromLines(lines iter.Seq2[string, error]) (Set, error) {
	return Collect(Coalesce(ParseMatches(lines)))
}
