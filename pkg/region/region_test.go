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
	"iter"
	"path"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func lines(raw ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, l := range raw {
			if !yield(l, nil) {
				return
			}
		}
	}
}

func matches(ms ...Match) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		for _, m := range ms {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func TestParseMatch(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Match
		wantErr bool
	}{
		{
			name: "simple",
			raw:  "a.txt:3:hello",
			want: Match{Path: "a.txt", Line: 3, Text: "hello"},
		},
		{
			name: "text_with_colons",
			raw:  "dir/a.go:12:x := map[string]int{\"a\":1}",
			want: Match{Path: "dir/a.go", Line: 12, Text: "x := map[string]int{\"a\":1}"},
		},
		{
			name: "path_with_colon",
			raw:  "C:/src/a.go:7:",
			want: Match{Path: "C:/src/a.go", Line: 7, Text: ""},
		},
		{
			name: "trailing_newline",
			raw:  "a.txt:1:foo\n",
			want: Match{Path: "a.txt", Line: 1, Text: "foo"},
		},
		{
			name:    "missing_line_number",
			raw:     "a.txt:foo",
			wantErr: true,
		},
		{
			name:    "zero_line_number",
			raw:     "a.txt:0:foo",
			wantErr: true,
		},
		{
			name:    "empty_path",
			raw:     ":3:foo",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMatch(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedMatchLine), "error should be ErrMalformedMatchLine")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name string
		in   []Match
		want Set
	}{
		{
			name: "empty_input",
			in:   nil,
			want: nil,
		},
		{
			name: "single_line",
			in:   []Match{{Path: "f", Line: 4, Text: "x"}},
			want: Set{{Path: "f", FirstLine: 4, LastLine: 4, Content: []string{"x"}}},
		},
		{
			name: "consecutive_lines_merge",
			in: []Match{
				{Path: "f", Line: 1, Text: "a"},
				{Path: "f", Line: 2, Text: "b"},
				{Path: "f", Line: 3, Text: "c"},
			},
			want: Set{{Path: "f", FirstLine: 1, LastLine: 3, Content: []string{"a", "b", "c"}}},
		},
		{
			name: "gap_splits",
			in: []Match{
				{Path: "f", Line: 1, Text: "a"},
				{Path: "f", Line: 3, Text: "c"},
			},
			want: Set{
				{Path: "f", FirstLine: 1, LastLine: 1, Content: []string{"a"}},
				{Path: "f", FirstLine: 3, LastLine: 3, Content: []string{"c"}},
			},
		},
		{
			name: "file_change_splits",
			in: []Match{
				{Path: "f", Line: 1, Text: "a"},
				{Path: "g", Line: 2, Text: "b"},
			},
			want: Set{
				{Path: "f", FirstLine: 1, LastLine: 1, Content: []string{"a"}},
				{Path: "g", FirstLine: 2, LastLine: 2, Content: []string{"b"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Collect(Coalesce(matches(tt.in...)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoalesceStopsOnMalformedLine(t *testing.T) {
	_, err := FromLines(lines("a:1:x", "a:2:y", "garbage"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedMatchLine))
}

func TestCoalesceEarlyBreak(t *testing.T) {
	seq := Coalesce(ParseMatches(lines("a:1:x", "a:5:y", "a:9:z")))
	count := 0
	for r, err := range seq {
		require.NoError(t, err)
		count++
		assert.Equal(t, 1, r.FirstLine)
		break
	}
	assert.Equal(t, 1, count)
}

// Coalesced regions are disjoint, non-adjacent, and cover exactly the input lines.
func TestCoalesceProperties(t *testing.T) {
	streams := [][]int{
		{1, 2, 3, 5, 6, 9},
		{10},
		{1, 3, 5, 7},
		{2, 3, 4, 5, 6, 7, 8, 20, 21, 40},
	}
	for i, nums := range streams {
		t.Run(fmt.Sprintf("stream_%d", i), func(t *testing.T) {
			var in []Match
			for _, file := range []string{"a.go", "b.go"} {
				for _, n := range nums {
					in = append(in, Match{Path: file, Line: n, Text: fmt.Sprintf("%s-%d", file, n)})
				}
			}

			got, err := Collect(Coalesce(matches(in...)))
			require.NoError(t, err)
			assert.True(t, got.Canonical(), "coalesced set should be canonical")

			covered := map[string][]int{}
			for _, r := range got {
				require.Equal(t, r.Len(), len(r.Content), "content length should match bounds")
				for n := r.FirstLine; n <= r.LastLine; n++ {
					covered[r.Path] = append(covered[r.Path], n)
				}
			}
			for _, file := range []string{"a.go", "b.go"} {
				sort.Ints(covered[file])
				assert.Equal(t, nums, covered[file], "union of lines should equal input for %s", file)
			}

			// expanding a region back to lines and re-coalescing is the identity
			for _, r := range got {
				var expanded []Match
				for k, n := 0, r.FirstLine; n <= r.LastLine; k, n = k+1, n+1 {
					expanded = append(expanded, Match{Path: r.Path, Line: n, Text: r.Content[k]})
				}
				again, err := Collect(Coalesce(matches(expanded...)))
				require.NoError(t, err)
				assert.Equal(t, Set{r}, again)
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	current := Set{
		{Path: "f", FirstLine: 10, LastLine: 12},
		{Path: "f", FirstLine: 20, LastLine: 22},
		{Path: "g", FirstLine: 1, LastLine: 1},
	}

	tests := []struct {
		name string
		next Set
		want Set
	}{
		{
			name: "inner_match_keeps_original_bounds",
			next: Set{{Path: "f", FirstLine: 11, LastLine: 11}},
			want: Set{{Path: "f", FirstLine: 10, LastLine: 12}},
		},
		{
			name: "overlap_is_inclusive",
			next: Set{{Path: "f", FirstLine: 12, LastLine: 15}, {Path: "g", FirstLine: 1, LastLine: 4}},
			want: Set{{Path: "f", FirstLine: 10, LastLine: 12}, {Path: "g", FirstLine: 1, LastLine: 1}},
		},
		{
			name: "checks_every_region_of_the_file",
			next: Set{{Path: "f", FirstLine: 1, LastLine: 2}, {Path: "f", FirstLine: 21, LastLine: 21}},
			want: Set{{Path: "f", FirstLine: 20, LastLine: 22}},
		},
		{
			name: "other_file_does_not_qualify",
			next: Set{{Path: "h", FirstLine: 11, LastLine: 11}},
			want: Set{},
		},
		{
			name: "adjacent_is_not_overlap",
			next: Set{{Path: "f", FirstLine: 13, LastLine: 19}},
			want: Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intersect(current, tt.next.ByFile())
			assert.Equal(t, tt.want, got)
			assert.Len(t, current, 3, "input should not be modified")
		})
	}
}

func TestSubtract(t *testing.T) {
	current := Set{
		{Path: "f", FirstLine: 10, LastLine: 12},
		{Path: "f", FirstLine: 30, LastLine: 30},
	}

	tests := []struct {
		name    string
		negated Set
		want    Set
	}{
		{
			name:    "partial_overlap_drops_whole_region",
			negated: Set{{Path: "f", FirstLine: 12, LastLine: 20}},
			want:    Set{{Path: "f", FirstLine: 30, LastLine: 30}},
		},
		{
			name:    "no_overlap_keeps_all",
			negated: Set{{Path: "f", FirstLine: 13, LastLine: 29}},
			want:    current,
		},
		{
			name:    "every_region_is_checked",
			negated: Set{{Path: "f", FirstLine: 1, LastLine: 1}, {Path: "f", FirstLine: 30, LastLine: 31}},
			want:    Set{{Path: "f", FirstLine: 10, LastLine: 12}},
		},
		{
			name:    "whole_file_removes_everything",
			negated: Set{{Path: "f", FirstLine: 1, LastLine: WholeFile}},
			want:    Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subtract(current, tt.negated.ByFile()))
		})
	}
}

func TestFilter(t *testing.T) {
	current := Set{
		{Path: "a.js", FirstLine: 1, LastLine: 2},
		{Path: "b.ts", FirstLine: 3, LastLine: 3},
		{Path: "b.ts", FirstLine: 7, LastLine: 9},
	}

	got := Filter(current, func(p string) bool {
		ok, _ := path.Match("*.ts", p)
		return ok
	})
	assert.Equal(t, Set{
		{Path: "b.ts", FirstLine: 3, LastLine: 3},
		{Path: "b.ts", FirstLine: 7, LastLine: 9},
	}, got)

	got = Filter(current, MemberOf([]string{"a.js", "missing"}))
	assert.Equal(t, Set{{Path: "a.js", FirstLine: 1, LastLine: 2}}, got)
}

func TestSeed(t *testing.T) {
	got := Seed([]string{"x.txt", "y.txt", "x.txt", ""})
	require.Len(t, got, 2)
	for i, want := range []string{"x.txt", "y.txt"} {
		assert.Equal(t, want, got[i].Path)
		assert.Equal(t, 1, got[i].FirstLine)
		assert.True(t, got[i].IsWholeFile(), "seeded region should span the whole file")
		assert.Equal(t, -1, got[i].Len())
	}
	assert.Equal(t, "x.txt:1-$", got[0].String())

	// a seeded region is qualified by any match in its file
	kept := Intersect(got, Set{{Path: "y.txt", FirstLine: 400, LastLine: 400}}.ByFile())
	assert.Equal(t, Set{got[1]}, kept)
}

func TestReplace(t *testing.T) {
	old := Set{{Path: "a", FirstLine: 1, LastLine: 1}}
	next := Set{{Path: "b", FirstLine: 2, LastLine: 3}}
	got := Replace(old, next)
	assert.Equal(t, next, got)
	got[0].Path = "changed"
	assert.Equal(t, "b", next[0].Path, "replace should copy")
	assert.Empty(t, Replace(old, nil))
}

func TestSetFiles(t *testing.T) {
	s := Set{
		{Path: "b", FirstLine: 1, LastLine: 1},
		{Path: "a", FirstLine: 1, LastLine: 1},
		{Path: "b", FirstLine: 5, LastLine: 5},
	}
	assert.Equal(t, []string{"b", "a"}, s.Files())
	assert.Len(t, s.ByFile()["b"], 2)
	assert.True(t, s.Canonical())
	assert.False(t, append(s, Region{Path: "b", FirstLine: 2, LastLine: 2}).Canonical(), "adjacent regions are not canonical")
}
