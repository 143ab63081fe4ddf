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

// The combinators below never modify their inputs; each returns a new Set.

// Replace discards the current set in favour of next.
func Replace(_ Set, next Set) Set {
	out := make(Set, len(next))
	copy(out, next)
	return out
}

// Intersect keeps each current region that at least one region of next, in
// the same file, overlaps by a line or more. Survivors keep their own
// bounds; next only qualifies them.
func Intersect(current Set, next map[string][]Region) Set {
	return keep(current, func(r Region) bool {
		return anyOverlap(r, next[r.Path])
	})
}

// Subtract drops every current region that any region of negated overlaps,
// even partially. Regions are never split.
func Subtract(current Set, negated map[string][]Region) Set {
	return keep(current, func(r Region) bool {
		return !anyOverlap(r, negated[r.Path])
	})
}

// Filter keeps the regions whose path satisfies pred.
func Filter(current Set, pred func(path string) bool) Set {
	return keep(current, func(r Region) bool {
		return pred(r.Path)
	})
}

// Seed builds one whole-file region per path, skipping repeats.
func Seed(paths []string) Set {
	seen := make(map[string]struct{}, len(paths))
	out := make(Set, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, Region{Path: p, FirstLine: 1, LastLine: WholeFile})
	}
	return out
}

// MemberOf returns a predicate reporting membership in paths.
func MemberOf(paths []string) func(string) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}

func anyOverlap(r Region, candidates []Region) bool {
	for _, n := range candidates {
		if r.Overlaps(n) {
			return true
		}
	}
	return false
}

func keep(current Set, pred func(Region) bool) Set {
	out := make(Set, 0, len(current))
	for _, r := range current {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
