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
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrMalformedMatchLine is returned for search output that is not path:line:text.
var ErrMalformedMatchLine = errors.New("malformed match line")

// 🔎 Match is a single matched line reported by a search
type Match struct {
	Path string
	Line int
	Text string
}

// ParseMatch splits a "path:line:text" search output line. The path ends at
// the first colon that is followed by a decimal line number and another
// colon, so paths containing colons survive as long as they are not followed
// by digits.
func ParseMatch(raw string) (Match, error) {
	raw = strings.TrimSuffix(raw, "\n")
	for i := 0; i < len(raw); i++ {
		if raw[i] != ':' || i == 0 {
			continue
		}
		j := i + 1
		for j < len(raw) && raw[j] >= '0' && raw[j] <= '9' {
			j++
		}
		if j == i+1 || j >= len(raw) || raw[j] != ':' {
			continue
		}
		line, err := strconv.Atoi(raw[i+1 : j])
		if err != nil || line < 1 {
			return Match{}, errors.Errorf("%w: bad line number in %q", ErrMalformedMatchLine, raw)
		}
		return Match{Path: raw[:i], Line: line, Text: raw[j+1:]}, nil
	}
	return Match{}, errors.Errorf("%w: %q", ErrMalformedMatchLine, raw)
}

// ParseMatches lazily parses raw search output. The first malformed line is
// yielded as an error and ends the sequence.
func ParseMatches(lines iter.Seq2[string, error]) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		for raw, err := range lines {
			if err != nil {
				yield(Match{}, err)
				return
			}
			m, err := ParseMatch(raw)
			if err != nil {
				yield(Match{}, err)
				return
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}
