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

package edit

import (
	"context"
	"strconv"
	"strings"

	"github.com/walteh/rpipe/pkg/proc"
	"github.com/walteh/rpipe/pkg/region"
)

// 🛠️ Sed edits files with an external sed -E
type Sed struct {
	Binary string
	Root   string
	// InPlaceArgs defaults to -i; BSD sed wants "-i", "".
	InPlaceArgs []string
}

var _ Editor = (*Sed)(nil)

// Apply implements Editor.
func (s *Sed) Apply(ctx context.Context, e Edit) (Result, error) {
	binary := s.Binary
	if binary == "" {
		binary = "sed"
	}
	if err := proc.Run(ctx, proc.Command{Name: binary, Args: s.Args(e), Dir: s.Root}); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

// Args builds the sed argument list for e.
func (s *Sed) Args(e Edit) []string {
	inPlace := s.InPlaceArgs
	if inPlace == nil {
		inPlace = []string{"-i"}
	}
	args := append([]string{"-E"}, inPlace...)
	return append(args, "-e", Script(e), "--", e.Path)
}

// Script renders e as a sed s command addressed to its line range.
func Script(e Edit) string {
	sep := e.Separator
	if sep == 0 {
		sep = '/'
	}
	last := "$"
	if e.LastLine != region.WholeFile {
		last = strconv.Itoa(e.LastLine)
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(e.FirstLine))
	b.WriteByte(',')
	b.WriteString(last)
	b.WriteByte('s')
	b.WriteRune(sep)
	b.WriteString(escape(e.Pattern, sep))
	b.WriteRune(sep)
	b.WriteString(escape(e.Replacement, sep))
	b.WriteRune(sep)
	for _, f := range e.Flags {
		switch f {
		case 'i':
			b.WriteByte('I')
		default:
			b.WriteRune(f)
		}
	}
	return b.String()
}

// escape protects unescaped separators; the stage parser removed their
// backslashes.
func escape(s string, sep rune) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == sep:
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
