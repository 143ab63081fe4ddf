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

// Package edit applies a substitution to a line range of one file in place.
package edit

import (
	"context"
	"fmt"

	"github.com/walteh/rpipe/pkg/region"
)

// ✏️ Edit is one in-place substitution scoped to a line range
type Edit struct {
	Path        string
	FirstLine   int
	LastLine    int // region.WholeFile runs to the end of the file
	Pattern     string
	Replacement string
	Flags       string // g global, i ignore case
	Separator   rune
}

// ForRegion builds the edit that applies a substitution to r.
func ForRegion(r region.Region, pattern, replacement, flags string, sep rune) Edit {
	return Edit{
		Path:        r.Path,
		FirstLine:   r.FirstLine,
		LastLine:    r.LastLine,
		Pattern:     pattern,
		Replacement: replacement,
		Flags:       flags,
		Separator:   sep,
	}
}

func (e Edit) String() string {
	if e.LastLine == region.WholeFile {
		return fmt.Sprintf("%s:%d-$", e.Path, e.FirstLine)
	}
	return fmt.Sprintf("%s:%d-%d", e.Path, e.FirstLine, e.LastLine)
}

// 📊 Result describes what an edit did
type Result struct {
	// Counted is false when the editor cannot tell what changed.
	Counted      bool
	Modified     bool
	Replacements int
}

// 🔌 Editor applies edits. Implementations are called for one file at a time
// by the pipeline; concurrent calls only ever target different files.
type Editor interface {
	Apply(ctx context.Context, e Edit) (Result, error)
}
