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

package log

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"github.com/walteh/rpipe/pkg/region"
)

// 📢 UserLogger reports the outcome of a run to the user
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
	out io.Writer
}

// 📊 Summary describes a finished run
type Summary struct {
	Stages       int
	Regions      int
	Files        int
	EditedFiles  int
	Replacements int
}

// 🎯 NewUserLogger creates a new user logger writing to out
func NewUserLogger(ctx context.Context, out io.Writer) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
		out: out,
	}
}

// 🧮 Summarize builds a summary from the final set and the logged edits
func Summarize(stages int, set region.Set, edits []FileEdit) Summary {
	s := Summary{
		Stages:  stages,
		Regions: len(set),
		Files:   len(set.Files()),
	}
	for _, e := range edits {
		if e.IsModified || !e.Counted {
			s.EditedFiles++
		}
		s.Replacements += e.Replacements
	}
	return s
}

// 📊 LogSummary prints the run summary
func (u *UserLogger) LogSummary(s Summary) {
	msg := fmt.Sprintf("%s, %s in %s",
		pluralize(s.Stages, "stage"),
		pluralize(s.Regions, "region"),
		pluralize(s.Files, "file"))
	if s.EditedFiles > 0 {
		msg += fmt.Sprintf(", %s edited", pluralize(s.EditedFiles, "file"))
		if s.Replacements > 0 {
			msg += fmt.Sprintf(" (%s)", pluralize(s.Replacements, "replacement"))
		}
	}

	pterm.Success.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "✅", Style: pterm.Success.Prefix.Style}).Println(msg)
	u.log.Info().
		Int("stages", s.Stages).
		Int("regions", s.Regions).
		Int("files", s.Files).
		Int("edited_files", s.EditedFiles).
		Int("replacements", s.Replacements).
		Msg("run complete")
}

// ❌ LogFailure prints a fatal error
func (u *UserLogger) LogFailure(description string, err error) {
	pterm.Error.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "❌", Style: pterm.Error.Prefix.Style}).Println(description)
	if err != nil {
		pterm.Error.WithWriter(u.out).Println(err)
	}
	u.log.Error().Err(err).Msg(description)
}
