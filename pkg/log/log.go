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
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/rpipe/pkg/edit"
	"github.com/walteh/rpipe/pkg/pipeline"
	"github.com/walteh/rpipe/pkg/region"
	"github.com/walteh/rpipe/pkg/stage"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	statusWidth = 15 // Width for status text
)

// 🎯 FileEdit is one file touched by a substitute stage
type FileEdit struct {
	Path         string // File path
	Regions      int    // Regions edited in the file
	Counted      bool   // Whether the editor reported what changed
	IsModified   bool   // Whether the file content changed
	Replacements int    // Number of replacements made
}

// 🎯 Logger prints pipeline progress to the console and mirrors it to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	verbose bool
	mu      sync.Mutex
	edits   []FileEdit
}

var _ pipeline.Events = (*Logger)(nil)

// 🏭 New creates a new logger. Stage lines are only printed at debug level.
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: console, NoColor: color.NoColor}).
		With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		verbose: level <= zerolog.DebugLevel,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatFileEdit formats a file edit for display
func (l *Logger) formatFileEdit(op FileEdit) string {
	var symbol rune
	var symbolColor color.Attribute
	var status string
	switch {
	case !op.Counted:
		symbol = '•'
		symbolColor = color.FgCyan
		status = "edited"
	case op.IsModified:
		symbol = '⟳'
		symbolColor = color.FgBlue
		status = pluralize(op.Replacements, "replacement")
	default:
		symbol = '-'
		symbolColor = color.FgYellow
		status = "unchanged"
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Path),
		color.New(color.Faint).Sprint(fmt.Sprintf("%-*s", statusWidth, pluralize(op.Regions, "region"))),
		status)
}

// 📝 LogFileEdit logs a file edit
func (l *Logger) LogFileEdit(ctx context.Context, op FileEdit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.edits = append(l.edits, op)
	fmt.Fprintln(l.console, l.formatFileEdit(op))

	l.zlog.Debug().
		Str("file", op.Path).
		Int("regions", op.Regions).
		Bool("counted", op.Counted).
		Bool("is_modified", op.IsModified).
		Int("replacements", op.Replacements).
		Msg("file edit")
}

// 📋 Edits returns the file edits logged so far
func (l *Logger) Edits() []FileEdit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FileEdit, len(l.edits))
	copy(out, l.edits)
	return out
}

// StageStarted implements pipeline.Events.
func (l *Logger) StageStarted(ctx context.Context, index int, s stage.Stage) {
	if !l.verbose {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.console, "%s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprintf("[%d] %s", index+1, s.Kind()),
		color.New(color.FgYellow).Sprint(s.String()))
}

// StageFinished implements pipeline.Events. The driver already logs the
// stage through zerolog, so only the console line is written here.
func (l *Logger) StageFinished(ctx context.Context, index int, s stage.Stage, set region.Set) {
	if !l.verbose {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.console, "  %s\n", color.New(color.Faint).Sprintf("↳ %s in %s",
		pluralize(len(set), "region"), pluralize(len(set.Files()), "file")))
}

// FileEdited implements pipeline.Events.
func (l *Logger) FileEdited(ctx context.Context, path string, regions int, res edit.Result) {
	l.LogFileEdit(ctx, FileEdit{
		Path:         path,
		Regions:      regions,
		Counted:      res.Counted,
		IsModified:   res.Modified,
		Replacements: res.Replacements,
	})
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Debug().Bool("warning", true).Msg(msg)
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
