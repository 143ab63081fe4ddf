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

// Package report renders a region set as a file list or as the lines each
// region covers, re-read from disk.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/rpipe/pkg/region"
)

// ErrFileRead is returned when a file cannot be reopened for reporting.
var ErrFileRead = errors.New("reading file for report")

const maxLineSize = 64 * 1024 * 1024

// 📄 Line is one 1-indexed line of a file
type Line struct {
	Number int
	Text   string
}

// 🔌 LineSource streams the lines of a file from the start. Each call
// starts over.
type LineSource interface {
	Lines(ctx context.Context, path string) iter.Seq2[Line, error]
}

// 📂 FileLines reads lines from files under Root
type FileLines struct {
	Root string
}

var _ LineSource = (*FileLines)(nil)

// Lines implements LineSource. A trailing carriage return is dropped.
func (f *FileLines) Lines(ctx context.Context, path string) iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		full := path
		if f.Root != "" && !filepath.IsAbs(full) {
			full = filepath.Join(f.Root, full)
		}

		fh, err := os.Open(full)
		if err != nil {
			yield(Line{}, errors.Errorf("%w: %v", ErrFileRead, err))
			return
		}
		defer fh.Close()

		scanner := bufio.NewScanner(fh)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for n := 1; scanner.Scan(); n++ {
			if err := ctx.Err(); err != nil {
				yield(Line{}, errors.Errorf("reading %s: %w", path, err))
				return
			}
			if !yield(Line{Number: n, Text: strings.TrimSuffix(scanner.Text(), "\r")}, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Line{}, errors.Errorf("%w: %s: %v", ErrFileRead, path, err))
		}
	}
}

// 🖨️ Reporter writes report output
type Reporter struct {
	Out   io.Writer
	Lines LineSource
}

var (
	pathColor = color.New(color.FgMagenta)
	lineColor = color.New(color.FgGreen)
)

// Files prints every distinct path in set once, in first-occurrence order.
func (r *Reporter) Files(set region.Set) error {
	for _, path := range set.Files() {
		if _, err := fmt.Fprintln(r.Out, pathColor.Sprint(path)); err != nil {
			return errors.Errorf("writing file list: %w", err)
		}
	}
	return nil
}

// Regions prints path:line:text for each line inside each region, in set
// order. A region that extends past the end of its file stops at EOF.
func (r *Reporter) Regions(ctx context.Context, set region.Set) error {
	w := bufio.NewWriter(r.Out)
	for _, reg := range set {
		if err := r.region(ctx, w, reg); err != nil {
			w.Flush()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Errorf("writing regions: %w", err)
	}
	return nil
}

func (r *Reporter) region(ctx context.Context, w io.Writer, reg region.Region) error {
	src := r.Lines
	if src == nil {
		src = &FileLines{}
	}

	prefix := pathColor.Sprint(reg.Path) + ":"
	for line, err := range src.Lines(ctx, reg.Path) {
		if err != nil {
			return err
		}
		if line.Number < reg.FirstLine {
			continue
		}
		if line.Number > reg.LastLine {
			break
		}
		if _, err := fmt.Fprintf(w, "%s%s:%s\n", prefix, lineColor.Sprint(line.Number), line.Text); err != nil {
			return errors.Errorf("writing region %s: %w", reg, err)
		}
	}
	return nil
}
