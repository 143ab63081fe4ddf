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
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/rpipe/pkg/text"
)

// 🐹 Native edits files in process and replaces them atomically
type Native struct {
	Root     string
	Replacer text.TextReplacer
}

var _ Editor = (*Native)(nil)

// Apply implements Editor. The file is left untouched when nothing changes.
func (n *Native) Apply(ctx context.Context, e Edit) (Result, error) {
	replacer := n.Replacer
	if replacer == nil {
		replacer = text.NewLineRangeReplacer()
	}

	path := e.Path
	if n.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(n.Root, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, errors.Errorf("stat %s: %w", e.Path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Result{}, errors.Errorf("reading %s: %w", e.Path, err)
	}

	res, err := replacer.ReplaceText(ctx, bytes.NewReader(content), []text.ReplacementRule{{
		Pattern:     e.Pattern,
		Replacement: e.Replacement,
		Flags:       e.Flags,
		FirstLine:   e.FirstLine,
		LastLine:    e.LastLine,
	}})
	if err != nil {
		return Result{}, errors.Errorf("editing %s: %w", e, err)
	}

	out := Result{Counted: true, Modified: res.WasModified, Replacements: res.ReplacementCount}
	zerolog.Ctx(ctx).Debug().
		Str("edit", e.String()).
		Int("replacements", res.ReplacementCount).
		Int("lines_changed", res.LinesChanged).
		Msg("applied edit")

	if !res.WasModified {
		return out, nil
	}
	if err := writeFileAtomic(path, res.ModifiedContent, info.Mode().Perm()); err != nil {
		return Result{}, err
	}
	return out, nil
}

func writeFileAtomic(path string, content []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".rpipe-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting mode on temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
