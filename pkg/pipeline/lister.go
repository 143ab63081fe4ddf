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

package pipeline

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

// 📋 FileLister supplies the external file list used by SeedList stages
type FileLister interface {
	ReadFileList(ctx context.Context) ([]string, error)
}

// ReaderLister reads one path per line from a reader, usually stdin. The
// reader is consumed on the first call; later calls return the same list.
type ReaderLister struct {
	r     io.Reader
	once  sync.Once
	paths []string
	err   error
}

var _ FileLister = (*ReaderLister)(nil)

// NewReaderLister creates a lister over r.
func NewReaderLister(r io.Reader) *ReaderLister {
	return &ReaderLister{r: r}
}

// ReadFileList implements FileLister. Blank lines are skipped and paths
// are cleaned, so "./a/b" and "a/b" name the same file.
func (l *ReaderLister) ReadFileList(ctx context.Context) ([]string, error) {
	l.once.Do(func() {
		l.paths, l.err = readList(ctx, l.r)
	})
	return slices.Clone(l.paths), l.err
}

func readList(ctx context.Context, r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("reading file list: %w", err)
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, filepath.Clean(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("reading file list: %w", err)
	}
	return paths, nil
}
