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
	"context"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/rpipe/pkg/edit"
	"github.com/walteh/rpipe/pkg/region"
	"github.com/walteh/rpipe/pkg/stage"
)

// substitute issues one edit per region. Files are edited in parallel up to
// the job limit; the regions of one file are always edited one after the
// other, in set order. The first failure cancels the remaining edits.
func (d *Driver) substitute(ctx context.Context, set region.Set, s stage.Substitute) error {
	if len(set) == 0 {
		return nil
	}

	byFile := set.ByFile()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.jobs)

	for _, path := range set.Files() {
		regions := byFile[path]
		g.Go(func() error {
			return d.editFile(gctx, path, regions, s)
		})
	}
	return g.Wait()
}

func (d *Driver) editFile(ctx context.Context, path string, regions []region.Region, s stage.Substitute) error {
	var total edit.Result
	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("editing %s: %w", r, err)
		}
		res, err := d.editor.Apply(ctx, edit.ForRegion(r, s.Pattern, s.Replacement, s.Flags, s.Separator))
		if err != nil {
			return errors.Errorf("editing %s: %w", r, err)
		}
		total.Counted = res.Counted
		total.Modified = total.Modified || res.Modified
		total.Replacements += res.Replacements
	}
	d.events.FileEdited(ctx, path, len(regions), total)
	return nil
}
