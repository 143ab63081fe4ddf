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

// Package pipeline runs a parsed stage list over a file tree, threading the
// current region set from one stage to the next.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/rpipe/pkg/edit"
	"github.com/walteh/rpipe/pkg/region"
	"github.com/walteh/rpipe/pkg/search"
	"github.com/walteh/rpipe/pkg/stage"
)

// 🖨️ Reporter renders the current region set
type Reporter interface {
	Files(set region.Set) error
	Regions(ctx context.Context, set region.Set) error
}

// 📣 Events receives progress notifications. FileEdited may be called from
// several goroutines at once.
type Events interface {
	StageStarted(ctx context.Context, index int, s stage.Stage)
	StageFinished(ctx context.Context, index int, s stage.Stage, set region.Set)
	FileEdited(ctx context.Context, path string, regions int, res edit.Result)
}

// 🔧 Options configures a Driver
type Options struct {
	// Searcher produces match streams (required)
	Searcher search.Searcher
	// Editor applies substitutions (required)
	Editor edit.Editor
	// Reporter renders report stages (required)
	Reporter Reporter
	// Lister supplies the external file list; only needed by SeedList stages
	Lister FileLister
	// Events is notified as stages run
	Events Events
	// Jobs bounds how many files are edited at once; less than 1 means 1
	Jobs int
	// Unscoped re-runs follow-up searches over the whole tree instead of
	// only the files already in the working set
	Unscoped bool
}

// 🚂 Driver runs stage lists
type Driver struct {
	searcher search.Searcher
	editor   edit.Editor
	reporter Reporter
	lister   FileLister
	events   Events
	jobs     int
	unscoped bool
}

// 🏭 New creates a driver with the given options
func New(opts Options) (*Driver, error) {
	if opts.Searcher == nil {
		return nil, errors.Errorf("searcher is required")
	}
	if opts.Editor == nil {
		return nil, errors.Errorf("editor is required")
	}
	if opts.Reporter == nil {
		return nil, errors.Errorf("reporter is required")
	}
	d := &Driver{
		searcher: opts.Searcher,
		editor:   opts.Editor,
		reporter: opts.Reporter,
		lister:   opts.Lister,
		events:   opts.Events,
		jobs:     opts.Jobs,
		unscoped: opts.Unscoped,
	}
	if d.events == nil {
		d.events = nopEvents{}
	}
	if d.jobs < 1 {
		d.jobs = 1
	}
	return d, nil
}

// run is the fold state threaded through the stage list.
type run struct {
	current region.Set
	// seeded is set once a selecting stage has produced the initial set;
	// until then searches replace and filters have nothing to filter.
	seeded bool
}

// 🏃 Run executes stages in order and returns the final region set. A
// ReportRegions stage is appended when the list has no report stage. The
// first failing stage stops the run; output already written stands.
func (d *Driver) Run(ctx context.Context, stages []stage.Stage) (region.Set, error) {
	stages = stage.WithDefaultReport(stages)
	logger := zerolog.Ctx(ctx)

	for i, s := range stages {
		if _, ok := s.(stage.SeedList); ok && d.lister == nil {
			return nil, errors.Errorf("stage %d (%s): no file list source configured", i+1, s.Kind())
		}
	}

	var state run
	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return state.current, errors.Errorf("stage %d (%s): %w", i+1, s.Kind(), err)
		}

		d.events.StageStarted(ctx, i, s)
		next, err := d.step(ctx, state, s)
		if err != nil {
			return state.current, errors.Errorf("stage %d (%s): %w", i+1, s.Kind(), err)
		}
		state = next
		d.events.StageFinished(ctx, i, s, state.current)

		logger.Debug().
			Int("stage", i+1).
			Str("kind", string(s.Kind())).
			Str("arg", s.String()).
			Int("regions", len(state.current)).
			Msg("stage complete")
	}

	logger.Debug().
		Int("stages", len(stages)).
		Int("regions", len(state.current)).
		Int("files", len(state.current.Files())).
		Msg("pipeline complete")

	return state.current, nil
}

func (d *Driver) step(ctx context.Context, st run, s stage.Stage) (run, error) {
	switch s := s.(type) {
	case stage.Search:
		if !st.seeded {
			found, err := d.search(ctx, s.Pattern, s.Flags, nil)
			if err != nil {
				return st, err
			}
			return run{current: region.Replace(st.current, found), seeded: true}, nil
		}
		found, ok, err := d.scopedSearch(ctx, st.current, s.Pattern, s.Flags)
		if err != nil {
			return st, err
		}
		if !ok {
			return run{current: region.Set{}, seeded: true}, nil
		}
		return run{current: region.Intersect(st.current, found.ByFile()), seeded: true}, nil

	case stage.NegatedSearch:
		if !st.seeded {
			return run{current: region.Set{}, seeded: true}, nil
		}
		found, ok, err := d.scopedSearch(ctx, st.current, s.Pattern, s.Flags)
		if err != nil {
			return st, err
		}
		if !ok {
			return st, nil
		}
		return run{current: region.Subtract(st.current, found.ByFile()), seeded: true}, nil

	case stage.PathFilter:
		if !st.seeded {
			return run{current: region.Set{}, seeded: true}, nil
		}
		return run{current: region.Filter(st.current, s.Match), seeded: true}, nil

	case stage.SeedList:
		paths, err := d.lister.ReadFileList(ctx)
		if err != nil {
			return st, err
		}
		if !st.seeded {
			return run{current: region.Seed(paths), seeded: true}, nil
		}
		return run{current: region.Filter(st.current, region.MemberOf(paths)), seeded: true}, nil

	case stage.Substitute:
		return st, d.substitute(ctx, st.current, s)

	case stage.ReportFiles:
		return st, d.reporter.Files(st.current)

	case stage.ReportRegions:
		return st, d.reporter.Regions(ctx, st.current)

	default:
		return st, errors.Errorf("%w: %T", stage.ErrUnknownStageType, s)
	}
}

func (d *Driver) search(ctx context.Context, pattern, flags string, files []string) (region.Set, error) {
	return region.FromLines(d.searcher.Search(ctx, search.Query{
		Pattern: pattern,
		Flags:   flags,
		Files:   files,
	}))
}

// scopedSearch searches the files of current, or the whole tree when the
// driver is unscoped. ok is false when there was nothing to search.
func (d *Driver) scopedSearch(ctx context.Context, current region.Set, pattern, flags string) (region.Set, bool, error) {
	if len(current) == 0 {
		return nil, false, nil
	}
	var files []string
	if !d.unscoped {
		files = current.Files()
	}
	found, err := d.search(ctx, pattern, flags, files)
	if err != nil {
		return nil, false, err
	}
	return found, true, nil
}

type nopEvents struct{}

func (nopEvents) StageStarted(context.Context, int, stage.Stage)              {}
func (nopEvents) StageFinished(context.Context, int, stage.Stage, region.Set) {}
func (nopEvents) FileEdited(context.Context, string, int, edit.Result)        {}
