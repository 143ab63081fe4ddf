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

package main

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"

	"github.com/walteh/rpipe/pkg/config"
	"github.com/walteh/rpipe/pkg/log"
	"github.com/walteh/rpipe/pkg/pipeline"
	"github.com/walteh/rpipe/pkg/report"
	"github.com/walteh/rpipe/pkg/stage"
)

const longHelp = `rpipe chains searches and in-place substitutions over a file tree.

Each argument is one stage. Stages run left to right over a working set of
regions, runs of matching lines within files:

  g/pattern/[imwF]           keep regions that a match of pattern touches
  v/pattern/[imwF]           drop regions that a match of pattern touches
  s/pattern/replacement/[gi] substitute within every region, in place
  f/glob/                    keep regions whose path matches glob (!glob drops)
  -                          seed whole files from stdin, or keep listed files
  l                          print each file of the working set
  p                          print every line of every region

The first search seeds the working set. When no l or p stage is given, p is
appended. Any character may replace "/" as the delimiter, which globs with a
slash need:

  rpipe 'g/TODO/' 'f|src/**/*.go|' 's/TODO/FIXME/g'`

// rootOpts holds the command line flags
type rootOpts struct {
	configFile string
	debug      bool
	root       string
	jobs       int
	color      string
	engine     string
	unscoped   bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOpts{}

	cmd := &cobra.Command{
		Use:           "rpipe [flags] STAGE...",
		Short:         "Chain searches and in-place substitutions over a file tree",
		Long:          longHelp,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), cmd.Flags(), args, stdin, stdout, stderr)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	// stages follow the flags; "-" is a stage, not a flag
	cmd.Flags().SetInterspersed(false)

	addRootFlags(cmd, opts)
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// addRootFlags adds the flags to the root command
func addRootFlags(cmd *cobra.Command, opts *rootOpts) {
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "config file path (default: .rpipe.{yaml,yml,hcl,json} in the root)")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	cmd.Flags().StringVarP(&opts.root, "root", "C", "", "directory to search and edit")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "files edited in parallel")
	cmd.Flags().StringVar(&opts.color, "color", "", "auto, always or never")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "search and edit engine: auto, native or external")
	cmd.Flags().BoolVar(&opts.unscoped, "unscoped", false, "re-run follow-up searches over the whole tree")
}

func (o *rootOpts) run(ctx context.Context, flags *pflag.FlagSet, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	stages, err := stage.ParseAll(args)
	if err != nil {
		return errors.Errorf("parsing stages: %w", err)
	}

	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()
	ctx = zlog.WithContext(ctx)

	cfg, err := o.loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	if !o.debug {
		level = cfg.Level()
		zlog = zlog.Level(level)
		ctx = zlog.WithContext(ctx)
	}
	configureColor(cfg.Color)

	logger := log.New(stderr, level)
	ctx = log.NewContext(ctx, logger)

	searcher, err := newSearcher(ctx, cfg)
	if err != nil {
		return err
	}
	editor, err := newEditor(ctx, cfg)
	if err != nil {
		return err
	}

	warnTerminalFileList(ctx, stages, isTerminal(stdin))

	driver, err := pipeline.New(pipeline.Options{
		Searcher: searcher,
		Editor:   editor,
		Reporter: &report.Reporter{Out: stdout, Lines: &report.FileLines{Root: cfg.Root}},
		Lister:   pipeline.NewReaderLister(stdin),
		Events:   logger,
		Jobs:     cfg.Jobs,
		Unscoped: cfg.UnscopedSearches,
	})
	if err != nil {
		return errors.Errorf("creating pipeline: %w", err)
	}

	set, err := driver.Run(ctx, stages)
	if err != nil {
		return err
	}

	if edits := logger.Edits(); len(edits) > 0 || level <= zerolog.DebugLevel {
		log.NewUserLogger(ctx, stderr).LogSummary(log.Summarize(len(stage.WithDefaultReport(stages)), set, edits))
	}
	return nil
}

// loadConfig reads the config file, if any, and applies the flags on top.
func (o *rootOpts) loadConfig(ctx context.Context, flags *pflag.FlagSet) (*config.Config, error) {
	path := o.configFile
	if path == "" {
		dir := o.root
		if dir == "" {
			dir = "."
		}
		found, err := config.Find(dir)
		if err != nil {
			return nil, errors.Errorf("finding config: %w", err)
		}
		path = found
	}

	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.Load(ctx, path)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if flags.Changed("root") {
		cfg.Root = o.root
	}
	if flags.Changed("jobs") {
		cfg.Jobs = o.jobs
	}
	if flags.Changed("color") {
		cfg.Color = o.color
	}
	if flags.Changed("engine") {
		cfg.Search.Engine = o.engine
		cfg.Edit.Engine = o.engine
	}
	if flags.Changed("unscoped") {
		cfg.UnscopedSearches = o.unscoped
	}
	if o.debug {
		cfg.LogLevel = zerolog.DebugLevel.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// configureColor applies mode to fatih/color and makes pterm follow it; in
// auto mode color has already checked for a terminal.
func configureColor(mode string) {
	switch mode {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	}
	if color.NoColor {
		pterm.DisableColor()
	} else {
		pterm.EnableColor()
	}
}

// warnTerminalFileList warns when a stage would wait on a file list typed
// at the terminal.
func warnTerminalFileList(ctx context.Context, stages []stage.Stage, terminal bool) {
	if !terminal {
		return
	}
	for i, s := range stages {
		if _, ok := s.(stage.SeedList); ok {
			log.FromContext(ctx).Warningf("stage %d reads the file list from the terminal, end it with Ctrl-D", i+1)
			return
		}
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
