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
	"os/exec"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/rpipe/pkg/config"
	"github.com/walteh/rpipe/pkg/edit"
	"github.com/walteh/rpipe/pkg/search"
)

// newSearcher picks ripgrep when it is requested or, for auto, when it is on
// the PATH. Everything else searches in process.
func newSearcher(ctx context.Context, cfg *config.Config) (search.Searcher, error) {
	external, err := useExternal(cfg.Search.Engine, cfg.Search.Binary, true)
	if err != nil {
		return nil, errors.Errorf("search engine: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Bool("external", external).Str("binary", cfg.Search.Binary).Msg("search engine selected")

	if external {
		return &search.Ripgrep{
			Binary:         cfg.Search.Binary,
			Root:           cfg.Root,
			ExtraArgs:      cfg.Search.Args,
			IgnorePatterns: cfg.Search.IgnorePatterns,
			Hidden:         cfg.Search.Hidden,
		}, nil
	}
	return &search.Native{
		Root:           cfg.Root,
		IgnorePatterns: cfg.Search.IgnorePatterns,
		Hidden:         cfg.Search.Hidden,
	}, nil
}

// newEditor only runs sed when asked to; auto edits in process, where the
// replacement counts are known and no sed dialect matters.
func newEditor(ctx context.Context, cfg *config.Config) (edit.Editor, error) {
	external, err := useExternal(cfg.Edit.Engine, cfg.Edit.Binary, false)
	if err != nil {
		return nil, errors.Errorf("edit engine: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Bool("external", external).Str("binary", cfg.Edit.Binary).Msg("edit engine selected")

	if external {
		return &edit.Sed{
			Binary:      cfg.Edit.Binary,
			Root:        cfg.Root,
			InPlaceArgs: cfg.Edit.InPlaceArgs,
		}, nil
	}
	return &edit.Native{Root: cfg.Root}, nil
}

func useExternal(engine, binary string, autoExternal bool) (bool, error) {
	switch engine {
	case config.EngineNative:
		return false, nil
	case config.EngineExternal:
		if _, err := exec.LookPath(binary); err != nil {
			return false, errors.Errorf("finding %s: %w", binary, err)
		}
		return true, nil
	default:
		if !autoExternal {
			return false, nil
		}
		_, err := exec.LookPath(binary)
		return err == nil, nil
	}
}
