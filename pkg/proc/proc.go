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

// Package proc runs the external tools a pipeline delegates to and turns
// their failures into ErrExternalProcess.
package proc

import (
	"bufio"
	"bytes"
	"context"
	"iter"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrExternalProcess is returned when a tool exits badly or its output breaks.
var ErrExternalProcess = errors.New("external process failed")

// maxLineSize bounds a single output line.
const maxLineSize = 64 << 20

// waitDelay bounds how long Wait keeps draining pipes after the process is
// killed. Grandchildren that inherited stdout or stderr would otherwise hold
// Wait open until they exit on their own.
const waitDelay = time.Second

// 🔧 Command describes one tool invocation
type Command struct {
	Name string
	Args []string
	Dir  string

	// OKExitCodes lists non-zero exit codes that still count as success.
	OKExitCodes []int
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Lines starts c and yields its stdout line by line without the newline.
// The process is waited for after the last line; a failing exit is yielded
// as the final error. Stopping the iteration early kills the process.
func Lines(ctx context.Context, c Command) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		logger := zerolog.Ctx(ctx)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		cmd := c.command(runCtx)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield("", errors.Errorf("%w: %s: %v", ErrExternalProcess, c.Name, err))
			return
		}

		logger.Debug().Str("cmd", c.Name).Strs("args", c.Args).Str("dir", c.Dir).Msg("starting process")
		if err := cmd.Start(); err != nil {
			yield("", errors.Errorf("%w: starting %s: %v", ErrExternalProcess, c.Name, err))
			return
		}

		// unblock the scanner if the context ends while a grandchild
		// still holds the write end of stdout
		stopClose := context.AfterFunc(runCtx, func() { _ = stdout.Close() })
		defer stopClose()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				cancel()
				_ = cmd.Wait()
				return
			}
		}
		scanErr := scanner.Err()

		waitErr := cmd.Wait()
		if err := ctx.Err(); err != nil {
			yield("", errors.Errorf("running %s: %w", c.Name, err))
			return
		}
		if scanErr != nil {
			yield("", errors.Errorf("%w: reading output of %s: %v", ErrExternalProcess, c.Name, scanErr))
			return
		}
		if err := c.check(waitErr, &stderr); err != nil {
			yield("", err)
		}
	}
}

// Run executes c to completion, discarding stdout.
func Run(ctx context.Context, c Command) error {
	zerolog.Ctx(ctx).Debug().Str("cmd", c.Name).Strs("args", c.Args).Str("dir", c.Dir).Msg("running process")

	cmd := c.command(ctx)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errors.Errorf("%w: starting %s: %v", ErrExternalProcess, c.Name, err)
	}
	return c.check(cmd.Wait(), &stderr)
}

func (c Command) command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	return cmd
}

func (c Command) check(waitErr error, stderr *bytes.Buffer) error {
	if waitErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if slices.Contains(c.OKExitCodes, code) {
			return nil
		}
		msg := strings.TrimSpace(stderr.String())
		return errors.Errorf("%w: %s exited with status %d: %s", ErrExternalProcess, c.Name, code, msg)
	}
	return errors.Errorf("%w: %s: %v", ErrExternalProcess, c.Name, waitErr)
}
