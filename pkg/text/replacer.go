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

package text

import (
	"bytes"
	"context"
	"io"
	"math"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ToEnd as a LastLine applies a rule through the final line.
const ToEnd = math.MaxInt

// ReplacementRule is a regular expression substitution limited to a line range
type ReplacementRule struct {
	// Pattern is the regular expression to match within a single line
	Pattern string

	// Replacement is sed-style: \1..\9 are groups, & is the whole match
	Replacement string

	// Flags: g replaces every match on a line, i ignores case
	Flags string

	// FirstLine and LastLine bound the rule, 1-indexed and inclusive
	FirstLine int
	LastLine  int
}

// ReplacementResult contains the results of a text replacement operation
type ReplacementResult struct {
	// WasModified indicates if any replacements were made
	WasModified bool

	// ReplacementCount is the number of replacements made
	ReplacementCount int

	// LinesChanged is the number of lines whose text changed
	LinesChanged int

	// OriginalContent is the content before replacements
	OriginalContent []byte

	// ModifiedContent is the content after replacements
	ModifiedContent []byte
}

// TextReplacer defines the interface for text replacement operations
type TextReplacer interface {
	// ReplaceText applies a set of replacement rules to the content
	ReplaceText(ctx context.Context, content io.Reader, rules []ReplacementRule) (*ReplacementResult, error)

	// ValidateRules checks that all rules are valid
	ValidateRules(rules []ReplacementRule) error
}

// LineRangeReplacer implements TextReplacer with Go regular expressions
type LineRangeReplacer struct{}

// NewLineRangeReplacer creates a new LineRangeReplacer
func NewLineRangeReplacer() *LineRangeReplacer {
	return &LineRangeReplacer{}
}

var _ TextReplacer = (*LineRangeReplacer)(nil)

type compiledRule struct {
	ReplacementRule
	re       *regexp.Regexp
	template string
	global   bool
}

// ReplaceText implements TextReplacer.ReplaceText. Line terminators are left
// exactly as they were.
func (r *LineRangeReplacer) ReplaceText(ctx context.Context, content io.Reader, rules []ReplacementRule) (*ReplacementResult, error) {
	if err := r.ValidateRules(rules); err != nil {
		return nil, err
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		c, err := compile(rule)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}

	originalContent, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	result := &ReplacementResult{
		OriginalContent: originalContent,
	}

	var out bytes.Buffer
	out.Grow(len(originalContent))

	rest := originalContent
	for lineNo := 1; len(rest) > 0; lineNo++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("replacing text: %w", err)
		}

		body := rest
		var eol []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			body, eol = rest[:i], rest[i:i+1]
			rest = rest[i+1:]
		} else {
			rest = nil
		}

		line := string(body)
		changed := line
		for _, c := range compiled {
			if lineNo < c.FirstLine || lineNo > c.LastLine {
				continue
			}
			var n int
			changed, n = c.apply(changed)
			result.ReplacementCount += n
		}
		if changed != line {
			result.LinesChanged++
		}

		out.WriteString(changed)
		out.Write(eol)
	}

	result.ModifiedContent = out.Bytes()
	result.WasModified = !bytes.Equal(originalContent, result.ModifiedContent)
	return result, nil
}

// ValidateRules implements TextReplacer.ValidateRules
func (r *LineRangeReplacer) ValidateRules(rules []ReplacementRule) error {
	for i, rule := range rules {
		if rule.Pattern == "" {
			return errors.Errorf("rule %d: pattern is required", i)
		}
		if rule.FirstLine < 1 {
			return errors.Errorf("rule %d: first line must be at least 1", i)
		}
		if rule.LastLine < rule.FirstLine {
			return errors.Errorf("rule %d: last line %d is before first line %d", i, rule.LastLine, rule.FirstLine)
		}
		for _, f := range rule.Flags {
			if f != 'g' && f != 'i' {
				return errors.Errorf("rule %d: unknown flag %q", i, f)
			}
		}
	}
	return nil
}

func compile(rule ReplacementRule) (compiledRule, error) {
	pattern := rule.Pattern
	if strings.ContainsRune(rule.Flags, 'i') {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return compiledRule{}, errors.Errorf("compiling pattern %q: %w", rule.Pattern, err)
	}
	return compiledRule{
		ReplacementRule: rule,
		re:              re,
		template:        ExpandTemplate(rule.Replacement),
		global:          strings.ContainsRune(rule.Flags, 'g'),
	}, nil
}

func (c compiledRule) apply(line string) (string, int) {
	if c.global {
		locs := c.re.FindAllStringSubmatchIndex(line, -1)
		if len(locs) == 0 {
			return line, 0
		}
		return c.re.ReplaceAllString(line, c.template), len(locs)
	}
	loc := c.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, 0
	}
	var b []byte
	b = append(b, line[:loc[0]]...)
	b = c.re.ExpandString(b, c.template, line, loc)
	b = append(b, line[loc[1]:]...)
	return string(b), 1
}

// ExpandTemplate rewrites a sed replacement (\1, &, \&, \\) into the
// regexp.Expand template syntax.
func ExpandTemplate(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		ch := repl[i]
		switch {
		case ch == '\\' && i+1 < len(repl):
			next := repl[i+1]
			i++
			switch {
			case next >= '0' && next <= '9':
				b.WriteString("${" + string(next) + "}")
			case next == 'n':
				b.WriteByte('\n')
			case next == 't':
				b.WriteByte('\t')
			case next == '$':
				b.WriteString("$$")
			default:
				b.WriteByte(next)
			}
		case ch == '&':
			b.WriteString("${0}")
		case ch == '$':
			b.WriteString("$$")
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
