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

package stage

import (
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrUnknownStageType is returned for a stage whose tag is not recognised.
	ErrUnknownStageType = errors.New("unknown stage type")
	// ErrMalformedStage is returned for a recognised tag with bad parameters.
	ErrMalformedStage = errors.New("malformed stage")
)

const (
	searchFlags     = "imwF"
	substituteFlags = "gi"
)

// 📝 Parse decodes a single stage argument.
//
//	g/pattern/flags              search
//	v/pattern/flags              negated search
//	s/pattern/replacement/flags  substitute
//	f/glob/                      path filter, "!glob" negates
//	-                            file list from stdin
//	l                            report files
//	p                            report regions
//
// Any character other than a backslash or newline may replace "/" as the
// delimiter; a backslash before the delimiter makes it literal.
func Parse(arg string) (Stage, error) {
	switch arg {
	case "-":
		return SeedList{}, nil
	case "l":
		return ReportFiles{}, nil
	case "p":
		return ReportRegions{}, nil
	case "":
		return nil, errors.Errorf("%w: empty stage", ErrMalformedStage)
	}

	tag, size := utf8.DecodeRuneInString(arg)
	switch tag {
	case 'g', 'v', 's', 'f':
	default:
		return nil, errors.Errorf("%w: %q", ErrUnknownStageType, arg)
	}

	rest := arg[size:]
	delim, size := utf8.DecodeRuneInString(rest)
	if delim == utf8.RuneError || delim == '\\' || delim == '\n' {
		return nil, errors.Errorf("%w: %q: missing or invalid delimiter", ErrMalformedStage, arg)
	}
	fields := split(rest[size:], delim)

	switch tag {
	case 'g', 'v':
		pattern, flags, err := patternAndFlags(arg, fields, searchFlags)
		if err != nil {
			return nil, err
		}
		if tag == 'g' {
			return Search{Pattern: pattern, Flags: flags}, nil
		}
		return NegatedSearch{Pattern: pattern, Flags: flags}, nil

	case 's':
		if len(fields) < 2 || len(fields) > 3 {
			return nil, errors.Errorf("%w: %q: want %cpattern%creplacement%c[flags]", ErrMalformedStage, arg, delim, delim, delim)
		}
		if fields[0] == "" {
			return nil, errors.Errorf("%w: %q: empty pattern", ErrMalformedStage, arg)
		}
		flags := ""
		if len(fields) == 3 {
			flags = fields[2]
		}
		if err := checkFlags(arg, flags, substituteFlags); err != nil {
			return nil, err
		}
		return Substitute{Pattern: fields[0], Replacement: fields[1], Flags: flags, Separator: delim}, nil

	default: // 'f'
		if len(fields) > 2 || (len(fields) == 2 && fields[1] != "") {
			return nil, errors.Errorf("%w: %q: path filters take no flags; for a glob containing %q try %s",
				ErrMalformedStage, arg, delim, globHint(fields, delim))
		}
		glob := fields[0]
		negate := strings.HasPrefix(glob, "!")
		glob = strings.TrimPrefix(glob, "!")
		if glob == "" {
			return nil, errors.Errorf("%w: %q: empty glob", ErrMalformedStage, arg)
		}
		if !doublestar.ValidatePattern(glob) {
			return nil, errors.Errorf("%w: %q: invalid glob", ErrMalformedStage, arg)
		}
		return PathFilter{Glob: glob, Negate: negate}, nil
	}
}

// ParseAll decodes every argument before anything runs, so one bad stage
// rejects the whole pipeline.
func ParseAll(args []string) ([]Stage, error) {
	stages := make([]Stage, 0, len(args))
	for i, arg := range args {
		s, err := Parse(arg)
		if err != nil {
			return nil, errors.Errorf("stage %d: %w", i+1, err)
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func patternAndFlags(arg string, fields []string, allowed string) (string, string, error) {
	if len(fields) > 2 {
		return "", "", errors.Errorf("%w: %q: too many fields", ErrMalformedStage, arg)
	}
	if fields[0] == "" {
		return "", "", errors.Errorf("%w: %q: empty pattern", ErrMalformedStage, arg)
	}
	flags := ""
	if len(fields) == 2 {
		flags = fields[1]
	}
	if err := checkFlags(arg, flags, allowed); err != nil {
		return "", "", err
	}
	return fields[0], flags, nil
}

func checkFlags(arg, flags, allowed string) error {
	for _, f := range flags {
		if !strings.ContainsRune(allowed, f) {
			return errors.Errorf("%w: %q: unknown flag %q", ErrMalformedStage, arg, f)
		}
	}
	return nil
}

// split cuts s on unescaped delim. An escaped delimiter loses its backslash;
// every other backslash is kept for the pattern engine.
func split(s string, delim rune) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\\' && i+size < len(s) {
			next, nsize := utf8.DecodeRuneInString(s[i+size:])
			if next == delim {
				cur.WriteRune(delim)
			} else {
				cur.WriteRune(r)
				cur.WriteRune(next)
			}
			i += size + nsize
			continue
		}
		if r == delim {
			fields = append(fields, cur.String())
			cur.Reset()
			i += size
			continue
		}
		cur.WriteRune(r)
		i += size
	}
	return append(fields, cur.String())
}

// globHint rebuilds a path filter whose glob was split on its own delimiter,
// using a delimiter the glob does not contain.
func globHint(fields []string, delim rune) string {
	glob := strings.TrimSuffix(strings.Join(fields, string(delim)), string(delim))
	for _, d := range "|#,@" {
		if d != delim && !strings.ContainsRune(glob, d) {
			return "f" + string(d) + glob + string(d)
		}
	}
	return "f" + string(delim) + strings.ReplaceAll(glob, string(delim), `\`+string(delim)) + string(delim)
}
