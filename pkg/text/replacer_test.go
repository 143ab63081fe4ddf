package text

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineRangeReplacer_ReplaceText(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		rules        []ReplacementRule
		want         string
		wantCount    int
		wantLines    int
		wantError    string
		wantModified bool
	}{
		{
			name:    "simple_replacement",
			content: "foo\nfoo\nbaz\n",
			rules: []ReplacementRule{
				{Pattern: "foo", Replacement: "bar", FirstLine: 1, LastLine: 2},
			},
			want:         "bar\nbar\nbaz\n",
			wantCount:    2,
			wantLines:    2,
			wantModified: true,
		},
		{
			name:    "outside_range_untouched",
			content: "foo\nfoo\nfoo\n",
			rules: []ReplacementRule{
				{Pattern: "foo", Replacement: "bar", FirstLine: 2, LastLine: 2},
			},
			want:         "foo\nbar\nfoo\n",
			wantCount:    1,
			wantLines:    1,
			wantModified: true,
		},
		{
			name:    "first_match_only_without_g",
			content: "a a a\n",
			rules: []ReplacementRule{
				{Pattern: "a", Replacement: "b", FirstLine: 1, LastLine: ToEnd},
			},
			want:         "b a a\n",
			wantCount:    1,
			wantLines:    1,
			wantModified: true,
		},
		{
			name:    "global_flag",
			content: "a a a\n",
			rules: []ReplacementRule{
				{Pattern: "a", Replacement: "b", Flags: "g", FirstLine: 1, LastLine: ToEnd},
			},
			want:         "b b b\n",
			wantCount:    3,
			wantLines:    1,
			wantModified: true,
		},
		{
			name:    "ignore_case",
			content: "Foo FOO\n",
			rules: []ReplacementRule{
				{Pattern: "foo", Replacement: "x", Flags: "gi", FirstLine: 1, LastLine: 1},
			},
			want:         "x x\n",
			wantCount:    2,
			wantLines:    1,
			wantModified: true,
		},
		{
			name:    "groups_and_ampersand",
			content: "key=value\n",
			rules: []ReplacementRule{
				{Pattern: `(\w+)=(\w+)`, Replacement: `\2=\1 [&]`, FirstLine: 1, LastLine: 1},
			},
			want:         "value=key [key=value]\n",
			wantCount:    1,
			wantLines:    1,
			wantModified: true,
		},
		{
			name:    "no_trailing_newline_preserved",
			content: "foo\r\nfoo",
			rules: []ReplacementRule{
				{Pattern: "foo", Replacement: "bar", FirstLine: 1, LastLine: ToEnd},
			},
			want:         "bar\r\nbar",
			wantCount:    2,
			wantLines:    2,
			wantModified: true,
		},
		{
			name:    "no_match",
			content: "Hello World\n",
			rules: []ReplacementRule{
				{Pattern: "Goodbye", Replacement: "Hi", FirstLine: 1, LastLine: 1},
			},
			want:         "Hello World\n",
			wantModified: false,
		},
		{
			name:    "empty_content",
			content: "",
			rules: []ReplacementRule{
				{Pattern: "World", Replacement: "Universe", FirstLine: 1, LastLine: 1},
			},
			want:         "",
			wantModified: false,
		},
		{
			name:    "bad_pattern",
			content: "x\n",
			rules: []ReplacementRule{
				{Pattern: "(", FirstLine: 1, LastLine: 1},
			},
			wantError: "compiling pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replacer := NewLineRangeReplacer()
			result, err := replacer.ReplaceText(
				context.Background(),
				strings.NewReader(tt.content),
				tt.rules,
			)

			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.content, string(result.OriginalContent))
			assert.Equal(t, tt.want, string(result.ModifiedContent))
			assert.Equal(t, tt.wantCount, result.ReplacementCount)
			assert.Equal(t, tt.wantLines, result.LinesChanged)
			assert.Equal(t, tt.wantModified, result.WasModified)
		})
	}
}

func TestLineRangeReplacer_ValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		rules     []ReplacementRule
		wantError string
	}{
		{
			name:  "valid_rules",
			rules: []ReplacementRule{{Pattern: "foo", Replacement: "bar", FirstLine: 1, LastLine: ToEnd}},
		},
		{
			name:      "missing_pattern",
			rules:     []ReplacementRule{{Replacement: "bar", FirstLine: 1, LastLine: 1}},
			wantError: "pattern is required",
		},
		{
			name:      "zero_first_line",
			rules:     []ReplacementRule{{Pattern: "foo", LastLine: 1}},
			wantError: "first line must be at least 1",
		},
		{
			name:      "inverted_range",
			rules:     []ReplacementRule{{Pattern: "foo", FirstLine: 5, LastLine: 2}},
			wantError: "is before first line",
		},
		{
			name:      "unknown_flag",
			rules:     []ReplacementRule{{Pattern: "foo", Flags: "x", FirstLine: 1, LastLine: 1}},
			wantError: "unknown flag",
		},
		{
			name:  "empty_rules",
			rules: []ReplacementRule{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replacer := NewLineRangeReplacer()
			err := replacer.ValidateRules(tt.rules)

			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: `\1-\2`, want: "${1}-${2}"},
		{in: "[&]", want: "[${0}]"},
		{in: `\&`, want: "&"},
		{in: "$HOME", want: "$$HOME"},
		{in: `a\\b`, want: `a\b`},
		{in: `tab\there`, want: "tab\there"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandTemplate(tt.in))
		})
	}
}
