package kv3

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rest  string
	}{
		{name: "empty", input: "", rest: ""},
		{name: "nothing to skip", input: "a = 1", rest: "a = 1"},
		{name: "whitespace", input: " \t\r\n a", rest: "a"},
		{name: "line comment", input: "// c\na", rest: "a"},
		{name: "line comment at end of input", input: "// c", rest: ""},
		{name: "block comment", input: "/* c */a", rest: "a"},
		{name: "block comment does not nest", input: "/* /* */ */", rest: "*/"},
		{name: "block comment spanning lines", input: "/*\nok\n*/ a", rest: "a"},
		{name: "xml comment", input: "<!-- c -->a", rest: "a"},
		{name: "interleaved", input: " // a\n /* b */ <!-- c -->\n\t// d\n}", rest: "}"},
		{name: "single slash is not a comment", input: "/ a", rest: "/ a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, err := Skip(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestSkip_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"  // c\n  /* x */ { a = 1 }",
		"<!-- kv3 encoding:text:version{e21c7f3c-8a33-41c5-9977-a76d3a32aa0d} -->\n{}",
		"\n\n\t",
	}
	for _, input := range inputs {
		once, err := Skip(input)
		require.NoError(t, err)
		twice, err := Skip(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "input %q", input)
	}
}

func TestSkip_Unterminated(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		literal string
		line    int
	}{
		{name: "block", input: "  /* never closed", literal: "comment", line: 1},
		{name: "xml", input: "\n<!-- never closed", literal: "xml comment", line: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Skip(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnterminated))

			var ul *UnterminatedLiteralError
			require.ErrorAs(t, err, &ul)
			assert.Equal(t, tt.literal, ul.Literal)
			assert.Equal(t, tt.line, ul.Line)
		})
	}
}
