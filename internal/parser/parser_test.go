package parser

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcncl/kv3typer/internal/config"
	"github.com/mcncl/kv3typer/internal/errors"
	"github.com/mcncl/kv3typer/kv3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<!-- kv3 encoding:text:version{e21c7f3c-8a33-41c5-9977-a76d3a32aa0d} format:generic:version{7412167c-06e9-4698-aff2-e63eb59037e7} -->
{
	_class = "C_OP_RenderSprites"
	m_nOrientationType = 2
	m_flAnimationRate = 0.5
	m_bFitCycleToLifetime = true
}
`

func TestParse_Reader(t *testing.T) {
	ir, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.NotNil(t, ir.Root)
	assert.Empty(t, ir.Remaining)

	assert.Equal(t, []string{"_class", "m_nOrientationType", "m_flAnimationRate", "m_bFitCycleToLifetime"}, ir.Root.Keys())
	v, _ := ir.Root.Get("m_flAnimationRate")
	assert.Equal(t, kv3.Double(0.5), v)
}

func TestParseString_Empty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace", input: " \n\t "},
		{name: "only comments", input: "// nothing\n/* here */ <!-- either -->"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrEmptyInput))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errors.ErrorTypeInput, appErr.Type)
		})
	}
}

func TestParseString_SyntaxError(t *testing.T) {
	_, err := ParseString("{\n\ta = 1\n\tb 2\n}")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeParsing, appErr.Type)
	assert.Contains(t, appErr.Message, "line 3, column 4")
	assert.True(t, stderrors.Is(err, kv3.ErrSyntax))
}

func TestParseString_UnterminatedComment(t *testing.T) {
	_, err := ParseString("/* open")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, kv3.ErrUnterminated))
}

func TestParseString_TrailingData(t *testing.T) {
	input := "{ a = 1 }\n{ b = 2 }"

	_, err := ParseString(input)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrTrailingData))
	assert.Contains(t, err.Error(), "line 2")

	cfg := config.NewConfig()
	cfg.Parser.AllowTrailing = true
	var logs bytes.Buffer
	p := NewParser(cfg, slog.New(slog.NewTextHandler(&logs, nil)))

	ir, err := p.ParseString(input)
	require.NoError(t, err)
	assert.Equal(t, "{ b = 2 }", ir.Remaining)
	assert.Contains(t, logs.String(), "ignoring data after the root object")
}

func TestParseString_TrailingCommentIsFine(t *testing.T) {
	ir, err := ParseString("{ a = 1 }\n// end\n")
	require.NoError(t, err)
	assert.Equal(t, 1, ir.Root.Len())
}

func TestParser_MaxDepth(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Parser.MaxDepth = 2
	p := NewParser(cfg, nil)

	_, err := p.ParseString("{ a = { b = 1 } }")
	require.NoError(t, err)

	_, err = p.ParseString("{ a = { b = [] } }")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, kv3.ErrMaxDepth))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sprite.vpcf")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	ir, err := ParseFile(path)
	require.NoError(t, err)
	v, ok := ir.Root.Get("_class")
	require.True(t, ok)
	assert.Equal(t, kv3.String("C_OP_RenderSprites"), v)
}

func TestParseFile_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.kv3")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	tests := []struct {
		name     string
		path     string
		sentinel error
	}{
		{name: "blank path", path: "  ", sentinel: errors.ErrInvalidFilePath},
		{name: "missing file", path: filepath.Join(dir, "missing.kv3"), sentinel: errors.ErrFileNotFound},
		{name: "empty file", path: empty, sentinel: errors.ErrFileEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile(tt.path)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.sentinel))
		})
	}
}

func TestParseFile_DebugLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.kv3")
	require.NoError(t, os.WriteFile(path, []byte("{ a = 1 }"), 0644))

	var logs bytes.Buffer
	p := NewParser(nil, slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	_, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "read input file")
	assert.Contains(t, logs.String(), "parsed kv3 root")
}
