package kv3

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) *Object {
	t.Helper()
	rest, root, err := Parse(text)
	require.NoError(t, err)
	require.Empty(t, rest)
	return root
}

func get(t *testing.T, obj *Object, key string) Value {
	t.Helper()
	v, ok := obj.Get(key)
	require.True(t, ok, "key %q not found", key)
	return v
}

func TestParse_Scalars(t *testing.T) {
	root := mustParse(t, `{
		yes = true
		no = false
		nothing = null
		count = 42
		negative = -17
		plus = +3
		ratio = 0.5
		half = .5
		whole = 5.
		big = 1.5e3
		small = 2E-2
		name = "hello world"
		empty = ""
	}`)

	tests := []struct {
		key  string
		want Value
	}{
		{"yes", Bool(true)},
		{"no", Bool(false)},
		{"nothing", Null{}},
		{"count", Int(42)},
		{"negative", Int(-17)},
		{"plus", Int(3)},
		{"ratio", Double(0.5)},
		{"half", Double(0.5)},
		{"whole", Double(5)},
		{"big", Double(1500)},
		{"small", Double(0.02)},
		{"name", String("hello world")},
		{"empty", String("")},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, get(t, root, tt.key))
		})
	}
	assert.Equal(t, len(tests), root.Len())
}

func TestParse_Int64Bounds(t *testing.T) {
	root := mustParse(t, "{ max = 9223372036854775807 min = -9223372036854775808 }")
	assert.Equal(t, Int(math.MaxInt64), get(t, root, "max"))
	assert.Equal(t, Int(math.MinInt64), get(t, root, "min"))
}

func TestParse_NumberKindFollowsLexeme(t *testing.T) {
	root := mustParse(t, "{ a = 1 b = 1.0 c = 1e0 }")
	assert.Equal(t, KindInt, get(t, root, "a").Kind())
	assert.Equal(t, KindDouble, get(t, root, "b").Kind())
	assert.Equal(t, KindDouble, get(t, root, "c").Kind())
}

func TestParse_ExponentWithoutDigits(t *testing.T) {
	// "e" without digits is not part of the number, so the value is 1 and
	// the object then fails on the stray key.
	_, _, err := Parse("{ a = 1e }")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))
}

func TestParse_Arrays(t *testing.T) {
	root := mustParse(t, `{
		empty = []
		ints = [1, 2, 3]
		trailing = [1, 2, 3,]
		mixed = [1, "two", 3.0, null, true]
		nested = [[1, 2], [], [[3]]]
		objects = [{ a = 1 }, { a = 2 }]
	}`)

	assert.Equal(t, Array{}, get(t, root, "empty"))
	assert.Equal(t, Array{Int(1), Int(2), Int(3)}, get(t, root, "ints"))
	assert.Equal(t, Array{Int(1), Int(2), Int(3)}, get(t, root, "trailing"))
	assert.Equal(t, Array{Int(1), String("two"), Double(3), Null{}, Bool(true)}, get(t, root, "mixed"))
	assert.Equal(t, Array{
		Array{Int(1), Int(2)},
		Array{},
		Array{Array{Int(3)}},
	}, get(t, root, "nested"))

	objects, ok := get(t, root, "objects").(Array)
	require.True(t, ok)
	require.Len(t, objects, 2)
	for i, item := range objects {
		obj, ok := item.(*Object)
		require.True(t, ok)
		assert.Equal(t, Int(i+1), get(t, obj, "a"))
	}
}

func TestParse_ArraySyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "double trailing comma", input: "{ a = [1,,] }", expected: "value"},
		{name: "missing separator", input: "{ a = [1 2] }", expected: "',' or ']'"},
		{name: "unclosed", input: "{ a = [1, 2", expected: "',' or ']'"},
		{name: "leading comma", input: "{ a = [,1] }", expected: "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.input)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.expected, se.Expected)
		})
	}
}

func TestParse_HexArray(t *testing.T) {
	root := mustParse(t, `{
		bytes = #[FF 00 1a 7]
		empty = #[]
		spaced = #[
			DE AD
			BE EF
		]
		junk = #[01 zz 100 02]
		signed = #[+F ff -1 1]
	}`)

	assert.Equal(t, HexArray{0xFF, 0x00, 0x1A, 0x07}, get(t, root, "bytes"))
	assert.Equal(t, HexArray{}, get(t, root, "empty"))
	assert.Equal(t, HexArray{0xDE, 0xAD, 0xBE, 0xEF}, get(t, root, "spaced"))
	assert.Equal(t, HexArray{0x01, 0x02}, get(t, root, "junk"))
	assert.Equal(t, HexArray{0xFF, 0x01}, get(t, root, "signed"))
}

func TestParse_HexArrayUnclosed(t *testing.T) {
	_, _, err := Parse("{ a = #[FF 00 }")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "']' closing hex array", se.Expected)
}

func TestParse_Strings(t *testing.T) {
	root := mustParse(t, "{\n"+
		"\tplain = \"no escapes \\n here\"\n"+
		"\tmulti = \"\"\"line one\nline \"two\"\n\"\"\"\n"+
		"\tbroken = \"spans\nlines\"\n"+
		"}")

	assert.Equal(t, String(`no escapes \n here`), get(t, root, "plain"))
	assert.Equal(t, String("line one\nline \"two\"\n"), get(t, root, "multi"))
	assert.Equal(t, String("spans\nlines"), get(t, root, "broken"))
}

func TestParse_UnterminatedString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		literal string
		closer  string
	}{
		{name: "quoted", input: `{ a = "open }`, literal: "string", closer: `"`},
		{name: "triple", input: `{ a = """open" }`, literal: "multi-line string", closer: `"""`},
		{name: "triple then quote", input: `{ a = """" b = "x" }`, literal: "multi-line string", closer: `"""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.input)
			var ul *UnterminatedLiteralError
			require.ErrorAs(t, err, &ul)
			assert.Equal(t, tt.literal, ul.Literal)
			assert.Equal(t, tt.closer, ul.Closer)
			assert.Equal(t, 6, ul.Offset)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestParse_NumberFormat(t *testing.T) {
	tests := []struct {
		name    string
		literal string
	}{
		{name: "int overflow", literal: "9223372036854775808"},
		{name: "int underflow", literal: "-9223372036854775809"},
		{name: "double overflow", literal: "1e400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse("{\n  n = " + tt.literal + "\n}")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNumberFormat))

			var nf *NumberFormatError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.literal, nf.Literal)
			assert.Equal(t, 2, nf.Line)
			assert.Equal(t, 7, nf.Column)
		})
	}
}

func TestParse_Objects(t *testing.T) {
	root := mustParse(t, `{
		inner = { x = 1 y = { z = "deep" } }
		empty = {}
		_under_score9 = 1
		9lives = 2
		größe = 3
	}`)

	inner, ok := get(t, root, "inner").(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, inner.Keys())
	y := get(t, inner, "y").(*Object)
	assert.Equal(t, String("deep"), get(t, y, "z"))

	empty := get(t, root, "empty").(*Object)
	assert.Equal(t, 0, empty.Len())

	assert.Equal(t, Int(1), get(t, root, "_under_score9"))
	assert.Equal(t, Int(2), get(t, root, "9lives"))
	assert.Equal(t, Int(3), get(t, root, "größe"))
}

func TestParse_KeyOrderAndDuplicates(t *testing.T) {
	root := mustParse(t, "{ b = 1 a = 2 b = 3 c = 4 }")
	assert.Equal(t, []string{"b", "a", "c"}, root.Keys())
	assert.Equal(t, Int(3), get(t, root, "b"))
}

func TestParse_EmptyKey(t *testing.T) {
	root := mustParse(t, "{ = 1 }")
	assert.Equal(t, Int(1), get(t, root, ""))
}

func TestParse_PairsNeedNoSeparator(t *testing.T) {
	root := mustParse(t, "{a=1 b=[1]c={}d=\"x\"}")
	assert.Equal(t, []string{"a", "b", "c", "d"}, root.Keys())
}

func TestParse_ObjectSyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		line     int
		column   int
	}{
		{name: "not an object", input: "[1]", expected: "'{'", line: 1, column: 1},
		{name: "empty input", input: "  ", expected: "'{'", line: 1, column: 3},
		{name: "missing equals", input: "{\n  a 1\n}", expected: "'='", line: 2, column: 5},
		{name: "bad key", input: "{ -a = 1 }", expected: "key or '}'", line: 1, column: 3},
		{name: "missing value", input: "{ a = }", expected: "value", line: 1, column: 7},
		{name: "unclosed", input: "{ a = 1", expected: "'}'", line: 1, column: 8},
		{name: "comma between pairs", input: "{ a = 1, b = 2 }", expected: "key or '}'", line: 1, column: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.input)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.expected, se.Expected)
			assert.Equal(t, tt.line, se.Line)
			assert.Equal(t, tt.column, se.Column)
			assert.True(t, IsParseError(err))
			assert.False(t, IsMappingError(err))
		})
	}
}

func TestParse_SyntaxErrorMessage(t *testing.T) {
	_, _, err := Parse("{ a = }")
	require.Error(t, err)
	assert.Equal(t, `kv3: 1:7: expected value, found "}"`, err.Error())

	_, _, err = Parse("{ a = 1")
	require.Error(t, err)
	assert.Equal(t, "kv3: 1:8: expected '}', found end of input", err.Error())
}

func TestParse_Comments(t *testing.T) {
	root := mustParse(t, `<!-- kv3 encoding:text:version{e21c7f3c-8a33-41c5-9977-a76d3a32aa0d} format:generic:version{7412167c-06e9-4698-aff2-e63eb59037e7} -->
	{
		// a line comment
		a = /* inline */ 1
		b = [ 1, // one
			2 /* two */, ]
		<!-- xml style -->
		c = { /* empty */ }
	}
	// trailing comment`)

	assert.Equal(t, []string{"a", "b", "c"}, root.Keys())
	assert.Equal(t, Array{Int(1), Int(2)}, get(t, root, "b"))
}

func TestParse_ByteOrderMark(t *testing.T) {
	root := mustParse(t, "\ufeff{ a = 1 }")
	assert.Equal(t, Int(1), get(t, root, "a"))
}

func TestParse_Remaining(t *testing.T) {
	rest, root, err := Parse("{ a = 1 } // done\n  extra stuff")
	require.NoError(t, err)
	assert.Equal(t, "extra stuff", rest)
	assert.Equal(t, 1, root.Len())
}

func TestParse_KeywordPrefix(t *testing.T) {
	// keywords match by prefix; the remainder is parsed as the next key
	root := mustParse(t, "{ a = trueish = 1 }")
	assert.Equal(t, Bool(true), get(t, root, "a"))
	assert.Equal(t, Int(1), get(t, root, "ish"))
}

func TestParse_MaxDepth(t *testing.T) {
	nested := func(n int) string {
		return "{ a = " + strings.Repeat("[", n) + strings.Repeat("]", n) + " }"
	}

	p := NewParser(Options{MaxDepth: 4})

	_, _, err := p.Parse(nested(3))
	require.NoError(t, err)

	_, _, err = p.Parse(nested(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxDepth))

	var de *DepthError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 4, de.Max)
}

func TestParse_DefaultDepthRejectsPathologicalInput(t *testing.T) {
	_, _, err := Parse(nestedObjects(DefaultMaxDepth + 1))
	assert.True(t, errors.Is(err, ErrMaxDepth))

	_, _, err = Parse(nestedObjects(DefaultMaxDepth))
	assert.NoError(t, err)
}

func TestParse_UnlimitedDepth(t *testing.T) {
	p := NewParser(Options{MaxDepth: -1})
	_, _, err := p.Parse(nestedObjects(DefaultMaxDepth * 2))
	assert.NoError(t, err)
}

// nestedObjects builds a document with n levels of objects, the root included.
func nestedObjects(n int) string {
	return strings.Repeat("{ a = ", n-1) + "{}" + strings.Repeat(" }", n-1)
}

func TestParse_Logger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := NewParser(Options{Logger: log})
	_, _, err := p.Parse("{ alpha = 1 }")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "parsed kv3 pair")
	assert.Contains(t, out, "key=alpha")
	assert.Contains(t, out, "parsed kv3 root")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
		rest  string
	}{
		{name: "int", input: " 12 tail", want: Int(12), rest: "tail"},
		{name: "string", input: `"s"`, want: String("s"), rest: ""},
		{name: "array", input: "[1] // c", want: Array{Int(1)}, rest: ""},
		{name: "hex", input: "#[0A]", want: HexArray{0x0A}, rest: ""},
		{name: "null", input: "null,", want: Null{}, rest: ","},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, v, err := ParseValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestParseValue_Object(t *testing.T) {
	_, v, err := ParseValue("{ k = 1 }")
	require.NoError(t, err)
	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, Int(1), get(t, obj, "k"))
}

func TestParseValue_Invalid(t *testing.T) {
	_, v, err := ParseValue("@")
	require.Error(t, err)
	assert.Nil(t, v)
	assert.True(t, errors.Is(err, ErrSyntax))
}

func TestParse_DeterministicAndConcurrent(t *testing.T) {
	const doc = `{ a = [1, 2.5, "x", #[01 02], { b = null }] }`
	first := mustParse(t, doc)

	p := NewParser(Options{})
	done := make(chan *Object)
	for i := 0; i < 8; i++ {
		go func() {
			_, root, err := p.Parse(doc)
			if err != nil {
				done <- nil
				return
			}
			done <- root
		}()
	}
	for i := 0; i < 8; i++ {
		root := <-done
		require.NotNil(t, root)
		assert.True(t, Equal(first, root))
	}
}
