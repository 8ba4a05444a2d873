package kv3

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by errors.Is against the concrete error types below.
var (
	ErrSyntax       = errors.New("kv3: syntax error")
	ErrNumberFormat = errors.New("kv3: number out of range")
	ErrUnterminated = errors.New("kv3: unterminated literal")
	ErrMaxDepth     = errors.New("kv3: maximum nesting depth exceeded")
	ErrMissingField = errors.New("kv3: missing field")
	ErrTypeMismatch = errors.New("kv3: type mismatch")
	ErrUnknownField = errors.New("kv3: unknown field")
	ErrOutOfRange   = errors.New("value out of range")

	errNilValue = errors.New("nil value in tree")
)

// Position locates a byte offset in the parsed text. Line and Column are
// 1-based; Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func positionAt(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndexByte(before, '\n')
	return Position{Offset: offset, Line: line, Column: col}
}

// SyntaxError reports a delimiter, keyword or lexeme missing where the
// grammar required one.
type SyntaxError struct {
	Position
	Expected string
	Found    string
}

func (e *SyntaxError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("kv3: %s: expected %s, found end of input", e.Position, e.Expected)
	}
	return fmt.Sprintf("kv3: %s: expected %s, found %q", e.Position, e.Expected, e.Found)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// NumberFormatError reports a numeric literal that does not fit int64 or
// float64.
type NumberFormatError struct {
	Position
	Literal string
}

func (e *NumberFormatError) Error() string {
	return fmt.Sprintf("kv3: %s: number %q out of range", e.Position, e.Literal)
}

func (e *NumberFormatError) Is(target error) bool { return target == ErrNumberFormat }

// UnterminatedLiteralError reports a string or comment whose closing
// sequence never appears.
type UnterminatedLiteralError struct {
	Position
	Literal string // "string", "multi-line string", "comment", "xml comment"
	Closer  string
}

func (e *UnterminatedLiteralError) Error() string {
	return fmt.Sprintf("kv3: %s: unterminated %s, missing %q", e.Position, e.Literal, e.Closer)
}

func (e *UnterminatedLiteralError) Is(target error) bool { return target == ErrUnterminated }

// DepthError reports input nested deeper than Options.MaxDepth.
type DepthError struct {
	Position
	Max int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("kv3: %s: nesting deeper than %d levels", e.Position, e.Max)
}

func (e *DepthError) Is(target error) bool { return target == ErrMaxDepth }

// Path addresses a node within a tree, e.g. obj.items[2].name.
type Path []string

func (p Path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	var b strings.Builder
	for i, seg := range p {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func (p Path) key(k string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, k)
}

func (p Path) index(i int) Path {
	return p.key(fmt.Sprintf("[%d]", i))
}

// MissingFieldError reports a required field absent from an object.
type MissingFieldError struct {
	Path  Path
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("kv3: %s: missing field %q", e.Path, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// TypeMismatchError reports a node whose kind the target schema cannot accept.
type TypeMismatchError struct {
	Path     Path
	Expected string
	Got      Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("kv3: %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

func (e *TypeMismatchError) setPath(p Path) {
	if e.Path == nil {
		e.Path = p
	}
}

// UnknownFieldError reports object keys that a strict schema did not consume.
type UnknownFieldError struct {
	Path   Path
	Fields []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("kv3: %s: unknown fields %s", e.Path, strings.Join(e.Fields, ", "))
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }

// ValueError wraps any other failure raised while mapping the node at Path,
// such as an integer that overflows its target type.
type ValueError struct {
	Path Path
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("kv3: %s: %v", e.Path, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

// IsParseError reports whether err came from the grammar engine.
func IsParseError(err error) bool {
	return errors.Is(err, ErrSyntax) || errors.Is(err, ErrNumberFormat) ||
		errors.Is(err, ErrUnterminated) || errors.Is(err, ErrMaxDepth)
}

// IsMappingError reports whether err came from the mapping layer.
func IsMappingError(err error) bool {
	var ve *ValueError
	return errors.Is(err, ErrMissingField) || errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrUnknownField) || errors.As(err, &ve)
}

// mismatch builds a TypeMismatchError; the walk fills in its path.
func mismatch(expected string, got Kind) error {
	return &TypeMismatchError{Expected: expected, Got: got}
}

// locate attaches path to an error returned by a visitor for the node at path.
// Errors that already carry a path are returned unchanged.
func locate(err error, path Path) error {
	var (
		tm *TypeMismatchError
		mf *MissingFieldError
		uf *UnknownFieldError
		ve *ValueError
	)
	switch {
	case errors.As(err, &tm):
		tm.setPath(path)
		return err
	case errors.As(err, &mf), errors.As(err, &uf), errors.As(err, &ve):
		return err
	case IsParseError(err):
		return err
	default:
		return &ValueError{Path: path, Err: err}
	}
}
