package errors

import (
	"errors"
	"fmt"

	"github.com/mcncl/kv3typer/kv3"
)

// Standard application errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace and comments")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrNoInput         = errors.New("no input provided: please specify a file with -i or pipe KV3 data to stdin")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrTrailingData    = errors.New("unexpected data after the root object")
	ErrQueryNoMatch    = errors.New("query matched nothing")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput    ErrorType = "input"
	ErrorTypeParsing  ErrorType = "parsing"
	ErrorTypeMapping  ErrorType = "mapping"
	ErrorTypeAnalysis ErrorType = "analysis"
	ErrorTypeGenerate ErrorType = "generate"
	ErrorTypeFormat   ErrorType = "format"
	ErrorTypeOutput   ErrorType = "output"
	ErrorTypeQuery    ErrorType = "query"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return newError(ErrorTypeInput, message, err)
}

// NewParsingError creates a new error related to KV3 parsing
func NewParsingError(message string, err error) *AppError {
	return newError(ErrorTypeParsing, message, err)
}

// NewMappingError creates a new error related to mapping a tree onto Go values
func NewMappingError(message string, err error) *AppError {
	return newError(ErrorTypeMapping, message, err)
}

// NewAnalysisError creates a new error related to type analysis
func NewAnalysisError(message string, err error) *AppError {
	return newError(ErrorTypeAnalysis, message, err)
}

// NewGenerateError creates a new error related to code generation
func NewGenerateError(message string, err error) *AppError {
	return newError(ErrorTypeGenerate, message, err)
}

// NewFormatError creates a new error related to code formatting
func NewFormatError(message string, err error) *AppError {
	return newError(ErrorTypeFormat, message, err)
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return newError(ErrorTypeOutput, message, err)
}

// NewQueryError creates a new error related to path queries
func NewQueryError(message string, err error) *AppError {
	return newError(ErrorTypeQuery, message, err)
}

// FromKV3 wraps an error returned by the kv3 package, choosing the error type
// and a message that carries the source position or tree path.
func FromKV3(err error) *AppError {
	if err == nil {
		return nil
	}
	if kv3.IsMappingError(err) {
		return NewMappingError(describeKV3(err), err)
	}
	return NewParsingError(describeKV3(err), err)
}

func describeKV3(err error) string {
	var (
		syntax *kv3.SyntaxError
		number *kv3.NumberFormatError
		unterm *kv3.UnterminatedLiteralError
		depth  *kv3.DepthError
		miss   *kv3.MissingFieldError
		tm     *kv3.TypeMismatchError
		uf     *kv3.UnknownFieldError
		ve     *kv3.ValueError
	)
	switch {
	case errors.As(err, &syntax):
		found := "end of input"
		if syntax.Found != "" {
			found = fmt.Sprintf("%q", syntax.Found)
		}
		return fmt.Sprintf("line %d, column %d: expected %s, found %s", syntax.Line, syntax.Column, syntax.Expected, found)
	case errors.As(err, &number):
		return fmt.Sprintf("line %d, column %d: number %s is out of range", number.Line, number.Column, number.Literal)
	case errors.As(err, &unterm):
		return fmt.Sprintf("line %d, column %d: %s is never closed", unterm.Line, unterm.Column, unterm.Literal)
	case errors.As(err, &depth):
		return fmt.Sprintf("line %d, column %d: nesting deeper than %d levels", depth.Line, depth.Column, depth.Max)
	case errors.As(err, &miss):
		return fmt.Sprintf("%s: missing field %q", miss.Path, miss.Field)
	case errors.As(err, &tm):
		return fmt.Sprintf("%s: expected %s, got %s", tm.Path, tm.Expected, tm.Got)
	case errors.As(err, &uf):
		return fmt.Sprintf("%s: unknown fields %v", uf.Path, uf.Fields)
	case errors.As(err, &ve):
		return fmt.Sprintf("%s: %v", ve.Path, ve.Err)
	default:
		return err.Error()
	}
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("KV3 parsing error: %s", appErr.Message)
		case ErrorTypeMapping:
			return fmt.Sprintf("KV3 mapping error: %s", appErr.Message)
		case ErrorTypeAnalysis:
			return fmt.Sprintf("Type analysis error: %s", appErr.Message)
		case ErrorTypeGenerate:
			return fmt.Sprintf("Code generation error: %s", appErr.Message)
		case ErrorTypeFormat:
			return fmt.Sprintf("Code formatting error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		case ErrorTypeQuery:
			return fmt.Sprintf("Query error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	if kv3.IsParseError(err) {
		return fmt.Sprintf("KV3 parsing error: %s", describeKV3(err))
	}
	if kv3.IsMappingError(err) {
		return fmt.Sprintf("KV3 mapping error: %s", describeKV3(err))
	}

	switch {
	case errors.Is(err, ErrEmptyInput):
		return "Error: The input is empty. Please provide a KV3 document."
	case errors.Is(err, ErrFileNotFound):
		return "Error: The specified file could not be found. Please check the file path."
	case errors.Is(err, ErrFileEmpty):
		return "Error: The specified file is empty. Please provide a file with KV3 content."
	case errors.Is(err, ErrNoInput):
		return "Error: No input provided. Please specify a file with -i or pipe KV3 data to stdin."
	case errors.Is(err, ErrInvalidFilePath):
		return "Error: Invalid file path. Please provide a valid file path."
	case errors.Is(err, ErrTrailingData):
		return "Error: The document has data after its root object. Set parser.allow_trailing to ignore it."
	case errors.Is(err, ErrQueryNoMatch):
		return "Error: The query did not match any value."
	}

	return fmt.Sprintf("Error: %v", err)
}
