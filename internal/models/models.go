package models

import "github.com/mcncl/kv3typer/kv3"

// IntermediateRepresentation holds a parsed KV3 document for the analyzer.
type IntermediateRepresentation struct {
	Root *kv3.Object
	// Remaining is the text after the root object, already stripped of
	// whitespace and comments. Empty unless trailing data was allowed.
	Remaining string
}

// Kind classifies the Go type chosen for a KV3 node.
type Kind int

const (
	Bool Kind = iota
	Int
	Float
	String
	Bytes
	Time
	UUID
	Value // any kv3.Value, decoded with kv3.Any
	Struct
	Slice
	Map    // map[string]V, from a JSON Schema additionalProperties
	Custom // user type from a config mapping
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Time:
		return "time"
	case UUID:
		return "uuid"
	case Value:
		return "value"
	case Struct:
		return "struct"
	case Slice:
		return "slice"
	case Map:
		return "map"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Nilable reports whether the Go type for k already has a nil state, so a
// nullable or absent value needs no pointer.
func (k Kind) Nilable() bool {
	switch k {
	case Slice, Map, Bytes, Value:
		return true
	}
	return false
}

// TypeInfo describes a Go type and how the generated decoder maps onto it.
type TypeInfo struct {
	Kind             Kind
	Name             string // Go type expression without the pointer star
	StructName       string
	SliceElementType *TypeInfo // element of a Slice, value of a Map
	IsPointer        bool
	// Layout is the time.Parse layout for Time kinds.
	Layout string
	// Decoder is the visitor expression for Custom kinds.
	Decoder string
	// Import is the package path a Custom type needs, if any.
	Import string
}

// ImportPath returns the package the Go type itself lives in, or "".
// kv3 is not reported since generated code always imports it.
func (t TypeInfo) ImportPath() string {
	switch t.Kind {
	case Time:
		return "time"
	case UUID:
		return "github.com/google/uuid"
	case Custom:
		return t.Import
	case Slice, Map:
		if t.SliceElementType != nil {
			return t.SliceElementType.ImportPath()
		}
	}
	return ""
}

// FieldInfo is one struct field bound to one KV3 object key.
type FieldInfo struct {
	Key      string
	GoName   string
	GoType   TypeInfo
	Tag      string // full struct tag, backticks included
	Optional bool   // decoded with kv3.OptionalField
	Comment  string
}

// StructDef is a Go struct that the generator emits along with its
// DecodeKV3 method.
type StructDef struct {
	Name    string
	Fields  []FieldInfo
	IsRoot  bool
	Comment string
}

// AnalysisResult is everything the generator needs.
type AnalysisResult struct {
	Structs []StructDef
	Imports map[string]struct{}
}

// CollectImports gathers the packages referenced by the field types of structs.
func CollectImports(structs []StructDef) map[string]struct{} {
	imports := make(map[string]struct{})
	for _, s := range structs {
		for _, f := range s.Fields {
			if path := f.GoType.ImportPath(); path != "" {
				imports[path] = struct{}{}
			}
		}
	}
	return imports
}
