package kv3

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/constraints"
)

type boolSchema struct{ Mismatch[bool] }

// Boolean accepts Bool nodes.
func Boolean() Visitor[bool] { return boolSchema{Mismatch[bool]{Expected: "bool"}} }

func (s boolSchema) VisitScalar(kind Kind, v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, mismatch(s.Expected, kind)
	}
	return bool(b), nil
}

type integerSchema[N constraints.Integer] struct{ Mismatch[N] }

// Integer accepts Int nodes whose value fits N. Double nodes are rejected even
// when integral.
func Integer[N constraints.Integer]() Visitor[N] {
	return integerSchema[N]{Mismatch[N]{Expected: "integer"}}
}

func (s integerSchema[N]) VisitScalar(kind Kind, v Value) (N, error) {
	i, ok := v.(Int)
	if !ok {
		return 0, mismatch(s.Expected, kind)
	}
	n := N(i)
	if int64(n) != int64(i) || (n < 0) != (i < 0) {
		return 0, fmt.Errorf("%d does not fit %T: %w", int64(i), n, ErrOutOfRange)
	}
	return n, nil
}

type floatSchema[F constraints.Float] struct{ Mismatch[F] }

// Float accepts Double and Int nodes.
func Float[F constraints.Float]() Visitor[F] {
	return floatSchema[F]{Mismatch[F]{Expected: "number"}}
}

func (s floatSchema[F]) VisitScalar(kind Kind, v Value) (F, error) {
	var f float64
	switch x := v.(type) {
	case Double:
		f = float64(x)
	case Int:
		f = float64(x)
	default:
		return 0, mismatch(s.Expected, kind)
	}
	out := F(f)
	if math.IsInf(float64(out), 0) && !math.IsInf(f, 0) {
		return 0, fmt.Errorf("%g does not fit %T: %w", f, out, ErrOutOfRange)
	}
	return out, nil
}

type stringSchema struct{ Mismatch[string] }

// Text accepts String nodes.
func Text() Visitor[string] { return stringSchema{Mismatch[string]{Expected: "string"}} }

func (s stringSchema) VisitScalar(kind Kind, v Value) (string, error) {
	str, ok := v.(String)
	if !ok {
		return "", mismatch(s.Expected, kind)
	}
	return string(str), nil
}

type nullSchema struct{ Mismatch[struct{}] }

// Unit accepts only the null literal.
func Unit() Visitor[struct{}] { return nullSchema{Mismatch[struct{}]{Expected: "null"}} }

func (s nullSchema) VisitScalar(kind Kind, _ Value) (struct{}, error) {
	if kind != KindNull {
		return struct{}{}, mismatch(s.Expected, kind)
	}
	return struct{}{}, nil
}

type bytesSchema struct{ Mismatch[[]byte] }

// Bytes accepts a hex array, or an array of integers in 0..255.
func Bytes() Visitor[[]byte] { return bytesSchema{Mismatch[[]byte]{Expected: "bytes"}} }

func (bytesSchema) VisitSequence(s *SeqAccess) ([]byte, error) {
	if raw, ok := s.Bytes(); ok {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
	out := make([]byte, 0, s.Len())
	for {
		b, ok, err := NextElement(s, Integer[uint8]())
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, b)
	}
}

type sliceSchema[E any] struct {
	Mismatch[[]E]
	elem Visitor[E]
}

// Slice accepts arrays and hex arrays, mapping each element with elem.
func Slice[E any](elem Visitor[E]) Visitor[[]E] {
	return sliceSchema[E]{Mismatch: Mismatch[[]E]{Expected: "array"}, elem: elem}
}

func (sch sliceSchema[E]) VisitSequence(s *SeqAccess) ([]E, error) {
	out := make([]E, 0, s.Len())
	for {
		v, ok, err := NextElement(s, sch.elem)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

type mapSchema[V any] struct {
	Mismatch[map[string]V]
	elem Visitor[V]
}

// Map accepts objects, mapping every value with elem.
func Map[V any](elem Visitor[V]) Visitor[map[string]V] {
	return mapSchema[V]{Mismatch: Mismatch[map[string]V]{Expected: "object"}, elem: elem}
}

func (sch mapSchema[V]) VisitMapping(m *MapAccess) (map[string]V, error) {
	out := make(map[string]V, m.Len())
	for {
		k, v, ok, err := NextEntry(m, sch.elem)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out[k] = v
	}
}

type ptrSchema[T any] struct {
	inner Visitor[T]
}

// Ptr maps null to a nil pointer and anything else through inner.
func Ptr[T any](inner Visitor[T]) Visitor[*T] { return ptrSchema[T]{inner: inner} }

func (p ptrSchema[T]) VisitScalar(kind Kind, v Value) (*T, error) {
	if kind == KindNull {
		return nil, nil
	}
	out, err := p.inner.VisitScalar(kind, v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p ptrSchema[T]) VisitSequence(s *SeqAccess) (*T, error) {
	out, err := p.inner.VisitSequence(s)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p ptrSchema[T]) VisitMapping(m *MapAccess) (*T, error) {
	out, err := p.inner.VisitMapping(m)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type anySchema struct{}

// Any returns nodes unchanged.
func Any() Visitor[Value] { return anySchema{} }

func (anySchema) VisitScalar(_ Kind, v Value) (Value, error) { return v, nil }
func (anySchema) VisitSequence(s *SeqAccess) (Value, error)  { return s.Value(), nil }
func (anySchema) VisitMapping(m *MapAccess) (Value, error)   { return m.Object(), nil }

type structSchema[T any, PT interface {
	*T
	ObjectDecoder
}] struct {
	Mismatch[T]
}

// Struct accepts objects and decodes them through (*T).DecodeKV3.
func Struct[T any, PT interface {
	*T
	ObjectDecoder
}]() Visitor[T] {
	return structSchema[T, PT]{Mismatch[T]{Expected: "object"}}
}

func (structSchema[T, PT]) VisitMapping(m *MapAccess) (T, error) {
	var out T
	err := PT(&out).DecodeKV3(m)
	return out, err
}

type mappingFunc[T any] struct {
	Mismatch[T]
	fn func(*MapAccess) (T, error)
}

// Mapping accepts objects and decodes them with fn.
func Mapping[T any](fn func(*MapAccess) (T, error)) Visitor[T] {
	return mappingFunc[T]{Mismatch: Mismatch[T]{Expected: "object"}, fn: fn}
}

func (f mappingFunc[T]) VisitMapping(m *MapAccess) (T, error) { return f.fn(m) }

type renamed[T any] struct {
	Visitor[T]
	table map[string]string
}

// Renamed installs a renaming table, from declared field names to object
// keys, before vis sees an object.
func Renamed[T any](vis Visitor[T], table map[string]string) Visitor[T] {
	return renamed[T]{Visitor: vis, table: table}
}

func (r renamed[T]) VisitMapping(m *MapAccess) (T, error) {
	m.Rename(r.table)
	return r.Visitor.VisitMapping(m)
}

type strict[T any] struct {
	Visitor[T]
}

// Strict fails with UnknownFieldError when vis leaves object keys unconsumed.
func Strict[T any](vis Visitor[T]) Visitor[T] { return strict[T]{Visitor: vis} }

func (s strict[T]) VisitMapping(m *MapAccess) (T, error) {
	out, err := s.Visitor.VisitMapping(m)
	if err != nil {
		return out, err
	}
	if err := m.DisallowUnknown(); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

type uuidSchema struct{ Mismatch[uuid.UUID] }

// UUID accepts strings holding a UUID.
func UUID() Visitor[uuid.UUID] { return uuidSchema{Mismatch[uuid.UUID]{Expected: "uuid string"}} }

func (s uuidSchema) VisitScalar(kind Kind, v Value) (uuid.UUID, error) {
	str, ok := v.(String)
	if !ok {
		return uuid.Nil, mismatch(s.Expected, kind)
	}
	return uuid.Parse(string(str))
}

type timeSchema struct {
	Mismatch[time.Time]
	layout string
}

// Time accepts strings in the given time.Parse layout.
func Time(layout string) Visitor[time.Time] {
	return timeSchema{Mismatch: Mismatch[time.Time]{Expected: "time string"}, layout: layout}
}

func (s timeSchema) VisitScalar(kind Kind, v Value) (time.Time, error) {
	str, ok := v.(String)
	if !ok {
		return time.Time{}, mismatch(s.Expected, kind)
	}
	return time.Parse(s.layout, string(str))
}
