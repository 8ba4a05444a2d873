package kv3

import (
	"fmt"
	"iter"
)

// SeqAccess hands the elements of an Array or HexArray to a visitor. Each
// element is delivered at most once, in order.
type SeqAccess struct {
	items Array
	hex   HexArray
	kind  Kind
	path  Path
	next  int
}

// Kind returns KindArray or KindHexArray.
func (s *SeqAccess) Kind() Kind { return s.kind }

// Path returns the location of the sequence.
func (s *SeqAccess) Path() Path { return s.path }

// Len returns the total number of elements.
func (s *SeqAccess) Len() int {
	if s.kind == KindHexArray {
		return len(s.hex)
	}
	return len(s.items)
}

// Remaining returns the number of elements not yet delivered.
func (s *SeqAccess) Remaining() int { return s.Len() - s.next }

// Bytes returns the raw content of a hex array.
func (s *SeqAccess) Bytes() ([]byte, bool) {
	if s.kind != KindHexArray {
		return nil, false
	}
	return s.hex, true
}

// Value returns the sequence node itself.
func (s *SeqAccess) Value() Value {
	if s.kind == KindHexArray {
		return s.hex
	}
	return s.items
}

func (s *SeqAccess) at(i int) Value {
	if s.kind == KindHexArray {
		return Int(s.hex[i])
	}
	return s.items[i]
}

// Values iterates over the elements not yet delivered, consuming them.
func (s *SeqAccess) Values() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for s.next < s.Len() {
			i := s.next
			s.next++
			if !yield(i, s.at(i)) {
				return
			}
		}
	}
}

// NextElement maps the next element with elem. ok is false once the sequence
// is exhausted.
func NextElement[E any](s *SeqAccess, elem Visitor[E]) (v E, ok bool, err error) {
	if s.next >= s.Len() {
		return v, false, nil
	}
	i := s.next
	s.next++
	v, err = walk(s.at(i), elem, s.path.index(i))
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// MapAccess hands the entries of an Object to a visitor. Fields are looked up
// by declared name, translated through an optional renaming table, and each
// key is decoded at most once. Keys never requested are ignored unless the
// visitor calls DisallowUnknown.
type MapAccess struct {
	obj     *Object
	path    Path
	renames map[string]string
	taken   map[string]bool
	cursor  int
}

func newMapAccess(obj *Object, path Path) *MapAccess {
	return &MapAccess{obj: obj, path: path, taken: make(map[string]bool)}
}

// Path returns the location of the object.
func (m *MapAccess) Path() Path { return m.path }

// Len returns the number of entries in the object.
func (m *MapAccess) Len() int { return m.obj.Len() }

// Object returns the object node itself.
func (m *MapAccess) Object() *Object { return m.obj }

// Rename installs a table from declared field names to object keys. Names
// missing from the table are looked up as-is.
func (m *MapAccess) Rename(table map[string]string) {
	m.renames = table
}

// KeyFor returns the object key that declared name resolves to.
func (m *MapAccess) KeyFor(name string) string {
	if k, ok := m.renames[name]; ok {
		return k
	}
	return name
}

// Lookup returns the raw value for a declared name and marks its key as
// consumed.
func (m *MapAccess) Lookup(name string) (Value, bool) {
	key := m.KeyFor(name)
	v, ok := m.obj.Get(key)
	if ok {
		m.taken[key] = true
	}
	return v, ok
}

// Decode maps each declared field in order. A required field whose key is
// absent fails with MissingFieldError; an absent optional field leaves its
// destination untouched.
func (m *MapAccess) Decode(fields ...FieldSpec) error {
	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		name := f.fieldName()
		if declared[name] {
			return &ValueError{Path: m.path, Err: fmt.Errorf("field %q declared twice", name)}
		}
		declared[name] = true

		key := m.KeyFor(name)
		if m.taken[key] {
			return &ValueError{Path: m.path, Err: fmt.Errorf("key %q already decoded", key)}
		}
		v, ok := m.obj.Get(key)
		if !ok {
			if f.optional() {
				continue
			}
			return &MissingFieldError{Path: m.path, Field: key}
		}
		m.taken[key] = true
		if err := f.decode(v, m.path.key(key)); err != nil {
			return err
		}
	}
	return nil
}

// NextEntry maps the next entry not yet consumed with vis. ok is false once
// every entry has been consumed.
func NextEntry[V any](m *MapAccess, vis Visitor[V]) (key string, v V, ok bool, err error) {
	keys := m.obj.keys
	for m.cursor < len(keys) {
		key = keys[m.cursor]
		m.cursor++
		if m.taken[key] {
			continue
		}
		m.taken[key] = true
		raw, _ := m.obj.Get(key)
		v, err = walk(raw, vis, m.path.key(key))
		if err != nil {
			return key, v, false, err
		}
		return key, v, true, nil
	}
	return "", v, false, nil
}

// Unknown returns the keys that have not been consumed, in object order.
func (m *MapAccess) Unknown() []string {
	var out []string
	for _, k := range m.obj.keys {
		if !m.taken[k] {
			out = append(out, k)
		}
	}
	return out
}

// DisallowUnknown fails with UnknownFieldError if any key was not consumed.
func (m *MapAccess) DisallowUnknown() error {
	if unknown := m.Unknown(); len(unknown) > 0 {
		return &UnknownFieldError{Path: m.path, Fields: unknown}
	}
	return nil
}

// FieldSpec declares one field of an object schema. Build them with Field and
// OptionalField and pass them to MapAccess.Decode.
type FieldSpec interface {
	fieldName() string
	optional() bool
	decode(v Value, path Path) error
}

type field[F any] struct {
	name string
	vis  Visitor[F]
	dst  *F
	opt  bool
}

func (f field[F]) fieldName() string { return f.name }
func (f field[F]) optional() bool    { return f.opt }

func (f field[F]) decode(v Value, path Path) error {
	out, err := walk(v, f.vis, path)
	if err != nil {
		return err
	}
	*f.dst = out
	return nil
}

// Field declares a required field stored into dst.
func Field[F any](name string, vis Visitor[F], dst *F) FieldSpec {
	return field[F]{name: name, vis: vis, dst: dst}
}

// OptionalField declares a field that may be absent.
func OptionalField[F any](name string, vis Visitor[F], dst *F) FieldSpec {
	return field[F]{name: name, vis: vis, dst: dst, opt: true}
}
