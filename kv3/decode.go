package kv3

// Visitor describes a target type T to the mapping layer. Walk calls exactly
// one method per node, chosen by the node's shape:
//
//   - VisitScalar for Bool, Int, Double, String and Null
//   - VisitSequence for Array and HexArray (hex bytes arrive as Int 0..255)
//   - VisitMapping for Object
//
// Embed Mismatch to reject the shapes a schema does not accept.
type Visitor[T any] interface {
	VisitScalar(kind Kind, v Value) (T, error)
	VisitSequence(s *SeqAccess) (T, error)
	VisitMapping(m *MapAccess) (T, error)
}

// ObjectDecoder is implemented by struct pointers that populate themselves
// from a KV3 object. kv3typer generates these methods.
type ObjectDecoder interface {
	DecodeKV3(m *MapAccess) error
}

// Mismatch implements every Visitor method by failing with a
// TypeMismatchError naming Expected. Schemas embed it and override the
// methods for the shapes they accept.
type Mismatch[T any] struct {
	Expected string
}

func (e Mismatch[T]) VisitScalar(kind Kind, _ Value) (T, error) {
	var zero T
	return zero, mismatch(e.Expected, kind)
}

func (e Mismatch[T]) VisitSequence(s *SeqAccess) (T, error) {
	var zero T
	return zero, mismatch(e.Expected, s.Kind())
}

func (e Mismatch[T]) VisitMapping(*MapAccess) (T, error) {
	var zero T
	return zero, mismatch(e.Expected, KindObject)
}

// Walk maps v onto T using vis.
func Walk[T any](v Value, vis Visitor[T]) (T, error) {
	return walk(v, vis, nil)
}

func walk[T any](v Value, vis Visitor[T], path Path) (T, error) {
	var (
		out T
		err error
	)
	switch x := v.(type) {
	case Bool, Int, Double, String, Null:
		out, err = vis.VisitScalar(x.Kind(), x)
	case Array:
		out, err = vis.VisitSequence(&SeqAccess{items: x, kind: KindArray, path: path})
	case HexArray:
		out, err = vis.VisitSequence(&SeqAccess{hex: x, kind: KindHexArray, path: path})
	case *Object:
		if x == nil {
			var zero T
			return zero, &ValueError{Path: path, Err: errNilValue}
		}
		out, err = vis.VisitMapping(newMapAccess(x, path))
	default:
		var zero T
		return zero, &ValueError{Path: path, Err: errNilValue}
	}
	if err != nil {
		var zero T
		return zero, locate(err, path)
	}
	return out, nil
}

// DecodeString parses a document and maps its root object onto T. Text after
// the root object other than whitespace and comments is a syntax error.
func DecodeString[T any](text string, vis Visitor[T]) (T, error) {
	return DecodeStringWith(defaultParser, text, vis)
}

// DecodeStringWith is DecodeString using p for parsing.
func DecodeStringWith[T any](p *Parser, text string, vis Visitor[T]) (T, error) {
	var zero T
	rest, root, err := p.Parse(text)
	if err != nil {
		return zero, err
	}
	if rest != "" {
		s := &scanner{src: text, pos: len(text) - len(rest)}
		return zero, s.expected("end of input")
	}
	return Walk[T](root, vis)
}

// Unmarshal parses a document and decodes its root object through
// dst's DecodeKV3 into a fresh value. *dst is replaced only when decoding
// succeeds; on error it is left untouched.
func Unmarshal[T any, PT interface {
	*T
	ObjectDecoder
}](text string, dst PT) error {
	v, err := DecodeString(text, Struct[T, PT]())
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
