package kv3

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindHexArray
	KindObject
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindHexArray:
		return "hex array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// IsScalar reports whether values of this kind are delivered to VisitScalar.
func (k Kind) IsScalar() bool {
	switch k {
	case KindNull, KindBool, KindInt, KindDouble, KindString:
		return true
	}
	return false
}

// Value is a node of a parsed KV3 tree. The set of implementations is closed:
// Bool, Int, Double, String, Array, HexArray, *Object and Null.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Bool is a true/false literal.
	Bool bool
	// Int is a numeric literal without '.', 'e' or 'E'.
	Int int64
	// Double is a numeric literal containing '.', 'e' or 'E'.
	Double float64
	// String is the verbatim content of a quoted or triple-quoted literal.
	String string
	// Array is an ordered, possibly heterogeneous, list of values.
	Array []Value
	// HexArray holds the bytes of a #[ ... ] literal.
	HexArray []byte
	// Null is the null literal.
	Null struct{}
)

func (Bool) Kind() Kind     { return KindBool }
func (Int) Kind() Kind      { return KindInt }
func (Double) Kind() Kind   { return KindDouble }
func (String) Kind() Kind   { return KindString }
func (Array) Kind() Kind    { return KindArray }
func (HexArray) Kind() Kind { return KindHexArray }
func (*Object) Kind() Kind  { return KindObject }
func (Null) Kind() Kind     { return KindNull }

func (Bool) isValue()     {}
func (Int) isValue()      {}
func (Double) isValue()   {}
func (String) isValue()   {}
func (Array) isValue()    {}
func (HexArray) isValue() {}
func (*Object) isValue()  {}
func (Null) isValue()     {}

// Equal reports whether two trees are structurally equal. Object key order
// is ignored; array order is not.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Double:
		y, ok := b.(Double)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Null:
		_, ok := b.(Null)
		return ok
	case HexArray:
		y, ok := b.(HexArray)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok {
			return false
		}
		if x == nil || y == nil {
			return x == y
		}
		if x.Len() != y.Len() {
			return false
		}
		for k, xv := range x.All() {
			yv, found := y.Get(k)
			if !found || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}
