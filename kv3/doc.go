// Package kv3 parses Valve's KeyValues3 text format and maps the parsed tree
// onto Go types without reflection.
//
// Parsing produces a tree of Value nodes rooted at an *Object:
//
//	rest, root, err := kv3.Parse(text)
//
// The tree is a closed set of node types (Bool, Int, Double, String, Array,
// HexArray, *Object and Null). Consumers switch on the concrete type.
//
// Mapping is driven by a Visitor supplied by the caller. The package ships
// visitors for scalars, slices, maps and pointers, and Struct adapts any type
// whose pointer implements ObjectDecoder:
//
//	type Particle struct {
//		Flags  float32
//		Counts []int64
//	}
//
//	func (p *Particle) DecodeKV3(m *kv3.MapAccess) error {
//		return m.Decode(
//			kv3.Field("m_nFlags", kv3.Float[float32](), &p.Flags),
//			kv3.OptionalField("counts", kv3.Slice(kv3.Integer[int64]()), &p.Counts),
//		)
//	}
//
//	var p Particle
//	err := kv3.Unmarshal(text, &p)
//
// The kv3typer command generates such DecodeKV3 methods from a sample file.
package kv3
