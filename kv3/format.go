package kv3

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders v as KV3 text that parses back to an equal tree. It is a
// debugging aid, not an encoder. Some trees have no textual form and are
// rendered as-is: strings that contain `"""` or end with a quote inside a
// multi-line literal, keys that are not identifiers, infinite and NaN doubles.
func Format(v Value) string {
	var b strings.Builder
	writeValue(&b, v, 0)
	return b.String()
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteByte('\t')
	}
}

func writeValue(b *strings.Builder, v Value, depth int) {
	switch x := v.(type) {
	case Bool:
		b.WriteString(strconv.FormatBool(bool(x)))
	case Int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case Double:
		b.WriteString(formatDouble(float64(x)))
	case String:
		writeString(b, string(x))
	case Null:
		b.WriteString("null")
	case HexArray:
		b.WriteString("#[")
		for i, c := range x {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(b, "%02X", c)
		}
		b.WriteByte(']')
	case Array:
		if len(x) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for _, item := range x {
			writeIndent(b, depth+1)
			writeValue(b, item, depth+1)
			b.WriteString(",\n")
		}
		writeIndent(b, depth)
		b.WriteByte(']')
	case *Object:
		if x.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for k, item := range x.All() {
			writeIndent(b, depth+1)
			b.WriteString(k)
			b.WriteString(" = ")
			writeValue(b, item, depth+1)
			b.WriteByte('\n')
		}
		writeIndent(b, depth)
		b.WriteByte('}')
	default:
		b.WriteString("null")
	}
}

// formatDouble keeps a '.' or exponent in the output so the literal reads
// back as a Double.
func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

func writeString(b *strings.Builder, s string) {
	if strings.ContainsAny(s, "\"\n") {
		b.WriteString(`"""`)
		b.WriteString(s)
		b.WriteString(`"""`)
		return
	}
	b.WriteByte('"')
	b.WriteString(s)
	b.WriteByte('"')
}
