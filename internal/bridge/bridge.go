// Package bridge renders KV3 trees as JSON and answers gjson path queries
// over that rendering.
package bridge

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/mcncl/kv3typer/internal/errors"
	"github.com/mcncl/kv3typer/kv3"
)

// WriteJSON writes v to w as JSON, indenting nested values by indent spaces
// when indent is positive. Object keys keep document order, hex arrays become
// arrays of byte values and doubles without a JSON spelling (NaN, ±Inf)
// become null.
func WriteJSON(w io.Writer, v kv3.Value, indent int) error {
	cfg := jsoniter.Config{EscapeHTML: false, IndentionStep: max(indent, 0)}.Froze()
	stream := jsoniter.NewStream(cfg, w, 4096)
	writeValue(stream, v)
	if stream.Error != nil {
		return stream.Error
	}
	return stream.Flush()
}

// JSON returns the compact JSON rendering of v.
func JSON(v kv3.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(stream *jsoniter.Stream, v kv3.Value) {
	switch v := v.(type) {
	case nil, kv3.Null:
		stream.WriteNil()
	case kv3.Bool:
		stream.WriteBool(bool(v))
	case kv3.Int:
		stream.WriteInt64(int64(v))
	case kv3.Double:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			stream.WriteNil()
			return
		}
		stream.WriteFloat64(f)
	case kv3.String:
		stream.WriteString(string(v))
	case kv3.HexArray:
		if len(v) == 0 {
			stream.WriteEmptyArray()
			return
		}
		stream.WriteArrayStart()
		for i, b := range v {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteUint8(b)
		}
		stream.WriteArrayEnd()
	case kv3.Array:
		if len(v) == 0 {
			stream.WriteEmptyArray()
			return
		}
		stream.WriteArrayStart()
		for i, elem := range v {
			if i > 0 {
				stream.WriteMore()
			}
			writeValue(stream, elem)
		}
		stream.WriteArrayEnd()
	case *kv3.Object:
		if v.Len() == 0 {
			stream.WriteEmptyObject()
			return
		}
		stream.WriteObjectStart()
		first := true
		for key, val := range v.All() {
			if !first {
				stream.WriteMore()
			}
			first = false
			stream.WriteObjectField(key)
			writeValue(stream, val)
		}
		stream.WriteObjectEnd()
	}
}

// Query evaluates a gjson path against the JSON rendering of root.
func Query(root *kv3.Object, path string) (gjson.Result, error) {
	data, err := JSON(root)
	if err != nil {
		return gjson.Result{}, errors.NewQueryError("failed to render document as JSON", err)
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return gjson.Result{}, errors.NewQueryError(fmt.Sprintf("path '%s' matched nothing", path), errors.ErrQueryNoMatch)
	}
	return result, nil
}

// FormatResult renders a query result for display: strings unquoted,
// objects and arrays pretty printed, other values as raw JSON.
func FormatResult(result gjson.Result) string {
	switch {
	case result.Type == gjson.String:
		return result.Str
	case result.IsObject() || result.IsArray():
		return strings.TrimRight(string(pretty.Pretty([]byte(result.Raw))), "\n")
	default:
		return result.Raw
	}
}
