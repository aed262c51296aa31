package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"math/big"
	"strings"
)

// Stringify renders v as JSON text the way JSON.stringify does. Undefined,
// functions and awaitables are skipped inside objects, become null inside
// arrays, and make ok false at the top level.
func Stringify(v Value, indent string) (s string, ok bool, err error) {
	var buf bytes.Buffer
	ok, err = writeJSON(&buf, v, indent, "", nil)
	if err != nil || !ok {
		return "", false, err
	}
	return buf.String(), true, nil
}

func writeJSON(buf *bytes.Buffer, v Value, indent, prefix string, seen []any) (bool, error) {
	v = normalizeNumber(v)
	switch x := v.(type) {
	case UndefinedType, Function, *Awaitable:
		return false, nil
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(FormatNumber(x))
		}
	case *big.Int:
		return false, TypeErrorf("Do not know how to serialize a BigInt")
	case string:
		writeJSONString(buf, x)
	case *Array:
		for _, s := range seen {
			if s == any(x) {
				return false, TypeErrorf("Converting circular structure to JSON")
			}
		}
		seen = append(seen, x)
		if len(x.Elems) == 0 {
			buf.WriteString("[]")
			return true, nil
		}
		buf.WriteByte('[')
		inner := prefix + indent
		for i, e := range x.Elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, inner)
			ok, err := writeJSON(buf, e, indent, inner, seen)
			if err != nil {
				return false, err
			}
			if !ok {
				buf.WriteString("null")
			}
		}
		newline(buf, indent, prefix)
		buf.WriteByte(']')
	case *Object:
		for _, s := range seen {
			if s == any(x) {
				return false, TypeErrorf("Converting circular structure to JSON")
			}
		}
		seen = append(seen, x)
		if fn, ok := x.Lookup("toJSON"); ok {
			if f, ok := fn.(Function); ok {
				r, err := f.Call(x, nil)
				if err != nil {
					return false, err
				}
				return writeJSON(buf, r, indent, prefix, seen)
			}
		}
		buf.WriteByte('{')
		inner := prefix + indent
		n := 0
		for _, k := range x.keys {
			val, err := x.Get(k)
			if err != nil {
				return false, err
			}
			switch val.(type) {
			case UndefinedType, Function, *Awaitable:
				continue
			}
			if n > 0 {
				buf.WriteByte(',')
			}
			n++
			newline(buf, indent, inner)
			writeJSONString(buf, k)
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if _, err := writeJSON(buf, val, indent, inner, seen); err != nil {
				return false, err
			}
		}
		if n > 0 {
			newline(buf, indent, prefix)
		}
		buf.WriteByte('}')
	default:
		data, err := json.Marshal(ToGo(x))
		if err != nil {
			return false, err
		}
		buf.Write(data)
	}
	return true, nil
}

func newline(buf *bytes.Buffer, indent, prefix string) {
	if indent != "" {
		buf.WriteByte('\n')
		buf.WriteString(prefix)
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
}

// ParseJSON decodes JSON text into runtime values, keeping object keys in
// document order.
func ParseJSON(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return nil, &Error{Name: "SyntaxError", Message: "JSON.parse: " + err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &Error{Name: "SyntaxError", Message: "JSON.parse: unexpected data after JSON value"}
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				o.SetOwn(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return o, nil
		case '[':
			arr := NewArray()
			for dec.More() {
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				arr.Push(val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, errors.New("unexpected delimiter")
	case json.Number:
		return ParseNumber(t.String()), nil
	case string, bool:
		return t, nil
	case nil:
		return nil, nil
	}
	return nil, errors.New("unexpected token")
}
