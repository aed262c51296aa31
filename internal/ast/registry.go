package ast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kolkov/uexpr/internal/token"
)

// DecodeFunc rebuilds a node from its JSON form. Children are decoded
// through d.
type DecodeFunc func(d *Decoder, data []byte) (Node, error)

var registry = map[string]DecodeFunc{}

// Register associates a tag with its decoder. Registering a tag twice
// panics.
func Register(tag string, fn DecodeFunc) {
	if _, dup := registry[tag]; dup {
		panic("ast: duplicate node tag " + tag)
	}
	registry[tag] = fn
}

// Registered reports whether tag has a decoder.
func Registered(tag string) bool {
	_, ok := registry[tag]
	return ok
}

// DecodeError reports a tree that cannot be rebuilt.
type DecodeError struct {
	Tag     string
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// maxDecodeDepth bounds the nesting of serialized trees.
const maxDecodeDepth = 10000

// Decoder rebuilds trees recursively.
type Decoder struct {
	depth int
}

// Deserialize rebuilds a tree from the output of json.Marshal.
func Deserialize(data []byte) (Node, error) {
	var d Decoder
	n, err := d.Node(data)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &DecodeError{Message: "empty tree"}
	}
	return n, nil
}

// Node decodes one node. JSON null decodes to a nil node.
func (d *Decoder) Node(data []byte) (Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var head struct {
		Tag string `json:"tag"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &DecodeError{Message: "invalid node: " + err.Error()}
	}
	fn, ok := registry[head.Tag]
	if !ok {
		return nil, &DecodeError{Tag: head.Tag, Message: fmt.Sprintf("unknown node type %q", head.Tag)}
	}
	if d.depth >= maxDecodeDepth {
		return nil, &DecodeError{Tag: head.Tag, Message: "tree nested too deeply"}
	}
	d.depth++
	defer func() { d.depth-- }()
	return fn(d, data)
}

// Nodes decodes a list of nodes.
func (d *Decoder) Nodes(raws []json.RawMessage) ([]Node, error) {
	out := make([]Node, 0, len(raws))
	for _, raw := range raws {
		n, err := d.Node(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Required decodes a child that must be present.
func (d *Decoder) Required(tag, field string, raw json.RawMessage) (Node, error) {
	n, err := d.Node(raw)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &DecodeError{Tag: tag, Message: fmt.Sprintf("%s: missing %s", tag, field)}
	}
	return n, nil
}

// Op decodes an operator or keyword spelling.
func (d *Decoder) Op(tag, op string) (token.Token, error) {
	tok := token.Lookup(op)
	if tok == token.ILLEGAL {
		return tok, &DecodeError{Tag: tag, Message: fmt.Sprintf("%s: unknown operator %q", tag, op)}
	}
	return tok, nil
}

// unmarshal decodes the fields of a node, wrapping failures.
func unmarshal(tag string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Tag: tag, Message: tag + ": " + err.Error()}
	}
	return nil
}

func decodeAs[T Node](d *Decoder, tag, field string, raw json.RawMessage) (T, error) {
	var zero T
	n, err := d.Node(raw)
	if err != nil || n == nil {
		return zero, err
	}
	t, ok := n.(T)
	if !ok {
		return zero, &DecodeError{Tag: tag, Message: fmt.Sprintf("%s: unexpected %s node in %s", tag, n.Tag(), field)}
	}
	return t, nil
}
