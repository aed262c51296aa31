package ast

import (
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/types"
)

// Property is an identifier reference. The shared This node reads the
// receiver bound by the enclosing function call.
type Property struct {
	Base
	Name string
}

// This is the `this` keyword.
var This = &Property{Name: "this"}

func (p *Property) Get(s *scope.Stack) (types.Value, error) {
	v, _ := s.Get(p.Name)
	return v, nil
}

func (p *Property) Set(s *scope.Stack, v types.Value) (types.Value, error) {
	if p.Name == "this" {
		return nil, unsupported(p, "set")
	}
	if err := s.Set(p.Name, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (p *Property) Entry() []string { return []string{p.Name} }

func (p *Property) Event(parent string) []string {
	if parent != "" {
		return []string{parent + "." + p.Name}
	}
	return []string{p.Name}
}

func (p *Property) String() string { return p.Name }
func (p *Property) Tag() string    { return "property" }

func (p *Property) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Name string `json:"name"`
	}{p.Tag(), p.Name})
}

func decodeProperty(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Name string `json:"name"`
	}
	if err := unmarshal("property", data, &v); err != nil {
		return nil, err
	}
	if v.Name == "this" {
		return This, nil
	}
	if v.Name == "" {
		return nil, &DecodeError{Tag: "property", Message: "property: missing name"}
	}
	return &Property{Name: v.Name}, nil
}

// Literal is one of the keyword constants.
type Literal struct {
	Base
	Name  string
	Value types.Value
}

var (
	True      = &Literal{Name: "true", Value: true}
	False     = &Literal{Name: "false", Value: false}
	Null      = &Literal{Name: "null", Value: nil}
	Undefined = &Literal{Name: "undefined", Value: types.Undefined}
)

func (l *Literal) Get(*scope.Stack) (types.Value, error) { return l.Value, nil }

func (l *Literal) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(l, "set")
}

func (l *Literal) Entry() []string      { return nil }
func (l *Literal) Event(string) []string { return nil }
func (l *Literal) String() string        { return l.Name }
func (l *Literal) Tag() string           { return "literal" }

func (l *Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag   string `json:"tag"`
		Value string `json:"value"`
	}{l.Tag(), l.Name})
}

func decodeLiteral(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Value string `json:"value"`
	}
	if err := unmarshal("literal", data, &v); err != nil {
		return nil, err
	}
	switch v.Value {
	case "true":
		return True, nil
	case "false":
		return False, nil
	case "null":
		return Null, nil
	case "undefined":
		return Undefined, nil
	}
	return nil, &DecodeError{Tag: "literal", Message: "literal: unknown value " + strconv.Quote(v.Value)}
}

// Number is a numeric literal. Raw keeps the source spelling.
type Number struct {
	Base
	Value float64
	Raw   string
}

func (n *Number) Get(*scope.Stack) (types.Value, error) { return n.Value, nil }

func (n *Number) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Number) Entry() []string      { return nil }
func (n *Number) Event(string) []string { return nil }
func (n *Number) Tag() string           { return "number" }

func (n *Number) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return types.FormatNumber(n.Value)
}

func (n *Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag string `json:"tag"`
		Raw string `json:"raw"`
	}{n.Tag(), n.String()})
}

func decodeNumber(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Raw string `json:"raw"`
	}
	if err := unmarshal("number", data, &v); err != nil {
		return nil, err
	}
	return &Number{Value: types.ParseNumber(strings.ReplaceAll(v.Raw, "_", "")), Raw: v.Raw}, nil
}

// Str is a string literal. Raw keeps the quoted source spelling.
type Str struct {
	Base
	Value string
	Raw   string
}

func (n *Str) Get(*scope.Stack) (types.Value, error) { return n.Value, nil }

func (n *Str) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Str) Entry() []string      { return nil }
func (n *Str) Event(string) []string { return nil }
func (n *Str) Tag() string           { return "string" }

func (n *Str) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return Quote(n.Value)
}

func (n *Str) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag   string `json:"tag"`
		Value string `json:"value"`
		Raw   string `json:"raw,omitempty"`
	}{n.Tag(), n.Value, n.Raw})
}

func decodeStr(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Value string `json:"value"`
		Raw   string `json:"raw"`
	}
	if err := unmarshal("string", data, &v); err != nil {
		return nil, err
	}
	return &Str{Value: v.Value, Raw: v.Raw}, nil
}

// Quote renders s as a single-quoted string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x2028 || r == 0x2029 {
				b.WriteString(`\u`)
				hex := strconv.FormatInt(int64(r), 16)
				b.WriteString(strings.Repeat("0", 4-len(hex)) + hex)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// BigInt is a bigint literal.
type BigInt struct {
	Base
	Value *big.Int
	Raw   string
}

func (n *BigInt) Get(*scope.Stack) (types.Value, error) {
	return new(big.Int).Set(n.Value), nil
}

func (n *BigInt) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *BigInt) Entry() []string      { return nil }
func (n *BigInt) Event(string) []string { return nil }
func (n *BigInt) Tag() string           { return "bigint" }

func (n *BigInt) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return n.Value.String() + "n"
}

func (n *BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag   string `json:"tag"`
		Value string `json:"value"`
		Raw   string `json:"raw,omitempty"`
	}{n.Tag(), n.Value.String(), n.Raw})
}

func decodeBigInt(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Value string `json:"value"`
		Raw   string `json:"raw"`
	}
	if err := unmarshal("bigint", data, &v); err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(v.Value, 10)
	if !ok {
		return nil, &DecodeError{Tag: "bigint", Message: "bigint: invalid value " + strconv.Quote(v.Value)}
	}
	return &BigInt{Value: n, Raw: v.Raw}, nil
}

// RegExp is a regular expression literal. Each evaluation yields a new
// RegExp object sharing the compiled engine.
type RegExp struct {
	Base
	Source string
	Flags  string
}

func (n *RegExp) Get(*scope.Stack) (types.Value, error) {
	return runtime.DefaultRegexCache.Compile(n.Source, n.Flags)
}

func (n *RegExp) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *RegExp) Entry() []string      { return nil }
func (n *RegExp) Event(string) []string { return nil }
func (n *RegExp) String() string        { return "/" + n.Source + "/" + n.Flags }
func (n *RegExp) Tag() string           { return "regexp" }

func (n *RegExp) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string `json:"tag"`
		Source string `json:"source"`
		Flags  string `json:"flags"`
	}{n.Tag(), n.Source, n.Flags})
}

func decodeRegExp(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Source string `json:"source"`
		Flags  string `json:"flags"`
	}
	if err := unmarshal("regexp", data, &v); err != nil {
		return nil, err
	}
	return &RegExp{Source: v.Source, Flags: v.Flags}, nil
}

// Template is a template literal. A non-nil Callee makes it a tagged
// template. Cooked and Raw hold one more element than Exprs.
type Template struct {
	Base
	Callee Node
	Cooked []string
	Raw    []string
	Exprs  []Node
}

func (n *Template) Get(s *scope.Stack) (types.Value, error) {
	values, err := evalAll(s, n.Exprs)
	if err != nil {
		return nil, err
	}
	if n.Callee == nil {
		var b strings.Builder
		for i, part := range n.Cooked {
			b.WriteString(part)
			if i < len(values) {
				p, err := types.ToPrimitive(values[i], "string")
				if err != nil {
					return nil, err
				}
				b.WriteString(types.ToString(p))
			}
		}
		return b.String(), nil
	}

	fn, this, err := callee(s, n.Callee)
	if err != nil {
		return nil, err
	}
	strs := make([]types.Value, len(n.Cooked))
	for i, c := range n.Cooked {
		strs[i] = c
	}
	raws := make([]types.Value, len(n.Raw))
	for i, r := range n.Raw {
		raws[i] = r
	}
	arg := types.NewArray(strs...)
	arg.Props = types.ObjectOf("raw", types.NewArray(raws...))
	return runtime.Call(fn, this, append([]types.Value{arg}, values...))
}

func (n *Template) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Template) Entry() []string {
	return entries(append([]Node{n.Callee}, n.Exprs...)...)
}

func (n *Template) Event(parent string) []string {
	return events(parent, append([]Node{n.Callee}, n.Exprs...)...)
}

func (n *Template) Tag() string { return "template" }

func (n *Template) String() string {
	var b strings.Builder
	b.WriteString(str(n.Callee))
	b.WriteByte('`')
	for i, part := range n.Raw {
		b.WriteString(part)
		if i < len(n.Exprs) {
			b.WriteString("${")
			b.WriteString(n.Exprs[i].String())
			b.WriteString("}")
		}
	}
	b.WriteByte('`')
	return b.String()
}

func (n *Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string   `json:"tag"`
		Callee Node     `json:"callee,omitempty"`
		Cooked []string `json:"cooked"`
		Raw    []string `json:"raw"`
		Exprs  []Node   `json:"exprs"`
	}{n.Tag(), n.Callee, n.Cooked, n.Raw, nonNil(n.Exprs)})
}

func decodeTemplate(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Callee json.RawMessage   `json:"callee"`
		Cooked []string          `json:"cooked"`
		Raw    []string          `json:"raw"`
		Exprs  []json.RawMessage `json:"exprs"`
	}
	if err := unmarshal("template", data, &v); err != nil {
		return nil, err
	}
	if len(v.Raw) != len(v.Exprs)+1 || len(v.Cooked) != len(v.Raw) {
		return nil, &DecodeError{Tag: "template", Message: "template: mismatched parts"}
	}
	fn, err := d.Node(v.Callee)
	if err != nil {
		return nil, err
	}
	exprs, err := d.Nodes(v.Exprs)
	if err != nil {
		return nil, err
	}
	return &Template{Callee: fn, Cooked: v.Cooked, Raw: v.Raw, Exprs: exprs}, nil
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func init() {
	Register("property", decodeProperty)
	Register("literal", decodeLiteral)
	Register("number", decodeNumber)
	Register("string", decodeStr)
	Register("bigint", decodeBigInt)
	Register("regexp", decodeRegExp)
	Register("template", decodeTemplate)
}
