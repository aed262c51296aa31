package ast

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/types"
)

// Elision is a hole in an array literal or array pattern.
type Elision struct {
	Base
}

// Hole is the shared elision node.
var Hole = &Elision{}

func (n *Elision) Get(*scope.Stack) (types.Value, error)               { return types.Undefined, nil }
func (n *Elision) Set(_ *scope.Stack, v types.Value) (types.Value, error) { return v, nil }
func (n *Elision) Entry() []string                                     { return nil }
func (n *Elision) Event(string) []string                               { return nil }
func (n *Elision) String() string                                      { return "" }
func (n *Elision) Tag() string                                         { return "elision" }

func (n *Elision) MarshalJSON() ([]byte, error) {
	return []byte(`{"tag":"elision"}`), nil
}

// listString renders array elements, keeping a trailing hole visible.
func listString(elems []Node) string {
	out := join(elems, ", ")
	if len(elems) > 0 {
		if _, ok := elems[len(elems)-1].(*Elision); ok {
			out += ","
		}
	}
	return out
}

// Array is an array literal.
type Array struct {
	Base
	Elems []Node
}

func (n *Array) Get(s *scope.Stack) (types.Value, error) {
	elems, err := evalAll(s, n.Elems)
	if err != nil {
		return nil, err
	}
	return types.NewArray(elems...), nil
}

func (n *Array) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Array) Entry() []string              { return entries(n.Elems...) }
func (n *Array) Event(parent string) []string { return events(parent, n.Elems...) }
func (n *Array) String() string               { return "[" + listString(n.Elems) + "]" }
func (n *Array) Tag() string                  { return "array" }

func (n *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag   string `json:"tag"`
		Elems []Node `json:"elems"`
	}{n.Tag(), nonNil(n.Elems)})
}

func decodeArray(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Elems []json.RawMessage `json:"elems"`
	}
	if err := unmarshal("array", data, &v); err != nil {
		return nil, err
	}
	elems, err := d.Nodes(v.Elems)
	if err != nil {
		return nil, err
	}
	return &Array{Elems: elems}, nil
}

// PropertyKind distinguishes the members of an object literal.
type PropertyKind string

const (
	PropInit      PropertyKind = "init"      // key: value
	PropShorthand PropertyKind = "shorthand" // key
	PropMethod    PropertyKind = "method"    // key() {}
	PropGet       PropertyKind = "get"       // get key() {}
	PropSet       PropertyKind = "set"       // set key(v) {}
	PropSpread    PropertyKind = "spread"    // ...value
)

// ObjectProperty is one member of an object literal. Key is nil for
// spread members.
type ObjectProperty struct {
	Kind     PropertyKind
	Key      Node
	Computed bool
	Value    Node
}

func (p *ObjectProperty) String() string {
	switch p.Kind {
	case PropSpread:
		return "..." + p.Value.String()
	case PropShorthand:
		return p.Value.String()
	case PropMethod, PropGet, PropSet:
		fn, _ := p.Value.(*Function)
		prefix := ""
		if p.Kind != PropMethod {
			prefix = string(p.Kind) + " "
		} else if fn != nil && fn.Async {
			prefix = "async "
		}
		if fn == nil {
			return prefix + keyString(p.Key, p.Computed) + "() {}"
		}
		return prefix + keyString(p.Key, p.Computed) + fn.signature()
	}
	return keyString(p.Key, p.Computed) + ": " + p.Value.String()
}

func keyString(key Node, computed bool) string {
	if computed {
		return "[" + key.String() + "]"
	}
	return key.String()
}

// propertyKey evaluates a property name. A non-computed identifier key is
// its name.
func propertyKey(s *scope.Stack, key Node, computed bool) (string, error) {
	if !computed {
		switch k := key.(type) {
		case *Property:
			return k.Name, nil
		case *Str:
			return k.Value, nil
		case *Number:
			return types.FormatNumber(k.Value), nil
		case *BigInt:
			return k.Value.String(), nil
		}
	}
	v, err := key.Get(s)
	if err != nil {
		return "", err
	}
	p, err := types.ToPrimitive(v, "string")
	if err != nil {
		return "", err
	}
	return types.ToPropertyKey(p), nil
}

// Object is an object literal.
type Object struct {
	Base
	Props []*ObjectProperty
}

func (n *Object) Get(s *scope.Stack) (types.Value, error) {
	o := types.NewObject()
	for _, p := range n.Props {
		if p.Kind == PropSpread {
			src, err := p.Value.Get(s)
			if err != nil {
				return nil, err
			}
			if err := copyProperties(o, src, nil); err != nil {
				return nil, err
			}
			continue
		}
		key, err := propertyKey(s, p.Key, p.Computed)
		if err != nil {
			return nil, err
		}
		v, err := p.Value.Get(s)
		if err != nil {
			return nil, err
		}
		switch p.Kind {
		case PropGet, PropSet:
			fn, ok := v.(types.Function)
			if !ok {
				return nil, errorf(n, "accessor %s is not a function", key)
			}
			if p.Kind == PropGet {
				o.DefineAccessor(key, fn, nil)
			} else {
				o.DefineAccessor(key, nil, fn)
			}
		default:
			o.SetOwn(key, v)
		}
	}
	return o, nil
}

// copyProperties copies the enumerable keys of src into dst, skipping the
// keys in skip. Nullish sources copy nothing.
func copyProperties(dst *types.Object, src types.Value, skip *names) error {
	if types.IsNullish(src) {
		return nil
	}
	for _, k := range runtime.Keys(src) {
		if skip != nil && skip.has(k) {
			continue
		}
		v, err := runtime.GetProperty(src, k)
		if err != nil {
			return err
		}
		dst.SetOwn(k, v)
	}
	return nil
}

func (n *Object) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Object) parts() []Node {
	var out []Node
	for _, p := range n.Props {
		if p.Computed {
			out = append(out, p.Key)
		}
		out = append(out, p.Value)
	}
	return out
}

func (n *Object) Entry() []string              { return entries(n.parts()...) }
func (n *Object) Event(parent string) []string { return events(parent, n.parts()...) }
func (n *Object) Tag() string                  { return "object" }

func (n *Object) String() string {
	if len(n.Props) == 0 {
		return "{}"
	}
	parts := make([]string, len(n.Props))
	for i, p := range n.Props {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

type objectPropertyJSON struct {
	Kind     PropertyKind    `json:"kind"`
	Key      json.RawMessage `json:"key,omitempty"`
	Computed bool            `json:"computed,omitempty"`
	Value    json.RawMessage `json:"value"`
}

func (n *Object) MarshalJSON() ([]byte, error) {
	props := make([]objectPropertyJSON, len(n.Props))
	for i, p := range n.Props {
		props[i] = objectPropertyJSON{Kind: p.Kind, Computed: p.Computed}
		var err error
		if p.Key != nil {
			if props[i].Key, err = json.Marshal(p.Key); err != nil {
				return nil, err
			}
		}
		if props[i].Value, err = json.Marshal(p.Value); err != nil {
			return nil, err
		}
	}
	return json.Marshal(struct {
		Tag   string               `json:"tag"`
		Props []objectPropertyJSON `json:"props"`
	}{n.Tag(), props})
}

func decodeObject(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Props []objectPropertyJSON `json:"props"`
	}
	if err := unmarshal("object", data, &v); err != nil {
		return nil, err
	}
	n := &Object{}
	for _, p := range v.Props {
		switch p.Kind {
		case PropInit, PropShorthand, PropMethod, PropGet, PropSet, PropSpread:
		default:
			return nil, &DecodeError{Tag: "object", Message: "object: unknown property kind " + strconv.Quote(string(p.Kind))}
		}
		prop := &ObjectProperty{Kind: p.Kind, Computed: p.Computed}
		var err error
		if p.Kind != PropSpread {
			if prop.Key, err = d.Required("object", "key", p.Key); err != nil {
				return nil, err
			}
		}
		if prop.Value, err = d.Required("object", "value", p.Value); err != nil {
			return nil, err
		}
		n.Props = append(n.Props, prop)
	}
	return n, nil
}

// PatternProperty is one element of a destructuring pattern. Key is nil in
// array patterns.
type PatternProperty struct {
	Base
	Key      Node
	Computed bool
	Target   Node
	Default  Node
}

// withDefault replaces an undefined value by the default.
func (p *PatternProperty) withDefault(s *scope.Stack, v types.Value) (types.Value, error) {
	if p.Default != nil && types.IsUndefined(v) {
		return p.Default.Get(s)
	}
	return v, nil
}

func (p *PatternProperty) Get(*scope.Stack) (types.Value, error) {
	return nil, unsupported(p, "get")
}

func (p *PatternProperty) Set(s *scope.Stack, v types.Value) (types.Value, error) {
	v, err := p.withDefault(s, v)
	if err != nil {
		return nil, err
	}
	if err := assignTo(s)(p.Target, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (p *PatternProperty) Entry() []string {
	var key Node
	if p.Computed {
		key = p.Key
	}
	return entries(key, targetReads(p.Target), p.Default)
}

func (p *PatternProperty) Event(parent string) []string { return p.Target.Event(parent) }
func (p *PatternProperty) Tag() string                  { return "pattern-property" }

// shorthand reports whether the property prints as `name` or `name = x`.
func (p *PatternProperty) shorthand() bool {
	key, ok := p.Key.(*Property)
	if !ok || p.Computed {
		return false
	}
	target, ok := p.Target.(*Property)
	return ok && target.Name == key.Name
}

func (p *PatternProperty) String() string {
	out := p.Target.String()
	if p.Key != nil && !p.shorthand() {
		out = keyString(p.Key, p.Computed) + ": " + out
	}
	if p.Default != nil {
		out += " = " + p.Default.String()
	}
	return out
}

func (p *PatternProperty) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag      string `json:"tag"`
		Key      Node   `json:"key,omitempty"`
		Computed bool   `json:"computed,omitempty"`
		Target   Node   `json:"target"`
		Default  Node   `json:"default,omitempty"`
	}{p.Tag(), p.Key, p.Computed, p.Target, p.Default})
}

func decodePatternProperty(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Key      json.RawMessage `json:"key"`
		Computed bool            `json:"computed"`
		Target   json.RawMessage `json:"target"`
		Default  json.RawMessage `json:"default"`
	}
	if err := unmarshal("pattern-property", data, &v); err != nil {
		return nil, err
	}
	p := &PatternProperty{Computed: v.Computed}
	var err error
	if p.Key, err = d.Node(v.Key); err != nil {
		return nil, err
	}
	if p.Target, err = d.Required("pattern-property", "target", v.Target); err != nil {
		return nil, err
	}
	if p.Default, err = d.Node(v.Default); err != nil {
		return nil, err
	}
	return p, nil
}

// binder stores one bound value into a pattern target.
type binder func(target Node, v types.Value) error

// assignTo binds by assignment, as in `[a, b] = pair`.
func assignTo(s *scope.Stack) binder {
	var b binder
	b = func(target Node, v types.Value) error {
		switch t := target.(type) {
		case *Destructuring:
			return t.bind(s, v, b)
		case *Elision:
			return nil
		}
		_, err := target.Set(s, v)
		return err
	}
	return b
}

// declareIn binds by declaration in frame.
func declareIn(frame *scope.Stack, kind scope.Kind) binder {
	var b binder
	b = func(target Node, v types.Value) error {
		switch t := target.(type) {
		case *Property:
			return frame.Declare(t.Name, v, kind)
		case *Destructuring:
			return t.bind(frame, v, b)
		case *Elision:
			return nil
		}
		return errorf(target, "invalid binding target")
	}
	return b
}

// Destructuring is an array or object pattern used as an assignment or
// binding target.
type Destructuring struct {
	Base
	Object bool
	Elems  []*PatternProperty
	Rest   Node
}

func (n *Destructuring) Get(*scope.Stack) (types.Value, error) {
	return nil, unsupported(n, "get")
}

func (n *Destructuring) Set(s *scope.Stack, v types.Value) (types.Value, error) {
	if err := n.bind(s, v, assignTo(s)); err != nil {
		return nil, err
	}
	return v, nil
}

// bind dispatches on the shape of v, whatever the pattern looks like:
// arrays bind by index, other iterables by pulling from an iterator,
// everything else by property name. An object pattern over an array
// binds its elements in order.
func (n *Destructuring) bind(s *scope.Stack, v types.Value, b binder) error {
	if types.IsNullish(v) {
		return types.TypeErrorf("Cannot destructure '%s' as it is %s.", n.String(), types.ToString(v))
	}
	switch src := v.(type) {
	case *types.Array:
		return n.bindIndexed(s, src, b)
	}
	if types.IsIterable(v) {
		return n.bindIterator(s, v, b)
	}
	return n.bindKeyed(s, v, b)
}

func (n *Destructuring) bindIndexed(s *scope.Stack, arr *types.Array, b binder) error {
	for i, e := range n.Elems {
		v, err := e.withDefault(s, arr.At(i))
		if err != nil {
			return err
		}
		if err := b(e.Target, v); err != nil {
			return err
		}
	}
	if n.Rest == nil {
		return nil
	}
	var rest []types.Value
	if len(n.Elems) < arr.Len() {
		rest = append(rest, arr.Elems[len(n.Elems):]...)
	}
	return b(n.Rest, types.NewArray(rest...))
}

func (n *Destructuring) bindIterator(s *scope.Stack, v types.Value, b binder) error {
	it, err := types.Iterate(v)
	if err != nil {
		return err
	}
	done := false
	for _, e := range n.Elems {
		var next types.Value = types.Undefined
		if !done {
			val, ok, err := it.Next()
			if err != nil {
				return err
			}
			if ok {
				next = val
			} else {
				done = true
			}
		}
		if next, err = e.withDefault(s, next); err != nil {
			return err
		}
		if err := b(e.Target, next); err != nil {
			return err
		}
	}
	if n.Rest == nil {
		return nil
	}
	var rest []types.Value
	if !done {
		if rest, err = types.Collect(it); err != nil {
			return err
		}
	}
	return b(n.Rest, types.NewArray(rest...))
}

func (n *Destructuring) bindKeyed(s *scope.Stack, v types.Value, b binder) error {
	var bound names
	for i, e := range n.Elems {
		key := strconv.Itoa(i)
		if e.Key != nil {
			var err error
			if key, err = propertyKey(s, e.Key, e.Computed); err != nil {
				return err
			}
		}
		bound.add(key)
		val, err := runtime.GetProperty(v, key)
		if err != nil {
			return err
		}
		if val, err = e.withDefault(s, val); err != nil {
			return err
		}
		if err := b(e.Target, val); err != nil {
			return err
		}
	}
	if n.Rest == nil {
		return nil
	}
	rest := types.NewObject()
	if err := copyProperties(rest, v, &bound); err != nil {
		return err
	}
	return b(n.Rest, rest)
}

func (n *Destructuring) Entry() []string {
	list := nodeList(n.Elems)
	if n.Rest != nil {
		list = append(list, targetReads(n.Rest))
	}
	return entries(list...)
}

func (n *Destructuring) Event(parent string) []string {
	return events(parent, append(nodeList(n.Elems), n.Rest)...)
}

func (n *Destructuring) Tag() string { return "destructuring" }

func (n *Destructuring) String() string {
	elems := nodeList(n.Elems)
	if n.Rest != nil {
		elems = append(elems, &Spread{Arg: n.Rest})
	}
	if n.Object {
		if len(elems) == 0 {
			return "{}"
		}
		return "{" + join(elems, ", ") + "}"
	}
	out := join(elems, ", ")
	if n.Rest == nil && len(n.Elems) > 0 {
		if _, ok := n.Elems[len(n.Elems)-1].Target.(*Elision); ok {
			out += ","
		}
	}
	return "[" + out + "]"
}

func (n *Destructuring) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string             `json:"tag"`
		Object bool               `json:"object"`
		Elems  []*PatternProperty `json:"elems"`
		Rest   Node               `json:"rest,omitempty"`
	}{n.Tag(), n.Object, nonNil(n.Elems), n.Rest})
}

func decodeDestructuring(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Object bool              `json:"object"`
		Elems  []json.RawMessage `json:"elems"`
		Rest   json.RawMessage   `json:"rest"`
	}
	if err := unmarshal("destructuring", data, &v); err != nil {
		return nil, err
	}
	n := &Destructuring{Object: v.Object}
	for _, raw := range v.Elems {
		p, err := decodeAs[*PatternProperty](d, "destructuring", "elems", raw)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &DecodeError{Tag: "destructuring", Message: "destructuring: missing element"}
		}
		n.Elems = append(n.Elems, p)
	}
	var err error
	if n.Rest, err = d.Node(v.Rest); err != nil {
		return nil, err
	}
	return n, nil
}

// boundNames returns the identifiers a binding target declares.
func boundNames(target Node) []string {
	switch t := target.(type) {
	case *Property:
		return []string{t.Name}
	case *Destructuring:
		var out names
		for _, e := range t.Elems {
			out.add(boundNames(e.Target)...)
		}
		if t.Rest != nil {
			out.add(boundNames(t.Rest)...)
		}
		return out.list
	case *PatternProperty:
		return boundNames(t.Target)
	case *Param:
		return boundNames(t.Target)
	}
	return nil
}

func init() {
	Register("elision", func(*Decoder, []byte) (Node, error) { return Hole, nil })
	Register("array", decodeArray)
	Register("object", decodeObject)
	Register("pattern-property", decodePatternProperty)
	Register("destructuring", decodeDestructuring)
}
