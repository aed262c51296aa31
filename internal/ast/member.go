package ast

import (
	"encoding/json"

	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/types"
)

// Member is a dotted property access. Optional marks a ?. link of an
// optional chain.
type Member struct {
	Base
	Object   Node
	Name     string
	Optional bool
}

func (n *Member) base(s *scope.Stack) (types.Value, error) {
	obj, err := n.Object.Get(s)
	if err != nil {
		return nil, err
	}
	if n.Optional && types.IsNullish(obj) {
		return nil, errShortCircuit
	}
	return obj, nil
}

func (n *Member) Get(s *scope.Stack) (types.Value, error) {
	obj, err := n.base(s)
	if err != nil {
		return nil, err
	}
	return runtime.GetProperty(obj, n.Name)
}

func (n *Member) Set(s *scope.Stack, v types.Value) (types.Value, error) {
	obj, err := n.Object.Get(s)
	if err != nil {
		return nil, err
	}
	if err := runtime.SetProperty(obj, n.Name, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (n *Member) Entry() []string { return n.Object.Entry() }

func (n *Member) Event(parent string) []string {
	var out []string
	for _, e := range n.Object.Event(parent) {
		out = append(out, e+"."+n.Name)
	}
	return out
}

func (n *Member) String() string {
	if n.Optional {
		return n.Object.String() + "?." + n.Name
	}
	return n.Object.String() + "." + n.Name
}

func (n *Member) Tag() string { return "member" }

func (n *Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag      string `json:"tag"`
		Object   Node   `json:"object"`
		Name     string `json:"name"`
		Optional bool   `json:"optional,omitempty"`
	}{n.Tag(), n.Object, n.Name, n.Optional})
}

func decodeMember(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Object   json.RawMessage `json:"object"`
		Name     string          `json:"name"`
		Optional bool            `json:"optional"`
	}
	if err := unmarshal("member", data, &v); err != nil {
		return nil, err
	}
	obj, err := d.Required("member", "object", v.Object)
	if err != nil {
		return nil, err
	}
	return &Member{Object: obj, Name: v.Name, Optional: v.Optional}, nil
}

// ComputedMember is a bracketed property access.
type ComputedMember struct {
	Base
	Object   Node
	Key      Node
	Optional bool
}

func (n *ComputedMember) operands(s *scope.Stack) (obj, key types.Value, err error) {
	obj, err = n.Object.Get(s)
	if err != nil {
		return nil, nil, err
	}
	if n.Optional && types.IsNullish(obj) {
		return nil, nil, errShortCircuit
	}
	key, err = n.Key.Get(s)
	if err != nil {
		return nil, nil, err
	}
	return obj, key, nil
}

func (n *ComputedMember) Get(s *scope.Stack) (types.Value, error) {
	obj, key, err := n.operands(s)
	if err != nil {
		return nil, err
	}
	return runtime.GetMember(obj, key)
}

func (n *ComputedMember) Set(s *scope.Stack, v types.Value) (types.Value, error) {
	obj, key, err := n.operands(s)
	if err != nil {
		return nil, err
	}
	if err := runtime.SetMember(obj, key, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (n *ComputedMember) Entry() []string { return entries(n.Object, n.Key) }

func (n *ComputedMember) Event(parent string) []string {
	var out names
	for _, e := range n.Object.Event(parent) {
		out.add(e + ".*")
	}
	out.add(n.Key.Event(parent)...)
	return out.list
}

func (n *ComputedMember) String() string {
	if n.Optional {
		return n.Object.String() + "?.[" + n.Key.String() + "]"
	}
	return n.Object.String() + "[" + n.Key.String() + "]"
}

func (n *ComputedMember) Tag() string { return "computed-member" }

func (n *ComputedMember) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag      string `json:"tag"`
		Object   Node   `json:"object"`
		Key      Node   `json:"key"`
		Optional bool   `json:"optional,omitempty"`
	}{n.Tag(), n.Object, n.Key, n.Optional})
}

func decodeComputedMember(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Object   json.RawMessage `json:"object"`
		Key      json.RawMessage `json:"key"`
		Optional bool            `json:"optional"`
	}
	if err := unmarshal("computed-member", data, &v); err != nil {
		return nil, err
	}
	obj, err := d.Required("computed-member", "object", v.Object)
	if err != nil {
		return nil, err
	}
	key, err := d.Required("computed-member", "key", v.Key)
	if err != nil {
		return nil, err
	}
	return &ComputedMember{Object: obj, Key: key, Optional: v.Optional}, nil
}

// OptionalChain wraps a member and call chain that contains at least one
// ?. link. A nullish base at any link makes the whole chain undefined.
type OptionalChain struct {
	Base
	Expr Node
}

func (n *OptionalChain) Get(s *scope.Stack) (types.Value, error) {
	v, err := n.Expr.Get(s)
	if err == errShortCircuit {
		return types.Undefined, nil
	}
	return v, err
}

func (n *OptionalChain) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *OptionalChain) Entry() []string              { return n.Expr.Entry() }
func (n *OptionalChain) Event(parent string) []string { return n.Expr.Event(parent) }
func (n *OptionalChain) String() string               { return n.Expr.String() }
func (n *OptionalChain) Tag() string                  { return "optional" }

func (n *OptionalChain) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Expr Node   `json:"expr"`
	}{n.Tag(), n.Expr})
}

func decodeOptionalChain(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Expr json.RawMessage `json:"expr"`
	}
	if err := unmarshal("optional", data, &v); err != nil {
		return nil, err
	}
	expr, err := d.Required("optional", "expr", v.Expr)
	if err != nil {
		return nil, err
	}
	return &OptionalChain{Expr: expr}, nil
}

// Call is a function call. Optional marks f?.() links.
type Call struct {
	Base
	Callee   Node
	Args     []Node
	Optional bool
}

// callee evaluates the function position of a call, returning the member
// base as the receiver.
func callee(s *scope.Stack, n Node) (fn, this types.Value, err error) {
	switch c := n.(type) {
	case *Member:
		obj, err := c.base(s)
		if err != nil {
			return nil, nil, err
		}
		fn, err := runtime.GetProperty(obj, c.Name)
		return fn, obj, err
	case *ComputedMember:
		obj, key, err := c.operands(s)
		if err != nil {
			return nil, nil, err
		}
		fn, err := runtime.GetMember(obj, key)
		return fn, obj, err
	case *Grouping:
		return callee(s, c.Expr)
	}
	fn, err = n.Get(s)
	return fn, types.Undefined, err
}

func (n *Call) Get(s *scope.Stack) (types.Value, error) {
	fn, this, err := callee(s, n.Callee)
	if err != nil {
		return nil, err
	}
	if n.Optional && types.IsNullish(fn) {
		return nil, errShortCircuit
	}
	args, err := evalAll(s, n.Args)
	if err != nil {
		return nil, err
	}
	if _, ok := fn.(types.Function); !ok {
		return nil, types.TypeErrorf("%s is not a function", n.Callee.String())
	}
	return runtime.Call(fn, this, args)
}

func (n *Call) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Call) Entry() []string {
	return entries(append([]Node{n.Callee}, n.Args...)...)
}

func (n *Call) Event(parent string) []string {
	return events(parent, append([]Node{n.Callee}, n.Args...)...)
}

func (n *Call) String() string {
	if n.Optional {
		return n.Callee.String() + "?.(" + join(n.Args, ", ") + ")"
	}
	return n.Callee.String() + "(" + join(n.Args, ", ") + ")"
}

func (n *Call) Tag() string { return "call" }

func (n *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag      string `json:"tag"`
		Callee   Node   `json:"callee"`
		Args     []Node `json:"args"`
		Optional bool   `json:"optional,omitempty"`
	}{n.Tag(), n.Callee, nonNil(n.Args), n.Optional})
}

func decodeCall(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Callee   json.RawMessage   `json:"callee"`
		Args     []json.RawMessage `json:"args"`
		Optional bool              `json:"optional"`
	}
	if err := unmarshal("call", data, &v); err != nil {
		return nil, err
	}
	fn, err := d.Required("call", "callee", v.Callee)
	if err != nil {
		return nil, err
	}
	args, err := d.Nodes(v.Args)
	if err != nil {
		return nil, err
	}
	return &Call{Callee: fn, Args: args, Optional: v.Optional}, nil
}

// New is a constructor call.
type New struct {
	Base
	Callee Node
	Args   []Node
}

func (n *New) Get(s *scope.Stack) (types.Value, error) {
	fn, err := n.Callee.Get(s)
	if err != nil {
		return nil, err
	}
	args, err := evalAll(s, n.Args)
	if err != nil {
		return nil, err
	}
	if _, ok := fn.(types.Constructor); !ok {
		return nil, types.TypeErrorf("%s is not a constructor", n.Callee.String())
	}
	return runtime.Construct(fn, args)
}

func (n *New) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *New) Entry() []string {
	return entries(append([]Node{n.Callee}, n.Args...)...)
}

func (n *New) Event(parent string) []string {
	return events(parent, append([]Node{n.Callee}, n.Args...)...)
}

func (n *New) String() string {
	return "new " + n.Callee.String() + "(" + join(n.Args, ", ") + ")"
}

func (n *New) Tag() string { return "new" }

func (n *New) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string `json:"tag"`
		Callee Node   `json:"callee"`
		Args   []Node `json:"args"`
	}{n.Tag(), n.Callee, nonNil(n.Args)})
}

func decodeNew(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Callee json.RawMessage   `json:"callee"`
		Args   []json.RawMessage `json:"args"`
	}
	if err := unmarshal("new", data, &v); err != nil {
		return nil, err
	}
	fn, err := d.Required("new", "callee", v.Callee)
	if err != nil {
		return nil, err
	}
	args, err := d.Nodes(v.Args)
	if err != nil {
		return nil, err
	}
	return &New{Callee: fn, Args: args}, nil
}

// Spread is ...expr inside call arguments, array literals and object
// literals.
type Spread struct {
	Base
	Arg Node
}

func (n *Spread) Get(s *scope.Stack) (types.Value, error) { return n.Arg.Get(s) }

func (n *Spread) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Spread) Entry() []string              { return n.Arg.Entry() }
func (n *Spread) Event(parent string) []string { return n.Arg.Event(parent) }
func (n *Spread) String() string               { return "..." + n.Arg.String() }
func (n *Spread) Tag() string                  { return "spread" }

func (n *Spread) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag string `json:"tag"`
		Arg Node   `json:"arg"`
	}{n.Tag(), n.Arg})
}

func decodeSpread(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Arg json.RawMessage `json:"arg"`
	}
	if err := unmarshal("spread", data, &v); err != nil {
		return nil, err
	}
	arg, err := d.Required("spread", "arg", v.Arg)
	if err != nil {
		return nil, err
	}
	return &Spread{Arg: arg}, nil
}

func init() {
	Register("member", decodeMember)
	Register("computed-member", decodeComputedMember)
	Register("optional", decodeOptionalChain)
	Register("call", decodeCall)
	Register("new", decodeNew)
	Register("spread", decodeSpread)
}
