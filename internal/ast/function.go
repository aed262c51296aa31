package ast

import (
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/types"
)

// MaxCallDepth bounds the recursion of one closure.
const MaxCallDepth = 10000

// Param is one formal parameter.
type Param struct {
	Base
	Target  Node
	Default Node
	Rest    bool
}

func (p *Param) Get(*scope.Stack) (types.Value, error) {
	return nil, unsupported(p, "get")
}

// Set binds v, or the default when v is undefined, as a parameter of s.
func (p *Param) Set(s *scope.Stack, v types.Value) (types.Value, error) {
	if p.Default != nil && types.IsUndefined(v) {
		var err error
		if v, err = p.Default.Get(s); err != nil {
			return nil, err
		}
	}
	if err := declareIn(s, scope.Param)(p.Target, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (p *Param) Entry() []string      { return entries(targetReads(p.Target), p.Default) }
func (p *Param) Event(string) []string { return nil }
func (p *Param) Tag() string           { return "param" }

func (p *Param) String() string {
	if p.Rest {
		return "..." + p.Target.String()
	}
	if p.Default != nil {
		return p.Target.String() + " = " + p.Default.String()
	}
	return p.Target.String()
}

func (p *Param) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag     string `json:"tag"`
		Target  Node   `json:"target"`
		Default Node   `json:"default,omitempty"`
		Rest    bool   `json:"rest,omitempty"`
	}{p.Tag(), p.Target, p.Default, p.Rest})
}

func decodeParam(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Target  json.RawMessage `json:"target"`
		Default json.RawMessage `json:"default"`
		Rest    bool            `json:"rest"`
	}
	if err := unmarshal("param", data, &v); err != nil {
		return nil, err
	}
	p := &Param{Rest: v.Rest}
	var err error
	if p.Target, err = d.Required("param", "target", v.Target); err != nil {
		return nil, err
	}
	if p.Default, err = d.Node(v.Default); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeParams(d *Decoder, tag string, raws []json.RawMessage) ([]*Param, error) {
	params := make([]*Param, 0, len(raws))
	for _, raw := range raws {
		p, err := decodeAs[*Param](d, tag, "params", raw)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &DecodeError{Tag: tag, Message: tag + ": missing parameter"}
		}
		params = append(params, p)
	}
	return params, nil
}

func paramNames(params []*Param) []string {
	var out []string
	for _, p := range params {
		out = append(out, boundNames(p.Target)...)
	}
	return out
}

func paramList(params []*Param) string {
	return "(" + join(params, ", ") + ")"
}

// Function is a function declaration or expression. Object literal
// methods and accessors are functions printed by their property.
type Function struct {
	Base
	Name   string
	Params []*Param
	Body   *Block
	Async  bool
	Decl   bool
}

func (n *Function) closure(s *scope.Stack) *Closure {
	c := &Closure{node: n, params: n.Params, body: n.Body, async: n.Async, scope: s}
	if !n.Decl && n.Name != "" {
		// A named function expression sees its own name.
		c.scope = s.NewStack()
		c.scope.Define(n.Name, c)
	}
	return c
}

// Get evaluates a function expression to a closure. A declaration binds
// its name in s unless hoisting already did.
func (n *Function) Get(s *scope.Stack) (types.Value, error) {
	if !n.Decl {
		return n.closure(s), nil
	}
	if !s.HasOwn(n.Name) {
		if err := s.Declare(n.Name, n.closure(s), scope.Function); err != nil {
			return nil, err
		}
	}
	return types.Undefined, nil
}

func (n *Function) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Function) Entry() []string {
	list := entries(append(nodeList(n.Params), n.Body)...)
	locals := append(paramNames(n.Params), "this", "arguments")
	if n.Name != "" {
		locals = append(locals, n.Name)
	}
	return without(list, locals)
}

func (n *Function) Event(string) []string { return nil }
func (n *Function) Tag() string           { return "function" }

// signature renders the parameter list and body.
func (n *Function) signature() string {
	return paramList(n.Params) + " " + n.Body.String()
}

func (n *Function) String() string {
	out := "function "
	if n.Async {
		out = "async " + out
	}
	if n.Name != "" {
		out += n.Name
	}
	return out + n.signature()
}

func (n *Function) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string   `json:"tag"`
		Name   string   `json:"name,omitempty"`
		Params []*Param `json:"params"`
		Body   *Block   `json:"body"`
		Async  bool     `json:"async,omitempty"`
		Decl   bool     `json:"declaration,omitempty"`
	}{n.Tag(), n.Name, nonNil(n.Params), n.Body, n.Async, n.Decl})
}

func decodeFunction(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Name   string            `json:"name"`
		Params []json.RawMessage `json:"params"`
		Body   json.RawMessage   `json:"body"`
		Async  bool              `json:"async"`
		Decl   bool              `json:"declaration"`
	}
	if err := unmarshal("function", data, &v); err != nil {
		return nil, err
	}
	if v.Decl && v.Name == "" {
		return nil, &DecodeError{Tag: "function", Message: "function: declaration without a name"}
	}
	n := &Function{Name: v.Name, Async: v.Async, Decl: v.Decl}
	var err error
	if n.Params, err = decodeParams(d, "function", v.Params); err != nil {
		return nil, err
	}
	if n.Body, err = decodeAs[*Block](d, "function", "body", v.Body); err != nil {
		return nil, err
	}
	if n.Body == nil {
		n.Body = &Block{}
	}
	return n, nil
}

// Arrow is an arrow function. Body is a *Block or an expression.
type Arrow struct {
	Base
	Params []*Param
	Body   Node
	Async  bool
}

func (n *Arrow) Get(s *scope.Stack) (types.Value, error) {
	c := &Closure{node: n, params: n.Params, async: n.Async, arrow: true, scope: s}
	if b, ok := n.Body.(*Block); ok {
		c.body = b
	} else {
		c.expr = n.Body
	}
	return c, nil
}

func (n *Arrow) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Arrow) Entry() []string {
	return without(entries(append(nodeList(n.Params), n.Body)...), paramNames(n.Params))
}

func (n *Arrow) Event(string) []string { return nil }
func (n *Arrow) Tag() string           { return "arrow" }

func (n *Arrow) String() string {
	out := paramList(n.Params) + " => " + n.Body.String()
	if n.Async {
		return "async " + out
	}
	return out
}

func (n *Arrow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string   `json:"tag"`
		Params []*Param `json:"params"`
		Body   Node     `json:"body"`
		Async  bool     `json:"async,omitempty"`
	}{n.Tag(), nonNil(n.Params), n.Body, n.Async})
}

func decodeArrow(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Params []json.RawMessage `json:"params"`
		Body   json.RawMessage   `json:"body"`
		Async  bool              `json:"async"`
	}
	if err := unmarshal("arrow", data, &v); err != nil {
		return nil, err
	}
	n := &Arrow{Async: v.Async}
	var err error
	if n.Params, err = decodeParams(d, "arrow", v.Params); err != nil {
		return nil, err
	}
	if n.Body, err = d.Required("arrow", "body", v.Body); err != nil {
		return nil, err
	}
	return n, nil
}

// Closure is a function value: a function node together with the stack it
// was created in.
type Closure struct {
	node   Node
	params []*Param
	body   *Block
	expr   Node
	async  bool
	arrow  bool
	scope  *scope.Stack
	depth  atomic.Int32
}

// Node returns the function or arrow node the closure was created from.
func (c *Closure) Node() Node { return c.node }

// Call runs the function body in a new frame of the defining stack.
func (c *Closure) Call(this types.Value, args []types.Value) (types.Value, error) {
	if c.depth.Add(1) > MaxCallDepth {
		c.depth.Add(-1)
		return nil, types.RangeErrorf("Maximum call stack size exceeded")
	}
	defer c.depth.Add(-1)

	frame := c.scope.NewFunctionStack()
	if !c.arrow {
		frame.Define("this", this)
		frame.Define("arguments", types.NewArray(args...))
	}
	if err := bindParams(frame, c.params, args); err != nil {
		return nil, err
	}
	v, err := c.run(frame)
	if err != nil {
		return nil, err
	}
	if c.async {
		return &types.Awaitable{Value: v}, nil
	}
	return v, nil
}

func bindParams(frame *scope.Stack, params []*Param, args []types.Value) error {
	for i, p := range params {
		if p.Rest {
			var rest []types.Value
			if i < len(args) {
				rest = append(rest, args[i:]...)
			}
			return declareIn(frame, scope.Param)(p.Target, types.NewArray(rest...))
		}
		if _, err := p.Set(frame, types.Arg(args, i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Closure) run(frame *scope.Stack) (types.Value, error) {
	if c.expr != nil {
		return c.expr.Get(frame)
	}
	if err := hoist(frame, c.body.Body); err != nil {
		return nil, err
	}
	for _, stmt := range c.body.Body {
		if _, err := stmt.Get(frame); err != nil {
			var ret *ReturnError
			if errors.As(err, &ret) {
				return ret.Value, nil
			}
			return nil, err
		}
	}
	return types.Undefined, nil
}

// Construct calls the function with a fresh object as this. An object
// returned by the body replaces it.
func (c *Closure) Construct(args []types.Value) (types.Value, error) {
	if c.arrow || c.async {
		return nil, types.TypeErrorf("%s is not a constructor", c.name())
	}
	obj := types.NewObject()
	obj.Constructor = c
	v, err := c.Call(obj, args)
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case *types.Object, *types.Array:
		return v, nil
	}
	return obj, nil
}

func (c *Closure) name() string {
	if fn, ok := c.node.(*Function); ok && fn.Name != "" {
		return fn.Name
	}
	return "anonymous"
}

// String returns the function source.
func (c *Closure) String() string {
	return c.node.String()
}

func init() {
	Register("param", decodeParam)
	Register("function", decodeFunction)
	Register("arrow", decodeArrow)
}
