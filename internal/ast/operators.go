package ast

import (
	"encoding/json"

	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

// Unary is one of the arithmetic and logical prefix operators + - ~ !.
type Unary struct {
	Base
	Op      token.Token
	Operand Node
}

func (n *Unary) Get(s *scope.Stack) (types.Value, error) {
	v, err := n.Operand.Get(s)
	if err != nil {
		return nil, err
	}
	return runtime.Unary(n.Op, v)
}

func (n *Unary) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Unary) Entry() []string      { return n.Operand.Entry() }
func (n *Unary) Event(string) []string { return nil }
func (n *Unary) String() string        { return n.Op.String() + n.Operand.String() }
func (n *Unary) Tag() string           { return "unary" }

func (n *Unary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag     string `json:"tag"`
		Op      string `json:"op"`
		Operand Node   `json:"operand"`
	}{n.Tag(), n.Op.String(), n.Operand})
}

func decodeUnary(d *Decoder, data []byte) (Node, error) {
	op, operand, err := decodeOpOperand(d, "unary", data)
	if err != nil {
		return nil, err
	}
	return &Unary{Op: op, Operand: operand}, nil
}

func decodeOpOperand(d *Decoder, tag string, data []byte) (token.Token, Node, error) {
	var v struct {
		Op      string          `json:"op"`
		Operand json.RawMessage `json:"operand"`
	}
	if err := unmarshal(tag, data, &v); err != nil {
		return 0, nil, err
	}
	op, err := d.Op(tag, v.Op)
	if err != nil {
		return 0, nil, err
	}
	operand, err := d.Required(tag, "operand", v.Operand)
	return op, operand, err
}

// LiteralUnary is one of the keyword operators typeof, void, delete and
// await.
type LiteralUnary struct {
	Base
	Op      token.Token
	Operand Node
}

func (n *LiteralUnary) Get(s *scope.Stack) (types.Value, error) {
	switch n.Op {
	case token.DELETE:
		return n.delete(s)
	case token.TYPEOF:
		v, err := n.Operand.Get(s)
		if err != nil {
			return nil, err
		}
		return types.TypeOf(v), nil
	}
	v, err := n.Operand.Get(s)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.VOID:
		return types.Undefined, nil
	case token.AWAIT:
		return &types.Awaitable{Value: v}, nil
	}
	return nil, errorf(n, "unknown operator %s", n.Op)
}

func (n *LiteralUnary) delete(s *scope.Stack) (types.Value, error) {
	target := n.Operand
	for {
		g, ok := target.(*Grouping)
		if !ok {
			break
		}
		target = g.Expr
	}
	switch t := target.(type) {
	case *Member:
		obj, err := t.base(s)
		if err != nil {
			return nil, err
		}
		return runtime.DeleteMember(obj, t.Name)
	case *ComputedMember:
		obj, key, err := t.operands(s)
		if err != nil {
			return nil, err
		}
		return runtime.DeleteMember(obj, key)
	case *OptionalChain:
		v, err := (&LiteralUnary{Op: token.DELETE, Operand: t.Expr}).delete(s)
		if err == errShortCircuit {
			return true, nil
		}
		return v, err
	case *Property:
		if t == This {
			return true, nil
		}
		return s.Delete(t.Name), nil
	}
	return nil, errorf(n, "delete requires a property access, got %s", target.Tag())
}

func (n *LiteralUnary) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *LiteralUnary) Entry() []string { return n.Operand.Entry() }

func (n *LiteralUnary) Event(parent string) []string {
	if n.Op == token.DELETE {
		return n.Operand.Event(parent)
	}
	return nil
}

func (n *LiteralUnary) String() string { return n.Op.String() + " " + n.Operand.String() }
func (n *LiteralUnary) Tag() string    { return "literal-unary" }

func (n *LiteralUnary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag     string `json:"tag"`
		Op      string `json:"op"`
		Operand Node   `json:"operand"`
	}{n.Tag(), n.Op.String(), n.Operand})
}

func decodeLiteralUnary(d *Decoder, data []byte) (Node, error) {
	op, operand, err := decodeOpOperand(d, "literal-unary", data)
	if err != nil {
		return nil, err
	}
	switch op {
	case token.TYPEOF, token.VOID, token.DELETE, token.AWAIT:
	default:
		return nil, &DecodeError{Tag: "literal-unary", Message: "literal-unary: unknown operator " + op.String()}
	}
	return &LiteralUnary{Op: op, Operand: operand}, nil
}

// Update is a prefix or postfix ++ or --.
type Update struct {
	Base
	Op      token.Token
	Prefix  bool
	Operand Node
}

func (n *Update) Get(s *scope.Stack) (types.Value, error) {
	cur, err := n.Operand.Get(s)
	if err != nil {
		return nil, err
	}
	delta := 1
	if n.Op == token.DEC {
		delta = -1
	}
	old, updated, err := runtime.Increment(cur, delta)
	if err != nil {
		return nil, err
	}
	if _, err := n.Operand.Set(s, updated); err != nil {
		return nil, err
	}
	if n.Prefix {
		return updated, nil
	}
	return old, nil
}

func (n *Update) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Update) Entry() []string              { return n.Operand.Entry() }
func (n *Update) Event(parent string) []string { return n.Operand.Event(parent) }
func (n *Update) Tag() string                  { return "update" }

func (n *Update) String() string {
	if n.Prefix {
		return n.Op.String() + n.Operand.String()
	}
	return n.Operand.String() + n.Op.String()
}

func (n *Update) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag     string `json:"tag"`
		Op      string `json:"op"`
		Prefix  bool   `json:"prefix"`
		Operand Node   `json:"operand"`
	}{n.Tag(), n.Op.String(), n.Prefix, n.Operand})
}

func decodeUpdate(d *Decoder, data []byte) (Node, error) {
	op, operand, err := decodeOpOperand(d, "update", data)
	if err != nil {
		return nil, err
	}
	var v struct {
		Prefix bool `json:"prefix"`
	}
	if err := unmarshal("update", data, &v); err != nil {
		return nil, err
	}
	return &Update{Op: op, Prefix: v.Prefix, Operand: operand}, nil
}

// Binary is a non-short-circuiting binary operator.
type Binary struct {
	Base
	Op          token.Token
	Left, Right Node
}

func (n *Binary) Get(s *scope.Stack) (types.Value, error) {
	a, err := n.Left.Get(s)
	if err != nil {
		return nil, err
	}
	b, err := n.Right.Get(s)
	if err != nil {
		return nil, err
	}
	return runtime.Binary(n.Op, a, b)
}

func (n *Binary) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Binary) Entry() []string              { return entries(n.Left, n.Right) }
func (n *Binary) Event(parent string) []string { return events(parent, n.Left, n.Right) }
func (n *Binary) Tag() string                  { return "binary" }

func (n *Binary) String() string {
	return n.Left.String() + " " + n.Op.String() + " " + n.Right.String()
}

func (n *Binary) MarshalJSON() ([]byte, error) {
	return marshalBinary(n.Tag(), n.Op, n.Left, n.Right)
}

func marshalBinary(tag string, op token.Token, left, right Node) ([]byte, error) {
	return json.Marshal(struct {
		Tag   string `json:"tag"`
		Op    string `json:"op"`
		Left  Node   `json:"left"`
		Right Node   `json:"right"`
	}{tag, op.String(), left, right})
}

func decodeBinaryParts(d *Decoder, tag string, data []byte) (token.Token, Node, Node, error) {
	var v struct {
		Op    string          `json:"op"`
		Left  json.RawMessage `json:"left"`
		Right json.RawMessage `json:"right"`
	}
	if err := unmarshal(tag, data, &v); err != nil {
		return 0, nil, nil, err
	}
	op, err := d.Op(tag, v.Op)
	if err != nil {
		return 0, nil, nil, err
	}
	left, err := d.Required(tag, "left", v.Left)
	if err != nil {
		return 0, nil, nil, err
	}
	right, err := d.Required(tag, "right", v.Right)
	return op, left, right, err
}

func decodeBinary(d *Decoder, data []byte) (Node, error) {
	op, left, right, err := decodeBinaryParts(d, "binary", data)
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, Left: left, Right: right}, nil
}

// Logical is one of the short-circuiting operators && || ??.
type Logical struct {
	Base
	Op          token.Token
	Left, Right Node
}

func (n *Logical) Get(s *scope.Stack) (types.Value, error) {
	a, err := n.Left.Get(s)
	if err != nil {
		return nil, err
	}
	if shortCircuits(n.Op, a) {
		return a, nil
	}
	return n.Right.Get(s)
}

// shortCircuits reports whether a logical operator is decided by its left
// operand alone.
func shortCircuits(op token.Token, a types.Value) bool {
	switch op {
	case token.LAND, token.LAND_ASSIGN:
		return !types.ToBoolean(a)
	case token.LOR, token.LOR_ASSIGN:
		return types.ToBoolean(a)
	case token.NULLISH, token.NULLISH_ASSIGN:
		return !types.IsNullish(a)
	}
	return false
}

func (n *Logical) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Logical) Entry() []string              { return entries(n.Left, n.Right) }
func (n *Logical) Event(parent string) []string { return events(parent, n.Left, n.Right) }
func (n *Logical) Tag() string                  { return "logical" }

func (n *Logical) String() string {
	return n.Left.String() + " " + n.Op.String() + " " + n.Right.String()
}

func (n *Logical) MarshalJSON() ([]byte, error) {
	return marshalBinary(n.Tag(), n.Op, n.Left, n.Right)
}

func decodeLogical(d *Decoder, data []byte) (Node, error) {
	op, left, right, err := decodeBinaryParts(d, "logical", data)
	if err != nil {
		return nil, err
	}
	if !op.IsLogical() {
		return nil, &DecodeError{Tag: "logical", Message: "logical: unknown operator " + op.String()}
	}
	return &Logical{Op: op, Left: left, Right: right}, nil
}

// Assignment is = or a compound assignment.
type Assignment struct {
	Base
	Op          token.Token
	Left, Right Node
}

func (n *Assignment) Get(s *scope.Stack) (types.Value, error) {
	if n.Op == token.ASSIGN {
		v, err := n.Right.Get(s)
		if err != nil {
			return nil, err
		}
		return n.Left.Set(s, v)
	}
	cur, err := n.Left.Get(s)
	if err != nil {
		return nil, err
	}
	if n.Op.IsLogicalAssign() {
		if shortCircuits(n.Op, cur) {
			return cur, nil
		}
		v, err := n.Right.Get(s)
		if err != nil {
			return nil, err
		}
		return n.Left.Set(s, v)
	}
	r, err := n.Right.Get(s)
	if err != nil {
		return nil, err
	}
	v, err := runtime.Assign(n.Op, cur, r)
	if err != nil {
		return nil, err
	}
	return n.Left.Set(s, v)
}

func (n *Assignment) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

// Entry omits a plain assignment target, which is written but not read.
func (n *Assignment) Entry() []string {
	if n.Op == token.ASSIGN {
		return entries(targetReads(n.Left), n.Right)
	}
	return entries(n.Left, n.Right)
}

// targetReads returns the part of an assignment target that is evaluated
// as a read, or nil for a bare identifier.
func targetReads(target Node) Node {
	switch t := target.(type) {
	case *Property:
		return nil
	case *Grouping:
		return targetReads(t.Expr)
	}
	return target
}

func (n *Assignment) Event(parent string) []string { return n.Left.Event(parent) }
func (n *Assignment) Tag() string                  { return "assignment" }

func (n *Assignment) String() string {
	return n.Left.String() + " " + n.Op.String() + " " + n.Right.String()
}

func (n *Assignment) MarshalJSON() ([]byte, error) {
	return marshalBinary(n.Tag(), n.Op, n.Left, n.Right)
}

func decodeAssignment(d *Decoder, data []byte) (Node, error) {
	op, left, right, err := decodeBinaryParts(d, "assignment", data)
	if err != nil {
		return nil, err
	}
	if !op.IsAssign() {
		return nil, &DecodeError{Tag: "assignment", Message: "assignment: unknown operator " + op.String()}
	}
	return &Assignment{Op: op, Left: left, Right: right}, nil
}

// Ternary is the conditional operator.
type Ternary struct {
	Base
	Test, Then, Else Node
}

func (n *Ternary) Get(s *scope.Stack) (types.Value, error) {
	t, err := n.Test.Get(s)
	if err != nil {
		return nil, err
	}
	if types.ToBoolean(t) {
		return n.Then.Get(s)
	}
	return n.Else.Get(s)
}

func (n *Ternary) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Ternary) Entry() []string { return entries(n.Test, n.Then, n.Else) }

func (n *Ternary) Event(parent string) []string {
	return events(parent, n.Test, n.Then, n.Else)
}

func (n *Ternary) String() string {
	return n.Test.String() + " ? " + n.Then.String() + " : " + n.Else.String()
}

func (n *Ternary) Tag() string { return "ternary" }

func (n *Ternary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Test Node   `json:"test"`
		Then Node   `json:"then"`
		Else Node   `json:"else"`
	}{n.Tag(), n.Test, n.Then, n.Else})
}

func decodeTernary(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Test json.RawMessage `json:"test"`
		Then json.RawMessage `json:"then"`
		Else json.RawMessage `json:"else"`
	}
	if err := unmarshal("ternary", data, &v); err != nil {
		return nil, err
	}
	n := &Ternary{}
	var err error
	if n.Test, err = d.Required("ternary", "test", v.Test); err != nil {
		return nil, err
	}
	if n.Then, err = d.Required("ternary", "then", v.Then); err != nil {
		return nil, err
	}
	if n.Else, err = d.Required("ternary", "else", v.Else); err != nil {
		return nil, err
	}
	return n, nil
}

// PipelineStyle is the syntax used for the arguments of a pipeline call.
type PipelineStyle string

const (
	PipeBare  PipelineStyle = "bare"  // x |> f
	PipeColon PipelineStyle = "colon" // x |> f:a:?
	PipeParen PipelineStyle = "paren" // x |> f(a, ?)
)

// Pipeline threads Left into a call of Func. Index is the position of the
// ? placeholder among the arguments, or -1 when the piped value is passed
// first. Spread marks a ...? placeholder.
type Pipeline struct {
	Base
	Left   Node
	Func   Node
	Args   []Node
	Index  int
	Spread bool
	Style  PipelineStyle
}

func (n *Pipeline) Get(s *scope.Stack) (types.Value, error) {
	v, err := n.Left.Get(s)
	if err != nil {
		return nil, err
	}
	fn, this, err := callee(s, n.Func)
	if err != nil {
		return nil, err
	}
	args, err := evalAll(s, n.Args)
	if err != nil {
		return nil, err
	}
	piped := []types.Value{v}
	if n.Spread {
		it, err := types.Iterate(v)
		if err != nil {
			return nil, err
		}
		if piped, err = types.Collect(it); err != nil {
			return nil, err
		}
	}
	at := n.Index
	if at < 0 || at > len(args) {
		at = 0
	}
	call := make([]types.Value, 0, len(args)+len(piped))
	call = append(call, args[:at]...)
	call = append(call, piped...)
	call = append(call, args[at:]...)
	return runtime.Call(fn, this, call)
}

func (n *Pipeline) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Pipeline) Entry() []string {
	return entries(append([]Node{n.Left, n.Func}, n.Args...)...)
}

func (n *Pipeline) Event(parent string) []string {
	return events(parent, append([]Node{n.Left, n.Func}, n.Args...)...)
}

func (n *Pipeline) String() string {
	out := n.Left.String() + " |> " + n.Func.String()
	if n.Style == PipeBare || n.Style == "" {
		return out
	}
	parts := make([]string, 0, len(n.Args)+1)
	for _, a := range n.Args {
		parts = append(parts, a.String())
	}
	if n.Index >= 0 && n.Index <= len(parts) {
		hole := "?"
		if n.Spread {
			hole = "...?"
		}
		parts = append(parts[:n.Index], append([]string{hole}, parts[n.Index:]...)...)
	}
	if n.Style == PipeColon {
		for _, p := range parts {
			out += ":" + p
		}
		return out
	}
	out += "("
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out + ")"
}

func (n *Pipeline) Tag() string { return "pipeline" }

func (n *Pipeline) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string        `json:"tag"`
		Left   Node          `json:"left"`
		Func   Node          `json:"func"`
		Args   []Node        `json:"args"`
		Index  int           `json:"index"`
		Spread bool          `json:"spread,omitempty"`
		Style  PipelineStyle `json:"style"`
	}{n.Tag(), n.Left, n.Func, nonNil(n.Args), n.Index, n.Spread, n.Style})
}

func decodePipeline(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Left   json.RawMessage   `json:"left"`
		Func   json.RawMessage   `json:"func"`
		Args   []json.RawMessage `json:"args"`
		Index  int               `json:"index"`
		Spread bool              `json:"spread"`
		Style  PipelineStyle     `json:"style"`
	}
	if err := unmarshal("pipeline", data, &v); err != nil {
		return nil, err
	}
	n := &Pipeline{Index: v.Index, Spread: v.Spread, Style: v.Style}
	var err error
	if n.Left, err = d.Required("pipeline", "left", v.Left); err != nil {
		return nil, err
	}
	if n.Func, err = d.Required("pipeline", "func", v.Func); err != nil {
		return nil, err
	}
	if n.Args, err = d.Nodes(v.Args); err != nil {
		return nil, err
	}
	return n, nil
}

// Comma evaluates its expressions in order and yields the last value.
type Comma struct {
	Base
	Exprs []Node
}

func (n *Comma) Get(s *scope.Stack) (types.Value, error) {
	var v types.Value = types.Undefined
	for _, e := range n.Exprs {
		var err error
		if v, err = e.Get(s); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (n *Comma) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Comma) Entry() []string              { return entries(n.Exprs...) }
func (n *Comma) Event(parent string) []string { return events(parent, n.Exprs...) }
func (n *Comma) String() string               { return join(n.Exprs, ", ") }
func (n *Comma) Tag() string                  { return "comma" }

func (n *Comma) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag   string `json:"tag"`
		Exprs []Node `json:"exprs"`
	}{n.Tag(), nonNil(n.Exprs)})
}

func decodeComma(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Exprs []json.RawMessage `json:"exprs"`
	}
	if err := unmarshal("comma", data, &v); err != nil {
		return nil, err
	}
	exprs, err := d.Nodes(v.Exprs)
	if err != nil {
		return nil, err
	}
	return &Comma{Exprs: exprs}, nil
}

// Grouping is a parenthesized expression. It is kept in the tree so that
// String reproduces the source.
type Grouping struct {
	Base
	Expr Node
}

func (n *Grouping) Get(s *scope.Stack) (types.Value, error) { return n.Expr.Get(s) }

func (n *Grouping) Set(s *scope.Stack, v types.Value) (types.Value, error) {
	return n.Expr.Set(s, v)
}

func (n *Grouping) Entry() []string              { return n.Expr.Entry() }
func (n *Grouping) Event(parent string) []string { return n.Expr.Event(parent) }
func (n *Grouping) String() string               { return "(" + n.Expr.String() + ")" }
func (n *Grouping) Tag() string                  { return "grouping" }

func (n *Grouping) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Expr Node   `json:"expr"`
	}{n.Tag(), n.Expr})
}

func decodeGrouping(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Expr json.RawMessage `json:"expr"`
	}
	if err := unmarshal("grouping", data, &v); err != nil {
		return nil, err
	}
	expr, err := d.Required("grouping", "expr", v.Expr)
	if err != nil {
		return nil, err
	}
	return &Grouping{Expr: expr}, nil
}

func init() {
	Register("unary", decodeUnary)
	Register("literal-unary", decodeLiteralUnary)
	Register("update", decodeUpdate)
	Register("binary", decodeBinary)
	Register("logical", decodeLogical)
	Register("assignment", decodeAssignment)
	Register("ternary", decodeTernary)
	Register("pipeline", decodePipeline)
	Register("comma", decodeComma)
	Register("grouping", decodeGrouping)
}
