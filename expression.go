package uexpr

import (
	"errors"
	"io"

	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/types"
)

// Expression is a parsed expression or statement list ready for
// evaluation. It holds no evaluation state and is safe for concurrent use
// against independent stacks.
type Expression struct {
	node   ast.Node
	source string // Original source, empty for deserialized trees
}

// Get evaluates the expression against s and returns its value. The value
// of a top-level return statement is the value of the expression.
func (e *Expression) Get(s *Stack) (Value, error) {
	v, err := e.node.Get(s)
	if err != nil {
		var ret *ast.ReturnError
		if errors.As(err, &ret) {
			return ret.Value, nil
		}
		return nil, runtimeFailure(err)
	}
	return v, nil
}

// Set assigns v to the target the expression denotes, such as an
// identifier, a member access or a destructuring pattern, and returns v.
func (e *Expression) Set(s *Stack, v Value) (Value, error) {
	out, err := e.node.Set(s, types.FromGo(v))
	if err != nil {
		return nil, runtimeFailure(err)
	}
	return out, nil
}

// Entry returns the free variables the expression reads, in source order
// and without duplicates. Names declared inside the expression and
// function parameters are excluded.
func (e *Expression) Entry() []string {
	return e.node.Entry()
}

// Event returns the dependency paths the expression observes, such as
// "a.b" for a member access. A non-empty parent prefixes each root
// identifier.
func (e *Expression) Event(parent string) []string {
	return e.node.Event(parent)
}

// String renders the expression as normalized source text.
func (e *Expression) String() string {
	return e.node.String()
}

// Source returns the text the expression was parsed from. Deserialized
// expressions return their normalized rendering.
func (e *Expression) Source() string {
	if e.source == "" {
		return e.node.String()
	}
	return e.source
}

// MarshalJSON serializes the tree. Deserialize restores it.
func (e *Expression) MarshalJSON() ([]byte, error) {
	return e.node.MarshalJSON()
}

// Tag returns the serialization tag of the root node, such as "binary"
// or "call".
func (e *Expression) Tag() string {
	return e.node.Tag()
}

// Print writes an indented dump of the tree to w.
// Useful for debugging and understanding expression structure.
func (e *Expression) Print(w io.Writer) error {
	return ast.NewPrinter(w).Print(e.node)
}
