// Package ast defines the expression tree produced by the parser. Every
// node evaluates itself against a scope.Stack, reports the free variables
// it reads and the dependency paths it observes, prints back to source and
// serializes to tagged JSON.
package ast

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

// Node is implemented by every tree element. Nodes are immutable once
// built and hold no evaluation state.
type Node interface {
	// Pos returns the position of the first token of the node. Trees
	// restored by Deserialize carry no positions.
	Pos() token.Position

	// Get evaluates the node.
	Get(s *scope.Stack) (types.Value, error)

	// Set assigns v to the target the node denotes and returns v.
	Set(s *scope.Stack, v types.Value) (types.Value, error)

	// Entry returns the free variables the node reads, deduplicated in
	// source order.
	Entry() []string

	// Event returns the dependency paths the node observes. A non-empty
	// parent qualifies root identifiers.
	Event(parent string) []string

	// String renders the node as source text.
	String() string

	// Tag returns the serialization tag.
	Tag() string

	json.Marshaler
}

// Base carries the source position shared by all nodes.
type Base struct {
	StartPos token.Position
}

// Pos returns the start position.
func (b Base) Pos() token.Position { return b.StartPos }

// At returns a Base for pos.
func At(pos token.Position) Base { return Base{StartPos: pos} }

// EvalError is an evaluation failure attributed to a node.
type EvalError struct {
	Node    Node
	Message string
}

func (e *EvalError) Error() string {
	if e.Node == nil {
		return e.Message
	}
	return e.Node.Tag() + ": " + e.Message
}

func unsupported(n Node, op string) error {
	return &EvalError{Node: n, Message: "unsupported operation " + op}
}

// Control flow signals. Loops consume ErrBreak and ErrContinue, function
// calls consume *ReturnError.
var (
	ErrBreak    = errors.New("break outside of a loop or switch")
	ErrContinue = errors.New("continue outside of a loop")
)

// ReturnError carries the value of a return statement to the enclosing
// function call.
type ReturnError struct {
	Value types.Value
}

func (e *ReturnError) Error() string {
	return "return outside of a function"
}

// errShortCircuit unwinds an optional chain whose base is nullish.
var errShortCircuit = errors.New("optional chain short-circuited")

// isControl reports whether err is a control flow signal rather than a
// failure that try/catch may observe.
func isControl(err error) bool {
	if errors.Is(err, ErrBreak) || errors.Is(err, ErrContinue) || errors.Is(err, errShortCircuit) {
		return true
	}
	var ret *ReturnError
	return errors.As(err, &ret)
}

// names collects identifiers without duplicates, keeping first-seen order.
type names struct {
	list []string
	seen map[string]bool
}

func (n *names) add(ids ...string) {
	for _, id := range ids {
		if n.seen == nil {
			n.seen = make(map[string]bool)
		}
		if !n.seen[id] {
			n.seen[id] = true
			n.list = append(n.list, id)
		}
	}
}

func (n *names) has(id string) bool {
	return n.seen[id]
}

// entries merges the entries of nodes, skipping nil nodes.
func entries(nodes ...Node) []string {
	var out names
	for _, n := range nodes {
		if n != nil {
			out.add(n.Entry()...)
		}
	}
	return out.list
}

// without removes the given locals from a list of free variables.
func without(list []string, locals []string) []string {
	if len(locals) == 0 {
		return list
	}
	drop := make(map[string]bool, len(locals))
	for _, l := range locals {
		drop[l] = true
	}
	out := list[:0:0]
	for _, id := range list {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

// events merges the events of nodes, skipping nil nodes.
func events(parent string, nodes ...Node) []string {
	var out names
	for _, n := range nodes {
		if n != nil {
			out.add(n.Event(parent)...)
		}
	}
	return out.list
}

func nodeList[T Node](list []T) []Node {
	out := make([]Node, len(list))
	for i, n := range list {
		out[i] = n
	}
	return out
}

func join[T Node](list []T, sep string) string {
	parts := make([]string, len(list))
	for i, n := range list {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}

// str renders an optional child.
func str(n Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}

// Equal reports whether two trees have the same serialized form.
// Positions are ignored.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ja) == string(jb)
}

// evalAll evaluates nodes in order, expanding spread elements.
func evalAll(s *scope.Stack, nodes []Node) ([]types.Value, error) {
	out := make([]types.Value, 0, len(nodes))
	for _, n := range nodes {
		if sp, ok := n.(*Spread); ok {
			v, err := sp.Arg.Get(s)
			if err != nil {
				return nil, err
			}
			it, err := types.Iterate(v)
			if err != nil {
				return nil, err
			}
			rest, err := types.Collect(it)
			if err != nil {
				return nil, err
			}
			out = append(out, rest...)
			continue
		}
		v, err := n.Get(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func errorf(n Node, format string, args ...any) error {
	return &EvalError{Node: n, Message: fmt.Sprintf(format, args...)}
}
