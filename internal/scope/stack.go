// Package scope implements the chain of variable frames that expressions
// are evaluated against.
package scope

import (
	"sort"

	"github.com/kolkov/uexpr/internal/types"
)

// Kind is the declaration form that created a binding.
type Kind uint8

const (
	Global   Kind = iota // Host binding or implicit global created by assignment
	Let                  // let
	Const                // const
	Function             // Function declaration
	Param                // Function parameter or catch binding
	Var                  // var, bound in the nearest function frame
)

// String returns the declaration keyword for the kind.
func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Let:
		return "let"
	case Const:
		return "const"
	case Function:
		return "function"
	case Param:
		return "param"
	case Var:
		return "var"
	default:
		return "unknown"
	}
}

type binding struct {
	value types.Value
	kind  Kind
}

// Stack is one frame of the variable chain. Lookups search the frame and
// then its parents. A Stack is not safe for concurrent use.
type Stack struct {
	parent   *Stack
	vars     map[string]*binding
	function bool // receives var declarations of nested blocks
}

// New creates a root frame.
func New() *Stack {
	return &Stack{vars: make(map[string]*binding)}
}

// NewStack creates a child frame of s.
func (s *Stack) NewStack() *Stack {
	return &Stack{parent: s, vars: make(map[string]*binding)}
}

// NewFunctionStack creates a child frame that holds the parameters and
// var declarations of one function call.
func (s *Stack) NewFunctionStack() *Stack {
	return &Stack{parent: s, vars: make(map[string]*binding), function: true}
}

// VarFrame returns the nearest function frame, or the root.
func (s *Stack) VarFrame() *Stack {
	frame := s
	for !frame.function && frame.parent != nil {
		frame = frame.parent
	}
	return frame
}

// Parent returns the enclosing frame, or nil for the root.
func (s *Stack) Parent() *Stack {
	return s.parent
}

// Root returns the outermost frame.
func (s *Stack) Root() *Stack {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func (s *Stack) lookup(name string) *binding {
	for frame := s; frame != nil; frame = frame.parent {
		if b, ok := frame.vars[name]; ok {
			return b
		}
	}
	return nil
}

// Get returns the value bound to name in the nearest frame. A miss yields
// undefined and false.
func (s *Stack) Get(name string) (types.Value, bool) {
	if b := s.lookup(name); b != nil {
		return b.value, true
	}
	return types.Undefined, false
}

// Has reports whether name is bound in s or a parent.
func (s *Stack) Has(name string) bool {
	return s.lookup(name) != nil
}

// HasOwn reports whether name is bound in this frame.
func (s *Stack) HasOwn(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Set assigns to the nearest binding of name. An unbound name is created
// in the root frame.
func (s *Stack) Set(name string, v types.Value) error {
	b := s.lookup(name)
	if b == nil {
		s.Root().vars[name] = &binding{value: v, kind: Global}
		return nil
	}
	if b.kind == Const {
		return types.TypeErrorf("Assignment to constant variable '%s'", name)
	}
	b.value = v
	return nil
}

// Declare binds name in this frame. Redeclaring a let or const binding in
// the same frame fails; parameters, functions and globals may be rebound.
func (s *Stack) Declare(name string, v types.Value, kind Kind) error {
	if b, ok := s.vars[name]; ok && (b.kind == Let || b.kind == Const) && kind != Global {
		return &types.Error{Name: "SyntaxError", Message: "Identifier '" + name + "' has already been declared"}
	}
	s.vars[name] = &binding{value: v, kind: kind}
	return nil
}

// Define binds name in this frame unconditionally.
func (s *Stack) Define(name string, v types.Value) {
	s.vars[name] = &binding{value: v, kind: Global}
}

// Delete removes name from the nearest frame that binds it. Declared
// bindings cannot be deleted.
func (s *Stack) Delete(name string) bool {
	for frame := s; frame != nil; frame = frame.parent {
		if b, ok := frame.vars[name]; ok {
			if b.kind != Global {
				return false
			}
			delete(frame.vars, name)
			return true
		}
	}
	return true
}

// KindOf returns the declaration kind of the nearest binding of name.
func (s *Stack) KindOf(name string) (Kind, bool) {
	if b := s.lookup(name); b != nil {
		return b.kind, true
	}
	return 0, false
}

// Names returns the names bound in this frame, sorted.
func (s *Stack) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy copies the named bindings of from into s, keeping their kinds.
// Loops use it to give each iteration a fresh copy of the loop variables.
func (s *Stack) Copy(from *Stack, names []string) {
	for _, name := range names {
		if b, ok := from.vars[name]; ok {
			s.vars[name] = &binding{value: b.value, kind: b.kind}
		}
	}
}
