package semantic

import (
	"github.com/kolkov/uexpr/internal/token"
)

// SymbolKind defines the category of a symbol.
type SymbolKind int

const (
	SymbolVar      SymbolKind = iota // var declaration (function scoped)
	SymbolLet                        // let declaration
	SymbolConst                      // const declaration
	SymbolFunction                   // function declaration
	SymbolParam                      // formal parameter
	SymbolCatch                      // catch clause parameter
	SymbolSelf                       // name of a named function expression
)

// String returns a human-readable name for the symbol kind.
func (k SymbolKind) String() string {
	switch k {
	case SymbolVar:
		return "var"
	case SymbolLet:
		return "let"
	case SymbolConst:
		return "const"
	case SymbolFunction:
		return "function"
	case SymbolParam:
		return "param"
	case SymbolCatch:
		return "catch"
	case SymbolSelf:
		return "self"
	default:
		return "unknown"
	}
}

// IsLexical reports whether the symbol is block scoped and may not be
// redeclared.
func (k SymbolKind) IsLexical() bool {
	return k == SymbolLet || k == SymbolConst
}

// Symbol holds information about a declared symbol.
type Symbol struct {
	Name string         // Symbol name
	Kind SymbolKind     // Category
	Pos  token.Position // Declaration position
}

// SymbolTable implements a hierarchical symbol table with scope support.
// Each scope can have a parent, enabling nested lookups. A function table
// marks the boundary of a function body; var declarations land there.
type SymbolTable struct {
	parent   *SymbolTable
	symbols  map[string]*Symbol
	function bool
}

// NewSymbolTable creates a new symbol table with the given parent.
// Pass nil for the program scope, which is also a function table.
func NewSymbolTable(parent *SymbolTable, function bool) *SymbolTable {
	return &SymbolTable{
		parent:   parent,
		symbols:  make(map[string]*Symbol),
		function: function || parent == nil,
	}
}

// Parent returns the parent scope, or nil for the program scope.
func (st *SymbolTable) Parent() *SymbolTable {
	return st.parent
}

// IsFunction reports whether the table is a function boundary.
func (st *SymbolTable) IsFunction() bool {
	return st.function
}

// Define adds a new symbol to the current scope.
// Returns the created symbol, or nil if a symbol with that name already exists.
func (st *SymbolTable) Define(name string, kind SymbolKind, pos token.Position) *Symbol {
	if _, exists := st.symbols[name]; exists {
		return nil // Already defined in this scope
	}
	sym := &Symbol{Name: name, Kind: kind, Pos: pos}
	st.symbols[name] = sym
	return sym
}

// Lookup searches for a symbol in this scope and all parent scopes.
// Returns the symbol and true if found, nil and false otherwise.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for scope := st; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupFunction searches like Lookup but stops at the enclosing function
// boundary.
func (st *SymbolTable) LookupFunction(name string) (*Symbol, bool) {
	for scope := st; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym, true
		}
		if scope.function {
			break
		}
	}
	return nil, false
}

// LookupLocal searches for a symbol only in the current scope.
// Returns the symbol and true if found, nil and false otherwise.
func (st *SymbolTable) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := st.symbols[name]
	return sym, ok
}

// Count returns the number of symbols in the current scope.
func (st *SymbolTable) Count() int {
	return len(st.symbols)
}
