package semantic

import (
	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/token"
)

// Checker walks a parsed tree with a stack of symbol tables and collects
// early errors.
type Checker struct {
	scope  *SymbolTable
	errors ErrorList

	// Context tracking, reset at function boundaries
	inLoop   int
	inSwitch int
}

// Check validates a parsed tree. It returns an ErrorList holding every
// early error in source order, or nil.
func Check(node ast.Node) error {
	c := &Checker{scope: NewSymbolTable(nil, true)}
	if list, ok := node.(*ast.Statements); ok {
		c.checkList(list.Body, true)
	} else if node != nil {
		c.checkList([]ast.Node{node}, true)
	}
	return c.errors.Err()
}

func (c *Checker) push(function bool) {
	c.scope = NewSymbolTable(c.scope, function)
}

func (c *Checker) pop() {
	c.scope = c.scope.Parent()
}

// checkList declares the names a statement list binds, then checks each
// statement. top is set for function bodies and the program.
func (c *Checker) checkList(list []ast.Node, top bool) {
	for _, stmt := range list {
		c.declareStmt(stmt, top)
	}
	for _, stmt := range list {
		c.check(stmt)
	}
}

// declareStmt records the bindings a statement adds to its block.
func (c *Checker) declareStmt(stmt ast.Node, top bool) {
	switch s := stmt.(type) {
	case *ast.Declaration:
		c.declare(s)
	case *ast.Function:
		if s.Decl {
			c.define(s.Name, SymbolFunction, s.Pos(), top)
		}
	}
}

// declare records the names of a var, let or const declaration.
func (c *Checker) declare(decl *ast.Declaration) {
	for _, d := range decl.Decls {
		for _, name := range bindingNames(d.Target) {
			switch decl.Kind {
			case token.VAR:
				c.declareVar(name)
			case token.CONST:
				c.define(name.Name, SymbolConst, name.Pos(), false)
			default:
				c.define(name.Name, SymbolLet, name.Pos(), false)
			}
		}
	}
}

// define adds name to the current table and reports a clash with an
// existing binding. Functions may repeat at the top of a function body.
func (c *Checker) define(name string, kind SymbolKind, pos token.Position, top bool) {
	old, ok := c.scope.LookupLocal(name)
	if !ok {
		c.scope.Define(name, kind, pos)
		return
	}
	if clash(old.Kind, kind, top) {
		c.errors.Add(pos, errRedeclared, name)
		return
	}
	if kind.IsLexical() || kind == SymbolFunction {
		old.Kind = kind
	}
}

// clash reports whether a binding of kind next may not follow old in one
// table.
func clash(old, next SymbolKind, top bool) bool {
	switch {
	case old.IsLexical() || next.IsLexical():
		return true
	case old == SymbolCatch || next == SymbolCatch:
		return false
	case old == SymbolFunction && next == SymbolFunction:
		return !top
	}
	return false
}

// declareVar hoists a var name to the enclosing function table. A lexical
// binding of the same name in a block on the way is a clash.
func (c *Checker) declareVar(name *ast.Property) {
	for t := c.scope; t != nil; t = t.Parent() {
		if old, ok := t.LookupLocal(name.Name); ok && (old.Kind.IsLexical() || (old.Kind == SymbolFunction && !t.IsFunction())) {
			c.errors.Add(name.Pos(), errRedeclared, name.Name)
			return
		}
		if t.IsFunction() {
			t.Define(name.Name, SymbolVar, name.Pos())
			return
		}
	}
}

// check validates a node and its children.
func (c *Checker) check(node ast.Node) {
	if node == nil {
		return
	}

	switch n := node.(type) {
	case *ast.Statements:
		c.checkList(n.Body, true)

	case *ast.Block:
		c.push(false)
		c.checkList(n.Body, false)
		c.pop()

	case *ast.Function:
		c.checkFunction(n.Name, !n.Decl && n.Name != "", n.Params, false, func() {
			c.checkList(n.Body.Body, true)
		})

	case *ast.Arrow:
		c.checkFunction("", false, n.Params, true, func() {
			if body, ok := n.Body.(*ast.Block); ok {
				c.checkList(body.Body, true)
			} else {
				c.check(n.Body)
			}
		})

	case *ast.While:
		c.check(n.Test)
		c.loop(n.Body)

	case *ast.For:
		c.push(false)
		if decl, ok := n.Init.(*ast.Declaration); ok {
			c.declare(decl)
		}
		c.check(n.Init)
		c.check(n.Test)
		c.check(n.Update)
		c.loop(n.Body)
		c.pop()

	case *ast.ForIn:
		c.check(n.Object)
		c.checkForEach(n.Kind, n.Target, n.Body)

	case *ast.ForOf:
		c.check(n.Iterable)
		c.checkForEach(n.Kind, n.Target, n.Body)

	case *ast.Switch:
		c.check(n.Discriminant)
		c.push(false)
		for _, cs := range n.Cases {
			for _, stmt := range cs.Body {
				c.declareStmt(stmt, false)
			}
		}
		c.inSwitch++
		for _, cs := range n.Cases {
			c.check(cs.Test)
			for _, stmt := range cs.Body {
				c.check(stmt)
			}
		}
		c.inSwitch--
		c.pop()

	case *ast.Try:
		c.check(n.Block)
		if n.Handler != nil {
			c.push(false)
			for _, name := range bindingNames(n.Param) {
				c.scope.Define(name.Name, SymbolCatch, name.Pos())
			}
			c.check(n.Param)
			c.checkList(n.Handler.Body, false)
			c.pop()
		}
		if n.Finalizer != nil {
			c.check(n.Finalizer)
		}

	case *ast.Terminate:
		if n.Continue && c.inLoop == 0 {
			c.errors.Add(n.Pos(), errContinueOutsideLoop)
		}
		if !n.Continue && c.inLoop == 0 && c.inSwitch == 0 {
			c.errors.Add(n.Pos(), errBreakOutsideLoop)
		}

	case *ast.Assignment:
		c.checkTarget(n.Left)
		c.check(n.Left)
		c.check(n.Right)

	case *ast.Update:
		c.checkTarget(n.Operand)
		c.check(n.Operand)

	default:
		for _, child := range ast.Children(node) {
			c.check(child)
		}
	}
}

// checkFunction checks parameters and body in a new function table. The
// loop and switch context does not cross the boundary.
func (c *Checker) checkFunction(self string, named bool, params []*ast.Param, arrow bool, body func()) {
	loops, switches := c.inLoop, c.inSwitch
	c.inLoop, c.inSwitch = 0, 0
	defer func() { c.inLoop, c.inSwitch = loops, switches }()

	if named {
		c.push(false)
		c.scope.Define(self, SymbolSelf, token.NoPos)
		defer c.pop()
	}
	c.push(true)
	defer c.pop()

	for _, p := range params {
		for _, name := range bindingNames(p.Target) {
			if c.scope.Define(name.Name, SymbolParam, name.Pos()) == nil && arrow {
				c.errors.Add(name.Pos(), errDuplicateParam)
			}
		}
	}
	for _, p := range params {
		c.check(p)
	}
	body()
}

// checkForEach checks the head and body of for-in and for-of loops. A
// let or const target gets its own table.
func (c *Checker) checkForEach(kind token.Token, target, body ast.Node) {
	c.push(false)
	defer c.pop()
	switch kind {
	case token.LET, token.CONST:
		symKind := SymbolLet
		if kind == token.CONST {
			symKind = SymbolConst
		}
		for _, name := range bindingNames(target) {
			c.define(name.Name, symKind, name.Pos(), false)
		}
	case token.VAR:
		for _, name := range bindingNames(target) {
			c.declareVar(name)
		}
	default:
		c.checkTarget(target)
	}
	c.check(target)
	c.loop(body)
}

func (c *Checker) loop(body ast.Node) {
	c.inLoop++
	c.check(body)
	c.inLoop--
}

// checkTarget reports assignments to const bindings of the current
// function.
func (c *Checker) checkTarget(target ast.Node) {
	for _, name := range bindingNames(target) {
		if sym, ok := c.scope.LookupFunction(name.Name); ok && sym.Kind == SymbolConst {
			c.errors.Add(name.Pos(), errConstAssign, name.Name)
		}
	}
}

// bindingNames returns the identifiers a target binds or assigns.
// Property accesses bind nothing.
func bindingNames(target ast.Node) []*ast.Property {
	var out []*ast.Property
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Property:
			if t != ast.This {
				out = append(out, t)
			}
		case *ast.Grouping:
			visit(t.Expr)
		case *ast.Destructuring:
			for _, e := range t.Elems {
				visit(e.Target)
			}
			if t.Rest != nil {
				visit(t.Rest)
			}
		}
	}
	if target != nil {
		visit(target)
	}
	return out
}
