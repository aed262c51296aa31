package parser

import (
	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/token"
)

// isSimpleTarget reports whether node can be assigned to directly.
func isSimpleTarget(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.Property:
		return n != ast.This
	case *ast.Member, *ast.ComputedMember:
		return true
	case *ast.Grouping:
		return isSimpleTarget(n.Expr)
	}
	return false
}

// checkSimpleTarget returns node if it is an identifier or property access
// and aborts with msg otherwise.
func (p *Parser) checkSimpleTarget(node ast.Node, pos token.Position, msg string) ast.Node {
	if !isSimpleTarget(node) {
		p.fail(errorf(pos, "%s", msg))
	}
	return node
}

// toTarget reinterprets the left side of "=" or the head of a for-in/for-of
// loop. Array and object literals become destructuring patterns.
func (p *Parser) toTarget(node ast.Node, pos token.Position) ast.Node {
	switch node.(type) {
	case *ast.Array, *ast.Object:
		return p.toPattern(node, false)
	}
	return p.checkSimpleTarget(node, pos, "Invalid left-hand side in assignment")
}

// toPattern reinterprets an expression as a destructuring target. In
// binding mode (declarations, parameters, catch) only names and nested
// patterns are allowed; assignment patterns also accept property accesses.
func (p *Parser) toPattern(node ast.Node, binding bool) ast.Node {
	switch n := node.(type) {
	case *ast.Property:
		if n == ast.This {
			break
		}
		return n
	case *ast.Member, *ast.ComputedMember, *ast.Grouping:
		if binding || !isSimpleTarget(n) {
			break
		}
		return n
	case *ast.Destructuring:
		return n
	case *ast.Array:
		return p.arrayPattern(n, binding)
	case *ast.Object:
		return p.objectPattern(n, binding)
	}
	p.fail(errorf(node.Pos(), "Invalid destructuring assignment target"))
	return nil
}

// element splits an element with a default value into target and default.
func (p *Parser) element(node ast.Node, binding bool) (target, def ast.Node) {
	if a, ok := node.(*ast.Assignment); ok && a.Op == token.ASSIGN {
		return p.toPattern(a.Left, binding), a.Right
	}
	return p.toPattern(node, binding), nil
}

func (p *Parser) arrayPattern(arr *ast.Array, binding bool) *ast.Destructuring {
	d := &ast.Destructuring{Base: arr.Base}
	for i, elem := range arr.Elems {
		switch e := elem.(type) {
		case *ast.Elision:
			d.Elems = append(d.Elems, &ast.PatternProperty{Target: ast.Hole})
		case *ast.Spread:
			if i != len(arr.Elems)-1 {
				p.fail(errorf(e.Pos(), "Rest element must be last element"))
			}
			if _, ok := e.Arg.(*ast.Assignment); ok {
				p.fail(errorf(e.Pos(), "Rest element may not have a default initializer"))
			}
			d.Rest = p.toPattern(e.Arg, binding)
		default:
			target, def := p.element(elem, binding)
			d.Elems = append(d.Elems, &ast.PatternProperty{Base: ast.At(elem.Pos()), Target: target, Default: def})
		}
	}
	return d
}

func (p *Parser) objectPattern(obj *ast.Object, binding bool) *ast.Destructuring {
	d := &ast.Destructuring{Base: obj.Base, Object: true}
	for i, prop := range obj.Props {
		switch prop.Kind {
		case ast.PropSpread:
			if i != len(obj.Props)-1 {
				p.fail(errorf(prop.Value.Pos(), "Rest element must be last element"))
			}
			rest := p.toPattern(prop.Value, binding)
			if _, ok := rest.(*ast.Destructuring); ok {
				p.fail(errorf(prop.Value.Pos(), "`...` must be followed by an assignable reference in assignment contexts"))
			}
			d.Rest = rest
		case ast.PropShorthand:
			delete(p.cover, prop)
			target, def := p.element(prop.Value, binding)
			d.Elems = append(d.Elems, &ast.PatternProperty{Base: ast.At(prop.Key.Pos()), Key: prop.Key, Target: target, Default: def})
		case ast.PropInit:
			target, def := p.element(prop.Value, binding)
			d.Elems = append(d.Elems, &ast.PatternProperty{Base: ast.At(prop.Key.Pos()), Key: prop.Key, Computed: prop.Computed, Target: target, Default: def})
		default:
			p.fail(errorf(prop.Value.Pos(), "Invalid destructuring assignment target"))
		}
	}
	return d
}

// toParam reinterprets one item of a parenthesized list as an arrow
// function parameter.
func (p *Parser) toParam(item ast.Node, pos ast.Base) *ast.Param {
	param := &ast.Param{Base: pos}
	if s, ok := item.(*ast.Spread); ok {
		if _, ok := s.Arg.(*ast.Assignment); ok {
			p.fail(errorf(s.Pos(), "Rest parameter may not have a default initializer"))
		}
		param.Rest = true
		param.Target = p.toPattern(s.Arg, true)
		return param
	}
	param.Target, param.Default = p.element(item, true)
	return param
}
