package parser

import (
	"math/big"

	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/lexer"
	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

// -----------------------------------------------------------------------------
// Expression parsing
//
// Grammar (lowest to highest precedence):
//   expression  = assign { "," assign }
//   assign      = conditional [ assign_op assign ] | arrow
//   conditional = pipeline [ "?" assign ":" assign ]
//   pipeline    = binary(??) { "|>" member [ args ] }
//   binary(p)   = unary { op binary(p') }   precedence climbing
//   unary       = ( "!" | "~" | "+" | "-" | typeof | void | delete | await ) unary
//               | ( "++" | "--" ) unary | postfix
//   postfix     = call [ "++" | "--" ]
//   call        = ( primary | new ) { "." name | "?." | "[" expr "]" | args | template }
// -----------------------------------------------------------------------------

// parseExpression parses a comma-separated expression list.
func (p *Parser) parseExpression() ast.Node {
	first := p.parseAssign()
	if p.tok.Type != token.COMMA {
		return first
	}
	comma := &ast.Comma{Base: ast.At(first.Pos()), Exprs: []ast.Node{first}}
	for p.tok.Type == token.COMMA {
		p.next()
		comma.Exprs = append(comma.Exprs, p.parseAssign())
	}
	return comma
}

// parseAssign parses an assignment expression (right-associative).
func (p *Parser) parseAssign() ast.Node {
	p.enter()
	defer p.leave()

	if p.tok.Type == token.YIELD {
		p.unsupported("yield is")
	}

	pos := p.pos()
	left := p.parseConditional()
	if !p.tok.Type.IsAssign() {
		return left
	}
	op := p.tok.Type
	if op == token.ASSIGN {
		left = p.toTarget(left, pos)
	} else {
		left = p.checkSimpleTarget(left, pos, "Invalid left-hand side in assignment")
	}
	p.next()
	return &ast.Assignment{Base: ast.At(pos), Op: op, Left: left, Right: p.parseAssign()}
}

// parseConditional parses the ternary operator.
func (p *Parser) parseConditional() ast.Node {
	test := p.parsePipeline()
	if p.tok.Type != token.QUESTION {
		return test
	}
	p.next()
	cond := &ast.Ternary{Base: ast.At(test.Pos()), Test: test}
	cond.Then = p.parseAssign()
	p.expect(token.COLON)
	cond.Else = p.parseAssign()
	return cond
}

// parsePipeline parses the pipeline operator. Its right side names a
// function by a member expression, optionally followed by colon arguments
// (f:a:?) or parenthesized arguments (f(a, ?)).
func (p *Parser) parsePipeline() ast.Node {
	left := p.parseBinary(token.NullishPrec)
	for p.tok.Type == token.PIPELINE {
		p.next()
		pipe := &ast.Pipeline{Base: ast.At(left.Pos()), Left: left, Index: -1, Style: ast.PipeBare}
		pipe.Func = p.parseMemberOnly()
		switch p.tok.Type {
		case token.COLON:
			pipe.Style = ast.PipeColon
			for p.tok.Type == token.COLON {
				p.next()
				p.parsePipelineArg(pipe, func() ast.Node { return p.parseBinary(token.NullishPrec) })
			}
		case token.LPAREN:
			pipe.Style = ast.PipeParen
			p.next()
			for p.tok.Type != token.RPAREN {
				p.parsePipelineArg(pipe, p.parseAssign)
				if p.tok.Type != token.RPAREN {
					p.expect(token.COMMA)
				}
			}
			p.next()
		}
		left = pipe
	}
	return left
}

// parsePipelineArg parses one pipeline argument, recording a ? or ...?
// placeholder by its index.
func (p *Parser) parsePipelineArg(pipe *ast.Pipeline, parse func() ast.Node) {
	spread := false
	if p.tok.Type == token.ELLIPSIS && p.peek().Type == token.QUESTION {
		spread = true
		p.next()
	}
	if p.tok.Type == token.QUESTION {
		if pipe.Index >= 0 {
			p.errorf("pipeline accepts a single placeholder")
		}
		pipe.Index = len(pipe.Args)
		pipe.Spread = spread
		p.next()
		return
	}
	if p.tok.Type == token.ELLIPSIS {
		pos := p.at()
		p.next()
		pipe.Args = append(pipe.Args, &ast.Spread{Base: pos, Arg: parse()})
		return
	}
	pipe.Args = append(pipe.Args, parse())
}

// parseBinary parses binary operators with precedence climbing: operators
// binding at least minPrec are consumed, left-associative operators recurse
// with prec+1 and ** with prec.
func (p *Parser) parseBinary(minPrec int) ast.Node {
	left := p.parseUnary()
	for {
		op := p.tok.Type
		prec := op.Precedence()
		if prec == token.LowestPrec || prec < minPrec {
			return left
		}
		if op == token.POW {
			switch left.(type) {
			case *ast.Unary, *ast.LiteralUnary:
				p.errorf("unary operator before exponentiation needs parentheses")
			}
		}
		p.next()
		next := prec + 1
		if op.IsRightAssoc() {
			next = prec
		}
		right := p.parseBinary(next)
		left = p.makeBinary(op, left, right)
	}
}

// makeBinary builds a logical or binary node, folding numeric literals
// when enabled.
func (p *Parser) makeBinary(op token.Token, left, right ast.Node) ast.Node {
	base := ast.At(left.Pos())
	if op.IsLogical() {
		return &ast.Logical{Base: base, Op: op, Left: left, Right: right}
	}
	if p.fold {
		if n := foldBinary(op, left, right); n != nil {
			return n
		}
	}
	return &ast.Binary{Base: base, Op: op, Left: left, Right: right}
}

// parseUnary parses prefix operators.
func (p *Parser) parseUnary() ast.Node {
	p.enter()
	defer p.leave()

	pos := p.at()
	switch op := p.tok.Type; op {
	case token.NOT, token.BITNOT, token.ADD, token.SUB:
		p.next()
		return &ast.Unary{Base: pos, Op: op, Operand: p.parseUnary()}

	case token.TYPEOF, token.VOID, token.DELETE, token.AWAIT:
		p.next()
		return &ast.LiteralUnary{Base: pos, Op: op, Operand: p.parseUnary()}

	case token.INC, token.DEC:
		p.next()
		operandPos := p.pos()
		operand := p.checkSimpleTarget(p.parseUnary(), operandPos, "Invalid left-hand side expression in prefix operation")
		return &ast.Update{Base: pos, Op: op, Prefix: true, Operand: operand}
	}
	return p.parsePostfix()
}

// parsePostfix parses ++ and -- after an operand on the same line.
func (p *Parser) parsePostfix() ast.Node {
	pos := p.pos()
	expr := p.parseCall()
	if p.match(token.INC, token.DEC) && !p.tok.NewlineBefore {
		op := p.tok.Type
		expr = p.checkSimpleTarget(expr, pos, "Invalid left-hand side expression in postfix operation")
		p.next()
		return &ast.Update{Base: ast.At(pos), Op: op, Operand: expr}
	}
	return expr
}

// parseCall parses member accesses, calls, tagged templates and optional
// chains. A chain containing ?. is wrapped in *ast.OptionalChain.
func (p *Parser) parseCall() ast.Node {
	var expr ast.Node
	if p.tok.Type == token.NEW {
		expr = p.parseNew()
	} else {
		expr = p.parsePrimary()
	}
	if _, ok := expr.(*ast.Arrow); ok {
		return expr
	}
	pos := ast.At(expr.Pos())

	chained := false
	for {
		switch p.tok.Type {
		case token.PERIOD:
			p.next()
			expr = &ast.Member{Base: pos, Object: expr, Name: p.parsePropertyName()}

		case token.OPTIONAL:
			chained = true
			p.next()
			switch p.tok.Type {
			case token.LBRACKET:
				expr = &ast.ComputedMember{Base: pos, Object: expr, Key: p.parseIndex(), Optional: true}
			case token.LPAREN:
				expr = &ast.Call{Base: pos, Callee: expr, Args: p.parseArgs(), Optional: true}
			case token.TEMPLATE:
				p.errorf("Invalid tagged template on optional chain")
			default:
				if !p.isPropertyName() {
					p.fail(expectedError(p.pos(), "property name after ?.", p.tokenDesc()))
				}
				expr = &ast.Member{Base: pos, Object: expr, Name: p.parsePropertyName(), Optional: true}
			}

		case token.LBRACKET:
			expr = &ast.ComputedMember{Base: pos, Object: expr, Key: p.parseIndex()}

		case token.LPAREN:
			if id, ok := expr.(*ast.Property); ok && id.Name == "eval" {
				p.unsupported("'eval(...)' is")
			}
			expr = &ast.Call{Base: pos, Callee: expr, Args: p.parseArgs()}

		case token.TEMPLATE:
			if chained {
				p.errorf("Invalid tagged template on optional chain")
			}
			expr = p.parseTemplate(expr)

		default:
			if chained {
				return &ast.OptionalChain{Base: pos, Expr: expr}
			}
			return expr
		}
	}
}

// parseMemberOnly parses a primary expression followed by property
// accesses but no calls. It names the function of a pipeline stage and the
// callee of new.
func (p *Parser) parseMemberOnly() ast.Node {
	var expr ast.Node
	if p.tok.Type == token.NEW {
		expr = p.parseNew()
	} else {
		expr = p.parsePrimary()
	}
	pos := ast.At(expr.Pos())
	for {
		switch p.tok.Type {
		case token.PERIOD:
			p.next()
			expr = &ast.Member{Base: pos, Object: expr, Name: p.parsePropertyName()}
		case token.LBRACKET:
			expr = &ast.ComputedMember{Base: pos, Object: expr, Key: p.parseIndex()}
		case token.TEMPLATE:
			expr = p.parseTemplate(expr)
		case token.OPTIONAL:
			p.errorf("Invalid optional chain in this position")
		default:
			return expr
		}
	}
}

// parseNew parses a new expression. The argument list is optional.
func (p *Parser) parseNew() ast.Node {
	n := &ast.New{Base: p.at()}
	p.expect(token.NEW)
	if p.tok.Type == token.PERIOD {
		p.unsupported("new.target is")
	}
	if p.tok.Type == token.SUPER {
		p.unsupported("super is")
	}
	if p.tok.Type == token.IMPORT {
		p.unsupported("import() is")
	}
	n.Callee = p.parseMemberOnly()
	if p.tok.Type == token.LPAREN {
		n.Args = p.parseArgs()
	}
	return n
}

// parsePropertyName parses the name after a dot. Keywords are allowed.
func (p *Parser) parsePropertyName() string {
	if p.tok.Type == token.HASH {
		p.unsupported("private names are")
	}
	if !p.isPropertyName() {
		p.fail(expectedError(p.pos(), "property name", p.tokenDesc()))
	}
	name := p.name()
	p.next()
	return name
}

// parseIndex parses a bracketed key.
func (p *Parser) parseIndex() ast.Node {
	p.expect(token.LBRACKET)
	key := p.parseExpression()
	p.expect(token.RBRACKET)
	return key
}

// parseArgs parses a parenthesized argument list with spread arguments.
func (p *Parser) parseArgs() []ast.Node {
	p.expect(token.LPAREN)
	var args []ast.Node
	for p.tok.Type != token.RPAREN {
		args = append(args, p.parseElement())
		if p.tok.Type != token.RPAREN {
			p.expect(token.COMMA)
		}
	}
	p.next()
	return args
}

// parseElement parses an argument or array element, which may be spread.
func (p *Parser) parseElement() ast.Node {
	if p.tok.Type == token.ELLIPSIS {
		pos := p.at()
		p.next()
		return &ast.Spread{Base: pos, Arg: p.parseAssign()}
	}
	return p.parseAssign()
}

// -----------------------------------------------------------------------------
// Primary expressions
// -----------------------------------------------------------------------------

// parsePrimary parses literals, names, grouping, array and object literals
// and function expressions.
func (p *Parser) parsePrimary() ast.Node {
	pos := p.at()
	switch p.tok.Type {
	case token.IDENT, token.OF:
		name := p.name()
		if next := p.peek(); next.Type == token.ARROW {
			p.next()
			return p.parseArrowBody(pos, []*ast.Param{{Base: pos, Target: &ast.Property{Base: pos, Name: name}}}, false)
		}
		p.next()
		return &ast.Property{Base: pos, Name: name}

	case token.ASYNC:
		return p.parseAsync()

	case token.THIS:
		p.next()
		return ast.This
	case token.TRUE:
		p.next()
		return ast.True
	case token.FALSE:
		p.next()
		return ast.False
	case token.NULL:
		p.next()
		return ast.Null
	case token.UNDEFINED:
		p.next()
		return ast.Undefined

	case token.NUMBER:
		n := &ast.Number{Base: pos, Value: types.ParseNumber(p.tok.Value), Raw: p.tok.Raw}
		p.next()
		return n

	case token.BIGINT:
		v, ok := new(big.Int).SetString(p.tok.Value, 0)
		if !ok {
			p.fail(lexicalError(p.pos(), "Invalid BigInt literal "+p.tok.Raw))
		}
		n := &ast.BigInt{Base: pos, Value: v, Raw: p.tok.Raw}
		p.next()
		return n

	case token.STRING:
		s := &ast.Str{Base: pos, Value: p.tok.Value, Raw: p.tok.Raw}
		p.next()
		return s

	case token.TEMPLATE:
		return p.parseTemplate(nil)

	case token.REGEX:
		rx, err := runtime.NewRegExp(p.tok.Value, p.tok.Flags)
		if err != nil {
			p.fail(lexicalError(p.pos(), "Invalid regular expression: "+p.tok.Raw+": "+err.Error()))
		}
		if p.logger != nil && rx.UsesFallback() {
			p.logger.Debug("regexp uses backtracking engine", "pattern", rx.Source, "flags", rx.Flags, "pos", p.pos().String())
		}
		re := &ast.RegExp{Base: pos, Source: p.tok.Value, Flags: p.tok.Flags}
		p.next()
		return re

	case token.LPAREN:
		return p.parseParenthesized(pos, false)

	case token.LBRACKET:
		return p.parseArray()

	case token.LBRACE:
		return p.parseObject()

	case token.FUNCTION:
		return p.parseFunction(false, false)

	case token.CLASS:
		p.unsupported("class is")
	case token.YIELD:
		p.unsupported("yield is")
	case token.SUPER:
		p.unsupported("super is")
	case token.IMPORT:
		p.unsupported("import() is")
	case token.HASH:
		p.unsupported("private names are")
	case token.AT:
		p.unsupported("decorators are")
	}
	p.unexpected()
	return nil
}

// parseAsync parses async function expressions, async arrows and a plain
// identifier named async.
func (p *Parser) parseAsync() ast.Node {
	pos := p.at()
	next := p.peek()
	switch {
	case next.Type == token.FUNCTION && !next.NewlineBefore:
		p.next()
		return p.parseFunction(true, false)

	case (next.Type == token.IDENT || next.Type == token.OF) && !next.NewlineBefore && p.stream.PeekAhead(2).Type == token.ARROW:
		p.next()
		param := &ast.Param{Base: p.at(), Target: &ast.Property{Base: p.at(), Name: p.name()}}
		p.next()
		return p.parseArrowBody(pos, []*ast.Param{param}, true)

	case next.Type == token.LPAREN && !next.NewlineBefore:
		p.next()
		return p.parseParenthesized(pos, true)
	}
	p.next()
	return &ast.Property{Base: pos, Name: "async"}
}

// parseParenthesized parses a parenthesized expression, or the parameter
// list of an arrow function when => follows the closing parenthesis. The
// contents are parsed eagerly as expressions and reinterpreted as
// parameters afterwards. With async set, a list not followed by => is a
// call of a function named async.
func (p *Parser) parseParenthesized(pos ast.Base, async bool) ast.Node {
	p.expect(token.LPAREN)

	var items []ast.Node
	var itemPos []ast.Base
	restAt := -1
	trailing := false
	for p.tok.Type != token.RPAREN {
		itemPos = append(itemPos, p.at())
		if p.tok.Type == token.ELLIPSIS {
			if restAt < 0 {
				restAt = len(items)
			}
			items = append(items, p.parseElement())
		} else {
			items = append(items, p.parseAssign())
		}
		if p.tok.Type == token.RPAREN {
			break
		}
		p.expect(token.COMMA)
		if p.tok.Type == token.RPAREN {
			trailing = true
		}
	}
	p.next()

	if p.tok.Type == token.ARROW {
		if restAt >= 0 && (restAt != len(items)-1 || trailing) {
			p.fail(errorf(itemPos[restAt].Pos(), "Rest parameter must be last formal parameter"))
		}
		params := make([]*ast.Param, len(items))
		for i, item := range items {
			params[i] = p.toParam(item, itemPos[i])
		}
		return p.parseArrowBody(pos, params, async)
	}

	if async {
		return &ast.Call{Base: pos, Callee: &ast.Property{Base: pos, Name: "async"}, Args: items}
	}
	switch {
	case len(items) == 0:
		p.fail(expectedError(p.pos(), "=>", p.tokenDesc()))
	case restAt >= 0:
		p.fail(errorf(itemPos[restAt].Pos(), "unexpected token ..."))
	case trailing:
		p.fail(errorf(p.pos(), "unexpected token )"))
	}
	if len(items) == 1 {
		return &ast.Grouping{Base: pos, Expr: items[0]}
	}
	return &ast.Grouping{Base: pos, Expr: &ast.Comma{Base: itemPos[0], Exprs: items}}
}

// parseArray parses an array literal with holes and spread elements.
func (p *Parser) parseArray() *ast.Array {
	arr := &ast.Array{Base: p.at()}
	p.expect(token.LBRACKET)
	for p.tok.Type != token.RBRACKET {
		if p.tok.Type == token.COMMA {
			arr.Elems = append(arr.Elems, ast.Hole)
			p.next()
			continue
		}
		arr.Elems = append(arr.Elems, p.parseElement())
		if p.tok.Type != token.RBRACKET {
			p.expect(token.COMMA)
		}
	}
	p.next()
	return arr
}

// parseObject parses an object literal.
func (p *Parser) parseObject() *ast.Object {
	obj := &ast.Object{Base: p.at()}
	p.expect(token.LBRACE)
	for p.tok.Type != token.RBRACE {
		obj.Props = append(obj.Props, p.parseObjectProperty())
		if p.tok.Type != token.RBRACE {
			p.expect(token.COMMA)
		}
	}
	p.next()
	return obj
}

// parseObjectProperty parses one member of an object literal.
func (p *Parser) parseObjectProperty() *ast.ObjectProperty {
	if p.tok.Type == token.ELLIPSIS {
		p.next()
		return &ast.ObjectProperty{Kind: ast.PropSpread, Value: p.parseAssign()}
	}
	if p.tok.Type == token.MUL {
		p.unsupported("generator methods are")
	}

	// get, set and async prefix a method when a property name follows.
	if p.tok.Type == token.IDENT && (p.tok.Value == "get" || p.tok.Value == "set") || p.tok.Type == token.ASYNC {
		if startsKey(p.peek()) && !(p.tok.Type == token.ASYNC && p.peek().NewlineBefore) {
			prefix := p.tok
			p.next()
			if p.tok.Type == token.MUL {
				p.unsupported("generator methods are")
			}
			key, computed := p.parsePropertyKey()
			prop := &ast.ObjectProperty{Key: key, Computed: computed}
			switch {
			case prefix.Type == token.ASYNC:
				prop.Kind = ast.PropMethod
				prop.Value = p.parseMethod(true)
			case prefix.Value == "get":
				prop.Kind = ast.PropGet
				fn := p.parseMethod(false)
				if len(fn.Params) != 0 {
					p.fail(errorf(fn.Pos(), "Getter must not have any formal parameters"))
				}
				prop.Value = fn
			default:
				prop.Kind = ast.PropSet
				fn := p.parseMethod(false)
				if len(fn.Params) != 1 || fn.Params[0].Rest {
					p.fail(errorf(fn.Pos(), "Setter must have exactly one formal parameter"))
				}
				prop.Value = fn
			}
			return prop
		}
	}

	keyTok := p.tok
	key, computed := p.parsePropertyKey()
	prop := &ast.ObjectProperty{Key: key, Computed: computed}
	switch p.tok.Type {
	case token.COLON:
		p.next()
		prop.Kind = ast.PropInit
		prop.Value = p.parseAssign()
		return prop
	case token.LPAREN:
		prop.Kind = ast.PropMethod
		prop.Value = p.parseMethod(false)
		return prop
	}

	// Shorthand: only plain names qualify.
	name, ok := key.(*ast.Property)
	if computed || !ok || !(keyTok.Type == token.IDENT || keyTok.Type.IsContextual() && keyTok.Type != token.UNDEFINED) {
		p.fail(expectedError(p.pos(), ":", p.tokenDesc()))
	}
	prop.Kind = ast.PropShorthand
	value := &ast.Property{Base: name.Base, Name: name.Name}
	if p.tok.Type == token.ASSIGN {
		assignPos := p.pos()
		p.next()
		prop.Value = &ast.Assignment{Base: name.Base, Op: token.ASSIGN, Left: value, Right: p.parseAssign()}
		p.cover[prop] = assignPos
		return prop
	}
	prop.Value = value
	return prop
}

// startsKey reports whether tok can begin a property key.
func startsKey(tok lexer.Token) bool {
	switch tok.Type {
	case token.IDENT, token.STRING, token.NUMBER, token.BIGINT, token.LBRACKET:
		return true
	}
	return tok.Type.IsKeyword()
}

// parsePropertyKey parses a property name: an identifier or keyword, a
// string, a number or a computed [expr].
func (p *Parser) parsePropertyKey() (key ast.Node, computed bool) {
	pos := p.at()
	switch {
	case p.tok.Type == token.LBRACKET:
		p.next()
		key = p.parseAssign()
		p.expect(token.RBRACKET)
		return key, true
	case p.tok.Type == token.STRING:
		key = &ast.Str{Base: pos, Value: p.tok.Value, Raw: p.tok.Raw}
	case p.tok.Type == token.NUMBER:
		key = &ast.Number{Base: pos, Value: types.ParseNumber(p.tok.Value), Raw: p.tok.Raw}
	case p.tok.Type == token.BIGINT:
		v, ok := new(big.Int).SetString(p.tok.Value, 0)
		if !ok {
			p.fail(lexicalError(p.pos(), "Invalid BigInt literal "+p.tok.Raw))
		}
		key = &ast.BigInt{Base: pos, Value: v, Raw: p.tok.Raw}
	case p.tok.Type == token.HASH:
		p.unsupported("private names are")
	case p.isPropertyName():
		key = &ast.Property{Base: pos, Name: p.name()}
	default:
		if p.tok.Type == token.EOF {
			p.unexpected()
		}
		p.fail(expectedError(p.pos(), "property name", p.tokenDesc()))
	}
	p.next()
	return key, false
}

// parseTemplate parses a template literal. The substitutions are parsed
// from their source text with positions mapped into the enclosing source.
func (p *Parser) parseTemplate(callee ast.Node) *ast.Template {
	pos := p.at()
	if callee != nil {
		pos = ast.At(callee.Pos())
	}
	tpl := p.tok.Template
	n := &ast.Template{Base: pos, Callee: callee, Cooked: tpl.Cooked, Raw: tpl.Raw}
	for _, s := range tpl.Exprs {
		n.Exprs = append(n.Exprs, p.parseSubstitution(s))
	}
	p.next()
	return n
}

// parseSubstitution parses the expression of one ${...} part.
func (p *Parser) parseSubstitution(s lexer.Substitution) ast.Node {
	child := p.sub(s.Src, s.Pos.Relative(p.base))
	if child.tok.Type == token.EOF {
		child.unexpected()
	}
	expr := child.parseExpression()
	if child.tok.Type != token.EOF {
		child.fail(expectedError(child.pos(), "}", child.tokenDesc()))
	}
	return expr
}
