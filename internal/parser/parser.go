package parser

import (
	"log/slog"

	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/lexer"
	"github.com/kolkov/uexpr/internal/token"
)

// DefaultMaxDepth bounds the nesting of statements and expressions.
const DefaultMaxDepth = 2000

// Parser is a recursive descent parser for the JavaScript expression subset.
// A Parser stops at the first error.
type Parser struct {
	stream *lexer.Stream // Token source with lookahead and rewind
	tok    lexer.Token   // Current token

	// base is the position of the first source character in the enclosing
	// source. It is set when parsing template substitutions.
	base token.Position

	depth    int  // current nesting depth
	maxDepth int  // nesting limit
	fold     bool // fold numeric literal operations

	logger *slog.Logger // receives regular expression engine records; may be nil

	// cover holds object literal shorthands written with an initializer
	// ({a = 1}). They are only valid once reinterpreted as patterns.
	cover map[*ast.ObjectProperty]token.Position
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth sets the nesting limit. Values below one keep the default.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// WithConstantFolding folds binary operations on numeric literals into a
// single number while parsing. The printed source then shows the folded
// value.
func WithConstantFolding() Option {
	return func(p *Parser) {
		p.fold = true
	}
}

// WithLogger sends a debug record to l for each regular expression literal
// that needs the backtracking engine.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// Parse parses source text into a node tree. A single statement is
// returned as is; several statements are wrapped in *ast.Statements.
func Parse(src string, opts ...Option) (node ast.Node, err error) {
	p := &Parser{
		maxDepth: DefaultMaxDepth,
		cover:    make(map[*ast.ObjectProperty]token.Position),
	}
	for _, opt := range opts {
		opt(p)
	}

	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			node, err = nil, b.err
		}
	}()

	p.init(src)
	node = p.parseProgram()
	p.checkCover()
	return node, nil
}

// init positions the parser on the first token of src.
func (p *Parser) init(src string) {
	p.stream = lexer.NewStream(src)
	p.tok = p.stream.Current()
	p.checkIllegal()
}

// sub returns a parser for an embedded fragment that starts at pos.
func (p *Parser) sub(src string, pos token.Position) *Parser {
	child := &Parser{
		base:     pos,
		depth:    p.depth,
		maxDepth: p.maxDepth,
		fold:     p.fold,
		cover:    p.cover,
	}
	child.init(src)
	return child
}

// -----------------------------------------------------------------------------
// Token handling
// -----------------------------------------------------------------------------

// next advances to the next token.
func (p *Parser) next() {
	p.tok = p.stream.Next()
	p.checkIllegal()
}

// peek returns the token after the current one.
func (p *Parser) peek() lexer.Token {
	return p.stream.Peek()
}

// checkIllegal turns an ILLEGAL token into a lexical error.
func (p *Parser) checkIllegal() {
	if p.tok.Type == token.ILLEGAL {
		p.fail(lexicalError(p.pos(), p.tok.Value))
	}
}

// pos returns the position of the current token.
func (p *Parser) pos() token.Position {
	return p.posOf(p.tok)
}

// posOf translates a token position into the enclosing source.
func (p *Parser) posOf(tok lexer.Token) token.Position {
	return tok.Pos.Relative(p.base)
}

// at returns the node base for the current token.
func (p *Parser) at() ast.Base {
	return ast.At(p.pos())
}

// expect checks that the current token is tok and advances.
func (p *Parser) expect(tok token.Token) {
	if p.tok.Type != tok {
		p.fail(expectedError(p.pos(), tok.String(), p.tokenDesc()))
	}
	p.next()
}

// match returns true if current token matches any of the given types.
func (p *Parser) match(types ...token.Token) bool {
	for _, t := range types {
		if p.tok.Type == t {
			return true
		}
	}
	return false
}

// tokenDesc returns a description of the current token for error messages.
func (p *Parser) tokenDesc() string {
	return describe(p.tok)
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT:
		return tok.Value
	case token.NUMBER, token.BIGINT, token.STRING, token.TEMPLATE, token.REGEX:
		return tok.Raw
	}
	return tok.Type.String()
}

// fail aborts the parse with err.
func (p *Parser) fail(err *ParseError) {
	panic(bailout{err})
}

// errorf aborts with a formatted syntax error at the current position.
func (p *Parser) errorf(format string, args ...any) {
	p.fail(errorf(p.pos(), format, args...))
}

// unexpected aborts on the current token.
func (p *Parser) unexpected() {
	if p.tok.Type == token.EOF {
		err := errorf(p.pos(), "unexpected end of input")
		err.Got = "end of input"
		p.fail(err)
	}
	err := errorf(p.pos(), "unexpected token %s", p.tokenDesc())
	err.Got = p.tokenDesc()
	p.fail(err)
}

// unsupported aborts with an unsupported-construct error.
func (p *Parser) unsupported(what string) {
	p.fail(unsupportedError(p.pos(), what))
}

// enter tracks recursion and aborts past the nesting limit.
func (p *Parser) enter() {
	p.depth++
	if p.depth > p.maxDepth {
		p.errorf("expression nested too deeply")
	}
}

func (p *Parser) leave() {
	p.depth--
}

// isName reports whether the current token can serve as a binding or
// variable name.
func (p *Parser) isName() bool {
	return p.tok.Type == token.IDENT || (p.tok.Type.IsContextual() && p.tok.Type != token.UNDEFINED)
}

// name returns the identifier spelling of the current token.
func (p *Parser) name() string {
	if p.tok.Type == token.IDENT {
		return p.tok.Value
	}
	return p.tok.Type.String()
}

// isPropertyName reports whether the current token can follow a dot.
func (p *Parser) isPropertyName() bool {
	return p.tok.Type == token.IDENT || p.tok.Type.IsKeyword()
}

// semicolon consumes a statement terminator, applying automatic semicolon
// insertion before a closing brace, at the end of input and after a line
// break.
func (p *Parser) semicolon() {
	switch {
	case p.tok.Type == token.SEMICOLON:
		p.next()
	case p.match(token.RBRACE, token.EOF), p.tok.NewlineBefore:
	default:
		p.fail(expectedError(p.pos(), ";", p.tokenDesc()))
	}
}

// checkCover reports the first shorthand initializer that never became part
// of a pattern.
func (p *Parser) checkCover() {
	var first token.Position
	for _, pos := range p.cover {
		if !first.IsValid() || pos.Before(first) {
			first = pos
		}
	}
	if first.IsValid() {
		p.fail(errorf(first, "Invalid shorthand property initializer"))
	}
}

// -----------------------------------------------------------------------------
// Program parsing
// -----------------------------------------------------------------------------

// parseProgram parses a statement list up to the end of input.
func (p *Parser) parseProgram() ast.Node {
	pos := p.at()
	var body []ast.Node
	for p.tok.Type != token.EOF {
		body = append(body, p.parseStatement())
	}
	if len(body) == 1 {
		return body[0]
	}
	return &ast.Statements{Base: pos, Body: body}
}

// parseStatementList parses statements until one of the stop tokens.
func (p *Parser) parseStatementList(stop ...token.Token) []ast.Node {
	var body []ast.Node
	for !p.match(stop...) {
		if p.tok.Type == token.EOF {
			p.unexpected()
		}
		body = append(body, p.parseStatement())
	}
	return body
}

// parseBlock parses a braced statement list.
func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Base: p.at()}
	p.expect(token.LBRACE)
	block.Body = p.parseStatementList(token.RBRACE)
	p.expect(token.RBRACE)
	return block
}

// -----------------------------------------------------------------------------
// Statement parsing
// -----------------------------------------------------------------------------

// parseStatement parses a single statement.
func (p *Parser) parseStatement() ast.Node {
	p.enter()
	defer p.leave()

	switch p.tok.Type {
	case token.LBRACE:
		if p.destructuringAhead() {
			return p.parseExpressionStatement()
		}
		return p.parseBlock()

	case token.SEMICOLON:
		p.next()
		return ast.EmptyStatement

	case token.VAR, token.LET, token.CONST:
		decl := p.parseDeclaration(false)
		p.semicolon()
		return decl

	case token.FUNCTION:
		return p.parseFunction(false, true)

	case token.ASYNC:
		if next := p.peek(); next.Type == token.FUNCTION && !next.NewlineBefore {
			p.next()
			return p.parseFunction(true, true)
		}

	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.SWITCH:
		return p.parseSwitch()
	case token.TRY:
		return p.parseTry()
	case token.THROW:
		return p.parseThrow()
	case token.RETURN:
		return p.parseReturn()

	case token.BREAK, token.CONTINUE:
		stmt := ast.Break
		if p.tok.Type == token.CONTINUE {
			stmt = ast.Continue
		}
		p.next()
		if p.isName() && !p.tok.NewlineBefore {
			p.unsupported("labels are")
		}
		p.semicolon()
		return stmt

	case token.CLASS:
		p.unsupported("class is")
	case token.WITH:
		p.unsupported("with is")
	case token.DEBUGGER:
		p.unsupported("debugger is")
	case token.EXPORT:
		p.unsupported("export is")
	case token.IMPORT:
		if p.peek().Type != token.LPAREN && p.peek().Type != token.PERIOD {
			p.unsupported("import declarations are")
		}

	case token.IDENT:
		if p.peek().Type == token.COLON {
			p.unsupported("labels are")
		}
	}

	return p.parseExpressionStatement()
}

// parseExpressionStatement parses an expression followed by a terminator.
func (p *Parser) parseExpressionStatement() ast.Node {
	expr := p.parseExpression()
	p.semicolon()
	return expr
}

// destructuringAhead reports whether the braces starting at the current
// token are followed by "=", which makes them an object pattern rather
// than a block. The stream is rewound afterwards.
func (p *Parser) destructuringAhead() bool {
	mark := p.stream.Save()
	defer p.stream.Restore(mark)

	depth := 0
	for tok := p.stream.Current(); ; tok = p.stream.Next() {
		switch tok.Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
			if depth == 0 {
				return p.stream.Next().Type == token.ASSIGN
			}
		case token.EOF, token.ILLEGAL:
			return false
		}
	}
}

// parseDeclaration parses var, let and const declarations. In a for header
// the initializer of const may be missing.
func (p *Parser) parseDeclaration(inFor bool) *ast.Declaration {
	pos := p.at()
	kind := p.tok.Type
	p.next()
	return p.parseDeclarators(pos, kind, p.parseBindingTarget(), inFor)
}

// parseDeclarators continues a declaration whose first target is parsed.
func (p *Parser) parseDeclarators(pos ast.Base, kind token.Token, target ast.Node, inFor bool) *ast.Declaration {
	decl := &ast.Declaration{Base: pos, Kind: kind}
	for {
		d := &ast.Declarator{Target: target}
		if p.tok.Type == token.ASSIGN {
			p.next()
			d.Init = p.parseAssign()
		} else if !inFor {
			if kind == token.CONST {
				p.errorf("Missing initializer in const declaration")
			}
			if _, ok := target.(*ast.Destructuring); ok {
				p.errorf("Missing initializer in destructuring declaration")
			}
		}
		decl.Decls = append(decl.Decls, d)
		if p.tok.Type != token.COMMA {
			return decl
		}
		p.next()
		target = p.parseBindingTarget()
	}
}

// parseBindingTarget parses an identifier or a destructuring pattern in a
// declaration, parameter list or catch clause.
func (p *Parser) parseBindingTarget() ast.Node {
	switch {
	case p.isName():
		prop := &ast.Property{Base: p.at(), Name: p.name()}
		p.next()
		return prop
	case p.match(token.LBRACKET, token.LBRACE):
		return p.toPattern(p.parsePrimary(), true)
	case p.tok.Type == token.YIELD:
		p.unsupported("yield is")
	case p.tok.Type == token.EOF:
		p.unexpected()
	}
	p.fail(expectedError(p.pos(), "binding name", p.tokenDesc()))
	return nil
}

// parseIf parses an if statement.
func (p *Parser) parseIf() *ast.If {
	stmt := &ast.If{Base: p.at()}
	p.expect(token.IF)
	p.expect(token.LPAREN)
	stmt.Test = p.parseExpression()
	p.expect(token.RPAREN)
	stmt.Then = p.parseStatement()
	if p.tok.Type == token.ELSE {
		p.next()
		stmt.Else = p.parseStatement()
	}
	return stmt
}

// parseWhile parses a while loop.
func (p *Parser) parseWhile() *ast.While {
	stmt := &ast.While{Base: p.at()}
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	stmt.Test = p.parseExpression()
	p.expect(token.RPAREN)
	stmt.Body = p.parseStatement()
	return stmt
}

// parseDoWhile parses a do-while loop. The trailing semicolon is optional.
func (p *Parser) parseDoWhile() *ast.While {
	stmt := &ast.While{Base: p.at(), Do: true}
	p.expect(token.DO)
	stmt.Body = p.parseStatement()
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	stmt.Test = p.parseExpression()
	p.expect(token.RPAREN)
	if p.tok.Type == token.SEMICOLON {
		p.next()
	}
	return stmt
}

// parseFor parses the classic, for-in, for-of and for-await-of loops. An
// expression initializer is parsed generically and reinterpreted when it
// turns out to be a for-in or for-of header.
func (p *Parser) parseFor() ast.Node {
	pos := p.at()
	p.expect(token.FOR)
	await := false
	if p.tok.Type == token.AWAIT {
		await = true
		p.next()
	}
	p.expect(token.LPAREN)

	var init ast.Node
	switch {
	case p.tok.Type == token.SEMICOLON:

	case p.match(token.VAR, token.LET, token.CONST):
		declPos := p.at()
		kind := p.tok.Type
		p.next()
		target := p.parseBindingTarget()
		if p.match(token.OF, token.IN) {
			return p.parseForEach(pos, await, kind, target)
		}
		init = p.parseDeclarators(declPos, kind, target, true)
		for _, d := range init.(*ast.Declaration).Decls {
			if d.Init == nil && kind == token.CONST {
				p.errorf("Missing initializer in const declaration")
			}
		}

	default:
		initPos := p.pos()
		expr := p.parseExpression()
		if p.tok.Type == token.OF {
			return p.parseForEach(pos, await, token.ILLEGAL, p.toTarget(expr, initPos))
		}
		if bin, ok := expr.(*ast.Binary); ok && bin.Op == token.IN {
			if await {
				p.errorf("for await requires an of clause")
			}
			loop := &ast.ForIn{Base: pos, Kind: token.ILLEGAL, Object: bin.Right}
			loop.Target = p.toTarget(bin.Left, initPos)
			p.expect(token.RPAREN)
			loop.Body = p.parseStatement()
			return loop
		}
		init = expr
	}

	if await {
		p.errorf("for await requires an of clause")
	}
	loop := &ast.For{Base: pos, Init: init}
	p.expect(token.SEMICOLON)
	if p.tok.Type != token.SEMICOLON {
		loop.Test = p.parseExpression()
	}
	p.expect(token.SEMICOLON)
	if p.tok.Type != token.RPAREN {
		loop.Update = p.parseExpression()
	}
	p.expect(token.RPAREN)
	loop.Body = p.parseStatement()
	return loop
}

// parseForEach finishes a for-in or for-of loop after its target. Kind is
// ILLEGAL for an assignment target.
func (p *Parser) parseForEach(pos ast.Base, await bool, kind token.Token, target ast.Node) ast.Node {
	if p.tok.Type == token.IN {
		if await {
			p.errorf("for await requires an of clause")
		}
		p.next()
		loop := &ast.ForIn{Base: pos, Kind: kind, Target: target, Object: p.parseExpression()}
		p.expect(token.RPAREN)
		loop.Body = p.parseStatement()
		return loop
	}
	p.expect(token.OF)
	loop := &ast.ForOf{Base: pos, Kind: kind, Target: target, Iterable: p.parseAssign(), Await: await}
	p.expect(token.RPAREN)
	loop.Body = p.parseStatement()
	return loop
}

// parseSwitch parses a switch statement.
func (p *Parser) parseSwitch() *ast.Switch {
	stmt := &ast.Switch{Base: p.at()}
	p.expect(token.SWITCH)
	p.expect(token.LPAREN)
	stmt.Discriminant = p.parseExpression()
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)

	hasDefault := false
	for p.tok.Type != token.RBRACE {
		c := &ast.Case{Base: p.at()}
		switch p.tok.Type {
		case token.CASE:
			p.next()
			c.Test = p.parseExpression()
		case token.DEFAULT:
			if hasDefault {
				p.errorf("Multiple defaults in switch")
			}
			hasDefault = true
			p.next()
		case token.EOF:
			p.unexpected()
		default:
			p.fail(expectedError(p.pos(), "case or default", p.tokenDesc()))
		}
		p.expect(token.COLON)
		c.Body = p.parseStatementList(token.CASE, token.DEFAULT, token.RBRACE)
		stmt.Cases = append(stmt.Cases, c)
	}
	p.next()
	return stmt
}

// parseTry parses try/catch/finally.
func (p *Parser) parseTry() *ast.Try {
	stmt := &ast.Try{Base: p.at()}
	p.expect(token.TRY)
	stmt.Block = p.parseBlock()
	if p.tok.Type == token.CATCH {
		p.next()
		if p.tok.Type == token.LPAREN {
			p.next()
			stmt.Param = p.parseBindingTarget()
			p.expect(token.RPAREN)
		}
		stmt.Handler = p.parseBlock()
	}
	if p.tok.Type == token.FINALLY {
		p.next()
		stmt.Finalizer = p.parseBlock()
	}
	if stmt.Handler == nil && stmt.Finalizer == nil {
		p.errorf("Missing catch or finally after try")
	}
	return stmt
}

// parseThrow parses a throw statement. A line break may not follow throw.
func (p *Parser) parseThrow() *ast.Throw {
	stmt := &ast.Throw{Base: p.at()}
	p.expect(token.THROW)
	if p.tok.NewlineBefore {
		p.errorf("Illegal newline after throw")
	}
	stmt.Arg = p.parseExpression()
	p.semicolon()
	return stmt
}

// parseReturn parses a return statement. A line break ends it.
func (p *Parser) parseReturn() *ast.Return {
	stmt := &ast.Return{Base: p.at()}
	p.expect(token.RETURN)
	if !p.match(token.SEMICOLON, token.RBRACE, token.EOF) && !p.tok.NewlineBefore {
		stmt.Arg = p.parseExpression()
	}
	p.semicolon()
	return stmt
}

// -----------------------------------------------------------------------------
// Functions
// -----------------------------------------------------------------------------

// parseFunction parses a function declaration or expression starting at
// the function keyword.
func (p *Parser) parseFunction(async, decl bool) *ast.Function {
	fn := &ast.Function{Base: p.at(), Async: async, Decl: decl}
	p.expect(token.FUNCTION)
	if p.tok.Type == token.MUL {
		p.unsupported("generator functions are")
	}
	if p.isName() {
		fn.Name = p.name()
		p.next()
	} else if decl {
		p.fail(expectedError(p.pos(), "function name", p.tokenDesc()))
	}
	fn.Params = p.parseParams()
	fn.Body = p.parseBlock()
	return fn
}

// parseMethod parses the parameter list and body of an object literal
// method or accessor.
func (p *Parser) parseMethod(async bool) *ast.Function {
	fn := &ast.Function{Base: p.at(), Async: async}
	fn.Params = p.parseParams()
	fn.Body = p.parseBlock()
	return fn
}

// parseParams parses a parenthesized formal parameter list.
func (p *Parser) parseParams() []*ast.Param {
	p.expect(token.LPAREN)
	var params []*ast.Param
	for p.tok.Type != token.RPAREN {
		param := &ast.Param{Base: p.at()}
		if p.tok.Type == token.ELLIPSIS {
			p.next()
			param.Rest = true
			param.Target = p.parseBindingTarget()
			if p.tok.Type == token.ASSIGN {
				p.errorf("Rest parameter may not have a default initializer")
			}
			if p.tok.Type == token.COMMA {
				p.errorf("Rest parameter must be last formal parameter")
			}
		} else {
			param.Target = p.parseBindingTarget()
			if p.tok.Type == token.ASSIGN {
				p.next()
				param.Default = p.parseAssign()
			}
		}
		params = append(params, param)
		if p.tok.Type != token.RPAREN {
			p.expect(token.COMMA)
		}
	}
	p.next()
	return params
}

// parseArrowBody parses the body of an arrow function: a block or a single
// assignment expression.
func (p *Parser) parseArrowBody(pos ast.Base, params []*ast.Param, async bool) *ast.Arrow {
	arrow := &ast.Arrow{Base: pos, Params: params, Async: async}
	if p.tok.NewlineBefore {
		p.errorf("Illegal newline before =>")
	}
	p.expect(token.ARROW)
	if p.tok.Type == token.LBRACE {
		arrow.Body = p.parseBlock()
	} else {
		arrow.Body = p.parseAssign()
	}
	return arrow
}
