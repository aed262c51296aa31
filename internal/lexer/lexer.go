// Package lexer provides tokenization of the JavaScript expression subset.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/kolkov/uexpr/internal/token"
)

const eof = -1

// Lexer tokenizes source text on demand.
type Lexer struct {
	src     []byte         // Source code
	ch      rune           // Current character (eof at end)
	offset  int            // Byte offset of the character after ch
	pos     token.Position // Position of ch
	nextPos token.Position // Position of the character after ch

	newline bool        // Was a line terminator skipped before the current token?
	lastTok token.Token // Previous token (for regex detection)
}

// New creates a new Lexer for the given source code.
func New(src []byte) *Lexer {
	l := &Lexer{
		src:     src,
		nextPos: token.Position{Line: 1, Column: 1},
		lastTok: token.ILLEGAL,
	}
	l.next()
	if l.ch == '#' && l.peek(0) == '!' {
		l.skipLineComment()
	}
	return l
}

// NewFromString creates a new Lexer from a string.
func NewFromString(src string) *Lexer {
	return New([]byte(src))
}

// Token represents a scanned token with its position and value.
type Token struct {
	Type token.Token
	Pos  token.Position
	// Value is the cooked value: identifier name, unescaped string,
	// regex pattern or digits of a bigint. For ILLEGAL tokens it holds
	// the error message.
	Value string
	// Raw is the exact source text of the token.
	Raw string
	// Flags holds regular expression flags.
	Flags string
	// Template is set for TEMPLATE tokens.
	Template *Template
	// NewlineBefore reports a line terminator between this token and the
	// previous one.
	NewlineBefore bool
}

// Template holds the parts of a template literal. Cooked and Raw have one
// more element than Exprs.
type Template struct {
	Cooked []string
	Raw    []string
	Exprs  []Substitution
}

// Substitution is the source of one ${...} part, with the position of its
// first character.
type Substitution struct {
	Src string
	Pos token.Position
}

// Scan scans and returns the next token. At the end of input it keeps
// returning EOF.
func (l *Lexer) Scan() Token {
	tok := l.scan()
	tok.NewlineBefore = l.newline
	if tok.Pos.Offset <= l.pos.Offset {
		tok.Raw = string(l.src[tok.Pos.Offset:l.pos.Offset])
	}
	if tok.Type != token.ILLEGAL {
		l.lastTok = tok.Type
	}
	return tok
}

func (l *Lexer) scan() Token {
	if msg := l.skipSpace(); msg != "" {
		return Token{Type: token.ILLEGAL, Pos: l.pos, Value: msg}
	}

	pos := l.pos

	if l.ch == eof {
		return Token{Type: token.EOF, Pos: pos}
	}

	switch l.ch {
	case '+':
		return l.operator(pos, token.ADD, op{"++", token.INC}, op{"+=", token.ADD_ASSIGN})
	case '-':
		return l.operator(pos, token.SUB, op{"--", token.DEC}, op{"-=", token.SUB_ASSIGN})
	case '*':
		return l.operator(pos, token.MUL, op{"**=", token.POW_ASSIGN}, op{"**", token.POW}, op{"*=", token.MUL_ASSIGN})
	case '/':
		if l.canBeRegex() {
			return l.scanRegex(pos)
		}
		return l.operator(pos, token.DIV, op{"/=", token.DIV_ASSIGN})
	case '%':
		return l.operator(pos, token.MOD, op{"%%=", token.FMOD_ASSIGN}, op{"%=", token.MOD_ASSIGN})
	case '=':
		return l.operator(pos, token.ASSIGN, op{"===", token.STRICT_EQ}, op{"==", token.EQ}, op{"=>", token.ARROW})
	case '!':
		return l.operator(pos, token.NOT, op{"!==", token.STRICT_NE}, op{"!=", token.NE})
	case '<':
		return l.operator(pos, token.LESS, op{"<<=", token.SHL_ASSIGN}, op{"<?=", token.MIN_ASSIGN}, op{"<<", token.SHL}, op{"<=", token.LTE})
	case '>':
		return l.operator(pos, token.GREATER,
			op{">>>=", token.USHR_ASSIGN}, op{">>>", token.USHR}, op{">>=", token.SHR_ASSIGN},
			op{">?=", token.MAX_ASSIGN}, op{">>", token.SHR}, op{">=", token.GTE})
	case '&':
		return l.operator(pos, token.AND, op{"&&=", token.LAND_ASSIGN}, op{"&&", token.LAND}, op{"&=", token.AND_ASSIGN})
	case '|':
		return l.operator(pos, token.OR, op{"||=", token.LOR_ASSIGN}, op{"||", token.LOR}, op{"|=", token.OR_ASSIGN}, op{"|>", token.PIPELINE})
	case '^':
		return l.operator(pos, token.XOR, op{"^=", token.XOR_ASSIGN})
	case '?':
		// "a?.5:b" is a conditional, not optional chaining.
		if l.peek(0) == '.' && !isDigit(l.peek(1)) {
			return l.operator(pos, token.OPTIONAL)
		}
		return l.operator(pos, token.QUESTION, op{"??=", token.NULLISH_ASSIGN}, op{"??", token.NULLISH})
	case '.':
		if isDigit(l.peek(0)) {
			return l.scanNumber(pos)
		}
		return l.operator(pos, token.PERIOD, op{"...", token.ELLIPSIS})
	case '~':
		return l.operator(pos, token.BITNOT)
	case '(':
		return l.operator(pos, token.LPAREN)
	case ')':
		return l.operator(pos, token.RPAREN)
	case '{':
		return l.operator(pos, token.LBRACE)
	case '}':
		return l.operator(pos, token.RBRACE)
	case '[':
		return l.operator(pos, token.LBRACKET)
	case ']':
		return l.operator(pos, token.RBRACKET)
	case ',':
		return l.operator(pos, token.COMMA)
	case ';':
		return l.operator(pos, token.SEMICOLON)
	case ':':
		return l.operator(pos, token.COLON)
	case '#':
		return l.operator(pos, token.HASH)
	case '@':
		return l.operator(pos, token.AT)

	case '"', '\'':
		return l.scanString(pos)
	case '`':
		return l.scanTemplate(pos)

	default:
		if isDigit(byte(l.ch)) && l.ch < utf8.RuneSelf {
			return l.scanNumber(pos)
		}
		if isIdentStart(l.ch) {
			return l.scanIdent(pos)
		}
		ch := l.ch
		l.next()
		return Token{Type: token.ILLEGAL, Pos: pos, Value: fmt.Sprintf("unexpected character %q", ch)}
	}
}

type op struct {
	text string
	tok  token.Token
}

// operator consumes the longest candidate spelled at the current position,
// falling back to the single-character token def. Candidates are listed
// longest first.
func (l *Lexer) operator(pos token.Position, def token.Token, candidates ...op) Token {
	for _, c := range candidates {
		if l.hasPrefix(c.text) {
			for range c.text {
				l.next()
			}
			return Token{Type: c.tok, Pos: pos, Value: c.text}
		}
	}
	value := def.String()
	for range value {
		l.next()
	}
	return Token{Type: def, Pos: pos, Value: value}
}

// hasPrefix reports whether the source at the current character starts
// with s. Operators are ASCII so byte comparison is enough.
func (l *Lexer) hasPrefix(s string) bool {
	start := l.pos.Offset
	return start+len(s) <= len(l.src) && string(l.src[start:start+len(s)]) == s
}

// ---------------------------------------------------------------------------
// Regular expressions
// ---------------------------------------------------------------------------

func (l *Lexer) scanRegex(pos token.Position) Token {
	l.next() // consume opening /
	start := l.pos.Offset

	inClass := false
	for {
		switch {
		case l.ch == eof || l.ch == '\n' || l.ch == '\r':
			return Token{Type: token.ILLEGAL, Pos: pos, Value: "unterminated regular expression"}
		case l.ch == '\\':
			l.next()
			if l.ch == eof || l.ch == '\n' {
				return Token{Type: token.ILLEGAL, Pos: pos, Value: "unterminated regular expression"}
			}
		case l.ch == '[':
			inClass = true
		case l.ch == ']':
			inClass = false
		case l.ch == '/' && !inClass:
			pattern := string(l.src[start:l.pos.Offset])
			l.next() // consume closing /
			flagStart := l.pos.Offset
			for isIdentContinue(l.ch) {
				l.next()
			}
			flags := string(l.src[flagStart:l.pos.Offset])
			if msg := checkRegexFlags(flags); msg != "" {
				return Token{Type: token.ILLEGAL, Pos: pos, Value: msg}
			}
			return Token{Type: token.REGEX, Pos: pos, Value: pattern, Flags: flags}
		}
		l.next()
	}
}

func checkRegexFlags(flags string) string {
	seen := 0
	for _, f := range flags {
		i := strings.IndexRune("gimsuy", f)
		if i < 0 || seen&(1<<i) != 0 {
			return fmt.Sprintf("invalid regular expression flags %q", flags)
		}
		seen |= 1 << i
	}
	return ""
}

// canBeRegex returns true if a / at this point starts a regular expression
// literal, that is when the previous token cannot end an operand.
func (l *Lexer) canBeRegex() bool {
	switch l.lastTok {
	case token.IDENT, token.NUMBER, token.BIGINT, token.STRING, token.TEMPLATE, token.REGEX,
		token.RPAREN, token.RBRACKET, token.RBRACE,
		token.THIS, token.SUPER, token.TRUE, token.FALSE, token.NULL, token.UNDEFINED,
		token.OF, token.ASYNC,
		token.INC, token.DEC:
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Strings and templates
// ---------------------------------------------------------------------------

func (l *Lexer) scanString(pos token.Position) Token {
	quote := l.ch
	l.next() // consume opening quote

	var sb strings.Builder
	for l.ch != quote {
		switch l.ch {
		case eof, '\n', '\r':
			return Token{Type: token.ILLEGAL, Pos: pos, Value: "unterminated string literal"}
		case '\\':
			if msg := l.scanEscape(&sb); msg != "" {
				return Token{Type: token.ILLEGAL, Pos: pos, Value: msg}
			}
		default:
			sb.WriteRune(l.ch)
			l.next()
		}
	}
	l.next() // consume closing quote

	return Token{Type: token.STRING, Pos: pos, Value: sb.String()}
}

// scanEscape decodes the escape sequence at the current backslash into sb
// and returns an error message on failure.
func (l *Lexer) scanEscape(sb *strings.Builder) string {
	l.next() // consume backslash
	ch := l.ch
	switch ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '\'', '"', '\\', '/', '`', '$':
		sb.WriteRune(ch)
	case '0':
		if isDigit(l.peek(0)) {
			return "octal escape sequences are not allowed"
		}
		sb.WriteByte(0)
	case '\r':
		if l.peek(0) == '\n' {
			l.next()
		}
	case '\n', '\u2028', '\u2029':
		// line continuation
	case 'x':
		l.next()
		n, ok := l.hexDigits(2)
		if !ok {
			return "invalid hexadecimal escape sequence"
		}
		sb.WriteRune(rune(n))
		return ""
	case 'u':
		l.next()
		r, ok := l.unicodeEscape()
		if !ok {
			return "invalid Unicode escape sequence"
		}
		// Join a surrogate pair written as two escapes.
		if utf16.IsSurrogate(r) && l.ch == '\\' && l.peek(0) == 'u' {
			save := *l
			l.next()
			l.next()
			if lo, ok := l.unicodeEscape(); ok {
				if pair := utf16.DecodeRune(r, lo); pair != unicode.ReplacementChar {
					sb.WriteRune(pair)
					return ""
				}
			}
			*l = save
		}
		sb.WriteRune(r)
		return ""
	case eof:
		return "unterminated string literal"
	default:
		return fmt.Sprintf("invalid escape sequence \\%c", ch)
	}
	l.next()
	return ""
}

// unicodeEscape reads XXXX or {X...} after "\u".
func (l *Lexer) unicodeEscape() (rune, bool) {
	if l.ch != '{' {
		n, ok := l.hexDigits(4)
		return rune(n), ok
	}
	l.next()
	n, digits := 0, 0
	for l.ch != '}' {
		if l.ch == eof || !isHexDigit(byte(l.ch)) || l.ch >= utf8.RuneSelf {
			return 0, false
		}
		n = n*16 + hexValue(byte(l.ch))
		if n > unicode.MaxRune {
			return 0, false
		}
		digits++
		l.next()
	}
	l.next() // consume }
	return rune(n), digits > 0
}

func (l *Lexer) hexDigits(count int) (int, bool) {
	n := 0
	for i := 0; i < count; i++ {
		if l.ch == eof || l.ch >= utf8.RuneSelf || !isHexDigit(byte(l.ch)) {
			return 0, false
		}
		n = n*16 + hexValue(byte(l.ch))
		l.next()
	}
	return n, true
}

func (l *Lexer) scanTemplate(pos token.Position) Token {
	l.next() // consume opening backtick

	tmpl := &Template{}
	var cooked strings.Builder
	rawStart := l.pos.Offset
	for {
		switch {
		case l.ch == eof:
			return Token{Type: token.ILLEGAL, Pos: pos, Value: "unterminated template literal"}
		case l.ch == '`':
			tmpl.Cooked = append(tmpl.Cooked, cooked.String())
			tmpl.Raw = append(tmpl.Raw, string(l.src[rawStart:l.pos.Offset]))
			l.next()
			return Token{Type: token.TEMPLATE, Pos: pos, Template: tmpl}
		case l.ch == '\\':
			if msg := l.scanEscape(&cooked); msg != "" {
				return Token{Type: token.ILLEGAL, Pos: pos, Value: msg}
			}
		case l.ch == '$' && l.peek(0) == '{':
			tmpl.Cooked = append(tmpl.Cooked, cooked.String())
			tmpl.Raw = append(tmpl.Raw, string(l.src[rawStart:l.pos.Offset]))
			cooked.Reset()
			l.next()
			l.next()
			exprPos := l.pos
			if msg := l.skipBalanced(); msg != "" {
				return Token{Type: token.ILLEGAL, Pos: pos, Value: msg}
			}
			tmpl.Exprs = append(tmpl.Exprs, Substitution{
				Src: string(l.src[exprPos.Offset:l.pos.Offset]),
				Pos: exprPos,
			})
			l.next() // consume }
			rawStart = l.pos.Offset
		default:
			cooked.WriteRune(l.ch)
			l.next()
		}
	}
}

// skipBalanced advances to the '}' closing a template substitution,
// stepping over nested braces, strings, templates and comments.
func (l *Lexer) skipBalanced() string {
	newline := l.newline
	defer func() { l.newline = newline }()
	depth := 0
	for {
		switch l.ch {
		case eof:
			return "unterminated template literal"
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return ""
			}
			depth--
		case '"', '\'':
			if tok := l.scanString(l.pos); tok.Type == token.ILLEGAL {
				return tok.Value
			}
			continue
		case '`':
			if tok := l.scanTemplate(l.pos); tok.Type == token.ILLEGAL {
				return tok.Value
			}
			continue
		case '/':
			if l.peek(0) == '/' || l.peek(0) == '*' {
				if msg := l.skipSpace(); msg != "" {
					return msg
				}
				continue
			}
		}
		l.next()
	}
}

// ---------------------------------------------------------------------------
// Numbers and identifiers
// ---------------------------------------------------------------------------

func (l *Lexer) scanNumber(pos token.Position) Token {
	start := pos.Offset

	if l.ch == '0' {
		var base int
		switch l.peek(0) | 0x20 {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 0 {
			l.next()
			l.next()
			digitStart := l.pos.Offset
			for l.ch < utf8.RuneSelf && l.ch != eof && (isDigitIn(byte(l.ch), base) || l.ch == '_') {
				l.next()
			}
			if l.pos.Offset == digitStart {
				return Token{Type: token.ILLEGAL, Pos: pos, Value: "invalid or unexpected token"}
			}
			if l.ch == 'n' {
				l.next()
				return l.finishNumber(pos, token.BIGINT, string(l.src[start:l.pos.Offset-1]))
			}
			return l.finishNumber(pos, token.NUMBER, string(l.src[start:l.pos.Offset]))
		}
	}

	integer := true
	l.digits()
	if l.ch == '.' {
		integer = false
		l.next()
		l.digits()
	}
	// Only consume e/E if a valid exponent follows.
	if (l.ch == 'e' || l.ch == 'E') && l.hasValidExponent() {
		integer = false
		l.next()
		if l.ch == '+' || l.ch == '-' {
			l.next()
		}
		l.digits()
	}
	if integer && l.ch == 'n' {
		l.next()
		return l.finishNumber(pos, token.BIGINT, string(l.src[start:l.pos.Offset-1]))
	}
	return l.finishNumber(pos, token.NUMBER, string(l.src[start:l.pos.Offset]))
}

func (l *Lexer) digits() {
	for l.ch != eof && l.ch < utf8.RuneSelf && (isDigit(byte(l.ch)) || (l.ch == '_' && isDigit(l.peek(0)))) {
		l.next()
	}
}

// finishNumber rejects an identifier character glued to a numeric literal
// and strips numeric separators.
func (l *Lexer) finishNumber(pos token.Position, typ token.Token, text string) Token {
	if isIdentStart(l.ch) || (l.ch < utf8.RuneSelf && l.ch != eof && isDigit(byte(l.ch))) {
		return Token{Type: token.ILLEGAL, Pos: pos, Value: "identifier starts immediately after numeric literal"}
	}
	return Token{Type: typ, Pos: pos, Value: strings.ReplaceAll(text, "_", "")}
}

// hasValidExponent checks if current e/E is followed by a valid exponent.
func (l *Lexer) hasValidExponent() bool {
	ch := l.peek(0)
	if isDigit(ch) {
		return true
	}
	return (ch == '+' || ch == '-') && isDigit(l.peek(1))
}

func (l *Lexer) scanIdent(pos token.Position) Token {
	for isIdentContinue(l.ch) {
		l.next()
	}
	name := string(l.src[pos.Offset:l.pos.Offset])
	return Token{Type: token.LookupIdent(name), Pos: pos, Value: name}
}

// ---------------------------------------------------------------------------
// Whitespace and comments
// ---------------------------------------------------------------------------

// skipSpace skips whitespace and comments, recording whether a line
// terminator was crossed. It returns an error message for an unterminated
// block comment.
func (l *Lexer) skipSpace() string {
	l.newline = false
	for {
		switch {
		case l.ch == '\n' || l.ch == '\r' || l.ch == '\u2028' || l.ch == '\u2029':
			l.newline = true
			l.next()
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\v' || l.ch == '\f' || l.ch == '\ufeff' || l.ch == '\u00a0':
			l.next()
		case l.ch > utf8.RuneSelf && unicode.IsSpace(l.ch):
			l.next()
		case l.ch == '/' && l.peek(0) == '/':
			l.skipLineComment()
		case l.ch == '/' && l.peek(0) == '*':
			l.next()
			l.next()
			for !(l.ch == '*' && l.peek(0) == '/') {
				if l.ch == eof {
					return "unterminated comment"
				}
				if l.ch == '\n' {
					l.newline = true
				}
				l.next()
			}
			l.next()
			l.next()
		default:
			return ""
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != eof && l.ch != '\n' {
		l.next()
	}
}

func (l *Lexer) next() {
	l.pos = l.nextPos
	if l.offset >= len(l.src) {
		l.ch = eof
		return
	}

	r, size := rune(l.src[l.offset]), 1
	if r >= utf8.RuneSelf {
		r, size = utf8.DecodeRune(l.src[l.offset:])
	}
	l.offset += size
	l.nextPos.Offset = l.offset
	l.nextPos.Column++
	if r == '\n' {
		l.nextPos.Line++
		l.nextPos.Column = 1
	}
	l.ch = r
}

// peek returns the byte k positions after the current character, or 0.
func (l *Lexer) peek(k int) byte {
	if l.offset+k < len(l.src) {
		return l.src[l.offset+k]
	}
	return 0
}

// Helper functions

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isDigitIn(ch byte, base int) bool {
	switch base {
	case 2:
		return ch == '0' || ch == '1'
	case 8:
		return ch >= '0' && ch <= '7'
	case 16:
		return isHexDigit(ch)
	}
	return isDigit(ch)
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func hexValue(ch byte) int {
	if ch >= '0' && ch <= '9' {
		return int(ch - '0')
	}
	if ch >= 'a' && ch <= 'f' {
		return int(ch - 'a' + 10)
	}
	return int(ch - 'A' + 10)
}

func isIdentStart(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$' ||
		(ch >= utf8.RuneSelf && unicode.IsLetter(ch))
}

func isIdentContinue(ch rune) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9') ||
		(ch >= utf8.RuneSelf && (unicode.IsDigit(ch) || unicode.Is(unicode.Mn, ch) || ch == '\u200c' || ch == '\u200d'))
}
