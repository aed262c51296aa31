package lexer

import (
	"strings"
	"testing"

	"github.com/kolkov/uexpr/internal/token"
)

func scanAll(src string) []Token {
	l := NewFromString(src)
	var toks []Token
	for {
		tok := l.Scan()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			return toks
		}
	}
}

func types(toks []Token) []token.Token {
	out := make([]token.Token, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestScanOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected []token.Token
	}{
		{"+", []token.Token{token.ADD, token.EOF}},
		{"++", []token.Token{token.INC, token.EOF}},
		{"+=", []token.Token{token.ADD_ASSIGN, token.EOF}},
		{"**", []token.Token{token.POW, token.EOF}},
		{"**=", []token.Token{token.POW_ASSIGN, token.EOF}},
		{"%%=", []token.Token{token.FMOD_ASSIGN, token.EOF}},
		{"x /= 1", []token.Token{token.IDENT, token.DIV_ASSIGN, token.NUMBER, token.EOF}},
		{"===", []token.Token{token.STRICT_EQ, token.EOF}},
		{"!==", []token.Token{token.STRICT_NE, token.EOF}},
		{"=>", []token.Token{token.ARROW, token.EOF}},
		{">", []token.Token{token.GREATER, token.EOF}},
		{">>", []token.Token{token.SHR, token.EOF}},
		{">>>", []token.Token{token.USHR, token.EOF}},
		{">>>=", []token.Token{token.USHR_ASSIGN, token.EOF}},
		{">?=", []token.Token{token.MAX_ASSIGN, token.EOF}},
		{"<?=", []token.Token{token.MIN_ASSIGN, token.EOF}},
		{"&&=", []token.Token{token.LAND_ASSIGN, token.EOF}},
		{"||=", []token.Token{token.LOR_ASSIGN, token.EOF}},
		{"??=", []token.Token{token.NULLISH_ASSIGN, token.EOF}},
		{"??", []token.Token{token.NULLISH, token.EOF}},
		{"?.", []token.Token{token.OPTIONAL, token.EOF}},
		{"a?.5:b", []token.Token{token.IDENT, token.QUESTION, token.NUMBER, token.COLON, token.IDENT, token.EOF}},
		{"|>", []token.Token{token.PIPELINE, token.EOF}},
		{"...", []token.Token{token.ELLIPSIS, token.EOF}},
		{"a.b", []token.Token{token.IDENT, token.PERIOD, token.IDENT, token.EOF}},
		{"~!", []token.Token{token.BITNOT, token.NOT, token.EOF}},
		{"({[]});,:", []token.Token{
			token.LPAREN, token.LBRACE, token.LBRACKET, token.RBRACKET, token.RBRACE,
			token.RPAREN, token.SEMICOLON, token.COMMA, token.COLON, token.EOF,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := types(scanAll(tt.input))
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("token[%d]: expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestScanKeywords(t *testing.T) {
	tests := []struct {
		input    string
		expected token.Token
	}{
		{"let", token.LET},
		{"const", token.CONST},
		{"var", token.VAR},
		{"if", token.IF},
		{"for", token.FOR},
		{"of", token.OF},
		{"typeof", token.TYPEOF},
		{"instanceof", token.INSTANCEOF},
		{"await", token.AWAIT},
		{"undefined", token.UNDEFINED},
		{"class", token.CLASS},
		{"yield", token.YIELD},
		{"letter", token.IDENT},
		{"$el", token.IDENT},
		{"_private", token.IDENT},
		{"café", token.IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewFromString(tt.input).Scan()
			if tok.Type != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, tok.Type)
			}
			if tok.Value != tt.input {
				t.Errorf("expected value %q, got %q", tt.input, tok.Value)
			}
		})
	}
}

func TestScanNumbers(t *testing.T) {
	tests := []struct {
		input    string
		typ      token.Token
		expected string
	}{
		{"0", token.NUMBER, "0"},
		{"123", token.NUMBER, "123"},
		{"3.14", token.NUMBER, "3.14"},
		{".5", token.NUMBER, ".5"},
		{"1.", token.NUMBER, "1."},
		{"1e10", token.NUMBER, "1e10"},
		{"1.5e-3", token.NUMBER, "1.5e-3"},
		{"1_000", token.NUMBER, "1000"},
		{"0x1A", token.NUMBER, "0x1A"},
		{"0o17", token.NUMBER, "0o17"},
		{"0b101", token.NUMBER, "0b101"},
		{"123n", token.BIGINT, "123"},
		{"0xffn", token.BIGINT, "0xff"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewFromString(tt.input).Scan()
			if tok.Type != tt.typ {
				t.Fatalf("expected %v, got %v (%s)", tt.typ, tok.Type, tok.Value)
			}
			if tok.Value != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tok.Value)
			}
		})
	}
}

func TestScanNumberErrors(t *testing.T) {
	for _, input := range []string{"3in", "0x", "1.5n"} {
		t.Run(input, func(t *testing.T) {
			toks := scanAll(input)
			last := toks[len(toks)-1]
			if last.Type != token.ILLEGAL {
				t.Errorf("expected ILLEGAL, got %v", types(toks))
			}
		})
	}
}

func TestScanStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`'it\'s'`, "it's"},
		{`"\\"`, "\\"},
		{`"\/"`, "/"},
		{`"\x41"`, "A"},
		{`"é"`, "é"},
		{`"\u{1F600}"`, "\U0001F600"},
		{`"😀"`, "\U0001F600"},
		{"\"line\\\ncontinued\"", "linecontinued"},
		{`"\0"`, "\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewFromString(tt.input).Scan()
			if tok.Type != token.STRING {
				t.Fatalf("expected STRING, got %v (%s)", tok.Type, tok.Value)
			}
			if tok.Value != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tok.Value)
			}
			if tok.Raw != tt.input {
				t.Errorf("expected raw %q, got %q", tt.input, tok.Raw)
			}
		})
	}
}

func TestScanStringErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{`"unterminated`, "unterminated string literal"},
		{"\"broken\nline\"", "unterminated string literal"},
		{`"\q"`, `invalid escape sequence \q`},
		{`"\x4"`, "invalid hexadecimal escape sequence"},
		{`"\u12"`, "invalid Unicode escape sequence"},
		{`"\01"`, "octal escape sequences are not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewFromString(tt.input).Scan()
			if tok.Type != token.ILLEGAL {
				t.Fatalf("expected ILLEGAL, got %v", tok.Type)
			}
			if tok.Value != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tok.Value)
			}
		})
	}
}

func TestScanTemplate(t *testing.T) {
	tok := NewFromString("`a${x + 1}b${ {c: `n${d}`}.c }\\n`").Scan()
	if tok.Type != token.TEMPLATE {
		t.Fatalf("expected TEMPLATE, got %v (%s)", tok.Type, tok.Value)
	}
	tmpl := tok.Template
	if got := strings.Join(tmpl.Cooked, "|"); got != "a|b|\n" {
		t.Errorf("cooked = %q", got)
	}
	if got := strings.Join(tmpl.Raw, "|"); got != `a|b|\n` {
		t.Errorf("raw = %q", got)
	}
	if len(tmpl.Exprs) != 2 {
		t.Fatalf("expected 2 substitutions, got %d", len(tmpl.Exprs))
	}
	if tmpl.Exprs[0].Src != "x + 1" {
		t.Errorf("expr[0] = %q", tmpl.Exprs[0].Src)
	}
	if tmpl.Exprs[1].Src != " {c: `n${d}`}.c " {
		t.Errorf("expr[1] = %q", tmpl.Exprs[1].Src)
	}
	if tmpl.Exprs[0].Pos.Column != 5 {
		t.Errorf("expr[0] column = %d, want 5", tmpl.Exprs[0].Pos.Column)
	}
}

func TestScanUnterminatedTemplate(t *testing.T) {
	for _, input := range []string{"`abc", "`a${b`", "`a${ {b }`"} {
		tok := NewFromString(input).Scan()
		if tok.Type != token.ILLEGAL {
			t.Errorf("%q: expected ILLEGAL, got %v", input, tok.Type)
		}
	}
}

func TestScanRegex(t *testing.T) {
	tests := []struct {
		input   string
		pattern string
		flags   string
	}{
		{"/abc/", "abc", ""},
		{"/a\\/b/g", "a\\/b", "g"},
		{"/[/]/i", "[/]", "i"},
		{"x = /\\d+/gimsuy", "\\d+", "gimsuy"},
		{"f(/x/)", "x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			for _, tok := range scanAll(tt.input) {
				if tok.Type == token.REGEX {
					if tok.Value != tt.pattern {
						t.Errorf("expected pattern %q, got %q", tt.pattern, tok.Value)
					}
					if tok.Flags != tt.flags {
						t.Errorf("expected flags %q, got %q", tt.flags, tok.Flags)
					}
					return
				}
			}
			t.Errorf("no regex token in %v", types(scanAll(tt.input)))
		})
	}
}

func TestScanDivisionAfterOperand(t *testing.T) {
	tests := []string{"a / b / c", "4 / 2", "(a) / 2", "a[0] / 2", "i++ / 2"}
	for _, input := range tests {
		for _, tok := range scanAll(input) {
			if tok.Type == token.REGEX {
				t.Errorf("%q: unexpected regex %q", input, tok.Value)
			}
		}
	}
}

func TestScanRegexErrors(t *testing.T) {
	for _, input := range []string{"/abc", "/abc\n/", "/a/gg", "/a/x"} {
		toks := scanAll(input)
		if toks[len(toks)-1].Type != token.ILLEGAL {
			t.Errorf("%q: expected ILLEGAL, got %v", input, types(toks))
		}
	}
}

func TestScanComments(t *testing.T) {
	tests := []struct {
		input    string
		expected []token.Token
	}{
		{"a // comment\nb", []token.Token{token.IDENT, token.IDENT, token.EOF}},
		{"a /* block */ b", []token.Token{token.IDENT, token.IDENT, token.EOF}},
		{"a /* multi\nline */ + b", []token.Token{token.IDENT, token.ADD, token.IDENT, token.EOF}},
		{"/**/1", []token.Token{token.NUMBER, token.EOF}},
		{"#!/usr/bin/env uexpr\n1", []token.Token{token.NUMBER, token.EOF}},
		{"// only", []token.Token{token.EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := types(scanAll(tt.input))
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("token[%d]: expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestScanUnterminatedComment(t *testing.T) {
	toks := scanAll("a /* never closed")
	last := toks[len(toks)-1]
	if last.Type != token.ILLEGAL || last.Value != "unterminated comment" {
		t.Errorf("expected unterminated comment, got %v %q", last.Type, last.Value)
	}
}

func TestScanNewlineBefore(t *testing.T) {
	toks := scanAll("a\nb /* x\n */ c d")
	want := []bool{false, true, true, false, false}
	for i, w := range want {
		if toks[i].NewlineBefore != w {
			t.Errorf("token[%d] %q: NewlineBefore = %v, want %v", i, toks[i].Value, toks[i].NewlineBefore, w)
		}
	}
}

func TestScanPosition(t *testing.T) {
	toks := scanAll("x\n  é + yy")
	expected := []token.Position{
		{Line: 1, Column: 1, Offset: 0},
		{Line: 2, Column: 3, Offset: 4},
		{Line: 2, Column: 5, Offset: 7},
		{Line: 2, Column: 7, Offset: 9},
	}
	for i, exp := range expected {
		if toks[i].Pos != exp {
			t.Errorf("token[%d]: expected %v, got %v", i, exp, toks[i].Pos)
		}
	}
}

func TestScanIllegalPosition(t *testing.T) {
	toks := scanAll("a +\n  \\")
	last := toks[len(toks)-1]
	if last.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %v", last.Type)
	}
	if last.Pos.Line != 2 || last.Pos.Column != 3 {
		t.Errorf("expected 2:3, got %v", last.Pos)
	}
}

func TestScanEOFIdempotent(t *testing.T) {
	l := NewFromString("x")
	l.Scan()
	for i := 0; i < 3; i++ {
		if tok := l.Scan(); tok.Type != token.EOF {
			t.Fatalf("scan %d: expected EOF, got %v", i, tok.Type)
		}
	}
}

func BenchmarkScanExpression(b *testing.B) {
	src := "let total = items.filter(x => x.price > 10).map(x => x.price * 1.2).reduce((a, b) => a + b, 0)"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l := NewFromString(src)
		for l.Scan().Type != token.EOF {
		}
	}
}
