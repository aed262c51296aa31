package lexer

import (
	"testing"

	"github.com/kolkov/uexpr/internal/token"
)

// FuzzLexer tests that the lexer handles arbitrary input without panicking,
// always terminates, and reports sane positions.
func FuzzLexer(f *testing.F) {
	seeds := []string{
		// Expressions
		`a + b * c`,
		`x ?? y || z`,
		`obj?.a?.[b]?.(c)`,
		`value |> double |> add:1:?`,
		`({a, ...rest} = obj)`,
		`(a, b) => a ** b`,

		// Literals
		`123 456.789 .5 1e10 0x1A 0b11 0o7 10n`,
		`"hello" 'world\n' "\u{1F600}"`,
		"`a${b}c${`d${e}`}`",
		`/[a-z]+/gi`,

		// Edge cases
		``,
		`// comment only`,
		`/* unterminated`,
		`"unterminated`,
		"`unterminated ${",
		`/unterminated`,
		`\`,
		`"привет мир"`,
	}

	for _, seed := range seeds {
		f.Add([]byte(seed))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		l := New(data)

		const maxTokens = 10000
		for i := 0; i < maxTokens; i++ {
			tok := l.Scan()

			if tok.Pos.Line < 1 || tok.Pos.Column < 1 || tok.Pos.Offset < 0 || tok.Pos.Offset > len(data) {
				t.Errorf("invalid position: %v", tok.Pos)
			}
			if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
				return
			}
		}
		t.Fatalf("lexer did not reach EOF after %d tokens", maxTokens)
	})
}

// FuzzStream checks that rewinding never changes the tokens seen.
func FuzzStream(f *testing.F) {
	for _, seed := range []string{`a + b`, `{a} = b`, `(x, y) => x`, "`t${1}`"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, src string) {
		s := NewStream(src)
		mark := s.Save()
		var first []Token
		for i := 0; i < 50; i++ {
			first = append(first, s.Current())
			s.Next()
		}
		s.Restore(mark)
		for i, want := range first {
			if got := s.Current(); got.Type != want.Type || got.Pos != want.Pos {
				t.Fatalf("token %d after restore: got %v at %v, want %v at %v", i, got.Type, got.Pos, want.Type, want.Pos)
			}
			s.Next()
		}
	})
}
