package lexer

import "github.com/kolkov/uexpr/internal/token"

// Stream buffers scanned tokens so the parser can look ahead and rewind.
// Every token is scanned once; Restore only moves the read index.
type Stream struct {
	lexer   *Lexer
	buf     []Token
	index   int // index of the current token in buf
	scanEOF bool
}

// Mark is a saved stream position.
type Mark int

// NewStream creates a stream over src and positions it on the first token.
func NewStream(src string) *Stream {
	s := &Stream{lexer: NewFromString(src)}
	s.fill(0)
	return s
}

// fill scans until buf holds index i. Past EOF the last token repeats.
func (s *Stream) fill(i int) {
	for len(s.buf) <= i {
		if s.scanEOF {
			s.buf = append(s.buf, s.buf[len(s.buf)-1])
			continue
		}
		tok := s.lexer.Scan()
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			s.scanEOF = true
		}
		s.buf = append(s.buf, tok)
	}
}

// Current returns the token under the cursor.
func (s *Stream) Current() Token {
	return s.buf[s.index]
}

// Next advances the cursor and returns the new current token.
func (s *Stream) Next() Token {
	if s.buf[s.index].Type != token.EOF && s.buf[s.index].Type != token.ILLEGAL {
		s.index++
		s.fill(s.index)
	}
	return s.buf[s.index]
}

// Peek returns the token after the current one without consuming it.
func (s *Stream) Peek() Token {
	return s.PeekAhead(1)
}

// PeekAhead returns the token n positions after the current one.
func (s *Stream) PeekAhead(n int) Token {
	s.fill(s.index + n)
	return s.buf[s.index+n]
}

// Save records the current position.
func (s *Stream) Save() Mark {
	return Mark(s.index)
}

// Restore rewinds (or advances) to a saved position.
func (s *Stream) Restore(m Mark) {
	s.index = int(m)
}
