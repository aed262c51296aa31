package token

import "fmt"

// Position represents a position in source code.
type Position struct {
	// Line number (1-indexed).
	Line int
	// Column counts characters on the line (1-indexed).
	Column int
	// Offset is the byte offset from the start of source (0-indexed).
	Offset int
}

// String returns "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Before returns true if p is before other in the source.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Relative translates a position measured inside an embedded fragment
// (a template substitution) into the coordinates of the enclosing source,
// where base is the position of the fragment's first character.
func (p Position) Relative(base Position) Position {
	if !base.IsValid() {
		return p
	}
	out := Position{Line: base.Line + p.Line - 1, Offset: base.Offset + p.Offset}
	if p.Line == 1 {
		out.Column = base.Column + p.Column - 1
	} else {
		out.Column = p.Column
	}
	return out
}

// NoPos is a zero Position used when position is unknown.
var NoPos = Position{}
