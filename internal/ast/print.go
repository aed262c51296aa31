package ast

import (
	"fmt"
	"io"
	"strconv"

	"github.com/kolkov/uexpr/internal/token"
)

// Printer writes an indented dump of a tree, one node per line with its
// tag and scalar attributes. It is meant for debugging.
type Printer struct {
	w      io.Writer
	indent int
	err    error
}

// NewPrinter creates a new Printer that writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes the dump of node and its children.
func (p *Printer) Print(node Node) error {
	p.printNode(node)
	return p.err
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) writeIndent() {
	if p.err != nil {
		return
	}
	for i := 0; i < p.indent; i++ {
		_, p.err = io.WriteString(p.w, "  ")
	}
}

func (p *Printer) printNode(node Node) {
	p.writeIndent()
	if node == nil {
		p.printf("<nil>\n")
		return
	}
	p.printf("%s", node.Tag())
	if attrs := attributes(node); attrs != "" {
		p.printf(" %s", attrs)
	}
	if pos := node.Pos(); pos.IsValid() {
		p.printf(" @%s", pos)
	}
	p.printf("\n")

	p.indent++
	for _, child := range Children(node) {
		p.printNode(child)
	}
	p.indent--
}

// attributes renders the non-node fields of a node.
func attributes(node Node) string {
	switch n := node.(type) {
	case *Property:
		return n.Name
	case *Literal:
		return n.Name
	case *Number:
		return n.String()
	case *Str:
		return strconv.Quote(n.Value)
	case *BigInt:
		return n.String()
	case *RegExp:
		return n.String()
	case *Template:
		return fmt.Sprintf("%q", n.Cooked)
	case *Member:
		return optional(n.Name, n.Optional)
	case *ComputedMember:
		return optional("", n.Optional)
	case *Call:
		return optional("", n.Optional)
	case *Unary:
		return n.Op.String()
	case *LiteralUnary:
		return n.Op.String()
	case *Update:
		if n.Prefix {
			return "prefix " + n.Op.String()
		}
		return "postfix " + n.Op.String()
	case *Binary:
		return n.Op.String()
	case *Logical:
		return n.Op.String()
	case *Assignment:
		return n.Op.String()
	case *Pipeline:
		return fmt.Sprintf("%s index=%d", n.Style, n.Index)
	case *Object:
		kinds := make([]string, len(n.Props))
		for i, prop := range n.Props {
			kinds[i] = string(prop.Kind)
			if prop.Key != nil && !prop.Computed {
				kinds[i] += ":" + prop.Key.String()
			}
		}
		return fmt.Sprint(kinds)
	case *PatternProperty:
		if n.Key != nil && !n.Computed {
			return n.Key.String()
		}
	case *Destructuring:
		if n.Object {
			return "object"
		}
		return "array"
	case *Param:
		if n.Rest {
			return "rest"
		}
	case *Function:
		return fmt.Sprintf("%s async=%t declaration=%t", n.Name, n.Async, n.Decl)
	case *Arrow:
		if n.Async {
			return "async"
		}
	case *Terminate:
		return n.String()
	case *Declaration:
		return n.Kind.String()
	case *ForIn:
		return kindName(n.Kind)
	case *ForOf:
		return kindName(n.Kind)
	case *Case:
		if n.Test == nil {
			return "default"
		}
	}
	return ""
}

func optional(s string, opt bool) string {
	if !opt {
		return s
	}
	if s == "" {
		return "?."
	}
	return "?." + s
}

func kindName(kind token.Token) string {
	if kind == token.ILLEGAL {
		return ""
	}
	return kind.String()
}
