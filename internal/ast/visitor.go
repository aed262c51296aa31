package ast

// Children returns the direct child nodes of node in source order. Nil
// optional children and non-computed property keys are skipped.
func Children(node Node) []Node {
	var out []Node
	add := func(ns ...Node) {
		for _, n := range ns {
			if n != nil {
				out = append(out, n)
			}
		}
	}

	switch n := node.(type) {
	// Values
	case *Property, *Literal, *Number, *Str, *BigInt, *RegExp, *Elision, *Empty, *Terminate:
		// no children
	case *Template:
		add(n.Callee)
		add(n.Exprs...)

	// Members and calls
	case *Member:
		add(n.Object)
	case *ComputedMember:
		add(n.Object, n.Key)
	case *OptionalChain:
		add(n.Expr)
	case *Call:
		add(n.Callee)
		add(n.Args...)
	case *New:
		add(n.Callee)
		add(n.Args...)
	case *Spread:
		add(n.Arg)

	// Operators
	case *Unary:
		add(n.Operand)
	case *LiteralUnary:
		add(n.Operand)
	case *Update:
		add(n.Operand)
	case *Binary:
		add(n.Left, n.Right)
	case *Logical:
		add(n.Left, n.Right)
	case *Assignment:
		add(n.Left, n.Right)
	case *Ternary:
		add(n.Test, n.Then, n.Else)
	case *Pipeline:
		add(n.Left, n.Func)
		add(n.Args...)
	case *Comma:
		add(n.Exprs...)
	case *Grouping:
		add(n.Expr)

	// Literals and patterns
	case *Array:
		add(n.Elems...)
	case *Object:
		for _, p := range n.Props {
			if p.Computed {
				add(p.Key)
			}
			add(p.Value)
		}
	case *PatternProperty:
		if n.Computed {
			add(n.Key)
		}
		add(n.Target, n.Default)
	case *Destructuring:
		add(nodeList(n.Elems)...)
		add(n.Rest)

	// Functions
	case *Param:
		add(n.Target, n.Default)
	case *Function:
		add(nodeList(n.Params)...)
		if n.Body != nil {
			add(n.Body)
		}
	case *Arrow:
		add(nodeList(n.Params)...)
		add(n.Body)

	// Statements
	case *Statements:
		add(n.Body...)
	case *Block:
		add(n.Body...)
	case *If:
		add(n.Test, n.Then, n.Else)
	case *While:
		add(n.Test, n.Body)
	case *For:
		add(n.Init, n.Test, n.Update, n.Body)
	case *ForIn:
		add(n.Target, n.Object, n.Body)
	case *ForOf:
		add(n.Target, n.Iterable, n.Body)
	case *Switch:
		add(n.Discriminant)
		add(nodeList(n.Cases)...)
	case *Case:
		add(n.Test)
		add(n.Body...)
	case *Try:
		add(n.Block)
		add(n.Param)
		if n.Handler != nil {
			add(n.Handler)
		}
		if n.Finalizer != nil {
			add(n.Finalizer)
		}
	case *Throw:
		add(n.Arg)
	case *Return:
		add(n.Arg)
	case *Declaration:
		for _, d := range n.Decls {
			add(d.Target, d.Init)
		}
	}
	return out
}

// Walk traverses a tree in depth-first order.
// For each node, it calls fn(node). If fn returns false,
// the children of that node are not visited.
//
// Example: count identifier reads
//
//	count := 0
//	ast.Walk(tree, func(n ast.Node) bool {
//	    if _, ok := n.(*ast.Property); ok {
//	        count++
//	    }
//	    return true // continue traversal
//	})
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range Children(node) {
		Walk(child, fn)
	}
}

// Inspect traverses a tree like Walk and also passes the parent of each
// node (nil for the root).
func Inspect(node Node, fn func(node, parent Node) bool) {
	inspect(node, nil, fn)
}

func inspect(node, parent Node, fn func(node, parent Node) bool) {
	if node == nil || !fn(node, parent) {
		return
	}
	for _, child := range Children(node) {
		inspect(child, node, fn)
	}
}
