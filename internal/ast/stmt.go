package ast

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

// hoist binds the function declarations of a statement list before the
// list runs.
func hoist(s *scope.Stack, list []Node) error {
	for _, stmt := range list {
		if fn, ok := stmt.(*Function); ok && fn.Decl {
			if err := s.Declare(fn.Name, fn.closure(s), scope.Function); err != nil {
				return err
			}
		}
	}
	return nil
}

// runList evaluates statements in order and yields the value of the last
// one.
func runList(s *scope.Stack, list []Node) (types.Value, error) {
	if err := hoist(s, list); err != nil {
		return nil, err
	}
	var last types.Value = types.Undefined
	for _, stmt := range list {
		v, err := stmt.Get(s)
		if err != nil {
			return nil, err
		}
		if _, empty := stmt.(*Empty); !empty {
			last = v
		}
	}
	return last, nil
}

// declared returns the names a statement list binds in its own frame.
func declared(list []Node) []string {
	var out names
	for _, stmt := range list {
		switch st := stmt.(type) {
		case *Declaration:
			for _, d := range st.Decls {
				out.add(boundNames(d.Target)...)
			}
		case *Function:
			if st.Decl {
				out.add(st.Name)
			}
		}
	}
	return out.list
}

// blockLike reports whether a statement ends with a closing brace of its
// own and needs no separator.
func blockLike(n Node) bool {
	switch st := n.(type) {
	case *Block, *Switch, *Try, *Empty:
		return true
	case *Function:
		return st.Decl
	case *If:
		if st.Else != nil {
			return blockLike(st.Else)
		}
		return blockLike(st.Then)
	case *While:
		return !st.Do && blockLike(st.Body)
	case *For:
		return blockLike(st.Body)
	case *ForIn:
		return blockLike(st.Body)
	case *ForOf:
		return blockLike(st.Body)
	}
	return false
}

// listSource renders a statement list.
func listSource(list []Node) string {
	var b strings.Builder
	for i, stmt := range list {
		b.WriteString(stmt.String())
		if i == len(list)-1 {
			break
		}
		if blockLike(stmt) {
			b.WriteByte(' ')
		} else {
			b.WriteString("; ")
		}
	}
	return b.String()
}

func decodeList(d *Decoder, tag string, data []byte) ([]Node, error) {
	var v struct {
		Body []json.RawMessage `json:"body"`
	}
	if err := unmarshal(tag, data, &v); err != nil {
		return nil, err
	}
	return d.Nodes(v.Body)
}

func marshalList(tag string, list []Node) ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Body []Node `json:"body"`
	}{tag, nonNil(list)})
}

// Statements is a top-level statement list. It runs in the caller's frame
// so that declarations stay visible to later evaluations.
type Statements struct {
	Base
	Body []Node
}

func (n *Statements) Get(s *scope.Stack) (types.Value, error) { return runList(s, n.Body) }

func (n *Statements) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Statements) Entry() []string {
	return without(entries(n.Body...), declared(n.Body))
}

func (n *Statements) Event(parent string) []string { return events(parent, n.Body...) }
func (n *Statements) String() string               { return listSource(n.Body) }
func (n *Statements) Tag() string                  { return "statement" }

func (n *Statements) MarshalJSON() ([]byte, error) { return marshalList(n.Tag(), n.Body) }

func decodeStatements(d *Decoder, data []byte) (Node, error) {
	body, err := decodeList(d, "statement", data)
	if err != nil {
		return nil, err
	}
	return &Statements{Body: body}, nil
}

// Block is a braced statement list with its own frame.
type Block struct {
	Base
	Body []Node
}

func (n *Block) Get(s *scope.Stack) (types.Value, error) { return runList(s.NewStack(), n.Body) }

func (n *Block) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Block) Entry() []string {
	return without(entries(n.Body...), declared(n.Body))
}

func (n *Block) Event(parent string) []string { return events(parent, n.Body...) }
func (n *Block) Tag() string                  { return "block" }

func (n *Block) String() string {
	if len(n.Body) == 0 {
		return "{}"
	}
	return "{ " + listSource(n.Body) + " }"
}

func (n *Block) MarshalJSON() ([]byte, error) { return marshalList(n.Tag(), n.Body) }

func decodeBlock(d *Decoder, data []byte) (Node, error) {
	body, err := decodeList(d, "block", data)
	if err != nil {
		return nil, err
	}
	return &Block{Body: body}, nil
}

// Empty is the empty statement.
type Empty struct {
	Base
}

// EmptyStatement is the shared empty statement.
var EmptyStatement = &Empty{}

func (n *Empty) Get(*scope.Stack) (types.Value, error) { return types.Undefined, nil }

func (n *Empty) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Empty) Entry() []string      { return nil }
func (n *Empty) Event(string) []string { return nil }
func (n *Empty) String() string        { return ";" }
func (n *Empty) Tag() string           { return "empty" }

func (n *Empty) MarshalJSON() ([]byte, error) { return []byte(`{"tag":"empty"}`), nil }

// If is a conditional statement. Else may be nil.
type If struct {
	Base
	Test, Then, Else Node
}

func (n *If) Get(s *scope.Stack) (types.Value, error) {
	t, err := n.Test.Get(s)
	if err != nil {
		return nil, err
	}
	if types.ToBoolean(t) {
		return n.Then.Get(s)
	}
	if n.Else != nil {
		return n.Else.Get(s)
	}
	return types.Undefined, nil
}

func (n *If) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *If) Entry() []string              { return entries(n.Test, n.Then, n.Else) }
func (n *If) Event(parent string) []string { return events(parent, n.Test, n.Then, n.Else) }
func (n *If) Tag() string                  { return "if" }

func (n *If) String() string {
	out := "if (" + n.Test.String() + ") " + n.Then.String()
	if n.Else == nil {
		return out
	}
	if !blockLike(n.Then) {
		out += ";"
	}
	return out + " else " + n.Else.String()
}

func (n *If) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Test Node   `json:"test"`
		Then Node   `json:"then"`
		Else Node   `json:"else,omitempty"`
	}{n.Tag(), n.Test, n.Then, n.Else})
}

func decodeIf(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Test json.RawMessage `json:"test"`
		Then json.RawMessage `json:"then"`
		Else json.RawMessage `json:"else"`
	}
	if err := unmarshal("if", data, &v); err != nil {
		return nil, err
	}
	n := &If{}
	var err error
	if n.Test, err = d.Required("if", "test", v.Test); err != nil {
		return nil, err
	}
	if n.Then, err = d.Required("if", "then", v.Then); err != nil {
		return nil, err
	}
	if n.Else, err = d.Node(v.Else); err != nil {
		return nil, err
	}
	return n, nil
}

// loopControl classifies the error of one loop iteration. stop is true
// when the loop must end; err is the failure to report, if any.
func loopControl(in error) (stop bool, err error) {
	switch {
	case in == nil:
		return false, nil
	case errors.Is(in, ErrBreak):
		return true, nil
	case errors.Is(in, ErrContinue):
		return false, nil
	}
	return true, in
}

// While is a while loop, or a do-while loop when Do is set.
type While struct {
	Base
	Test Node
	Body Node
	Do   bool
}

func (n *While) Get(s *scope.Stack) (types.Value, error) {
	var last types.Value = types.Undefined
	for first := true; ; first = false {
		if !(n.Do && first) {
			t, err := n.Test.Get(s)
			if err != nil {
				return nil, err
			}
			if !types.ToBoolean(t) {
				return last, nil
			}
		}
		v, err := n.Body.Get(s)
		stop, err := loopControl(err)
		if err != nil {
			return nil, err
		}
		if stop {
			return last, nil
		}
		if v != nil {
			last = v
		}
	}
}

func (n *While) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *While) Entry() []string              { return entries(n.Test, n.Body) }
func (n *While) Event(parent string) []string { return events(parent, n.Test, n.Body) }

func (n *While) Tag() string {
	if n.Do {
		return "do-while"
	}
	return "while"
}

func (n *While) String() string {
	if !n.Do {
		return "while (" + n.Test.String() + ") " + n.Body.String()
	}
	body := n.Body.String()
	if !blockLike(n.Body) {
		body += ";"
	}
	return "do " + body + " while (" + n.Test.String() + ")"
}

func (n *While) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Test Node   `json:"test"`
		Body Node   `json:"body"`
	}{n.Tag(), n.Test, n.Body})
}

func decodeWhile(do bool) DecodeFunc {
	tag := "while"
	if do {
		tag = "do-while"
	}
	return func(d *Decoder, data []byte) (Node, error) {
		var v struct {
			Test json.RawMessage `json:"test"`
			Body json.RawMessage `json:"body"`
		}
		if err := unmarshal(tag, data, &v); err != nil {
			return nil, err
		}
		n := &While{Do: do}
		var err error
		if n.Test, err = d.Required(tag, "test", v.Test); err != nil {
			return nil, err
		}
		if n.Body, err = d.Required(tag, "body", v.Body); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// For is a classic three-clause for loop. Any clause may be nil.
type For struct {
	Base
	Init, Test, Update Node
	Body               Node
}

// Get runs each iteration in a copy of the loop frame so that closures
// created by the body capture that iteration's let bindings.
func (n *For) Get(s *scope.Stack) (types.Value, error) {
	loop := s.NewStack()
	var perIteration []string
	if n.Init != nil {
		if _, err := n.Init.Get(loop); err != nil {
			return nil, err
		}
		if decl, ok := n.Init.(*Declaration); ok && decl.Kind != token.VAR {
			perIteration = declared([]Node{decl})
		}
	}
	var last types.Value = types.Undefined
	for {
		iter := loop.NewStack()
		iter.Copy(loop, perIteration)
		if n.Test != nil {
			t, err := n.Test.Get(iter)
			if err != nil {
				return nil, err
			}
			if !types.ToBoolean(t) {
				return last, nil
			}
		}
		v, err := n.Body.Get(iter)
		loop.Copy(iter, perIteration)
		stop, err := loopControl(err)
		if err != nil {
			return nil, err
		}
		if stop {
			return last, nil
		}
		if v != nil {
			last = v
		}
		if n.Update != nil {
			if _, err := n.Update.Get(loop); err != nil {
				return nil, err
			}
		}
	}
}

func (n *For) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *For) Entry() []string {
	list := entries(n.Init, n.Test, n.Update, n.Body)
	if n.Init != nil {
		list = without(list, declared([]Node{n.Init}))
	}
	return list
}

func (n *For) Event(parent string) []string {
	return events(parent, n.Init, n.Test, n.Update, n.Body)
}

func (n *For) Tag() string { return "for" }

func (n *For) String() string {
	return "for (" + str(n.Init) + "; " + str(n.Test) + "; " + str(n.Update) + ") " + n.Body.String()
}

func (n *For) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag    string `json:"tag"`
		Init   Node   `json:"init,omitempty"`
		Test   Node   `json:"test,omitempty"`
		Update Node   `json:"update,omitempty"`
		Body   Node   `json:"body"`
	}{n.Tag(), n.Init, n.Test, n.Update, n.Body})
}

func decodeFor(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Init   json.RawMessage `json:"init"`
		Test   json.RawMessage `json:"test"`
		Update json.RawMessage `json:"update"`
		Body   json.RawMessage `json:"body"`
	}
	if err := unmarshal("for", data, &v); err != nil {
		return nil, err
	}
	n := &For{}
	var err error
	if n.Init, err = d.Node(v.Init); err != nil {
		return nil, err
	}
	if n.Test, err = d.Node(v.Test); err != nil {
		return nil, err
	}
	if n.Update, err = d.Node(v.Update); err != nil {
		return nil, err
	}
	if n.Body, err = d.Required("for", "body", v.Body); err != nil {
		return nil, err
	}
	return n, nil
}

// loopBinding binds the variable of a for-in or for-of loop. Kind is LET,
// CONST or VAR for a declaration and ILLEGAL for an assignment target.
func loopBinding(s, iter *scope.Stack, kind token.Token) binder {
	switch kind {
	case token.LET:
		return declareIn(iter, scope.Let)
	case token.CONST:
		return declareIn(iter, scope.Const)
	case token.VAR:
		return declareIn(s.VarFrame(), scope.Var)
	}
	return assignTo(iter)
}

func headSource(kind token.Token, target Node) string {
	if kind == token.ILLEGAL {
		return target.String()
	}
	return kind.String() + " " + target.String()
}

func loopEntry(kind token.Token, target, source, body Node) []string {
	list := entries(targetReads(target), source, body)
	if kind != token.ILLEGAL {
		list = without(list, boundNames(target))
	}
	return list
}

// ForIn iterates over the keys of an object.
type ForIn struct {
	Base
	Kind   token.Token
	Target Node
	Object Node
	Body   Node
}

func (n *ForIn) Get(s *scope.Stack) (types.Value, error) {
	obj, err := n.Object.Get(s)
	if err != nil {
		return nil, err
	}
	var last types.Value = types.Undefined
	for _, key := range runtime.Keys(obj) {
		iter := s.NewStack()
		if err := loopBinding(s, iter, n.Kind)(n.Target, key); err != nil {
			return nil, err
		}
		v, err := n.Body.Get(iter)
		stop, err := loopControl(err)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
		if v != nil {
			last = v
		}
	}
	return last, nil
}

func (n *ForIn) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *ForIn) Entry() []string { return loopEntry(n.Kind, n.Target, n.Object, n.Body) }

func (n *ForIn) Event(parent string) []string {
	return events(parent, n.Target, n.Object, n.Body)
}

func (n *ForIn) Tag() string { return "for-in" }

func (n *ForIn) String() string {
	return "for (" + headSource(n.Kind, n.Target) + " in " + n.Object.String() + ") " + n.Body.String()
}

func (n *ForIn) MarshalJSON() ([]byte, error) {
	return marshalLoop(n.Tag(), n.Kind, n.Target, n.Object, n.Body)
}

func marshalLoop(tag string, kind token.Token, target, source, body Node) ([]byte, error) {
	k := ""
	if kind != token.ILLEGAL {
		k = kind.String()
	}
	return json.Marshal(struct {
		Tag    string `json:"tag"`
		Kind   string `json:"kind,omitempty"`
		Target Node   `json:"target"`
		Source Node   `json:"source"`
		Body   Node   `json:"body"`
	}{tag, k, target, source, body})
}

func decodeLoop(d *Decoder, tag string, data []byte) (kind token.Token, target, source, body Node, err error) {
	var v struct {
		Kind   string          `json:"kind"`
		Target json.RawMessage `json:"target"`
		Source json.RawMessage `json:"source"`
		Body   json.RawMessage `json:"body"`
	}
	if err = unmarshal(tag, data, &v); err != nil {
		return
	}
	kind = token.ILLEGAL
	if v.Kind != "" {
		if kind, err = d.Op(tag, v.Kind); err != nil {
			return
		}
		if kind != token.LET && kind != token.CONST && kind != token.VAR {
			err = &DecodeError{Tag: tag, Message: tag + ": unknown declaration kind " + v.Kind}
			return
		}
	}
	if target, err = d.Required(tag, "target", v.Target); err != nil {
		return
	}
	if source, err = d.Required(tag, "source", v.Source); err != nil {
		return
	}
	body, err = d.Required(tag, "body", v.Body)
	return
}

func decodeForIn(d *Decoder, data []byte) (Node, error) {
	kind, target, source, body, err := decodeLoop(d, "for-in", data)
	if err != nil {
		return nil, err
	}
	return &ForIn{Kind: kind, Target: target, Object: source, Body: body}, nil
}

// ForOf iterates over the values of an iterable. With Await set each value
// is resolved before it is bound.
type ForOf struct {
	Base
	Kind     token.Token
	Target   Node
	Iterable Node
	Body     Node
	Await    bool
}

func (n *ForOf) Get(s *scope.Stack) (types.Value, error) {
	src, err := n.Iterable.Get(s)
	if err != nil {
		return nil, err
	}
	if n.Await {
		if src, err = types.Resolve(src); err != nil {
			return nil, err
		}
	}
	it, err := types.Iterate(src)
	if err != nil {
		return nil, err
	}
	var last types.Value = types.Undefined
	for {
		elem, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return last, nil
		}
		if n.Await {
			if elem, err = types.Resolve(elem); err != nil {
				return nil, err
			}
		}
		iter := s.NewStack()
		if err := loopBinding(s, iter, n.Kind)(n.Target, elem); err != nil {
			return nil, err
		}
		v, err := n.Body.Get(iter)
		stop, err := loopControl(err)
		if err != nil {
			return nil, err
		}
		if stop {
			return last, nil
		}
		if v != nil {
			last = v
		}
	}
}

func (n *ForOf) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *ForOf) Entry() []string { return loopEntry(n.Kind, n.Target, n.Iterable, n.Body) }

func (n *ForOf) Event(parent string) []string {
	return events(parent, n.Target, n.Iterable, n.Body)
}

func (n *ForOf) Tag() string {
	if n.Await {
		return "for-await-of"
	}
	return "for-of"
}

func (n *ForOf) String() string {
	head := "for ("
	if n.Await {
		head = "for await ("
	}
	return head + headSource(n.Kind, n.Target) + " of " + n.Iterable.String() + ") " + n.Body.String()
}

func (n *ForOf) MarshalJSON() ([]byte, error) {
	return marshalLoop(n.Tag(), n.Kind, n.Target, n.Iterable, n.Body)
}

func decodeForOf(await bool) DecodeFunc {
	tag := "for-of"
	if await {
		tag = "for-await-of"
	}
	return func(d *Decoder, data []byte) (Node, error) {
		kind, target, source, body, err := decodeLoop(d, tag, data)
		if err != nil {
			return nil, err
		}
		return &ForOf{Kind: kind, Target: target, Iterable: source, Body: body, Await: await}, nil
	}
}

// Case is one clause of a switch. Test is nil for the default clause.
type Case struct {
	Base
	Test Node
	Body []Node
}

func (n *Case) Get(s *scope.Stack) (types.Value, error) {
	var last types.Value = types.Undefined
	for _, stmt := range n.Body {
		v, err := stmt.Get(s)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (n *Case) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Case) Entry() []string { return entries(append([]Node{n.Test}, n.Body...)...) }

func (n *Case) Event(parent string) []string {
	return events(parent, append([]Node{n.Test}, n.Body...)...)
}

func (n *Case) Tag() string { return "case" }

func (n *Case) String() string {
	head := "default:"
	if n.Test != nil {
		head = "case " + n.Test.String() + ":"
	}
	if len(n.Body) == 0 {
		return head
	}
	return head + " " + listSource(n.Body)
}

func (n *Case) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Test Node   `json:"test,omitempty"`
		Body []Node `json:"body"`
	}{n.Tag(), n.Test, nonNil(n.Body)})
}

func decodeCase(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Test json.RawMessage   `json:"test"`
		Body []json.RawMessage `json:"body"`
	}
	if err := unmarshal("case", data, &v); err != nil {
		return nil, err
	}
	n := &Case{}
	var err error
	if n.Test, err = d.Node(v.Test); err != nil {
		return nil, err
	}
	if n.Body, err = d.Nodes(v.Body); err != nil {
		return nil, err
	}
	return n, nil
}

// Switch selects the first case whose test is strictly equal to the
// discriminant, falling back to the default clause, and runs the bodies
// from there on until a break.
type Switch struct {
	Base
	Discriminant Node
	Cases        []*Case
}

func (n *Switch) Get(s *scope.Stack) (types.Value, error) {
	d, err := n.Discriminant.Get(s)
	if err != nil {
		return nil, err
	}
	frame := s.NewStack()
	for _, c := range n.Cases {
		if err := hoist(frame, c.Body); err != nil {
			return nil, err
		}
	}
	start := -1
	for i, c := range n.Cases {
		if c.Test == nil {
			continue
		}
		t, err := c.Test.Get(frame)
		if err != nil {
			return nil, err
		}
		if types.StrictEquals(d, t) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, c := range n.Cases {
			if c.Test == nil {
				start = i
				break
			}
		}
	}
	var last types.Value = types.Undefined
	if start < 0 {
		return last, nil
	}
	for _, c := range n.Cases[start:] {
		v, err := c.Get(frame)
		if errors.Is(err, ErrBreak) {
			break
		}
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (n *Switch) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Switch) body() []Node {
	var out []Node
	for _, c := range n.Cases {
		out = append(out, c.Body...)
	}
	return out
}

func (n *Switch) Entry() []string {
	list := entries(append([]Node{n.Discriminant}, nodeList(n.Cases)...)...)
	return without(list, declared(n.body()))
}

func (n *Switch) Event(parent string) []string {
	return events(parent, append([]Node{n.Discriminant}, nodeList(n.Cases)...)...)
}

func (n *Switch) Tag() string { return "switch" }

func (n *Switch) String() string {
	if len(n.Cases) == 0 {
		return "switch (" + n.Discriminant.String() + ") {}"
	}
	parts := make([]string, len(n.Cases))
	for i, c := range n.Cases {
		parts[i] = c.String()
		if i < len(n.Cases)-1 && len(c.Body) > 0 && !blockLike(c.Body[len(c.Body)-1]) {
			parts[i] += ";"
		}
	}
	return "switch (" + n.Discriminant.String() + ") { " + strings.Join(parts, " ") + " }"
}

func (n *Switch) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag          string  `json:"tag"`
		Discriminant Node    `json:"discriminant"`
		Cases        []*Case `json:"cases"`
	}{n.Tag(), n.Discriminant, nonNil(n.Cases)})
}

func decodeSwitch(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Discriminant json.RawMessage   `json:"discriminant"`
		Cases        []json.RawMessage `json:"cases"`
	}
	if err := unmarshal("switch", data, &v); err != nil {
		return nil, err
	}
	n := &Switch{}
	var err error
	if n.Discriminant, err = d.Required("switch", "discriminant", v.Discriminant); err != nil {
		return nil, err
	}
	defaults := 0
	for _, raw := range v.Cases {
		c, err := decodeAs[*Case](d, "switch", "cases", raw)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, &DecodeError{Tag: "switch", Message: "switch: missing case"}
		}
		if c.Test == nil {
			defaults++
		}
		n.Cases = append(n.Cases, c)
	}
	if defaults > 1 {
		return nil, &DecodeError{Tag: "switch", Message: "switch: multiple defaults"}
	}
	return n, nil
}

// Try is a try statement. At least one of Handler and Finalizer is set;
// Param may be nil for `catch {}`.
type Try struct {
	Base
	Block     *Block
	Param     Node
	Handler   *Block
	Finalizer *Block
}

func (n *Try) Get(s *scope.Stack) (types.Value, error) {
	v, err := n.Block.Get(s)
	if err != nil && n.Handler != nil && !isControl(err) {
		frame := s.NewStack()
		if n.Param != nil {
			if perr := declareIn(frame, scope.Param)(n.Param, types.Thrown(err)); perr != nil {
				return nil, perr
			}
		}
		v, err = n.Handler.Get(frame)
	}
	if n.Finalizer != nil {
		if _, ferr := n.Finalizer.Get(s); ferr != nil {
			return nil, ferr
		}
	}
	return v, err
}

func (n *Try) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Try) parts() []Node {
	out := []Node{n.Block}
	if n.Handler != nil {
		out = append(out, n.Handler)
	}
	if n.Finalizer != nil {
		out = append(out, n.Finalizer)
	}
	return out
}

func (n *Try) Entry() []string {
	var out names
	out.add(n.Block.Entry()...)
	if n.Handler != nil {
		handler := entries(n.Handler)
		if n.Param != nil {
			out.add(entries(targetReads(n.Param))...)
			handler = without(handler, boundNames(n.Param))
		}
		out.add(handler...)
	}
	if n.Finalizer != nil {
		out.add(n.Finalizer.Entry()...)
	}
	return out.list
}

func (n *Try) Event(parent string) []string { return events(parent, n.parts()...) }
func (n *Try) Tag() string                  { return "try" }

func (n *Try) String() string {
	out := "try " + n.Block.String()
	if n.Handler != nil {
		out += " catch "
		if n.Param != nil {
			out += "(" + n.Param.String() + ") "
		}
		out += n.Handler.String()
	}
	if n.Finalizer != nil {
		out += " finally " + n.Finalizer.String()
	}
	return out
}

func (n *Try) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag       string `json:"tag"`
		Block     *Block `json:"block"`
		Param     Node   `json:"param,omitempty"`
		Handler   *Block `json:"handler,omitempty"`
		Finalizer *Block `json:"finalizer,omitempty"`
	}{n.Tag(), n.Block, n.Param, n.Handler, n.Finalizer})
}

func decodeTry(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Block     json.RawMessage `json:"block"`
		Param     json.RawMessage `json:"param"`
		Handler   json.RawMessage `json:"handler"`
		Finalizer json.RawMessage `json:"finalizer"`
	}
	if err := unmarshal("try", data, &v); err != nil {
		return nil, err
	}
	n := &Try{}
	var err error
	if n.Block, err = decodeAs[*Block](d, "try", "block", v.Block); err != nil {
		return nil, err
	}
	if n.Param, err = d.Node(v.Param); err != nil {
		return nil, err
	}
	if n.Handler, err = decodeAs[*Block](d, "try", "handler", v.Handler); err != nil {
		return nil, err
	}
	if n.Finalizer, err = decodeAs[*Block](d, "try", "finalizer", v.Finalizer); err != nil {
		return nil, err
	}
	if n.Block == nil || (n.Handler == nil && n.Finalizer == nil) {
		return nil, &DecodeError{Tag: "try", Message: "try: missing catch or finally"}
	}
	return n, nil
}

// Throw raises a value.
type Throw struct {
	Base
	Arg Node
}

func (n *Throw) Get(s *scope.Stack) (types.Value, error) {
	v, err := n.Arg.Get(s)
	if err != nil {
		return nil, err
	}
	return nil, &types.ThrowError{Value: v}
}

func (n *Throw) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Throw) Entry() []string              { return n.Arg.Entry() }
func (n *Throw) Event(parent string) []string { return n.Arg.Event(parent) }
func (n *Throw) String() string               { return "throw " + n.Arg.String() }
func (n *Throw) Tag() string                  { return "throw" }

func (n *Throw) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag string `json:"tag"`
		Arg Node   `json:"arg"`
	}{n.Tag(), n.Arg})
}

func decodeThrow(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Arg json.RawMessage `json:"arg"`
	}
	if err := unmarshal("throw", data, &v); err != nil {
		return nil, err
	}
	arg, err := d.Required("throw", "arg", v.Arg)
	if err != nil {
		return nil, err
	}
	return &Throw{Arg: arg}, nil
}

// Return leaves the enclosing function. Arg may be nil.
type Return struct {
	Base
	Arg Node
}

func (n *Return) Get(s *scope.Stack) (types.Value, error) {
	var v types.Value = types.Undefined
	if n.Arg != nil {
		var err error
		if v, err = n.Arg.Get(s); err != nil {
			return nil, err
		}
	}
	return nil, &ReturnError{Value: v}
}

func (n *Return) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Return) Entry() []string              { return entries(n.Arg) }
func (n *Return) Event(parent string) []string { return events(parent, n.Arg) }
func (n *Return) Tag() string                  { return "return" }

func (n *Return) String() string {
	if n.Arg == nil {
		return "return"
	}
	return "return " + n.Arg.String()
}

func (n *Return) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag string `json:"tag"`
		Arg Node   `json:"arg,omitempty"`
	}{n.Tag(), n.Arg})
}

func decodeReturn(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Arg json.RawMessage `json:"arg"`
	}
	if err := unmarshal("return", data, &v); err != nil {
		return nil, err
	}
	arg, err := d.Node(v.Arg)
	if err != nil {
		return nil, err
	}
	return &Return{Arg: arg}, nil
}

// Terminate is break or continue.
type Terminate struct {
	Base
	Continue bool
}

var (
	Break    = &Terminate{}
	Continue = &Terminate{Continue: true}
)

func (n *Terminate) Get(*scope.Stack) (types.Value, error) {
	if n.Continue {
		return nil, ErrContinue
	}
	return nil, ErrBreak
}

func (n *Terminate) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Terminate) Entry() []string      { return nil }
func (n *Terminate) Event(string) []string { return nil }
func (n *Terminate) Tag() string           { return "terminate" }

func (n *Terminate) String() string {
	if n.Continue {
		return "continue"
	}
	return "break"
}

func (n *Terminate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tag  string `json:"tag"`
		Kind string `json:"kind"`
	}{n.Tag(), n.String()})
}

func decodeTerminate(d *Decoder, data []byte) (Node, error) {
	var v struct {
		Kind string `json:"kind"`
	}
	if err := unmarshal("terminate", data, &v); err != nil {
		return nil, err
	}
	switch v.Kind {
	case "break":
		return Break, nil
	case "continue":
		return Continue, nil
	}
	return nil, &DecodeError{Tag: "terminate", Message: "terminate: unknown kind " + v.Kind}
}

// Declarator is one `target = init` part of a declaration.
type Declarator struct {
	Target Node
	Init   Node
}

func (d *Declarator) String() string {
	if d.Init == nil {
		return d.Target.String()
	}
	return d.Target.String() + " = " + d.Init.String()
}

// Declaration is a let, const or var statement.
type Declaration struct {
	Base
	Kind  token.Token
	Decls []*Declarator
}

func (n *Declaration) Get(s *scope.Stack) (types.Value, error) {
	for _, d := range n.Decls {
		var v types.Value = types.Undefined
		if d.Init != nil {
			var err error
			if v, err = d.Init.Get(s); err != nil {
				return nil, err
			}
		}
		var bind binder
		switch n.Kind {
		case token.CONST:
			bind = declareIn(s, scope.Const)
		case token.VAR:
			frame := s.VarFrame()
			if p, ok := d.Target.(*Property); ok && d.Init == nil && frame.HasOwn(p.Name) {
				continue
			}
			bind = declareIn(frame, scope.Var)
		default:
			bind = declareIn(s, scope.Let)
		}
		if err := bind(d.Target, v); err != nil {
			return nil, err
		}
	}
	return types.Undefined, nil
}

func (n *Declaration) Set(*scope.Stack, types.Value) (types.Value, error) {
	return nil, unsupported(n, "set")
}

func (n *Declaration) Entry() []string {
	var list []Node
	for _, d := range n.Decls {
		list = append(list, targetReads(d.Target), d.Init)
	}
	return entries(list...)
}

func (n *Declaration) Event(parent string) []string {
	var list []Node
	for _, d := range n.Decls {
		list = append(list, d.Target, d.Init)
	}
	return events(parent, list...)
}

// Tag is "const" for const declarations and "let" for let and var, which
// differ in Kind.
func (n *Declaration) Tag() string {
	if n.Kind == token.CONST {
		return "const"
	}
	return "let"
}

func (n *Declaration) String() string {
	parts := make([]string, len(n.Decls))
	for i, d := range n.Decls {
		parts[i] = d.String()
	}
	return n.Kind.String() + " " + strings.Join(parts, ", ")
}

func (n *Declaration) MarshalJSON() ([]byte, error) {
	type declJSON struct {
		Target Node `json:"target"`
		Init   Node `json:"init,omitempty"`
	}
	decls := make([]declJSON, len(n.Decls))
	for i, d := range n.Decls {
		decls[i] = declJSON{d.Target, d.Init}
	}
	return json.Marshal(struct {
		Tag   string     `json:"tag"`
		Kind  string     `json:"kind"`
		Decls []declJSON `json:"declarations"`
	}{n.Tag(), n.Kind.String(), decls})
}

func decodeDeclaration(tag string) DecodeFunc {
	return func(d *Decoder, data []byte) (Node, error) {
		var v struct {
			Kind  string `json:"kind"`
			Decls []struct {
				Target json.RawMessage `json:"target"`
				Init   json.RawMessage `json:"init"`
			} `json:"declarations"`
		}
		if err := unmarshal(tag, data, &v); err != nil {
			return nil, err
		}
		kind := token.Lookup(v.Kind)
		switch {
		case tag == "const" && kind == token.CONST:
		case tag == "let" && (kind == token.LET || kind == token.VAR):
		default:
			return nil, &DecodeError{Tag: tag, Message: tag + ": unknown declaration kind " + v.Kind}
		}
		if len(v.Decls) == 0 {
			return nil, &DecodeError{Tag: tag, Message: tag + ": no declarations"}
		}
		n := &Declaration{Kind: kind}
		for _, raw := range v.Decls {
			target, err := d.Required(tag, "target", raw.Target)
			if err != nil {
				return nil, err
			}
			init, err := d.Node(raw.Init)
			if err != nil {
				return nil, err
			}
			n.Decls = append(n.Decls, &Declarator{Target: target, Init: init})
		}
		return n, nil
	}
}

func init() {
	Register("statement", decodeStatements)
	Register("block", decodeBlock)
	Register("empty", func(*Decoder, []byte) (Node, error) { return EmptyStatement, nil })
	Register("if", decodeIf)
	Register("while", decodeWhile(false))
	Register("do-while", decodeWhile(true))
	Register("for", decodeFor)
	Register("for-in", decodeForIn)
	Register("for-of", decodeForOf(false))
	Register("for-await-of", decodeForOf(true))
	Register("case", decodeCase)
	Register("switch", decodeSwitch)
	Register("try", decodeTry)
	Register("throw", decodeThrow)
	Register("return", decodeReturn)
	Register("terminate", decodeTerminate)
	Register("let", decodeDeclaration("let"))
	Register("const", decodeDeclaration("const"))
}
