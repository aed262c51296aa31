package scope

import (
	"testing"

	"github.com/kolkov/uexpr/internal/types"
)

func TestStackLookupChain(t *testing.T) {
	root := New()
	root.Define("x", 1.0)
	child := root.NewStack()
	if err := child.Declare("y", 2.0, Let); err != nil {
		t.Fatal(err)
	}

	if v, ok := child.Get("x"); !ok || v != 1.0 {
		t.Errorf("child.Get(x) = %v, %v", v, ok)
	}
	if _, ok := root.Get("y"); ok {
		t.Error("root should not see child binding y")
	}
	if v, ok := child.Get("missing"); ok || !types.IsUndefined(v) {
		t.Errorf("Get(missing) = %v, %v; want undefined, false", v, ok)
	}
}

func TestStackSet(t *testing.T) {
	root := New()
	root.Define("x", 1.0)
	child := root.NewStack()

	if err := child.Set("x", 5.0); err != nil {
		t.Fatal(err)
	}
	if v, _ := root.Get("x"); v != 5.0 {
		t.Errorf("Set did not update the nearest binding: x = %v", v)
	}

	if err := child.Set("fresh", 3.0); err != nil {
		t.Fatal(err)
	}
	if !root.HasOwn("fresh") {
		t.Error("unbound assignment should bind in the root frame")
	}
}

func TestStackShadowing(t *testing.T) {
	root := New()
	root.Define("x", "outer")
	inner := root.NewStack()
	_ = inner.Declare("x", "inner", Let)
	_ = inner.Set("x", "changed")

	if v, _ := root.Get("x"); v != "outer" {
		t.Errorf("outer x = %v, want outer", v)
	}
	if v, _ := inner.Get("x"); v != "changed" {
		t.Errorf("inner x = %v, want changed", v)
	}
}

func TestStackConst(t *testing.T) {
	s := New()
	if err := s.Declare("c", 1.0, Const); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("c", 2.0); err == nil {
		t.Error("expected error assigning to const")
	}
	if err := s.Declare("c", 3.0, Let); err == nil {
		t.Error("expected redeclaration error")
	}
	if k, _ := s.KindOf("c"); k != Const {
		t.Errorf("KindOf(c) = %v, want const", k)
	}
}

func TestStackRedeclareParam(t *testing.T) {
	s := New()
	_ = s.Declare("a", 1.0, Param)
	if err := s.Declare("a", 2.0, Param); err != nil {
		t.Errorf("parameters may be rebound: %v", err)
	}
	if err := s.Declare("f", 1.0, Function); err != nil {
		t.Fatal(err)
	}
	if err := s.Declare("f", 2.0, Function); err != nil {
		t.Errorf("functions may be redeclared: %v", err)
	}
}

func TestStackCopy(t *testing.T) {
	loop := New()
	_ = loop.Declare("i", 0.0, Let)
	iter := loop.NewStack()
	iter.Copy(loop, []string{"i"})
	_ = iter.Set("i", 1.0)

	if v, _ := loop.Get("i"); v != 0.0 {
		t.Errorf("iteration copy leaked into loop frame: i = %v", v)
	}
	if v, _ := iter.Get("i"); v != 1.0 {
		t.Errorf("iteration i = %v, want 1", v)
	}
}

func TestStackDelete(t *testing.T) {
	s := New()
	s.Define("g", 1.0)
	_ = s.Declare("l", 1.0, Let)
	if !s.Delete("g") || s.Has("g") {
		t.Error("global binding should be deletable")
	}
	if s.Delete("l") {
		t.Error("let binding should not be deletable")
	}
}

func TestStackVarFrame(t *testing.T) {
	root := New()
	fn := root.NewFunctionStack()
	block := fn.NewStack().NewStack()
	if block.VarFrame() != fn {
		t.Error("VarFrame should stop at the function frame")
	}
	if root.NewStack().VarFrame() != root {
		t.Error("VarFrame without a function frame should be the root")
	}
}
