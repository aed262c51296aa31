package types

import "unicode/utf8"

// Iterator yields values until ok is false.
type Iterator interface {
	Next() (v Value, ok bool, err error)
}

// Iterable is implemented by host values that support for-of and
// destructuring.
type Iterable interface {
	Iterator() Iterator
}

// IteratorFunc adapts a function to Iterator.
type IteratorFunc func() (Value, bool, error)

// Next calls f.
func (f IteratorFunc) Next() (Value, bool, error) { return f() }

type sliceIterator struct {
	elems []Value
	i     int
}

func (it *sliceIterator) Next() (Value, bool, error) {
	if it.i >= len(it.elems) {
		return Undefined, false, nil
	}
	v := it.elems[it.i]
	it.i++
	return v, true, nil
}

type stringIterator struct {
	s string
}

func (it *stringIterator) Next() (Value, bool, error) {
	if it.s == "" {
		return Undefined, false, nil
	}
	r, size := utf8.DecodeRuneInString(it.s)
	it.s = it.s[size:]
	return string(r), true, nil
}

// Iterate returns an iterator over v. Strings iterate by code point.
func Iterate(v Value) (Iterator, error) {
	switch v := v.(type) {
	case *Array:
		return v.Iterator(), nil
	case string:
		return &stringIterator{s: v}, nil
	case Iterable:
		return v.Iterator(), nil
	}
	return nil, TypeErrorf("%s is not iterable", Describe(v))
}

// IsIterable reports whether Iterate accepts v.
func IsIterable(v Value) bool {
	switch v.(type) {
	case *Array, string, Iterable:
		return true
	}
	return false
}

// Collect drains an iterator into a slice.
func Collect(it Iterator) ([]Value, error) {
	var out []Value
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
