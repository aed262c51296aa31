package types

import "strconv"

// Property is an own property of an Object. Accessor properties have a
// Getter or Setter and ignore Value.
type Property struct {
	Value  Value
	Getter Function
	Setter Function
}

// IsAccessor reports whether p is an accessor property.
func (p *Property) IsAccessor() bool {
	return p.Getter != nil || p.Setter != nil
}

// Object is an ordinary object with insertion-ordered keys.
type Object struct {
	keys  []string
	props map[string]*Property
	// Class names the constructor that produced the object ("Error" for
	// error objects). Empty for plain objects.
	Class string
	// Constructor is the function that created the object with new.
	Constructor Function
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{props: make(map[string]*Property)}
}

// ObjectOf creates an object from alternating key/value pairs.
func ObjectOf(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.SetOwn(kv[i].(string), kv[i+1])
	}
	return o
}

// Keys returns the own keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of own properties.
func (o *Object) Len() int {
	return len(o.keys)
}

// Has reports whether key is an own property.
func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Property returns the own property named key.
func (o *Object) Property(key string) (*Property, bool) {
	p, ok := o.props[key]
	return p, ok
}

// Get returns the value of key, calling its getter with o as this.
// Missing keys yield undefined.
func (o *Object) Get(key string) (Value, error) {
	p, ok := o.props[key]
	if !ok {
		return Undefined, nil
	}
	if p.IsAccessor() {
		if p.Getter == nil {
			return Undefined, nil
		}
		return p.Getter.Call(o, nil)
	}
	return p.Value, nil
}

// Lookup returns a data property value without invoking accessors.
func (o *Object) Lookup(key string) (Value, bool) {
	p, ok := o.props[key]
	if !ok || p.IsAccessor() {
		return Undefined, ok
	}
	return p.Value, true
}

// Set assigns key, calling its setter with o as this.
func (o *Object) Set(key string, v Value) error {
	if p, ok := o.props[key]; ok && p.IsAccessor() {
		if p.Setter == nil {
			return nil
		}
		_, err := p.Setter.Call(o, []Value{v})
		return err
	}
	o.SetOwn(key, v)
	return nil
}

// SetOwn defines or overwrites a data property without invoking setters.
func (o *Object) SetOwn(key string, v Value) {
	if p, ok := o.props[key]; ok {
		p.Value, p.Getter, p.Setter = v, nil, nil
		return
	}
	o.keys = append(o.keys, key)
	o.props[key] = &Property{Value: v}
}

// DefineAccessor adds a getter or setter to key, keeping the other half if
// one is already defined.
func (o *Object) DefineAccessor(key string, getter, setter Function) {
	p, ok := o.props[key]
	if !ok {
		p = &Property{}
		o.keys = append(o.keys, key)
		o.props[key] = p
	}
	p.Value = nil
	if getter != nil {
		p.Getter = getter
	}
	if setter != nil {
		p.Setter = setter
	}
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.props[key]; !ok {
		return false
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// String returns the default object string.
func (o *Object) String() string {
	if o.Class == "Error" {
		name, _ := o.Lookup("name")
		msg, _ := o.Lookup("message")
		if s, _ := msg.(string); s != "" {
			return ToString(name) + ": " + s
		}
		return ToString(name)
	}
	return "[object Object]"
}

// NewError creates an error object with the given name and message.
func NewError(name, message string) *Object {
	o := ObjectOf("name", name, "message", message)
	o.Class = "Error"
	return o
}

// Array is an ordered list of values. Holes read as undefined.
type Array struct {
	Elems []Value
	// Props holds named properties such as the index and input of a
	// regular expression match. Usually nil.
	Props *Object
}

// NewArray creates an array holding elems.
func NewArray(elems ...Value) *Array {
	if elems == nil {
		elems = []Value{}
	}
	return &Array{Elems: elems}
}

// Len returns the array length.
func (a *Array) Len() int {
	return len(a.Elems)
}

// At returns element i or undefined when out of range.
func (a *Array) At(i int) Value {
	if i < 0 || i >= len(a.Elems) {
		return Undefined
	}
	return a.Elems[i]
}

// SetAt stores v at i, growing the array with undefined as needed.
func (a *Array) SetAt(i int, v Value) {
	for len(a.Elems) <= i {
		a.Elems = append(a.Elems, Undefined)
	}
	a.Elems[i] = v
}

// Push appends values and returns the new length.
func (a *Array) Push(vs ...Value) int {
	a.Elems = append(a.Elems, vs...)
	return len(a.Elems)
}

// SetLength truncates or extends the array.
func (a *Array) SetLength(n int) {
	if n < len(a.Elems) {
		a.Elems = a.Elems[:n]
		return
	}
	a.SetAt(n-1, Undefined)
}

// Iterator returns an iterator over the elements.
func (a *Array) Iterator() Iterator {
	return &sliceIterator{elems: a.Elems}
}

// String joins the elements with commas.
func (a *Array) String() string {
	return a.Join(",")
}

// Join concatenates the elements' strings; null and undefined become
// empty.
func (a *Array) Join(sep string) string {
	var b []byte
	for i, e := range a.Elems {
		if i > 0 {
			b = append(b, sep...)
		}
		if !IsNullish(e) {
			b = append(b, ToString(e)...)
		}
	}
	return string(b)
}

// Index parses an array index key.
func Index(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
