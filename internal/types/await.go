package types

// Thenable is implemented by host values that complete asynchronously.
// Await blocks until the value is available.
type Thenable interface {
	Await() (Value, error)
}

// Awaitable is the result of an await expression. Evaluation never
// suspends; the host decides when to resolve the wrapped value.
type Awaitable struct {
	Value Value
}

// Resolve unwraps nested awaitables and waits on thenables.
func (a *Awaitable) Resolve() (Value, error) {
	return Resolve(a.Value)
}

// String renders the awaitable the way a pending promise prints.
func (a *Awaitable) String() string {
	return "[object Promise]"
}

// Resolve returns v with every Awaitable and Thenable layer removed.
func Resolve(v Value) (Value, error) {
	for {
		switch t := v.(type) {
		case *Awaitable:
			v = t.Value
		case Thenable:
			next, err := t.Await()
			if err != nil {
				return nil, err
			}
			v = next
		default:
			return v, nil
		}
	}
}
