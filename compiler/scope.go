package compiler

import "github.com/robfig/tstmpl/data"

type scope []data.Map // a stack of variable scopes

// push creates a new scope
func (s *scope) push() {
	*s = append(*s, make(data.Map))
}

// set adds a new binding to the deepest scope
func (s scope) set(k string, v data.Value) {
	s[len(s)-1][k] = v
}

// lookup checks the variable scopes, deepest out, for the given key
func (s scope) lookup(k string) (data.Value, bool) {
	for i := range s {
		var elem = s[len(s)-i-1]
		if val, ok := elem[k]; ok {
			return val, true
		}
	}
	return data.Undefined{}, false
}

// capture returns a copy of the stack, for a closure to resolve names in the
// scope where it was created.
func (s scope) capture() scope {
	return append(scope(nil), s...)
}
