package sontag

// FiltersKey is the reserved scope binding under which the filters mapping
// lives. The pipe operator resolves filter names through this key; everything
// else in scope is ordinary data.
const FiltersKey = "filters"

// Context is the caller-supplied data for one render. It becomes the
// innermost scope over the engine's global scope.
//
// Example:
//
//	data := sontag.Context{
//	    "name": "Ada",
//	    "items": []interface{}{"one", "two"},
//	}
type Context map[string]interface{}

// Scope is a parent-chained mapping of names to values. Lookup walks to the
// parent on a miss; a child scope never mutates its parent's bindings. Child
// scopes are created per nested render context, e.g. one per loop iteration,
// and are discarded with the render that created them.
type Scope struct {
	bindings map[string]interface{}
	parent   *Scope
}

// NewScope creates a root scope over the given bindings. A nil map is
// allowed and treated as empty.
func NewScope(bindings map[string]interface{}) *Scope {
	return &Scope{bindings: bindings}
}

// Child creates a scope layered over s. The child owns its bindings map;
// writes through Set never reach s.
func (s *Scope) Child(bindings map[string]interface{}) *Scope {
	if bindings == nil {
		bindings = make(map[string]interface{})
	}
	return &Scope{bindings: bindings, parent: s}
}

// Lookup resolves name through the scope chain. The second return value
// reports whether the name was bound anywhere in the chain.
func (s *Scope) Lookup(name string) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.bindings != nil {
			if v, ok := cur.bindings[name]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Set binds name in this scope's own leaf bindings. Parent scopes are never
// touched; a shadowed parent binding reappears once this scope is discarded.
func (s *Scope) Set(name string, value interface{}) {
	if s.bindings == nil {
		s.bindings = make(map[string]interface{})
	}
	s.bindings[name] = value
}

// filters returns the reserved filters mapping visible from s, or nil if the
// chain has none.
func (s *Scope) filters() map[string]Filter {
	v, ok := s.Lookup(FiltersKey)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]Filter)
	return m
}
