package sontag

import (
	"fmt"
	"sync"
)

// endPrefix is the closing marker prepended to every opening name of a
// non-singular tag family: "if" closes with "endif".
const endPrefix = "end"

// TagDescriptor is the unit of tag extensibility. One descriptor describes a
// whole tag family: its opening names, optional inside names separating
// branches, how its inline arguments are parsed, and how it renders.
//
// ParseArgs runs exactly once per tag occurrence, at parse time.
// Implementations are expected to reuse the expression grammar (see
// ParseExpression) for inline argument syntax rather than inventing their
// own. Render may block on external work; see RenderResult for the deferred
// branch-selection protocol.
type TagDescriptor struct {
	// Names are the opening names of the family. Each routes to a Start
	// node; "end"+name routes to an End node unless Singular is set.
	Names []string
	// Singular marks tags with no matching end tag and no children scope,
	// e.g. {% set x = 1 %}.
	Singular bool
	// Inside are the names that may appear between Start and End of this
	// family, e.g. "else" inside "if".
	Inside []string
	// ParseArgs turns the raw signature (everything after the tag name,
	// trimmed) into the arguments handed to Render.
	ParseArgs func(signature string) (interface{}, error)
	// Render produces the tag's output. The call describes which name and
	// role of the family is rendering and carries its parsed arguments.
	Render func(call TagCall, scope *Scope, env *Environment, children ChildRenderer) (RenderResult, error)
}

// TagCall identifies the tag occurrence currently rendering.
type TagCall struct {
	Name string
	Role Role
	Args interface{}
	Line int
}

// tagRoute is the routing target derived for one tag name at registration.
type tagRoute struct {
	desc   *TagDescriptor
	role   Role
	family int
}

// TagRegistry maps tag names to (descriptor, role, family) triples. The tree
// builder consults it to validate nesting and move the cursor; it needs no
// knowledge of any tag's semantics beyond role and family identity.
type TagRegistry struct {
	mu     sync.RWMutex
	routes map[string]tagRoute
	next   int // next family identity
}

// NewTagRegistry creates an empty tag registry.
func NewTagRegistry() *TagRegistry {
	return &TagRegistry{routes: make(map[string]tagRoute)}
}

// Register derives routing for a descriptor: every opening name routes to a
// Start role, every inside name to an Inside role, and for non-singular
// families "end"+name to an End role. All names of one descriptor share a
// family identity compared by value when validating nesting.
func (r *TagRegistry) Register(desc *TagDescriptor) error {
	if desc == nil || len(desc.Names) == 0 {
		return fmt.Errorf("tag descriptor must have at least one opening name")
	}
	if desc.Render == nil {
		return fmt.Errorf("tag descriptor %q must have a render implementation", desc.Names[0])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	family := r.next
	add := func(name string, role Role) error {
		if name == "" {
			return fmt.Errorf("tag name cannot be empty")
		}
		if _, exists := r.routes[name]; exists {
			return fmt.Errorf("tag name %q already registered", name)
		}
		r.routes[name] = tagRoute{desc: desc, role: role, family: family}
		return nil
	}

	for _, name := range desc.Names {
		if err := add(name, RoleStart); err != nil {
			return err
		}
		if !desc.Singular {
			if err := add(endPrefix+name, RoleEnd); err != nil {
				return err
			}
		}
	}
	for _, name := range desc.Inside {
		if err := add(name, RoleInside); err != nil {
			return err
		}
	}

	r.next++
	return nil
}

// lookup resolves a tag name to its route.
func (r *TagRegistry) lookup(name string) (tagRoute, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[name]
	return route, ok
}

// Names returns all registered tag names.
func (r *TagRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}
