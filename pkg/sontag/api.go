package sontag

import (
	"fmt"
	"sync"
)

// Version is the library version.
const Version = "0.1.0"

// Engine provides the main API for working with templates.
// Use New() to create a new engine instance.
type Engine struct {
	config   Config
	loader   Loader
	registry *TagRegistry

	mu        sync.RWMutex
	filters   map[string]Filter
	functions map[string]Function
}

// New creates a new engine with the global configuration, the built-in tag
// set, and the built-in filters and functions, then applies the options.
func New(opts ...Option) *Engine {
	registry := NewTagRegistry()
	if err := registerBuiltinTags(registry); err != nil {
		GetLogger().Error("failed to register built-in tags: %v", err)
	}

	engine := &Engine{
		config:    *GetGlobalConfig(),
		registry:  registry,
		filters:   builtinFilters(),
		functions: builtinFunctions(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		if config != nil {
			e.config = *config
		}
	}
}

// WithLoader returns an option that sets the template loader used by
// Render and {% include %}.
func WithLoader(loader Loader) Option {
	return func(e *Engine) {
		e.loader = loader
	}
}

// WithTag returns an option that registers a custom tag descriptor.
// Registration failures are logged; use AddTag to handle them explicitly.
func WithTag(desc *TagDescriptor) Option {
	return func(e *Engine) {
		if err := e.registry.Register(desc); err != nil {
			GetLogger().Error("failed to register tag: %v", err)
		}
	}
}

// WithFilter returns an option that registers a custom filter.
func WithFilter(name string, fn Filter) Option {
	return func(e *Engine) {
		e.AddFilter(name, fn)
	}
}

// WithFunction returns an option that registers a custom function.
func WithFunction(name string, fn Function) Option {
	return func(e *Engine) {
		e.AddFunction(name, fn)
	}
}

// AddTag registers a custom tag descriptor. Its names must not collide with
// any name already registered.
func (e *Engine) AddTag(desc *TagDescriptor) error {
	return e.registry.Register(desc)
}

// AddFilter registers a filter under name, replacing any existing one.
func (e *Engine) AddFilter(name string, fn Filter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = fn
}

// AddFunction registers a function under name, replacing any existing one.
func (e *Engine) AddFunction(name string, fn Function) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.functions[name] = fn
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() *Config {
	configCopy := e.config
	return &configCopy
}

// Render loads the named template through the engine's loader and renders it
// against the given context.
func (e *Engine) Render(name string, context Context) (string, error) {
	source, err := e.loadSource(name)
	if err != nil {
		return "", err
	}
	return e.renderSource(source, name, context)
}

// RenderString parses and renders template source directly.
func (e *Engine) RenderString(source string, context Context) (string, error) {
	return e.renderSource(source, "<string>", context)
}

func (e *Engine) renderSource(source, name string, context Context) (string, error) {
	t, err := e.parse(source, name)
	if err != nil {
		return "", err
	}
	env := &Environment{engine: e}
	return renderTree(t, e.rootScope(context), env)
}

func (e *Engine) parse(source, name string) (*tree, error) {
	return parse(source, name, e.registry)
}

func (e *Engine) loadSource(name string) (string, error) {
	if e.loader == nil {
		return "", NewLoadError(name, fmt.Errorf("no loader configured"))
	}
	return e.loader.Load(name)
}

// rootScope builds the scope chain for one render: engine globals (functions
// and the reserved filters binding) at the root, the caller's context layered
// above, and a fresh leaf on top so template-level set never mutates the
// caller's map. Snapshots are taken so a render never races engine mutation.
func (e *Engine) rootScope(context Context) *Scope {
	e.mu.RLock()
	globals := make(map[string]interface{}, len(e.functions)+1)
	for name, fn := range e.functions {
		globals[name] = fn
	}
	filters := make(map[string]Filter, len(e.filters))
	for name, fn := range e.filters {
		filters[name] = fn
	}
	e.mu.RUnlock()

	globals[FiltersKey] = filters
	return NewScope(globals).Child(context).Child(nil)
}

// DefaultEngine is the global default engine instance.
var DefaultEngine = New()

// Render renders the named template with the default engine. The default
// engine has no loader; configure one with WithLoader on your own engine or
// use RenderString.
func Render(name string, context Context) (string, error) {
	return DefaultEngine.Render(name, context)
}

// RenderString parses and renders template source with the default engine.
func RenderString(source string, context Context) (string, error) {
	return DefaultEngine.RenderString(source, context)
}

// AddTag registers a custom tag on the default engine.
func AddTag(desc *TagDescriptor) error {
	return DefaultEngine.AddTag(desc)
}

// AddFilter registers a filter on the default engine.
func AddFilter(name string, fn Filter) {
	DefaultEngine.AddFilter(name, fn)
}

// AddFunction registers a function on the default engine.
func AddFunction(name string, fn Function) {
	DefaultEngine.AddFunction(name, fn)
}
