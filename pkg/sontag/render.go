package sontag

import (
	"fmt"
	"strings"
)

// RenderResult is what a tag's Render hands back to the engine. It is either
// resolved text, or a deferred continuation whose output depends on the
// selector the node is eventually applied with. Branch tags such as else
// return Deferred because at render time they cannot know whether their
// branch was chosen.
type RenderResult struct {
	text     string
	deferred func(selector interface{}) (string, error)
}

// Resolved wraps final output text in a RenderResult.
func Resolved(text string) RenderResult {
	return RenderResult{text: text}
}

// Deferred wraps a continuation that produces output once the engine supplies
// the selector in effect for the node.
func Deferred(fn func(selector interface{}) (string, error)) RenderResult {
	return RenderResult{deferred: fn}
}

func (r RenderResult) await(selector interface{}) (string, error) {
	if r.deferred != nil {
		return r.deferred(selector)
	}
	return r.text, nil
}

// ChildRenderer renders a node's children against a scope, joining their
// output strictly in document order. A non-nil selector directs rendering at
// branch (Inside-role) children: every other child yields "" without its
// render running, which keeps unselected branches lazy.
type ChildRenderer func(scope *Scope, selector interface{}) (string, error)

// Environment carries the per-render collaborators a tag's Render may need
// beyond its scope: evaluation policy, configuration, and template inclusion.
type Environment struct {
	engine *Engine
	depth  int // include nesting already consumed
}

// Config returns the engine configuration in effect for this render.
func (e *Environment) Config() Config {
	return e.engine.config
}

// EvalContext builds an expression evaluation context over scope, carrying
// the engine's unresolved-identifier policy.
func (e *Environment) EvalContext(scope *Scope) *EvalContext {
	return &EvalContext{Scope: scope, Strict: e.engine.config.StrictMode}
}

// Evaluate evaluates a parsed expression against scope.
func (e *Environment) Evaluate(expr ExpressionNode, scope *Scope) (interface{}, error) {
	return expr.Evaluate(e.EvalContext(scope))
}

// Include loads, parses, and renders another template against scope. Depth is
// limited by Config.MaxIncludeDepth to keep inclusion cycles from recursing
// forever.
func (e *Environment) Include(name string, scope *Scope) (string, error) {
	if e.depth+1 > e.engine.config.MaxIncludeDepth {
		return "", NewLoadError(name, fmt.Errorf("include depth exceeds limit of %d", e.engine.config.MaxIncludeDepth))
	}

	source, err := e.engine.loadSource(name)
	if err != nil {
		return "", err
	}

	t, err := e.engine.parse(source, name)
	if err != nil {
		return "", err
	}

	nested := &Environment{engine: e.engine, depth: e.depth + 1}
	return renderTree(t, scope, nested)
}

// renderer walks one parsed tree. It knows nothing about any specific tag:
// all control flow lives behind descriptors and the selector protocol.
type renderer struct {
	tree *tree
	env  *Environment
}

func renderTree(t *tree, scope *Scope, env *Environment) (string, error) {
	GetLogger().WithField("template", t.name).Debug("rendering template")
	r := &renderer{tree: t, env: env}
	return r.apply(rootID, scope, nil)
}

// apply renders one node. A non-nil selector is a branch-selection directive:
// only Inside-role tag nodes see it (their deferred continuation decides
// whether to claim it or pass it on); everything else yields "" unrendered.
func (r *renderer) apply(id nodeID, scope *Scope, selector interface{}) (string, error) {
	n := r.tree.node(id)

	if selector != nil && !(n.kind == nodeTag && n.role == RoleInside) {
		return "", nil
	}

	switch n.kind {
	case nodeRoot:
		return r.children(id)(scope, nil)

	case nodeText:
		return n.text, nil

	case nodeExpression:
		if n.expr == nil {
			parsed, err := ParseExpression(n.rawExpr)
			if err != nil {
				return "", NewEvaluationError(n.rawExpr, err)
			}
			n.expr = parsed
		}
		val, err := r.env.Evaluate(n.expr, scope)
		if err != nil {
			return "", err
		}
		return FormatValue(val), nil

	case nodeTag:
		call := TagCall{Name: n.tagName, Role: n.role, Args: n.args, Line: n.line}
		result, err := n.desc.Render(call, scope, r.env, r.children(id))
		if err != nil {
			return "", err
		}
		return result.await(selector)

	default:
		return "", fmt.Errorf("unknown node kind %d", n.kind)
	}
}

// children builds the ChildRenderer for a node. Children are awaited
// sequentially in document order, so output order never depends on how long
// an individual child takes, and bindings set by a child are visible to its
// later siblings.
func (r *renderer) children(id nodeID) ChildRenderer {
	return func(scope *Scope, selector interface{}) (string, error) {
		var sb strings.Builder
		for _, child := range r.tree.node(id).children {
			out, err := r.apply(child, scope, selector)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
		return sb.String(), nil
	}
}
