package sontag

import (
	"fmt"
	"sort"
	"strings"
)

// branchElse is the selector the if family uses to direct rendering at its
// alternative branches.
const branchElse = "else"

// registerBuiltinTags installs the built-in tag set into a registry.
func registerBuiltinTags(r *TagRegistry) error {
	for _, desc := range []*TagDescriptor{ifTag, forTag, setTag, includeTag} {
		if err := r.Register(desc); err != nil {
			return err
		}
	}
	return nil
}

// ifTag implements {% if %} / {% elseif %} / {% else %} / {% endif %}.
// The start renders its children with a nil selector when the condition
// holds, and with the else selector otherwise. Branch tags return Deferred:
// they claim the else selector when it reaches them, or pass any other
// selector on to their own children.
var ifTag = &TagDescriptor{
	Names:     []string{"if"},
	Inside:    []string{"else", "elseif"},
	ParseArgs: parseCondition,
	Render:    renderIf,
}

// parseCondition parses the optional condition of an if-family tag. A bare
// else has none; "else if cond" arrives with a leading "if" keyword.
func parseCondition(signature string) (interface{}, error) {
	if signature == "" {
		return nil, nil
	}
	if rest, ok := strings.CutPrefix(signature, "if "); ok {
		signature = strings.TrimSpace(rest)
	}
	return ParseExpression(signature)
}

func renderIf(call TagCall, scope *Scope, env *Environment, children ChildRenderer) (RenderResult, error) {
	cond, _ := call.Args.(ExpressionNode)

	if call.Role == RoleStart {
		if cond == nil {
			return RenderResult{}, fmt.Errorf("if tag at line %d requires a condition", call.Line)
		}
		taken, err := evalCondition(cond, scope, env)
		if err != nil {
			return RenderResult{}, err
		}
		if taken {
			text, err := children(scope, nil)
			return Resolved(text), err
		}
		text, err := children(scope, branchElse)
		return Resolved(text), err
	}

	// else / elseif
	return Deferred(func(selector interface{}) (string, error) {
		if selector == nil {
			// A sibling branch was taken.
			return "", nil
		}
		if selector != branchElse {
			return children(scope, selector)
		}
		if cond == nil {
			return children(scope, nil)
		}
		taken, err := evalCondition(cond, scope, env)
		if err != nil {
			return "", err
		}
		if taken {
			return children(scope, nil)
		}
		return children(scope, branchElse)
	}), nil
}

func evalCondition(cond ExpressionNode, scope *Scope, env *Environment) (bool, error) {
	val, err := env.Evaluate(cond, scope)
	if err != nil {
		return false, err
	}
	return isTruthy(val), nil
}

// forTag implements {% for item in seq %} and {% for key, value in map %}.
// Each iteration renders the children against a fresh child scope carrying
// the bound variables and a loop object (index, index0, first, last, length).
var forTag = &TagDescriptor{
	Names:     []string{"for"},
	ParseArgs: parseForSignature,
	Render:    renderFor,
}

type forArgs struct {
	keyVar   string // empty for single-variable loops
	valueVar string
	seq      ExpressionNode
}

func parseForSignature(signature string) (interface{}, error) {
	idx := strings.Index(signature, " in ")
	if idx < 0 {
		return nil, fmt.Errorf("expected \"<var> in <sequence>\"")
	}

	vars := strings.Split(signature[:idx], ",")
	args := forArgs{}
	switch len(vars) {
	case 1:
		args.valueVar = strings.TrimSpace(vars[0])
	case 2:
		args.keyVar = strings.TrimSpace(vars[0])
		args.valueVar = strings.TrimSpace(vars[1])
	default:
		return nil, fmt.Errorf("expected at most two loop variables")
	}
	if args.valueVar == "" || (len(vars) == 2 && args.keyVar == "") {
		return nil, fmt.Errorf("empty loop variable")
	}

	seq, err := ParseExpression(strings.TrimSpace(signature[idx+len(" in "):]))
	if err != nil {
		return nil, err
	}
	args.seq = seq
	return args, nil
}

func renderFor(call TagCall, scope *Scope, env *Environment, children ChildRenderer) (RenderResult, error) {
	args, ok := call.Args.(forArgs)
	if !ok {
		return RenderResult{}, fmt.Errorf("for tag at line %d has no parsed arguments", call.Line)
	}

	seqVal, err := env.Evaluate(args.seq, scope)
	if err != nil {
		return RenderResult{}, err
	}

	keys, values, err := iterationPairs(seqVal)
	if err != nil {
		return RenderResult{}, NewEvaluationError(args.seq.String(), err)
	}

	var sb strings.Builder
	length := len(values)
	for i, value := range values {
		bindings := map[string]interface{}{
			args.valueVar: value,
			"loop": Context{
				"index":  i + 1,
				"index0": i,
				"first":  i == 0,
				"last":   i == length-1,
				"length": length,
			},
		}
		if args.keyVar != "" {
			bindings[args.keyVar] = keys[i]
		}

		text, err := children(scope.Child(bindings), nil)
		if err != nil {
			return RenderResult{}, err
		}
		sb.WriteString(text)
	}
	return Resolved(sb.String()), nil
}

// iterationPairs normalizes an iterable into parallel key and value slices.
// Maps iterate in sorted key order so loop output is deterministic; slices
// and strings use the element index as key.
func iterationPairs(val interface{}) (keys []interface{}, values []interface{}, err error) {
	byKey := func(m func(k string) interface{}, names []string) {
		sort.Strings(names)
		for _, k := range names {
			keys = append(keys, k)
			values = append(values, m(k))
		}
	}

	switch v := val.(type) {
	case Context:
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		byKey(func(k string) interface{} { return v[k] }, names)
		return keys, values, nil
	case map[string]interface{}:
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		byKey(func(k string) interface{} { return v[k] }, names)
		return keys, values, nil
	case map[string]string:
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		byKey(func(k string) interface{} { return v[k] }, names)
		return keys, values, nil
	default:
		items, err := toSlice(val)
		if err != nil {
			return nil, nil, err
		}
		for i, item := range items {
			keys = append(keys, i)
			values = append(values, item)
		}
		return keys, values, nil
	}
}

// setTag implements {% set name = expr %}. The binding lands in the
// innermost scope, so it is visible to later siblings but never escapes to
// the parent scope.
var setTag = &TagDescriptor{
	Names:     []string{"set"},
	Singular:  true,
	ParseArgs: parseSetSignature,
	Render:    renderSet,
}

type setArgs struct {
	name string
	expr ExpressionNode
}

func parseSetSignature(signature string) (interface{}, error) {
	idx := strings.Index(signature, "=")
	if idx < 0 {
		return nil, fmt.Errorf("expected \"<name> = <expression>\"")
	}

	name := strings.TrimSpace(signature[:idx])
	if name == "" || !identifierRegex.MatchString(name) || identifierRegex.FindString(name) != name {
		return nil, fmt.Errorf("invalid binding name %q", name)
	}

	expr, err := ParseExpression(strings.TrimSpace(signature[idx+1:]))
	if err != nil {
		return nil, err
	}
	return setArgs{name: name, expr: expr}, nil
}

func renderSet(call TagCall, scope *Scope, env *Environment, children ChildRenderer) (RenderResult, error) {
	args, ok := call.Args.(setArgs)
	if !ok {
		return RenderResult{}, fmt.Errorf("set tag at line %d has no parsed arguments", call.Line)
	}

	val, err := env.Evaluate(args.expr, scope)
	if err != nil {
		return RenderResult{}, err
	}
	scope.Set(args.name, val)
	return Resolved(""), nil
}

// includeTag implements {% include "name" %}: the named template is loaded
// through the engine's loader and rendered against the current scope.
var includeTag = &TagDescriptor{
	Names:    []string{"include"},
	Singular: true,
	ParseArgs: func(signature string) (interface{}, error) {
		return ParseExpression(signature)
	},
	Render: renderInclude,
}

func renderInclude(call TagCall, scope *Scope, env *Environment, children ChildRenderer) (RenderResult, error) {
	expr, ok := call.Args.(ExpressionNode)
	if !ok {
		return RenderResult{}, fmt.Errorf("include tag at line %d has no parsed arguments", call.Line)
	}

	nameVal, err := env.Evaluate(expr, scope)
	if err != nil {
		return RenderResult{}, err
	}

	text, err := env.Include(FormatValue(nameVal), scope)
	if err != nil {
		return RenderResult{}, err
	}
	return Resolved(text), nil
}
