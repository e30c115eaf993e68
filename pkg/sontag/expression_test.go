package sontag

import (
	"fmt"
	"testing"
)

func evalExpr(t *testing.T, expr string, scope *Scope, strict bool) (interface{}, error) {
	t.Helper()
	node, err := ParseExpression(expr)
	if err != nil {
		t.Fatalf("ParseExpression(%q): %v", expr, err)
	}
	return node.Evaluate(&EvalContext{Scope: scope, Strict: strict})
}

func TestExpressionEvaluation(t *testing.T) {
	scope := NewScope(map[string]interface{}{
		"name":  "ada",
		"age":   36,
		"pi":    3.14,
		"admin": true,
		"items": []interface{}{"a", "b", "c"},
		"user": Context{
			"address": Context{"city": "London"},
		},
		"double": Function(func(args ...interface{}) (interface{}, error) {
			n, _ := toFloat64(args[0])
			return int(n) * 2, nil
		}),
		FiltersKey: map[string]Filter{
			"upper": filterUpper,
			"join":  filterJoin,
		},
	})

	tests := []struct {
		name string
		expr string
		want interface{}
	}{
		{"integer literal", "42", 42},
		{"float literal", "3.5", 3.5},
		{"string literal", `"hi"`, "hi"},
		{"single quoted string", `'hi'`, "hi"},
		{"true literal", "true", true},
		{"false literal", "false", false},
		{"null literal", "null", nil},
		{"variable", "name", "ada"},
		{"addition", "1 + 2", 3},
		{"precedence", "1 + 2 * 3", 7},
		{"parentheses", "(1 + 2) * 3", 9},
		{"float arithmetic", "pi * 2", 6.28},
		{"integer division", "10 / 2", 5},
		{"fractional division", "7 / 2", 3.5},
		{"modulo", "7 % 3", 1},
		{"unary minus", "-age", -36},
		{"string concatenation", `name + "!"`, "ada!"},
		{"string and number", `"v" + 2`, "v2"},
		{"equality", "age == 36", true},
		{"numeric widening equality", "age == 36.0", true},
		{"inequality", "age != 36", false},
		{"comparison", "age > 18", true},
		{"comparison chain result", "age >= 36", true},
		{"and", "admin and age > 18", true},
		{"and short-circuits", "false and missing_fn()", false},
		{"or short-circuits", "true or missing_fn()", true},
		{"not", "not admin", false},
		{"bang", "!admin", false},
		{"in slice", `"b" in items`, true},
		{"not in slice", `"z" in items`, false},
		{"in string", `"ad" in name`, true},
		{"in map", `"address" in user`, true},
		{"field access", "user.address.city", "London"},
		{"index access", "items[1]", "b"},
		{"negative index", "items[-1]", "c"},
		{"index out of range", "items[9]", nil},
		{"computed index", "items[age - 35]", "b"},
		{"function call", "double(21)", 42},
		{"call in arithmetic", "double(2) + 1", 5},
		{"pipe", "name | upper", "ADA"},
		{"pipe with args", `items | join: "-"`, "a-b-c"},
		{"chained pipes", `name | upper | join: "."`, "A.D.A"},
		{"pipe binds loosely", `"a" + "b" | upper`, "AB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalExpr(t, tt.expr, scope, false)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v (%T), want %v (%T)", tt.expr, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestExpressionParseErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"dangling operator", "1 +"},
		{"unclosed paren", "(1 + 2"},
		{"unclosed index", "items[1"},
		{"unexpected character", "a & b"},
		{"trailing garbage", "1 2"},
		{"pipe without name", "x |"},
		{"unclosed call", "f(1,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseExpression(tt.expr); err == nil {
				t.Errorf("ParseExpression(%q): expected error, got nil", tt.expr)
			}
		})
	}
}

func TestExpressionEvaluationErrors(t *testing.T) {
	scope := NewScope(map[string]interface{}{
		"n": 1,
		"boom": Function(func(args ...interface{}) (interface{}, error) {
			return nil, fmt.Errorf("boom")
		}),
		FiltersKey: map[string]Filter{},
	})

	tests := []struct {
		name string
		expr string
	}{
		{"division by zero", "1 / 0"},
		{"modulo by zero", "1 % 0"},
		{"add number and bool", "1 + true"},
		{"compare incomparable", `n < "x"`},
		{"unary minus on string", `-"x"`},
		{"unknown function", "nope(1)"},
		{"calling a non-function", "n(1)"},
		{"failing function", "boom()"},
		{"unknown filter", "n | nope"},
		{"membership in number", "1 in n"},
		{"index with bad type", "n[1.5]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := ParseExpression(tt.expr)
			if err != nil {
				t.Fatalf("ParseExpression(%q): %v", tt.expr, err)
			}
			_, err = node.Evaluate(&EvalContext{Scope: scope})
			if err == nil {
				t.Fatalf("Evaluate(%q): expected error, got nil", tt.expr)
			}
			if !IsEvaluationError(err) {
				t.Errorf("Evaluate(%q): not an EvaluationError: %v", tt.expr, err)
			}
		})
	}
}

func TestUnresolvedIdentifierPolicy(t *testing.T) {
	scope := NewScope(nil)

	got, err := evalExpr(t, "missing", scope, false)
	if err != nil || got != nil {
		t.Errorf("permissive: got %v, %v; want nil, nil", got, err)
	}

	_, err = evalExpr(t, "missing", scope, true)
	if err == nil {
		t.Fatal("strict: expected error, got nil")
	}
	if !IsEvaluationError(err) {
		t.Errorf("strict: wrong error type: %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"int", 42, "42"},
		{"float without noise", 2.5, "2.5"},
		{"whole float", 3.0, "3"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.value); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
