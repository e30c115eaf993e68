package sontag

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func renderString(t *testing.T, source string, context Context) string {
	t.Helper()
	out, err := New().RenderString(source, context)
	if err != nil {
		t.Fatalf("RenderString(%q): %v", source, err)
	}
	return out
}

func TestRenderBasics(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		context Context
		want    string
	}{
		{"plain text", "hello", nil, "hello"},
		{"expression", "Hello, {{ name }}!", Context{"name": "Ada"}, "Hello, Ada!"},
		{"arithmetic", "{{ 2 * 21 }}", nil, "42"},
		{"missing name renders empty", "[{{ nothing }}]", nil, "[]"},
		{"comment invisible", "a{# hidden #}b", nil, "ab"},
		{"comment absorbs delimiters", "a{# {% if %} {{ x }} #}b", nil, "ab"},
		{"filter pipe", "{{ name | upper }}", Context{"name": "ada"}, "ADA"},
		{"nested data", "{{ user.city }}", Context{"user": Context{"city": "Oslo"}}, "Oslo"},
		{"empty template", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderString(t, tt.source, tt.context); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderIfFamily(t *testing.T) {
	source := "{% if x == 1 %}one{% elseif x == 2 %}two{% else %}many{% endif %}"
	tests := []struct {
		x    int
		want string
	}{
		{1, "one"},
		{2, "two"},
		{3, "many"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := renderString(t, source, Context{"x": tt.x}); got != tt.want {
				t.Errorf("x=%d: got %q, want %q", tt.x, got, tt.want)
			}
		})
	}
}

func TestRenderElseIfSpelledOut(t *testing.T) {
	source := "{% if x %}a{% else if y %}b{% else %}c{% endif %}"
	tests := []struct {
		name    string
		context Context
		want    string
	}{
		{"first branch", Context{"x": true}, "a"},
		{"second branch", Context{"y": true}, "b"},
		{"fallback", Context{}, "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderString(t, source, tt.context); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderNestedIf(t *testing.T) {
	source := "{% if outer %}({% if inner %}both{% else %}outer only{% endif %}){% else %}neither{% endif %}"
	tests := []struct {
		name    string
		context Context
		want    string
	}{
		{"both", Context{"outer": true, "inner": true}, "(both)"},
		{"outer only", Context{"outer": true}, "(outer only)"},
		{"neither", Context{}, "neither"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderString(t, source, tt.context); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// Unselected branches must not render at all: the rejected branch here
// contains a call that would fail the render if it ran.
func TestRenderUnselectedBranchIsLazy(t *testing.T) {
	engine := New(WithFunction("boom", func(args ...interface{}) (interface{}, error) {
		return nil, fmt.Errorf("boom was called")
	}))

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"else branch skipped", "{% if true %}yes{% else %}{{ boom() }}{% endif %}", "yes"},
		{"then branch skipped", "{% if false %}{{ boom() }}{% else %}no{% endif %}", "no"},
		{"later elseif skipped", "{% if true %}yes{% elseif boom() %}{{ boom() }}{% endif %}", "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.RenderString(tt.source, nil)
			if err != nil {
				t.Fatalf("RenderString: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// Output must follow document order even when an early sibling takes longer
// to produce its output than a later one.
func TestRenderOutputFollowsDocumentOrder(t *testing.T) {
	var calls []string
	engine := New(
		WithFunction("slow", func(args ...interface{}) (interface{}, error) {
			time.Sleep(20 * time.Millisecond)
			calls = append(calls, "slow")
			return "first", nil
		}),
		WithFunction("fast", func(args ...interface{}) (interface{}, error) {
			calls = append(calls, "fast")
			return "second", nil
		}),
	)

	got, err := engine.RenderString("{{ slow() }}-{{ fast() }}", nil)
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	if got != "first-second" {
		t.Errorf("got %q, want %q", got, "first-second")
	}
	if strings.Join(calls, ",") != "slow,fast" {
		t.Errorf("call order: got %v", calls)
	}
}

func TestRenderStrictMode(t *testing.T) {
	config := DefaultConfig()
	config.StrictMode = true
	engine := New(WithConfig(config))

	_, err := engine.RenderString("{{ missing }}", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsEvaluationError(err) {
		t.Errorf("wrong error type: %v", err)
	}

	// Same template renders fine without strict mode.
	if got := renderString(t, "{{ missing }}", nil); got != "" {
		t.Errorf("permissive: got %q, want empty", got)
	}
}

// Runtime evaluation failures surface as EvaluationError regardless of which
// operator raised them.
func TestRenderPropagatesEvaluationErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"division by zero", "{{ 1 / 0 }}"},
		{"type mismatch", "{{ 1 + true }}"},
		{"unary misuse", `{{ -"x" }}`},
		{"failing condition", "{% if 1 % 0 %}x{% endif %}"},
	}

	engine := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.RenderString(tt.source, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsEvaluationError(err) {
				t.Errorf("not an EvaluationError: %v", err)
			}
		})
	}
}

// Rendering is repeatable: the same tree semantics hold however many times
// the source renders, and concurrent renders on one engine do not interfere.
func TestRenderConcurrentRenders(t *testing.T) {
	engine := New()
	source := "{% if n == 1 %}one{% else %}other{% endif %}"

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			want := "other"
			if i%2 == 1 {
				want = "one"
			}
			got, err := engine.RenderString(source, Context{"n": i % 2})
			if err == nil && got != want {
				err = fmt.Errorf("got %q, want %q", got, want)
			}
			done <- err
		}(i)
	}
	for i := 0; i < 20; i++ {
		if err := <-done; err != nil {
			t.Error(err)
		}
	}
}
