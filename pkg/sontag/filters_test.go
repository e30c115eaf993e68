package sontag

import "testing"

func TestBuiltinFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		value  interface{}
		args   []interface{}
		want   interface{}
	}{
		{"upper", "upper", "hello", nil, "HELLO"},
		{"upper on number", "upper", 42, nil, "42"},
		{"lower", "lower", "HeLLo", nil, "hello"},
		{"trim", "trim", "  x  ", nil, "x"},
		{"length of string", "length", "héllo", nil, 5},
		{"length of slice", "length", []interface{}{1, 2, 3}, nil, 3},
		{"length of map", "length", Context{"a": 1}, nil, 1},
		{"length of nil", "length", nil, nil, 0},
		{"join default separator", "join", []interface{}{"a", "b"}, nil, "ab"},
		{"join with separator", "join", []interface{}{1, 2, 3}, []interface{}{"-"}, "1-2-3"},
		{"default passes value", "default", "x", []interface{}{"fallback"}, "x"},
		{"default on nil", "default", nil, []interface{}{"fallback"}, "fallback"},
		{"default on empty string", "default", "", []interface{}{"fallback"}, "fallback"},
		{"default keeps zero", "default", 0, []interface{}{"fallback"}, 0},
		{"escape", "escape", `<a href="x">&</a>`, nil, "&lt;a href=&#34;x&#34;&gt;&amp;&lt;/a&gt;"},
	}

	filters := builtinFilters()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := filters[tt.filter]
			if !ok {
				t.Fatalf("filter %q not registered", tt.filter)
			}
			got, err := fn(tt.value, tt.args...)
			if err != nil {
				t.Fatalf("%s: %v", tt.filter, err)
			}
			if got != tt.want {
				t.Errorf("%s(%v) = %v, want %v", tt.filter, tt.value, got, tt.want)
			}
		})
	}
}

func TestBuiltinFilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		value  interface{}
		args   []interface{}
	}{
		{"length of number", "length", 42, nil},
		{"join non-iterable", "join", 42, nil},
		{"default without argument", "default", nil, nil},
	}

	filters := builtinFilters()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := filters[tt.filter](tt.value, tt.args...); err == nil {
				t.Errorf("%s: expected error, got nil", tt.filter)
			}
		})
	}
}

func TestRangeFunction(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want []int
	}{
		{"stop only", []interface{}{3}, []int{0, 1, 2}},
		{"start and stop", []interface{}{2, 5}, []int{2, 3, 4}},
		{"with step", []interface{}{0, 10, 5}, []int{0, 5}},
		{"negative step", []interface{}{3, 0, -1}, []int{3, 2, 1}},
		{"empty", []interface{}{0}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := functionRange(tt.args...)
			if err != nil {
				t.Fatalf("range: %v", err)
			}
			items := got.([]interface{})
			if len(items) != len(tt.want) {
				t.Fatalf("got %v, want %v", items, tt.want)
			}
			for i := range items {
				if items[i] != tt.want[i] {
					t.Errorf("item %d: got %v, want %v", i, items[i], tt.want[i])
				}
			}
		})
	}
}

func TestRangeFunctionErrors(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
	}{
		{"no arguments", nil},
		{"too many arguments", []interface{}{1, 2, 3, 4}},
		{"zero step", []interface{}{0, 10, 0}},
		{"non-integer", []interface{}{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := functionRange(tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
