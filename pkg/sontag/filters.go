package sontag

import (
	"fmt"
	"html"
	"strings"
)

// Filter transforms a piped value: {{ name | upper }}. The piped value
// arrives first, any listed arguments after it.
type Filter func(value interface{}, args ...interface{}) (interface{}, error)

// Function is a callable bound in scope: {{ range(3) }}. Functions are
// ordinary scope values; only the call syntax distinguishes them from data.
type Function func(args ...interface{}) (interface{}, error)

// builtinFilters returns the default filter mapping seeded under FiltersKey.
func builtinFilters() map[string]Filter {
	return map[string]Filter{
		"upper":   filterUpper,
		"lower":   filterLower,
		"trim":    filterTrim,
		"length":  filterLength,
		"join":    filterJoin,
		"default": filterDefault,
		"escape":  filterEscape,
	}
}

// builtinFunctions returns the default functions seeded into the global scope.
func builtinFunctions() map[string]Function {
	return map[string]Function{
		"range": functionRange,
	}
}

func filterUpper(value interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToUpper(FormatValue(value)), nil
}

func filterLower(value interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToLower(FormatValue(value)), nil
}

func filterTrim(value interface{}, args ...interface{}) (interface{}, error) {
	return strings.TrimSpace(FormatValue(value)), nil
}

func filterLength(value interface{}, args ...interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		return len([]rune(v)), nil
	case Context:
		return len(v), nil
	case map[string]interface{}:
		return len(v), nil
	default:
		items, err := toSlice(value)
		if err != nil {
			return nil, fmt.Errorf("length: %w", err)
		}
		return len(items), nil
	}
}

func filterJoin(value interface{}, args ...interface{}) (interface{}, error) {
	items, err := toSlice(value)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	sep := ""
	if len(args) > 0 {
		sep = FormatValue(args[0])
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = FormatValue(item)
	}
	return strings.Join(parts, sep), nil
}

// filterDefault substitutes its argument when the piped value is nil or the
// empty string.
func filterDefault(value interface{}, args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("default: expected exactly one argument, got %d", len(args))
	}
	if value == nil || value == "" {
		return args[0], nil
	}
	return value, nil
}

func filterEscape(value interface{}, args ...interface{}) (interface{}, error) {
	return html.EscapeString(FormatValue(value)), nil
}

// functionRange mirrors the usual range(stop), range(start, stop), and
// range(start, stop, step) forms, yielding a slice of ints.
func functionRange(args ...interface{}) (interface{}, error) {
	nums := make([]int, len(args))
	for i, arg := range args {
		n, ok := toInt(arg)
		if !ok {
			return nil, fmt.Errorf("range: argument %d is not an integer: %v", i, arg)
		}
		nums[i] = n
	}

	start, stop, step := 0, 0, 1
	switch len(nums) {
	case 1:
		stop = nums[0]
	case 2:
		start, stop = nums[0], nums[1]
	case 3:
		start, stop, step = nums[0], nums[1], nums[2]
	default:
		return nil, fmt.Errorf("range: expected 1 to 3 arguments, got %d", len(nums))
	}
	if step == 0 {
		return nil, fmt.Errorf("range: step cannot be zero")
	}

	var result []interface{}
	if step > 0 {
		for i := start; i < stop; i += step {
			result = append(result, i)
		}
	} else {
		for i := start; i > stop; i += step {
			result = append(result, i)
		}
	}
	return result, nil
}
