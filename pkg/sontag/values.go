package sontag

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue converts an evaluated value to its output string form.
// nil formats as the empty string.
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		// 'g' with precision 15 removes trailing zeros and avoids most
		// binary representation noise.
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func toInt(val interface{}) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		if v == float32(int(v)) {
			return int(v), true
		}
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func isInteger(val interface{}) bool {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func isTruthy(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	case Context:
		return len(v) > 0
	default:
		if f, ok := toFloat64(val); ok {
			return f != 0
		}
		return true // non-nil objects are truthy
	}
}

// accessMapField accesses a field in a map-like structure. Missing fields
// and non-map values yield nil.
func accessMapField(current interface{}, field string) interface{} {
	if current == nil {
		return nil
	}

	switch v := current.(type) {
	case Context:
		return v[field]
	case map[string]interface{}:
		return v[field]
	case map[string]string:
		return v[field]
	case map[string]int:
		return v[field]
	case map[string]float64:
		return v[field]
	case map[string]bool:
		return v[field]
	default:
		return nil
	}
}

// accessArrayIndex accesses a slice element by index. Negative indices count
// from the end; out-of-range access yields nil.
func accessArrayIndex(current interface{}, index int) interface{} {
	items, err := toSlice(current)
	if err != nil {
		return nil
	}
	if index < 0 {
		index = len(items) + index
	}
	if index >= 0 && index < len(items) {
		return items[index]
	}
	return nil
}

// toSlice converts the iterable value kinds to []interface{}.
func toSlice(val interface{}) ([]interface{}, error) {
	if val == nil {
		return []interface{}{}, nil
	}

	switch v := val.(type) {
	case []interface{}:
		return v, nil
	case []string:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []int:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []float64:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []bool:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []map[string]interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []Context:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case string:
		result := make([]interface{}, 0, len(v))
		for _, r := range v {
			result = append(result, string(r))
		}
		return result, nil
	default:
		return nil, fmt.Errorf("type %T is not iterable", val)
	}
}

// containsValue implements the "in" operator: slice membership, map key
// presence, or substring test.
func containsValue(needle, haystack interface{}) (bool, error) {
	switch h := haystack.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("cannot test %T membership in a string", needle)
		}
		return strings.Contains(h, s), nil
	case map[string]interface{}:
		key, ok := needle.(string)
		if !ok {
			return false, nil
		}
		_, found := h[key]
		return found, nil
	case Context:
		key, ok := needle.(string)
		if !ok {
			return false, nil
		}
		_, found := h[key]
		return found, nil
	default:
		items, err := toSlice(haystack)
		if err != nil {
			return false, fmt.Errorf("cannot test membership in %T", haystack)
		}
		for _, item := range items {
			if equalValues(needle, item) {
				return true, nil
			}
		}
		return false, nil
	}
}

// equalValues compares two values, treating numbers of different widths as
// equal when their numeric values match.
func equalValues(left, right interface{}) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}
	if lf, ok := toFloat64(left); ok {
		if rf, ok := toFloat64(right); ok {
			return lf == rf
		}
	}
	return left == right
}
