// SPDX-License-Identifier: MPL-2.0

package envbuild

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Stringify converts a decoded YAML/JSON scalar or compound value into the
// string form placed into the environment. Booleans become "true"/"false",
// numbers their shortest decimal form, nil the empty string, and lists or
// maps compact JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", x)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		data, err := json.Marshal(normalizeForJSON(v))
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// normalizeForJSON turns map[any]any, which YAML may produce for non-string
// keys, into map[string]any.
func normalizeForJSON(v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[Stringify(k)] = normalizeForJSON(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = normalizeForJSON(val)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeForJSON(val)
		}
		return out
	default:
		return v
	}
}

// StringifyMap coerces every value of m.
func StringifyMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Stringify(v)
	}
	return out
}
