package utils

import "math"

// SanitizeForJSON walks a decoded JSON value and replaces NaN and Inf
// floats with nil so the result always encodes as standards-compliant
// JSON. Maps and slices are rebuilt; everything else passes through.
func SanitizeForJSON(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case []float64:
		out := make([]interface{}, len(v))
		for i, f := range v {
			out[i] = SanitizeForJSON(f)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = SanitizeForJSON(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = SanitizeForJSON(item)
		}
		return out
	default:
		return value
	}
}
