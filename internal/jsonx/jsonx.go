// Package jsonx reads loosely shaped JSON documents decoded into
// map[string]any. Every accessor is shape-checked and degrades to "absent"
// instead of failing.
package jsonx

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Object is a decoded JSON object.
type Object = map[string]any

// Map returns v as an object when it is one.
func Map(v any) (Object, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

// Slice returns v as an array when it is one.
func Slice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// Path walks nested objects and returns the value at the end of keys.
func Path(m Object, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := Map(cur)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

// Pick returns the first value under keys that is truthy (non-nil, non-zero,
// non-empty, not false).
func Pick(m Object, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && Truthy(v) {
			return v
		}
	}
	return nil
}

// Coalesce returns the first value under keys that is present and non-nil.
func Coalesce(m Object, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Truthy reports whether v would count as set in a loosely typed payload.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	default:
		if f, ok := Float(v); ok {
			return f != 0
		}
		return true
	}
}

// Float returns v as a finite number. Only numeric kinds are accepted.
func Float(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Number is like Float but also accepts numeric strings and booleans.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return Float(v)
}

// FloatOr returns Number(v) or fallback.
func FloatOr(v any, fallback float64) float64 {
	if f, ok := Number(v); ok {
		return f
	}
	return fallback
}

// String returns v when it is a string.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Text renders scalars as strings: numbers without trailing zeros, booleans
// as "true"/"false", nil and composites as "".
func Text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	if f, ok := Float(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// Bool reports whether v is exactly true.
func Bool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
