package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Value is a runtime setting value: bool, string (option key) or float64.
type Value = any

// FormatValue stringifies a value the way option keys are compared.
func FormatValue(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// FormatFixed formats f with exactly decimals fractional digits.
func FormatFixed(f float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// ToFloat converts numeric values and numeric strings to float64.
func ToFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// ToBool converts bools and "true"/"false" strings (any case) to bool.
func ToBool(v Value) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// ValuesEqual compares two setting values; numbers compare numerically.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr && !bStr {
		fa, okA := ToFloat(a)
		fb, okB := ToFloat(b)
		if okA && okB {
			return fa == fb
		}
	}
	ba, okA := a.(bool)
	bb, okB := b.(bool)
	if okA || okB {
		return okA && okB && ba == bb
	}
	return FormatValue(a) == FormatValue(b)
}

// Decimals returns the number of fractional digits in the shortest form of step.
func Decimals(step float64) int {
	s := strconv.FormatFloat(step, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
