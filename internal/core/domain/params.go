package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QueryParams is the saved, free-form filter definition of a CTL.
type QueryParams map[string]any

// Clone returns a shallow copy.
func (p QueryParams) Clone() QueryParams {
	out := make(QueryParams, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// Has reports whether key is present with a non-nil value.
func (p QueryParams) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value of key formatted as a string.
func (p QueryParams) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// Int returns the integer value of key. Non-numeric values report false.
func (p QueryParams) Int(key string) (int, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

// Bool returns the boolean value of key.
func (p QueryParams) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, false
	}

	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		return false, false
	}
}

// Strings returns the value of key as a string list. Comma separated strings are split.
func (p QueryParams) Strings(key string) []string {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}

	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, fmt.Sprint(e))
		}

		return out
	case string:
		if strings.TrimSpace(list) == "" {
			return nil
		}

		parts := strings.Split(list, ",")
		out := make([]string, 0, len(parts))

		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}

		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}
