package domain

import (
	"fmt"
	"strings"
)

// Params holds connector-specific credentials and settings.
// Values come from JSON so they are strings, bools, numbers, nested
// maps or lists.
type Params map[string]any

// String returns the value for key as a string, or "" when absent.
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case bool, int, int64, float64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

// Bool returns the value for key as a bool. Strings "true", "yes" and "1"
// count as true.
func (p Params) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}

// KeyValues decodes a list of {key, value} pairs (used for extra headers,
// cookies and local storage entries). Pairs with an empty key or value are
// dropped.
func (p Params) KeyValues(key string) map[string]string {
	out := make(map[string]string)
	switch list := p[key].(type) {
	case []any:
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			k, _ := m["key"].(string)
			v, _ := m["value"].(string)
			if k != "" && v != "" {
				out[k] = v
			}
		}
	case []map[string]string:
		for _, m := range list {
			if m["key"] != "" && m["value"] != "" {
				out[m["key"]] = m["value"]
			}
		}
	case map[string]any:
		for k, raw := range list {
			if v, ok := raw.(string); ok && k != "" && v != "" {
				out[k] = v
			}
		}
	}
	return out
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// With returns a copy of p with key set to value.
func (p Params) With(key string, value any) Params {
	out := p.Clone()
	out[key] = value
	return out
}

// MergeParams deep-merges src onto a copy of dst: nested maps are merged
// key by key, every other value in src replaces the one in dst.
func MergeParams(dst, src Params) Params {
	out := dst.Clone()
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := out[k].(map[string]any); ok {
				out[k] = map[string]any(MergeParams(dm, sm))
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Params(t).Clone())
	case Params:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
