package config

import "strings"

// defaults returns the built-in configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"ai": map[string]any{
			"enabled":     true,
			"provider":    "anthropic",
			"model":       "claude-sonnet-4-20250514",
			"maxTokens":   int64(4096),
			"temperature": 0.3,
			"stepDelay":   "60ms",
			"format":      "markdown",
			"maxRetries":  int64(3),
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
			"file":   "",
		},
		"history": map[string]any{
			"maxEntries": int64(200),
		},
	}
}

// getPath walks a dotted path through nested maps.
func getPath(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := any(m)
	for _, p := range parts {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath writes a value at a dotted path, creating nested maps.
func setPath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		if i == len(parts)-1 {
			m[p] = value
			return
		}
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
}
