package mcp

import (
	"strconv"
	"strings"
)

// coercePageNumber folds the shapes agents actually send into an int:
// JSON numbers arrive as float64, some clients send the digits as a string,
// and tests pass native ints. Fractional values are rejected rather than
// truncated so "page 2.5" never silently lands on page 2.
func coercePageNumber(v interface{}) (int, bool) {
	switch value := v.(type) {
	case float64:
		if value != float64(int(value)) {
			return 0, false
		}
		return int(value), true
	case int:
		return value, true
	case int64:
		return int(value), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asInt(v any) int {
	switch value := v.(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
