package utils

import "strconv"

// ClampLimit parses a limit query value, falling back to def and capping at max
func ClampLimit(raw string, def, max int) int {
	limit := def
	if raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}
