package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault parses s as a base-10 int, falling back to def when s is
// empty or malformed. Surrounding whitespace is tolerated.
func ParseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
