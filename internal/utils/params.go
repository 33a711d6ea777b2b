// Package utils holds small parsing helpers shared by the HTTP layer.
package utils

import (
	"strconv"
	"strings"
)

// OptionalInt parses an optional integer query value. Blank input reports
// present=false with no error; surrounding whitespace is ignored.
func OptionalInt(raw string) (n int, present bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}
