package transform

import "strings"

// NormalizeLabel uppercases a categorical label and trims surrounding whitespace.
func NormalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
