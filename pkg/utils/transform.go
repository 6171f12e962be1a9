package utils

import (
	"strings"
)

// Dedup removes duplicate entries, ignoring trailing slashes (endpoint lists).
func Dedup(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range in {
		e = strings.TrimRight(e, "/")
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
