package policy

import (
	"slices"
	"strings"
)

// Match reports whether any pattern covers feature.
func Match(patterns []string, feature string) bool {
	for _, p := range patterns {
		switch {
		case p == "*" || p == feature:
			return true
		case strings.HasSuffix(p, ".*"):
			if strings.HasPrefix(feature, p[:len(p)-1]) {
				return true
			}
		}
	}
	return false
}

// normalize sorts patterns and drops empty entries and duplicates.
func normalize(patterns []string) []string {
	out := slices.DeleteFunc(slices.Clone(patterns), func(p string) bool {
		return strings.TrimSpace(p) == ""
	})
	slices.Sort(out)
	return slices.Compact(out)
}
