package processor

import "path/filepath"

// Matcher selects files by base name using filepath.Match globs.
// Matching is case-sensitive on every platform: "*.csv" does not select
// "c.CSV".
type Matcher struct {
	patterns []string
}

// NewMatcher creates a matcher for the given patterns
func NewMatcher(patterns []string) Matcher {
	return Matcher{patterns: patterns}
}

// Match reports whether name matches at least one pattern. Malformed
// patterns never match.
func (m Matcher) Match(name string) bool {
	for _, p := range m.patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
