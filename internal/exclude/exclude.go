// Package exclude decides which paths are hidden from listings and watches.
package exclude

import (
	"path/filepath"
	"strings"

	"github.com/aaricantto/GraphFS/internal/utils"
)

// Parse splits a comma-separated pattern list, trimming entries and
// dropping empty ones.
func Parse(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clean trims every pattern and drops empty entries
func Clean(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether any pattern excludes path. A pattern matches when
// it equals a path segment, when it is a '*' glob matching a segment or the
// base name, or when it occurs as a substring of the full path.
// Matching is case-sensitive.
func Matches(path string, patterns []string) bool {
	if len(patterns) == 0 || path == "" {
		return false
	}
	segments := utils.Segments(path)
	name := filepath.Base(path)
	slashed := filepath.ToSlash(path)

	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if strings.Contains(pat, "*") {
			if globMatch(pat, name) {
				return true
			}
			for _, seg := range segments {
				if globMatch(pat, seg) {
					return true
				}
			}
			continue
		}
		for _, seg := range segments {
			if seg == pat {
				return true
			}
		}
		if strings.Contains(path, pat) || strings.Contains(slashed, pat) {
			return true
		}
	}
	return false
}

// MatchesUnder is Matches applied to path relative to root, so the
// directories above root never count as segments. Paths outside root, and
// an empty root, fall back to the full path.
func MatchesUnder(root, path string, patterns []string) bool {
	if root == "" {
		return Matches(path, patterns)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Matches(path, patterns)
	}
	return Matches(rel, patterns)
}

func globMatch(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}

// Matcher is a reusable, immutable pattern set
type Matcher struct {
	patterns []string
}

// New creates a Matcher from already split patterns
func New(patterns ...string) *Matcher {
	return &Matcher{patterns: Clean(patterns)}
}

// FromCSV creates a Matcher from a comma-separated list
func FromCSV(csv string) *Matcher {
	return &Matcher{patterns: Parse(csv)}
}

// Match reports whether path is excluded. A nil Matcher excludes nothing.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	return Matches(path, m.patterns)
}

// Patterns returns a copy of the pattern list
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}

// Empty reports whether the matcher has no patterns
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}
