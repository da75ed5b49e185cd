package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Canonical returns the identity form of a filesystem path: absolute,
// cleaned, without a trailing separator, lower-cased where the host
// filesystem is case-insensitive. Canonical is idempotent.
func Canonical(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	// Clean strips trailing separators except on a volume root.
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

// Expand resolves "~" and environment variables before canonicalizing,
// so user-typed roots behave the way a shell would treat them.
func Expand(p string) string {
	p = os.ExpandEnv(strings.TrimSpace(p))
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return Canonical(p)
}

// Parent returns the canonical parent directory of p, or "" for a
// filesystem root.
func Parent(p string) string {
	dir := filepath.Dir(p)
	if dir == p {
		return ""
	}
	return dir
}

// Base returns the last element of p, or p itself for a filesystem root
func Base(p string) string {
	b := filepath.Base(p)
	if b == string(filepath.Separator) || b == "." {
		return p
	}
	return b
}

// IsWithin reports whether p equals root or lies below it
func IsWithin(p, root string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// IsAncestor reports whether a is a strict ancestor of p
func IsAncestor(a, p string) bool {
	return a != p && IsWithin(p, a)
}

// Rebase substitutes the oldPrefix of p with newPrefix. It returns p
// unchanged when p is not within oldPrefix.
func Rebase(p, oldPrefix, newPrefix string) string {
	if p == oldPrefix {
		return newPrefix
	}
	if !IsWithin(p, oldPrefix) {
		return p
	}
	return newPrefix + p[len(oldPrefix):]
}

// Segments splits p into its non-empty path elements
func Segments(p string) []string {
	p = filepath.ToSlash(p)
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
