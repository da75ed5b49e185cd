package utils

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"root", "/", "/"},
		{"trailing separator", "/a/b/", "/a/b"},
		{"double separators", "/a//b///c", "/a/b/c"},
		{"dot segments", "/a/./b/../c", "/a/c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonical(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Canonical(got), "canonical form must be idempotent")
		})
	}
}

func TestParentAndBase(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	assert.Equal(t, "/a", Parent("/a/b"))
	assert.Equal(t, "/", Parent("/a"))
	assert.Equal(t, "", Parent("/"))
	assert.Equal(t, "b", Base("/a/b"))
	assert.Equal(t, "/", Base("/"))
}

func TestIsWithinAndAncestor(t *testing.T) {
	a := filepath.FromSlash("/a/b")
	assert.True(t, IsWithin(a, a))
	assert.True(t, IsWithin(filepath.FromSlash("/a/b/c"), a))
	assert.False(t, IsWithin(filepath.FromSlash("/a/bc"), a), "sibling sharing a name prefix is not within")
	assert.False(t, IsAncestor(a, a))
	assert.True(t, IsAncestor(a, filepath.FromSlash("/a/b/c/d")))
}

func TestRebase(t *testing.T) {
	old := filepath.FromSlash("/a/b")
	nu := filepath.FromSlash("/a/x")
	assert.Equal(t, nu, Rebase(old, old, nu))
	assert.Equal(t, filepath.FromSlash("/a/x/c/d.txt"), Rebase(filepath.FromSlash("/a/b/c/d.txt"), old, nu))
	assert.Equal(t, filepath.FromSlash("/a/bc"), Rebase(filepath.FromSlash("/a/bc"), old, nu))
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"proj", "node_modules", "x"}, Segments("/proj/node_modules/x/"))
}
