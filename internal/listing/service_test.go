package listing

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates dirs (trailing "/") and files under a temp root
func makeTree(t *testing.T, paths ...string) string {
	t.Helper()
	root := utils.Canonical(t.TempDir())
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	return root
}

func names(entries []types.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestListOrdering(t *testing.T) {
	root := makeTree(t, "b.txt", "A.txt", "zeta/", "Alpha/", "a.txt", "mid/")
	svc := NewService(nil)

	entries, err := svc.List(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "mid", "zeta", "A.txt", "a.txt", "b.txt"}, names(entries))

	for _, e := range entries {
		assert.Equal(t, filepath.Join(root, e.Name), e.Path)
	}
	assert.Equal(t, types.KindFolder, entries[0].Kind)
	assert.Equal(t, types.KindFile, entries[5].Kind)
}

func TestListIsNotRecursive(t *testing.T) {
	root := makeTree(t, "src/deep/er/file.go", "top.go")
	entries, err := NewService(nil).List(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "top.go"}, names(entries))
}

func TestListExcludePruning(t *testing.T) {
	root := makeTree(t, "node_modules/lodash/index.js", "src/main.go", "cache.pyc")
	entries, err := NewService(nil).List(root, []string{"node_modules", "*.pyc"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(root, "src"), entries[0].Path)
}

func TestListUnderIgnoresAncestors(t *testing.T) {
	base := makeTree(t, "build/proj/src/main.go", "build/proj/build/out.o")
	root := filepath.Join(base, "build", "proj")
	svc := NewService(nil)

	entries, err := svc.ListUnder(root, root, []string{"build"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, names(entries), "only the build folder below the root is pruned")

	entries, err = svc.ListUnder(root, filepath.Join(root, "src"), []string{"build"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, names(entries))

	entries, err = svc.ListUnder(base, root, []string{"proj/build"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, names(entries), "substrings match the root-relative path")
}

func TestListErrors(t *testing.T) {
	root := makeTree(t, "file.txt")
	svc := NewService(nil)

	_, err := svc.List(filepath.Join(root, "missing"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, types.CodeNotFound, Code(err))

	_, err = svc.List(filepath.Join(root, "file.txt"), nil)
	assert.ErrorIs(t, err, ErrNotFound, "a file is not listable")

	if runtime.GOOS != "windows" && os.Geteuid() != 0 {
		locked := filepath.Join(root, "locked")
		require.NoError(t, os.Mkdir(locked, 0o000))
		t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })
		_, err = svc.List(locked, nil)
		assert.ErrorIs(t, err, ErrPermission)
		assert.Equal(t, types.CodePermissionDenied, Code(err))
	}
}

func TestRootSet(t *testing.T) {
	root := makeTree(t, "sub/file.txt", "plain.txt")
	rs := NewRootSet()

	got, err := rs.Add(root + string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = rs.Add(root)
	require.NoError(t, err, "adding twice is idempotent")
	assert.Equal(t, 1, rs.Len())

	_, err = rs.Add(filepath.Join(root, "plain.txt"))
	assert.ErrorIs(t, err, ErrNotFound)

	resolved, err := rs.Resolve(filepath.Join(root, "sub", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub", "file.txt"), resolved)

	resolved, err = rs.Resolve("sub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub"), resolved)

	_, err = rs.Resolve(filepath.Dir(root))
	assert.ErrorIs(t, err, ErrOutsideRoot)

	r, ok := rs.RootOf(filepath.Join(root, "sub"))
	assert.True(t, ok)
	assert.Equal(t, root, r)

	assert.True(t, rs.Remove(root))
	assert.False(t, rs.Remove(root))
	assert.Empty(t, rs.List())
}
