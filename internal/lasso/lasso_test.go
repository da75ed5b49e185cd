package lasso

import (
	"path/filepath"
	"testing"

	"github.com/aaricantto/GraphFS/internal/graph"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(s string) string {
	return utils.Canonical(filepath.FromSlash(s))
}

func entry(path string, kind types.NodeKind) types.Entry {
	return types.Entry{Name: utils.Base(p(path)), Path: p(path), Kind: kind}
}

// tree builds /a{b{c{d.txt}}, e, f.txt} with a, b and c open
func tree(t *testing.T) (*graph.State, *[]string) {
	t.Helper()
	var reqs []string
	s := graph.NewState(graph.RequesterFunc(func(path string) { reqs = append(reqs, path) }), nil)
	require.NoError(t, s.AddRoot(p("/a"), "", nil))
	require.True(t, s.ApplyListing(p("/a"), []types.Entry{
		entry("/a/b", types.KindFolder), entry("/a/e", types.KindFolder), entry("/a/f.txt", types.KindFile),
	}))
	require.NoError(t, s.Expand(p("/a/b")))
	require.True(t, s.ApplyListing(p("/a/b"), []types.Entry{entry("/a/b/c", types.KindFolder)}))
	require.NoError(t, s.Expand(p("/a/b/c")))
	require.True(t, s.ApplyListing(p("/a/b/c"), []types.Entry{entry("/a/b/c/d.txt", types.KindFile)}))
	reqs = nil
	return s, &reqs
}

func TestResolveTopLevelOnly(t *testing.T) {
	s, _ := tree(t)
	plan := Resolve(s, []string{p("/a/b/c"), p("/a/b"), p("/a/f.txt"), p("/a/b/c/d.txt"), p("/missing")})

	assert.Equal(t, []string{p("/a/f.txt"), p("/a/b/c/d.txt")}, plan.ToggleFiles)
	assert.Equal(t, []string{p("/a/b")}, plan.Collapse, "/a/b/c is covered by /a/b")
	assert.Empty(t, plan.Expand)
}

func TestResolveOrdering(t *testing.T) {
	s, _ := tree(t)
	require.NoError(t, s.Collapse(p("/a/b")))
	require.True(t, s.ApplyListing(p("/a"), []types.Entry{
		entry("/a/b", types.KindFolder), entry("/a/e", types.KindFolder), entry("/a/f.txt", types.KindFile),
	}))

	plan := Resolve(s, []string{p("/a/e"), p("/a/b")})
	assert.Equal(t, []string{p("/a/e"), p("/a/b")}, plan.Expand, "equal depth keeps capture order")
	assert.Empty(t, plan.Collapse)
}

func TestLassoCollapsesDeepestFirst(t *testing.T) {
	s, reqs := tree(t)
	require.NoError(t, s.AddRoot(p("/r"), "", nil))
	require.True(t, s.ApplyListing(p("/r"), []types.Entry{entry("/r/s", types.KindFolder)}))
	require.NoError(t, s.Expand(p("/r/s")))
	require.True(t, s.ApplyListing(p("/r/s"), nil))
	*reqs = nil

	plan := Resolve(s, []string{p("/a"), p("/a/b"), p("/r/s")})
	assert.Equal(t, []string{p("/r/s"), p("/a")}, plan.Collapse)

	n := Apply(s, plan)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, s.Len(), "the two roots plus the collapsed /r/s")
	rs, ok := s.Node(p("/r/s"))
	require.True(t, ok)
	assert.False(t, rs.IsOpen)
	assert.Empty(t, rs.Children)
	assert.Empty(t, s.Children(p("/a")))
	assert.Empty(t, s.Selected())
	assert.Empty(t, *reqs)
	require.NoError(t, s.CheckInvariants(), "no orphaned node-table entries")
}

func TestApplyExpandsShallowestFirst(t *testing.T) {
	s, reqs := tree(t)
	require.NoError(t, s.Collapse(p("/a/b")))

	plan := Plan{Expand: []string{p("/a/e"), p("/a/b")}}
	assert.Equal(t, 2, Apply(s, plan))
	assert.Equal(t, []string{p("/a/e"), p("/a/b")}, *reqs)
	require.NoError(t, s.CheckInvariants())
}

func TestApplySkipsVanishedPaths(t *testing.T) {
	s, reqs := tree(t)
	plan := Resolve(s, []string{p("/a/b/c/d.txt"), p("/a/b/c"), p("/a/e")})
	assert.Equal(t, []string{p("/a/b/c")}, plan.Collapse)
	assert.Equal(t, []string{p("/a/e")}, plan.Expand)

	// the folder disappears between resolve and apply
	s.ApplyEvent(types.FsChangeEvent{Sequence: 1, Kind: types.EventDeleted, Path: p("/a/b/c"), IsDir: true})
	s.ApplyEvent(types.FsChangeEvent{Sequence: 2, Kind: types.EventDeleted, Path: p("/a/e"), IsDir: true})

	assert.Zero(t, Apply(s, plan))
	assert.Empty(t, s.Selected())
	assert.Empty(t, *reqs)
	require.NoError(t, s.CheckInvariants())

	assert.True(t, Plan{}.Empty())
	assert.False(t, plan.Empty())
}
