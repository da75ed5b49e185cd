package sdk

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaricantto/GraphFS/internal/api"
	"github.com/aaricantto/GraphFS/internal/config"
	"github.com/aaricantto/GraphFS/internal/graph"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

func newBackend(t *testing.T) *graphfs.GraphFS {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.DBPath = filepath.Join(t.TempDir(), "graphfs.duckdb")
	cfg.Watch.RenameWindow = types.Duration(50 * time.Millisecond)
	fs, err := graphfs.New(&cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	return fs
}

// fixture builds root/{src/{lib/{util.go}, main.go}, notes.txt}
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"src/lib/util.go", "src/main.go", "notes.txt"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	}
	return utils.Canonical(root)
}

type transportFactory func(t *testing.T, fs *graphfs.GraphFS) Transport

func transports() map[string]transportFactory {
	return map[string]transportFactory{
		"local": func(t *testing.T, fs *graphfs.GraphFS) Transport {
			tr, err := NewLocalTransport(context.Background(), fs)
			require.NoError(t, err)
			return tr
		},
		"http": func(t *testing.T, fs *graphfs.GraphFS) Transport {
			srv := httptest.NewServer(api.NewRouter(fs).SetupRoutes())
			t.Cleanup(srv.Close)
			tr, err := DialHTTP(context.Background(), srv.URL, WithReconnect(10*time.Millisecond, 100*time.Millisecond))
			require.NoError(t, err)
			return tr
		},
	}
}

func open(t *testing.T, tr Transport) *Session {
	t.Helper()
	s, err := NewSession(tr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshot(t *testing.T, s *Session) graph.View {
	t.Helper()
	v, err := s.Snapshot()
	require.NoError(t, err)
	return v
}

func selected(t *testing.T, s *Session) []string {
	t.Helper()
	out, err := s.Selected()
	require.NoError(t, err)
	return out
}

func hasNode(s *Session, path string) func() bool {
	return func() bool {
		v, err := s.Snapshot()
		if err != nil {
			return false
		}
		for _, n := range v.Nodes {
			if n.Path == path {
				return true
			}
		}
		return false
	}
}

func TestSessionBrowse(t *testing.T) {
	for name, factory := range transports() {
		t.Run(name, func(t *testing.T) {
			fs := newBackend(t)
			root := fixture(t)
			s := open(t, factory(t, fs))

			added, err := s.AddRoot(context.Background(), root, nil)
			require.NoError(t, err)
			assert.True(t, added.Watching)

			v := snapshot(t, s)
			assert.Equal(t, []string{root}, v.Roots)
			assert.Len(t, v.Nodes, 3, "root plus src and notes.txt")

			src := filepath.Join(root, "src")
			lib := filepath.Join(src, "lib")
			require.NoError(t, s.Expand(src))
			require.Eventually(t, hasNode(s, lib), waitFor, tick)

			require.NoError(t, s.Expand(lib))
			util := filepath.Join(lib, "util.go")
			require.Eventually(t, hasNode(s, util), waitFor, tick)

			on, err := s.ToggleSelect(util)
			require.NoError(t, err)
			assert.True(t, on)
			assert.Equal(t, []string{util}, selected(t, s))

			require.NoError(t, s.Collapse(src))
			assert.False(t, hasNode(s, util)())
			assert.Empty(t, selected(t, s), "collapsing drops selection below the folder")

			_, err = s.ToggleSelect(src)
			assert.ErrorIs(t, err, graph.ErrNotFile)
			assert.ErrorIs(t, s.Expand(filepath.Join(root, "nope")), graph.ErrUnknownNode)
		})
	}
}

func TestSessionFollowsFilesystem(t *testing.T) {
	for name, factory := range transports() {
		t.Run(name, func(t *testing.T) {
			fs := newBackend(t)
			root := fixture(t)
			s := open(t, factory(t, fs))
			_, err := s.AddRoot(context.Background(), root, nil)
			require.NoError(t, err)

			created := filepath.Join(root, "todo.md")
			require.NoError(t, os.WriteFile(created, nil, 0o644))
			require.Eventually(t, hasNode(s, created), waitFor, tick)

			renamed := filepath.Join(root, "done.md")
			require.NoError(t, os.Rename(created, renamed))
			require.Eventually(t, hasNode(s, renamed), waitFor, tick)
			require.Eventually(t, func() bool { return !hasNode(s, created)() }, waitFor, tick)

			require.NoError(t, os.Remove(filepath.Join(root, "notes.txt")))
			require.Eventually(t, func() bool { return !hasNode(s, filepath.Join(root, "notes.txt"))() }, waitFor, tick)
		})
	}
}

func TestSessionLassoAndChanges(t *testing.T) {
	fs := newBackend(t)
	root := fixture(t)
	s := open(t, transports()["local"](t, fs))

	changes := make(chan graph.View, 64)
	s.OnChange(func(v graph.View) {
		select {
		case changes <- v:
		default:
		}
	})

	_, err := s.AddRoot(context.Background(), root, []string{})
	require.NoError(t, err)
	select {
	case v := <-changes:
		assert.Equal(t, []string{root}, v.Roots)
	case <-time.After(waitFor):
		t.Fatal("no change notification")
	}

	src := filepath.Join(root, "src")
	notes := filepath.Join(root, "notes.txt")
	n, err := s.Lasso([]string{src, notes})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{notes}, selected(t, s))
	require.Eventually(t, hasNode(s, filepath.Join(src, "main.go")), waitFor, tick)

	n, err = s.Lasso([]string{src, filepath.Join(src, "lib")})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the captured ancestor wins")
	assert.False(t, hasNode(s, filepath.Join(src, "main.go"))())
}

func TestSessionRemoveRootAndClose(t *testing.T) {
	fs := newBackend(t)
	root := fixture(t)
	tr := transports()["local"](t, fs)
	s, err := NewSession(tr, nil)
	require.NoError(t, err)

	_, err = s.AddRoot(context.Background(), root, nil)
	require.NoError(t, err)
	require.NoError(t, s.RemoveRoot(context.Background(), root))
	assert.Empty(t, snapshot(t, s).Roots)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Expand(root), ErrClosed)
	assert.NotContains(t, fs.Sessions(), tr.SessionInfo().SessionID)
}

func TestSessionClosedOperations(t *testing.T) {
	fs := newBackend(t)
	root := fixture(t)
	for i := 0; i < 20; i++ {
		s, err := NewSession(transports()["local"](t, fs), nil)
		require.NoError(t, err)
		require.NoError(t, s.Close())

		assert.ErrorIs(t, s.Expand(root), ErrClosed)
		assert.ErrorIs(t, s.Collapse(root), ErrClosed)
		_, err = s.ToggleSelect(filepath.Join(root, "notes.txt"))
		assert.ErrorIs(t, err, ErrClosed)
		_, err = s.Lasso([]string{root})
		assert.ErrorIs(t, err, ErrClosed)
		_, err = s.Snapshot()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = s.Selected()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = s.AddRoot(context.Background(), root, nil)
		assert.ErrorIs(t, err, ErrClosed)
	}
}

// writeAfterAdd creates a file under the root once the backend has
// answered AddRoot, before the session applies the reply.
type writeAfterAdd struct {
	Transport
	t    *testing.T
	name string
}

func (w *writeAfterAdd) AddRoot(ctx context.Context, path string, excludes []string) (types.RootAdded, error) {
	added, err := w.Transport.AddRoot(ctx, path, excludes)
	if err == nil {
		require.NoError(w.t, os.WriteFile(filepath.Join(added.Root, w.name), nil, 0o644))
		time.Sleep(100 * time.Millisecond)
	}
	return added, err
}

func TestSessionAddRootCatchesConcurrentChanges(t *testing.T) {
	for i := 0; i < 5; i++ {
		fs := newBackend(t)
		root := fixture(t)
		tr := &writeAfterAdd{Transport: transports()["local"](t, fs), t: t, name: "late.txt"}
		s := open(t, tr)

		added, err := s.AddRoot(context.Background(), root, nil)
		require.NoError(t, err)
		require.True(t, added.Watching)
		assert.NotContains(t, names(added.Children), "late.txt")

		require.Eventually(t, hasNode(s, filepath.Join(root, "late.txt")), waitFor, tick)
	}
}

func names(entries []types.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestHTTPTransportErrors(t *testing.T) {
	fs := newBackend(t)
	root := fixture(t)
	tr := transports()["http"](t, fs)
	t.Cleanup(func() { tr.Close() })

	_, err := tr.AddRoot(context.Background(), filepath.Join(root, "missing"), nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, types.CodeNotFound, ErrorCode(err))

	_, err = tr.AddRoot(context.Background(), root, nil)
	require.NoError(t, err)
	_, err = tr.ListDir(context.Background(), "/", nil)
	assert.Equal(t, types.CodeOutsideRoot, ErrorCode(err))

	ack, err := tr.WatchEnable(context.Background(), filepath.Join(root, "src"), false, nil)
	require.NoError(t, err)
	assert.True(t, ack.Enabled)
	ack, err = tr.WatchDisable(context.Background(), filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.False(t, ack.Enabled)
}
