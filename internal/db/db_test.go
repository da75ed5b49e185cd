package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a file-backed database with a manual clock
func newTestDB(t *testing.T) (*DB, *time.Time) {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "appdata", "graphfs.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return clock }
	return db, &clock
}

func paths(records []types.RootRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Path)
	}
	return out
}

func TestNewDB(t *testing.T) {
	tests := []struct {
		name   string
		dbPath func(t *testing.T) string
	}{
		{name: "in memory", dbPath: func(*testing.T) string { return "" }},
		{name: "file in missing directory", dbPath: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "nested", "dir", "state.duckdb")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.dbPath(t)
			db, err := New(path)
			require.NoError(t, err)
			defer db.Close()

			assert.Equal(t, path, db.Path())
			require.NoError(t, db.InitializeSchema(), "schema creation is repeatable")
			roots, err := db.Roots()
			require.NoError(t, err)
			assert.Empty(t, roots)
		})
	}
}

func TestPing(t *testing.T) {
	db, _ := newTestDB(t)
	require.NoError(t, db.Ping(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}

func TestRecordRootLifecycle(t *testing.T) {
	db, clock := newTestDB(t)

	require.NoError(t, db.RecordRootAdd("/work/proj", ""))
	r, err := db.GetRoot("/work/proj")
	require.NoError(t, err)
	assert.Equal(t, "proj", r.Name)
	assert.True(t, r.Active)
	assert.False(t, r.Favorite)
	assert.True(t, r.LastUsed.Equal(*clock))

	*clock = clock.Add(time.Hour)
	require.NoError(t, db.RecordRootAdd("/work/proj", "Project"))
	r, err = db.GetRoot("/work/proj")
	require.NoError(t, err)
	assert.Equal(t, "Project", r.Name)
	assert.True(t, r.LastUsed.Equal(*clock))
	assert.True(t, r.AddedAt.Before(r.LastUsed), "added_at is kept from the first add")

	require.NoError(t, db.RecordRootRemove("/work/proj"))
	r, err = db.GetRoot("/work/proj")
	require.NoError(t, err)
	assert.False(t, r.Active)

	_, err = db.GetRoot("/never")
	assert.Error(t, err)
}

func TestFavorites(t *testing.T) {
	db, clock := newTestDB(t)

	on, err := db.ToggleFavorite("/b")
	require.NoError(t, err)
	assert.True(t, on)
	on, err = db.ToggleFavorite("/b")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, db.SetFavorite("/zeta", true))
	require.NoError(t, db.SetFavorite("/Alpha", true))
	*clock = clock.Add(time.Minute)
	require.NoError(t, db.TouchRoot("/b"))
	require.NoError(t, db.SetFavorite("/b", true))

	favs, err := db.Favorites()
	require.NoError(t, err)
	assert.Equal(t, []string{"/b", "/Alpha", "/zeta"}, paths(favs), "recent first, then by name")
}

func TestViews(t *testing.T) {
	db, clock := newTestDB(t)

	for _, p := range []string{"/r/c", "/r/a", "/r/b"} {
		*clock = clock.Add(time.Second)
		require.NoError(t, db.RecordRootAdd(p, ""))
	}
	require.NoError(t, db.RecordRootRemove("/r/b"))

	actives, err := db.Actives()
	require.NoError(t, err)
	assert.Equal(t, []string{"/r/a", "/r/c"}, paths(actives))

	recents, err := db.Recents(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"/r/b", "/r/a"}, paths(recents))

	all, err := db.Roots()
	require.NoError(t, err)
	assert.Equal(t, []string{"/r/a", "/r/b", "/r/c"}, paths(all))

	snap, err := db.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Roots, 3)
	assert.Len(t, snap.Actives, 2)
	assert.Empty(t, snap.Favorites)
	assert.Equal(t, db.Dir(), snap.AppDataDir)

	require.NoError(t, db.DeactivateAll())
	actives, err = db.Actives()
	require.NoError(t, err)
	assert.Empty(t, actives)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.duckdb")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.RecordRootAdd("/keep", "keep"))
	_, err = db.ToggleFavorite("/keep")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	favs, err := db.Favorites()
	require.NoError(t, err)
	assert.Equal(t, []string{"/keep"}, paths(favs))
}
