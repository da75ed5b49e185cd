package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIsDeterministic(t *testing.T) {
	shape := DefaultShape()
	a, err := Build(t.TempDir(), shape)
	require.NoError(t, err)
	b, err := Build(t.TempDir(), shape)
	require.NoError(t, err)

	assert.Equal(t, a.Folders, b.Folders)
	assert.Equal(t, a.Files, b.Files)
	assert.NotEmpty(t, a.Files)

	shape.Seed = 7
	c, err := Build(t.TempDir(), shape)
	require.NoError(t, err)
	assert.NotEqual(t, a.Files, c.Files)
}

func TestBuildRespectsBounds(t *testing.T) {
	shape := Shape{Seed: 3, MaxDepth: 2, MinFolders: 2, MaxFolders: 2, MinFiles: 1, MaxFiles: 1, FileSize: 16}
	m, err := Build(t.TempDir(), shape)
	require.NoError(t, err)

	assert.Equal(t, []string{"folder_0", "folder_1"}, m.Folders)
	assert.Len(t, m.Files, 3, "one file at the root and one per folder")
	for _, rel := range m.FilePaths() {
		assert.LessOrEqual(t, strings.Count(rel, "/"), 1)
		info, err := os.Stat(m.Abs(rel))
		require.NoError(t, err)
		assert.EqualValues(t, 16, info.Size())
	}
	for _, rel := range m.Folders {
		info, err := os.Stat(m.Abs(rel))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestVerify(t *testing.T) {
	m, err := Build(t.TempDir(), DefaultShape())
	require.NoError(t, err)
	require.NoError(t, Verify(m))

	first := m.FilePaths()[0]
	require.NoError(t, os.WriteFile(m.Abs(first), []byte("changed"), 0o644))
	assert.ErrorContains(t, Verify(m), first)

	require.NoError(t, os.Remove(m.Abs(first)))
	assert.Error(t, Verify(m))
}

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Shape)
		wantErr bool
	}{
		{"default", func(*Shape) {}, false},
		{"zero depth", func(s *Shape) { s.MaxDepth = 0 }, true},
		{"folder bounds", func(s *Shape) { s.MinFolders, s.MaxFolders = 3, 1 }, true},
		{"file bounds", func(s *Shape) { s.MinFiles = -1 }, true},
		{"negative size", func(s *Shape) { s.FileSize = -1 }, true},
		{"empty files", func(s *Shape) { s.FileSize = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := DefaultShape()
			tt.mutate(&shape)
			err := shape.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := Build(filepath.Join(t.TempDir(), "x"), Shape{})
	assert.Error(t, err)
}

func TestFileData(t *testing.T) {
	a, sumA := FileData(1, 64)
	b, sumB := FileData(1, 64)
	assert.Equal(t, a, b)
	assert.Equal(t, sumA, sumB)
	assert.Equal(t, Checksum(a), sumA)
	assert.Len(t, sumA, 64)

	_, sumC := FileData(2, 64)
	assert.NotEqual(t, sumA, sumC)

	empty, sum := FileData(1, 0)
	assert.Empty(t, empty)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)
}
