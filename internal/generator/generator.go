// Package generator builds seeded directory trees on disk. The same Shape
// always produces the same tree, which makes it useful for demos and for
// tests that need a realistic amount of filesystem to browse.
package generator

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// Shape bounds the depth and fan-out of a generated tree
type Shape struct {
	Seed       int64 `json:"seed"`
	MaxDepth   int   `json:"max_depth"`
	MinFolders int   `json:"min_folders"`
	MaxFolders int   `json:"max_folders"`
	MinFiles   int   `json:"min_files"`
	MaxFiles   int   `json:"max_files"`
	FileSize   int   `json:"file_size"`
}

// DefaultShape returns a small tree: three levels of a few folders and files
func DefaultShape() Shape {
	return Shape{
		Seed:       42,
		MaxDepth:   3,
		MinFolders: 1,
		MaxFolders: 3,
		MinFiles:   1,
		MaxFiles:   4,
		FileSize:   256,
	}
}

// Validate checks that the bounds make sense
func (s Shape) Validate() error {
	if s.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", s.MaxDepth)
	}
	if s.MinFolders < 0 || s.MaxFolders < s.MinFolders {
		return fmt.Errorf("invalid folder bounds [%d, %d]", s.MinFolders, s.MaxFolders)
	}
	if s.MinFiles < 0 || s.MaxFiles < s.MinFiles {
		return fmt.Errorf("invalid file bounds [%d, %d]", s.MinFiles, s.MaxFiles)
	}
	if s.FileSize < 0 {
		return fmt.Errorf("file_size cannot be negative")
	}
	return nil
}

// Manifest describes what Build wrote. Paths are relative to Root and use
// forward slashes.
type Manifest struct {
	Root    string            `json:"root"`
	Folders []string          `json:"folders"`
	Files   map[string]string `json:"files"` // path -> sha256
}

// FilePaths returns the file paths in sorted order
func (m *Manifest) FilePaths() []string {
	out := make([]string, 0, len(m.Files))
	for p := range m.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Abs joins a manifest path onto the root
func (m *Manifest) Abs(rel string) string {
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// Build writes a tree under root following shape. root is created when
// missing; existing entries with colliding names are overwritten.
func Build(root string, shape Shape) (*Manifest, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tree shape: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root: %w", err)
	}

	m := &Manifest{Root: root, Files: make(map[string]string)}
	rng := rand.New(rand.NewSource(shape.Seed))
	if err := build(rng, shape, m, "", 1); err != nil {
		return nil, err
	}
	sort.Strings(m.Folders)
	return m, nil
}

func build(rng *rand.Rand, shape Shape, m *Manifest, rel string, depth int) error {
	numFiles := between(rng, shape.MinFiles, shape.MaxFiles)
	for i := 0; i < numFiles; i++ {
		name := join(rel, fmt.Sprintf("%s_%d.%s", stems[rng.Intn(len(stems))], i, exts[rng.Intn(len(exts))]))
		data, sum := FileData(rng.Int63(), shape.FileSize)
		if err := os.WriteFile(m.Abs(name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		m.Files[name] = sum
	}

	// Leaves stop at MaxDepth
	if depth >= shape.MaxDepth {
		return nil
	}

	numFolders := between(rng, shape.MinFolders, shape.MaxFolders)
	for i := 0; i < numFolders; i++ {
		name := join(rel, fmt.Sprintf("folder_%d", i))
		if err := os.MkdirAll(m.Abs(name), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		m.Folders = append(m.Folders, name)
		if err := build(rng, shape, m, name, depth+1); err != nil {
			return err
		}
	}
	return nil
}

var (
	stems = []string{"notes", "main", "README", "config", "data", "report"}
	exts  = []string{"txt", "go", "md", "json", "csv"}
)

func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

func join(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}
