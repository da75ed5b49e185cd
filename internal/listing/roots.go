package listing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aaricantto/GraphFS/internal/utils"
)

// RootSet tracks the directories a session has opened as roots and keeps
// every later request inside them.
type RootSet struct {
	mu    sync.RWMutex
	roots map[string]struct{}
	order []string
}

// NewRootSet creates an empty root set
func NewRootSet() *RootSet {
	return &RootSet{roots: make(map[string]struct{})}
}

// Add registers a directory as a root and returns its canonical path.
// Adding an existing root is a no-op.
func (r *RootSet) Add(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("root path is required")
	}
	root := utils.Expand(path)
	info, err := os.Stat(root)
	if err != nil {
		return "", classify(root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s: %w", root, ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roots[root]; !ok {
		r.roots[root] = struct{}{}
		r.order = append(r.order, root)
	}
	return root, nil
}

// Remove unregisters a root. It reports whether the root was present.
func (r *RootSet) Remove(path string) bool {
	root := utils.Canonical(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roots[root]; !ok {
		return false
	}
	delete(r.roots, root)
	for i, p := range r.order {
		if p == root {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the roots sorted by path
func (r *RootSet) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.roots))
	for p := range r.roots {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of roots
func (r *RootSet) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roots)
}

// RootOf returns the innermost root containing path
func (r *RootSet) RootOf(path string) (string, bool) {
	path = utils.Canonical(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	best := ""
	for root := range r.roots {
		if utils.IsWithin(path, root) && len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

// Resolve returns the canonical form of path if it lies inside a root.
// Relative paths are taken relative to the first root added.
func (r *RootSet) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if !filepath.IsAbs(path) {
		r.mu.RLock()
		if len(r.order) == 0 {
			r.mu.RUnlock()
			return "", fmt.Errorf("no root set for relative path %q: %w", path, ErrOutsideRoot)
		}
		path = filepath.Join(r.order[0], path)
		r.mu.RUnlock()
	}
	abs := utils.Canonical(path)
	if _, ok := r.RootOf(abs); !ok {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideRoot)
	}
	return abs, nil
}
