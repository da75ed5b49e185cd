// Package graph holds the client-side forest of materialized directory
// nodes and reconciles it against listings and filesystem events.
//
// A State is owned by exactly one goroutine. None of its methods lock.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aaricantto/GraphFS/internal/exclude"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"go.uber.org/zap"
)

var (
	// ErrUnknownNode is returned for a path that is not materialized
	ErrUnknownNode = errors.New("unknown node")
	// ErrNotFolder is returned when a folder operation targets a file
	ErrNotFolder = errors.New("not a folder")
	// ErrNotFile is returned when a file operation targets a folder
	ErrNotFile = errors.New("not a file")
	// ErrNodeExists is returned when a root would shadow a materialized node
	ErrNodeExists = errors.New("node already materialized")
)

// Node is one materialized file or folder. ParentPath is a lookup key,
// not an owning reference.
type Node struct {
	Path       string         `json:"path"`
	Name       string         `json:"name"`
	Kind       types.NodeKind `json:"type"`
	ParentPath string         `json:"parent,omitempty"`
	Depth      int            `json:"depth"`
	IsOpen     bool           `json:"open,omitempty"`
	IsSelected bool           `json:"selected,omitempty"`
	Children   []string       `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder
func (n *Node) IsFolder() bool {
	return n.Kind == types.KindFolder
}

func (n *Node) entry() types.Entry {
	return types.Entry{Name: n.Name, Path: n.Path, Kind: n.Kind}
}

// Requester issues asynchronous listing requests. The answer must come
// back later through ApplyListing or ApplyListingError.
type Requester interface {
	RequestListing(path string)
}

// RequesterFunc adapts a function to Requester
type RequesterFunc func(path string)

// RequestListing calls f(path)
func (f RequesterFunc) RequestListing(path string) {
	f(path)
}

// State is the forest of materialized nodes of one client session
type State struct {
	nodes    map[string]*Node
	roots    []string
	open     map[string]struct{}
	selected []string
	excludes map[string][]string
	watched  map[string]bool

	req     Requester
	lastSeq uint64
	log     *zap.Logger
}

// NewState creates an empty state. A nil requester drops requests.
func NewState(req Requester, log *zap.Logger) *State {
	if req == nil {
		req = RequesterFunc(func(string) {})
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &State{
		nodes:    make(map[string]*Node),
		open:     make(map[string]struct{}),
		excludes: make(map[string][]string),
		watched:  make(map[string]bool),
		req:      req,
		log:      log,
	}
}

// AddRoot inserts a depth-0 folder. The root starts open without a
// request because the add_root reply carries its first listing.
func (s *State) AddRoot(path, name string, excludes []string) error {
	path = utils.Canonical(path)
	if path == "" {
		return fmt.Errorf("root path is required")
	}
	if n, ok := s.nodes[path]; ok {
		if n.Depth == 0 && n.ParentPath == "" {
			s.excludes[path] = exclude.Clean(excludes)
			return nil
		}
		return fmt.Errorf("root %s: %w", path, ErrNodeExists)
	}
	if name == "" {
		name = utils.Base(path)
	}
	s.nodes[path] = &Node{
		Path:   path,
		Name:   name,
		Kind:   types.KindFolder,
		IsOpen: true,
	}
	s.open[path] = struct{}{}
	s.roots = append(s.roots, path)
	s.excludes[path] = exclude.Clean(excludes)
	s.log.Debug("root added", zap.String("root", path))
	return nil
}

// RemoveRoot drops a root and everything materialized below it
func (s *State) RemoveRoot(path string) error {
	path = utils.Canonical(path)
	n, ok := s.nodes[path]
	if !ok || n.ParentPath != "" {
		return fmt.Errorf("root %s: %w", path, ErrUnknownNode)
	}
	s.purge(path)
	for i, r := range s.roots {
		if r == path {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			break
		}
	}
	delete(s.excludes, path)
	delete(s.watched, path)
	s.log.Debug("root removed", zap.String("root", path))
	return nil
}

// Expand opens a folder and requests its listing. The folder is open but
// childless until the listing lands.
func (s *State) Expand(path string) error {
	n, err := s.folder(path)
	if err != nil {
		return err
	}
	if n.IsOpen {
		return nil
	}
	n.IsOpen = true
	s.open[n.Path] = struct{}{}
	s.req.RequestListing(n.Path)
	return nil
}

// Collapse closes a folder, dropping its whole materialized subtree
func (s *State) Collapse(path string) error {
	n, err := s.folder(path)
	if err != nil {
		return err
	}
	s.collapse(n)
	return nil
}

func (s *State) collapse(n *Node) {
	for _, c := range n.Children {
		s.purge(c)
	}
	n.Children = nil
	n.IsOpen = false
	delete(s.open, n.Path)
}

// ToggleSelect flips the selection of a file and reports the new value
func (s *State) ToggleSelect(path string) (bool, error) {
	path = utils.Canonical(path)
	n, ok := s.nodes[path]
	if !ok {
		return false, fmt.Errorf("%s: %w", path, ErrUnknownNode)
	}
	if n.IsFolder() {
		return false, fmt.Errorf("%s: %w", path, ErrNotFile)
	}
	if n.IsSelected {
		n.IsSelected = false
		s.unselect(path)
	} else {
		n.IsSelected = true
		s.selected = append(s.selected, path)
	}
	return n.IsSelected, nil
}

// ApplyListing reconciles an open folder's children with a listing. A
// listing for a folder that is no longer open and materialized is stale
// and is discarded; the return value reports whether it was applied.
func (s *State) ApplyListing(dir string, children []types.Entry) bool {
	dir = utils.Canonical(dir)
	n, ok := s.nodes[dir]
	if _, open := s.open[dir]; !ok || !open {
		s.log.Debug("discarding stale listing", zap.String("path", dir))
		return false
	}

	want := make(map[string]types.Entry, len(children))
	order := make([]string, 0, len(children))
	for _, e := range children {
		p := utils.Canonical(e.Path)
		if p == "" || s.excluded(p) {
			continue
		}
		if _, dup := want[p]; dup {
			continue
		}
		if other, exists := s.nodes[p]; exists && other.ParentPath != dir {
			s.log.Debug("listing child already materialized elsewhere", zap.String("path", p))
			continue
		}
		e.Path = p
		want[p] = e
		order = append(order, p)
	}

	for _, c := range append([]string(nil), n.Children...) {
		e, keep := want[c]
		if cn := s.nodes[c]; !keep || cn == nil || cn.Kind != e.Kind {
			s.remove(c)
		}
	}

	next := make([]string, 0, len(order))
	var reopen []string
	for _, p := range order {
		if existing, ok := s.nodes[p]; ok {
			next = append(next, p)
			if existing.IsOpen {
				reopen = append(reopen, p)
			}
			continue
		}
		e := want[p]
		s.nodes[p] = &Node{
			Path:       p,
			Name:       e.Name,
			Kind:       e.Kind,
			ParentPath: dir,
			Depth:      n.Depth + 1,
		}
		next = append(next, p)
	}
	n.Children = next
	s.sortChildren(n)

	for _, p := range reopen {
		s.req.RequestListing(p)
	}
	return true
}

// ApplyListingError handles a failed listing: the folder is closed and
// not retried. A vanished root stays in the forest, closed.
func (s *State) ApplyListingError(dir, code string) {
	dir = utils.Canonical(dir)
	n, ok := s.nodes[dir]
	if !ok || !n.IsOpen {
		return
	}
	s.log.Debug("listing failed, closing folder", zap.String("path", dir), zap.String("code", code))
	s.collapse(n)
}

// Resync re-requests every open folder, shallowest first. It heals the
// state after events were lost.
func (s *State) Resync() {
	paths := s.OpenPaths()
	sort.SliceStable(paths, func(i, j int) bool {
		return s.nodes[paths[i]].Depth < s.nodes[paths[j]].Depth
	})
	s.log.Info("resyncing open folders", zap.Int("count", len(paths)))
	for _, p := range paths {
		s.req.RequestListing(p)
	}
}

// SetWatched records the acknowledged watch state of a path
func (s *State) SetWatched(path string, enabled bool) {
	if path == "" {
		s.watched = make(map[string]bool)
		return
	}
	path = utils.Canonical(path)
	if enabled {
		s.watched[path] = true
	} else {
		delete(s.watched, path)
	}
}

// IsWatched reports whether a watch on path was acknowledged
func (s *State) IsWatched(path string) bool {
	return s.watched[utils.Canonical(path)]
}

func (s *State) folder(path string) (*Node, error) {
	path = utils.Canonical(path)
	n, ok := s.nodes[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownNode)
	}
	if !n.IsFolder() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFolder)
	}
	return n, nil
}

// insert adds a single child under an open parent
func (s *State) insert(parent *Node, path, name string, kind types.NodeKind) *Node {
	n := &Node{
		Path:       path,
		Name:       name,
		Kind:       kind,
		ParentPath: parent.Path,
		Depth:      parent.Depth + 1,
	}
	s.nodes[path] = n
	parent.Children = append(parent.Children, path)
	s.sortChildren(parent)
	return n
}

// remove detaches path from its parent and purges its subtree
func (s *State) remove(path string) {
	n, ok := s.nodes[path]
	if !ok {
		return
	}
	if p, ok := s.nodes[n.ParentPath]; ok {
		p.Children = without(p.Children, path)
	}
	s.purge(path)
}

// purge deletes path and its materialized descendants, walking down only
func (s *State) purge(path string) {
	n, ok := s.nodes[path]
	if !ok {
		return
	}
	for _, c := range n.Children {
		s.purge(c)
	}
	delete(s.nodes, path)
	delete(s.open, path)
	if n.IsSelected {
		s.unselect(path)
	}
}

func (s *State) unselect(path string) {
	s.selected = without(s.selected, path)
}

// refresh requests a listing of dir if it is open
func (s *State) refresh(dir string) {
	if dir == "" {
		return
	}
	if n, ok := s.nodes[dir]; ok && n.IsOpen {
		s.req.RequestListing(dir)
	}
}

// openParent returns the parent of path if it is materialized and open
func (s *State) openParent(path string) (*Node, bool) {
	p, ok := s.nodes[utils.Parent(path)]
	if !ok || !p.IsOpen {
		return nil, false
	}
	return p, true
}

// rootOf returns the innermost root containing path
func (s *State) rootOf(path string) string {
	best := ""
	for _, r := range s.roots {
		if utils.IsWithin(path, r) && len(r) > len(best) {
			best = r
		}
	}
	return best
}

func (s *State) excluded(path string) bool {
	root := s.rootOf(path)
	if root == "" || root == path {
		return false
	}
	return exclude.MatchesUnder(root, path, s.excludes[root])
}

func (s *State) sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := s.nodes[n.Children[i]], s.nodes[n.Children[j]]
		if a == nil || b == nil {
			return false
		}
		return types.EntryLess(a.entry(), b.entry())
	})
}

func without(list []string, path string) []string {
	for i, p := range list {
		if p == path {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
