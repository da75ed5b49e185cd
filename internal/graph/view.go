package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aaricantto/GraphFS/internal/utils"
)

// Edge links a folder to one of its materialized children
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// View is an immutable copy of the state handed to renderers. Nodes are in
// tree order: each root followed depth-first by its descendants.
type View struct {
	Roots    []string `json:"roots"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Open     []string `json:"open"`
	Selected []string `json:"selected"`
	LastSeq  uint64   `json:"last_seq"`
}

// Node returns a copy of the node at path
func (s *State) Node(path string) (Node, bool) {
	n, ok := s.nodes[utils.Canonical(path)]
	if !ok {
		return Node{}, false
	}
	return copyNode(n), true
}

// Roots returns root paths in the order they were added
func (s *State) Roots() []string {
	return append([]string(nil), s.roots...)
}

// OpenPaths returns the OpenSet sorted by path
func (s *State) OpenPaths() []string {
	out := make([]string, 0, len(s.open))
	for p := range s.open {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsOpen reports whether path is in the OpenSet
func (s *State) IsOpen(path string) bool {
	_, ok := s.open[utils.Canonical(path)]
	return ok
}

// Selected returns the selected file paths in selection order
func (s *State) Selected() []string {
	return append([]string(nil), s.selected...)
}

// Len returns the number of materialized nodes
func (s *State) Len() int {
	return len(s.nodes)
}

// Children returns the ordered child paths of a folder
func (s *State) Children(path string) []string {
	n, ok := s.nodes[utils.Canonical(path)]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Children...)
}

// Edges returns every parent→child edge in tree order
func (s *State) Edges() []Edge {
	var out []Edge
	s.walk(func(n *Node) {
		for _, c := range n.Children {
			out = append(out, Edge{From: n.Path, To: c})
		}
	})
	return out
}

// Snapshot copies the whole state into a View
func (s *State) Snapshot() View {
	v := View{
		Roots:    s.Roots(),
		Open:     s.OpenPaths(),
		Selected: s.Selected(),
		LastSeq:  s.lastSeq,
	}
	s.walk(func(n *Node) {
		v.Nodes = append(v.Nodes, copyNode(n))
		for _, c := range n.Children {
			v.Edges = append(v.Edges, Edge{From: n.Path, To: c})
		}
	})
	return v
}

func (s *State) walk(fn func(*Node)) {
	var visit func(p string)
	visit = func(p string) {
		n, ok := s.nodes[p]
		if !ok {
			return
		}
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range s.roots {
		visit(r)
	}
}

// CheckInvariants verifies the structural invariants of the forest and
// returns every violation found.
func (s *State) CheckInvariants() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, r := range s.roots {
		n, ok := s.nodes[r]
		if !ok {
			fail("root %s missing from node table", r)
			continue
		}
		if n.Depth != 0 || n.ParentPath != "" {
			fail("root %s has depth %d parent %q", r, n.Depth, n.ParentPath)
		}
	}

	reachable := make(map[string]bool, len(s.nodes))
	s.walk(func(n *Node) { reachable[n.Path] = true })

	selectedCount := 0
	for p, n := range s.nodes {
		if n.Path != p {
			fail("node keyed %s has path %s", p, n.Path)
		}
		if !reachable[p] {
			fail("node %s is not reachable from any root", p)
		}
		_, inOpen := s.open[p]
		if n.IsOpen != inOpen {
			fail("node %s open=%v but OpenSet membership=%v", p, n.IsOpen, inOpen)
		}
		if !n.IsFolder() && (n.IsOpen || len(n.Children) > 0) {
			fail("file %s is open or has children", p)
		}
		if !n.IsOpen && len(n.Children) > 0 {
			fail("closed folder %s has %d materialized children", p, len(n.Children))
		}
		if n.IsFolder() && n.IsSelected {
			fail("folder %s is selected", p)
		}
		if n.IsSelected {
			selectedCount++
		}
		for _, c := range n.Children {
			child, ok := s.nodes[c]
			if !ok {
				fail("child %s of %s missing from node table", c, p)
				continue
			}
			if child.ParentPath != p {
				fail("child %s of %s points at parent %s", c, p, child.ParentPath)
			}
			if child.Depth != n.Depth+1 {
				fail("child %s depth %d under %s depth %d", c, child.Depth, p, n.Depth)
			}
		}
		if n.ParentPath != "" {
			parent, ok := s.nodes[n.ParentPath]
			if !ok {
				fail("parent %s of %s missing", n.ParentPath, p)
			} else if indexOf(parent.Children, p) < 0 {
				fail("%s is not listed under its parent %s", p, n.ParentPath)
			}
		}
	}

	for p := range s.open {
		if _, ok := s.nodes[p]; !ok {
			fail("open path %s missing from node table", p)
		}
	}

	seen := make(map[string]bool, len(s.selected))
	for _, p := range s.selected {
		if seen[p] {
			fail("%s selected twice", p)
		}
		seen[p] = true
		n, ok := s.nodes[p]
		if !ok {
			fail("selected path %s missing from node table", p)
			continue
		}
		if n.IsFolder() || !n.IsSelected {
			fail("selected path %s is not a selected file", p)
		}
	}
	if selectedCount != len(s.selected) {
		fail("%d nodes flagged selected, SelectedSet has %d", selectedCount, len(s.selected))
	}

	return errors.Join(errs...)
}

func copyNode(n *Node) Node {
	c := *n
	c.Children = append([]string(nil), n.Children...)
	return c
}
