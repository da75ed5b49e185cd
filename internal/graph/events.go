package graph

import (
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"go.uber.org/zap"
)

// ApplyEvent reconciles one filesystem change. Events are expected in
// sequence order: a repeated or older number is dropped, and a skipped
// number means events were lost, so every open folder is re-listed after
// the event is applied. Events with sequence 0 bypass tracking.
func (s *State) ApplyEvent(ev types.FsChangeEvent) {
	gap := false
	if ev.Sequence != 0 {
		if ev.Sequence <= s.lastSeq {
			s.log.Debug("dropping duplicate event", zap.Uint64("seq", ev.Sequence), zap.Uint64("last", s.lastSeq))
			return
		}
		gap = ev.Sequence > s.lastSeq+1
		s.lastSeq = ev.Sequence
	}

	path := utils.Canonical(ev.Path)
	dest := utils.Canonical(ev.DestPath)

	switch ev.Kind {
	case types.EventCreated:
		s.onCreated(path, ev.IsDir)
	case types.EventDeleted:
		s.onDeleted(path)
	case types.EventMoved:
		if dest == "" {
			s.refreshParents(path, "")
			break
		}
		isDir := ev.IsDir
		if n, ok := s.nodes[path]; ok {
			isDir = n.IsFolder()
		}
		if isDir {
			s.onMovedDir(path, dest)
		} else {
			s.onMovedFile(path, dest)
		}
	case types.EventModified:
		if !ev.IsDir {
			s.onModifiedFile(path)
		}
	default:
		s.refreshParents(path, dest)
	}

	if gap {
		s.log.Warn("event sequence gap", zap.Uint64("seq", ev.Sequence))
		s.Resync()
	}
}

// LastSequence returns the sequence number of the last applied event
func (s *State) LastSequence() uint64 {
	return s.lastSeq
}

func (s *State) onCreated(path string, isDir bool) {
	parent, ok := s.openParent(path)
	if !ok {
		return
	}
	if _, exists := s.nodes[path]; exists {
		s.refresh(parent.Path)
		return
	}
	if s.excluded(path) {
		return
	}
	kind := types.KindFile
	if isDir {
		kind = types.KindFolder
	}
	s.insert(parent, path, utils.Base(path), kind)
}

func (s *State) onDeleted(path string) {
	n, ok := s.nodes[path]
	if !ok {
		s.refresh(utils.Parent(path))
		return
	}
	if n.ParentPath == "" {
		// roots stay in the forest, closed
		s.collapse(n)
		return
	}
	s.remove(path)
}

func (s *State) onMovedDir(old, dest string) {
	n, ok := s.nodes[old]
	oldParent, newParent := utils.Parent(old), utils.Parent(dest)
	switch {
	case !ok:
		s.refreshParents(old, dest)
	case n.ParentPath == "":
		s.collapse(n)
	case s.nodes[dest] != nil:
		s.remove(old)
		s.refresh(newParent)
	case oldParent != newParent:
		s.remove(old)
		s.refresh(oldParent)
		s.refresh(newParent)
	case s.excluded(dest):
		s.remove(old)
	default:
		s.rebase(n, dest)
	}
}

// rebase renames a folder in place, rewriting the path prefix of every
// materialized descendant along with its parent key, OpenSet membership
// and SelectedSet membership.
func (s *State) rebase(n *Node, dest string) {
	old := n.Path
	var subtree []*Node
	var walk func(p string)
	walk = func(p string) {
		c, ok := s.nodes[p]
		if !ok {
			return
		}
		subtree = append(subtree, c)
		for _, child := range c.Children {
			walk(child)
		}
	}
	walk(old)

	for _, c := range subtree {
		delete(s.nodes, c.Path)
		if _, ok := s.open[c.Path]; ok {
			delete(s.open, c.Path)
			s.open[utils.Rebase(c.Path, old, dest)] = struct{}{}
		}
	}
	for _, c := range subtree {
		c.Path = utils.Rebase(c.Path, old, dest)
		if c != n {
			c.ParentPath = utils.Rebase(c.ParentPath, old, dest)
		}
		for i, child := range c.Children {
			c.Children[i] = utils.Rebase(child, old, dest)
		}
		s.nodes[c.Path] = c
	}
	for i, p := range s.selected {
		s.selected[i] = utils.Rebase(p, old, dest)
	}
	n.Name = utils.Base(dest)
	s.rekeyChild(n.ParentPath, old, dest)
}

func (s *State) onMovedFile(old, dest string) {
	n, ok := s.nodes[old]
	oldParent, newParent := utils.Parent(old), utils.Parent(dest)
	if !ok {
		s.refreshParents(old, dest)
		return
	}
	wasSelected := n.IsSelected
	slot := indexOf(s.selected, old)

	if target, exists := s.nodes[dest]; exists {
		s.remove(old)
		if wasSelected && !target.IsFolder() && !target.IsSelected {
			target.IsSelected = true
			s.selected = append(s.selected, dest)
		}
		s.refresh(newParent)
		return
	}

	if s.excluded(dest) {
		s.remove(old)
		return
	}

	if oldParent == newParent {
		delete(s.nodes, old)
		n.Path = dest
		n.Name = utils.Base(dest)
		s.nodes[dest] = n
		if slot >= 0 {
			s.selected[slot] = dest
		}
		s.rekeyChild(n.ParentPath, old, dest)
		return
	}

	s.remove(old)
	parent, ok := s.openParent(dest)
	if !ok {
		return
	}
	moved := s.insert(parent, dest, utils.Base(dest), n.Kind)
	if wasSelected {
		moved.IsSelected = true
		s.selected = insertAt(s.selected, slot, dest)
	}
}

func (s *State) onModifiedFile(path string) {
	if _, ok := s.nodes[path]; ok {
		return
	}
	// a write to something we never saw created
	s.refresh(utils.Parent(path))
}

// refreshParents re-lists whichever parents of path and dest are open
func (s *State) refreshParents(path, dest string) {
	a := utils.Parent(path)
	s.refresh(a)
	if dest != "" {
		if b := utils.Parent(dest); b != a {
			s.refresh(b)
		}
	}
}

func (s *State) rekeyChild(parentPath, old, dest string) {
	p, ok := s.nodes[parentPath]
	if !ok {
		return
	}
	for i, c := range p.Children {
		if c == old {
			p.Children[i] = dest
			break
		}
	}
	s.sortChildren(p)
}

func indexOf(list []string, v string) int {
	for i, p := range list {
		if p == v {
			return i
		}
	}
	return -1
}

func insertAt(list []string, i int, v string) []string {
	if i < 0 || i >= len(list) {
		return append(list, v)
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
