package watch

import (
	"sort"
	"time"
)

// pendingRename is the old half of a rename, waiting for its new name
type pendingRename struct {
	id       fileID
	path     string
	isDir    bool
	deadline time.Time
}

// pairer matches Rename(old) notifications with the Create(new) that the
// backend reports for the same file identity. It is owned by a single
// subscription goroutine and is not safe for concurrent use.
type pairer struct {
	window time.Duration
	byID   map[fileID]*pendingRename
	byPath map[string]*pendingRename
}

func newPairer(window time.Duration) *pairer {
	return &pairer{
		window: window,
		byID:   make(map[fileID]*pendingRename),
		byPath: make(map[string]*pendingRename),
	}
}

// park records the old half of a rename. If the same identity was already
// parked (renamed twice before any create), the older entry is returned so
// the caller can deliver it as a delete.
// A watched directory reports its own rename as well as its parent does, so
// a repeat of the same identity and path only refreshes the deadline.
func (p *pairer) park(id fileID, path string, isDir bool, now time.Time) *pendingRename {
	displaced := p.byID[id]
	if displaced != nil && displaced.path == path {
		displaced.deadline = now.Add(p.window)
		displaced.isDir = displaced.isDir || isDir
		return nil
	}
	if displaced != nil {
		p.remove(displaced)
	}
	if other := p.byPath[path]; other != nil && other != displaced {
		p.remove(other)
		if displaced == nil {
			displaced = other
		}
	}
	pr := &pendingRename{id: id, path: path, isDir: isDir, deadline: now.Add(p.window)}
	p.byID[id] = pr
	p.byPath[path] = pr
	return displaced
}

// match removes and returns the parked rename with the given identity
func (p *pairer) match(id fileID) (*pendingRename, bool) {
	pr, ok := p.byID[id]
	if !ok {
		return nil, false
	}
	p.remove(pr)
	return pr, true
}

// takePath removes and returns the parked rename whose old path is path
func (p *pairer) takePath(path string) (*pendingRename, bool) {
	pr, ok := p.byPath[path]
	if !ok {
		return nil, false
	}
	p.remove(pr)
	return pr, true
}

// expired removes and returns every entry whose deadline is not after
// now, oldest first.
func (p *pairer) expired(now time.Time) []*pendingRename {
	var out []*pendingRename
	for _, pr := range p.byID {
		if !pr.deadline.After(now) {
			out = append(out, pr)
		}
	}
	for _, pr := range out {
		p.remove(pr)
	}
	sortByDeadline(out)
	return out
}

// drain removes and returns every parked entry, oldest first
func (p *pairer) drain() []*pendingRename {
	out := make([]*pendingRename, 0, len(p.byID))
	for _, pr := range p.byID {
		out = append(out, pr)
	}
	p.byID = make(map[fileID]*pendingRename)
	p.byPath = make(map[string]*pendingRename)
	sortByDeadline(out)
	return out
}

// next returns the earliest deadline
func (p *pairer) next() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, pr := range p.byID {
		if !found || pr.deadline.Before(earliest) {
			earliest = pr.deadline
			found = true
		}
	}
	return earliest, found
}

func (p *pairer) len() int {
	return len(p.byID)
}

func (p *pairer) remove(pr *pendingRename) {
	if p.byID[pr.id] == pr {
		delete(p.byID, pr.id)
	}
	if p.byPath[pr.path] == pr {
		delete(p.byPath, pr.path)
	}
}

func sortByDeadline(prs []*pendingRename) {
	sort.Slice(prs, func(i, j int) bool {
		if prs[i].deadline.Equal(prs[j].deadline) {
			return prs[i].path < prs[j].path
		}
		return prs[i].deadline.Before(prs[j].deadline)
	})
}
