package graphfs

import (
	"sync"
	"time"

	"github.com/aaricantto/GraphFS/internal/listing"
	"github.com/aaricantto/GraphFS/internal/utils"
	"github.com/aaricantto/GraphFS/internal/watch"
)

// session is the server side of one client connection
type session struct {
	id      string
	created time.Time
	roots   *listing.RootSet
	watch   *watch.Session

	mu       sync.Mutex
	excludes map[string][]string // root -> patterns given on add_root
}

func newSession(id string, ws *watch.Session) *session {
	return &session{
		id:       id,
		created:  time.Now(),
		roots:    listing.NewRootSet(),
		watch:    ws,
		excludes: make(map[string][]string),
	}
}

func (s *session) setExcludes(root string, patterns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excludes[root] = patterns
}

func (s *session) dropExcludes(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.excludes, root)
}

// excludesFor returns the patterns of the innermost root holding path.
// ok is false when that root was added without patterns.
func (s *session) excludesFor(path string) ([]string, bool) {
	root, found := s.roots.RootOf(path)
	if !found {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.excludes[root]
	return p, ok
}

// holds reports whether path is one of the session's roots
func (s *session) holds(root string) bool {
	got, ok := s.roots.RootOf(root)
	return ok && got == utils.Canonical(root)
}
