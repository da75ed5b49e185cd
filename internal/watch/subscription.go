package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aaricantto/GraphFS/internal/exclude"
	"github.com/aaricantto/GraphFS/internal/metrics"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// identity is a cached stat result
type identity struct {
	id    fileID
	isDir bool
}

// queued is what a subscription hands to its session. A gap carries no
// event; it only consumes a sequence number so the client resyncs.
type queued struct {
	sub *subscription
	ev  types.FsChangeEvent
	gap bool
}

// subscription owns one fsnotify watcher. Everything except stop and
// lastSeq is touched only by its run goroutine once started.
type subscription struct {
	path      string
	recursive bool
	excludes  []string
	log       *zap.Logger

	w     *fsnotify.Watcher
	pairs *pairer
	ids   *lru.Cache[string, identity]
	dirs  map[string]struct{}

	emit   func(queued)
	report func(error)

	lastSeq  atomic.Uint64
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscription(path string, recursive bool, excludes []string, opts Options,
	emit func(queued), report func(error), log *zap.Logger) (*subscription, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ids, err := lru.New[string, identity](opts.IdentityCacheSize)
	if err != nil {
		w.Close()
		return nil, err
	}
	s := &subscription{
		path:      path,
		recursive: recursive,
		excludes:  excludes,
		log:       log.With(zap.String("watch", path)),
		w:         w,
		pairs:     newPairer(opts.RenameWindow),
		ids:       ids,
		dirs:      make(map[string]struct{}),
		emit:      emit,
		report:    report,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if err := s.addTree(path); err != nil {
		w.Close()
		return nil, err
	}
	return s, nil
}

func (s *subscription) start() {
	go s.run()
}

// close stops the loop, delivering parked renames as deletes, and waits
// for it to exit.
func (s *subscription) close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *subscription) info() Subscription {
	return Subscription{
		Path:         s.path,
		Recursive:    s.recursive,
		Excludes:     append([]string(nil), s.excludes...),
		LastSequence: s.lastSeq.Load(),
	}
}

func (s *subscription) run() {
	defer close(s.done)
	defer s.w.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var fire <-chan time.Time
		if deadline, ok := s.pairs.next(); ok {
			timer.Reset(time.Until(deadline))
			fire = timer.C
		} else {
			timer.Stop()
		}

		select {
		case <-s.stop:
			for _, pr := range s.pairs.drain() {
				s.flushDeleted(pr)
			}
			return

		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			s.handle(ev)

		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			metrics.RecordWatchError()
			s.log.Warn("watch backend error", zap.Error(err))
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.emit(queued{sub: s, gap: true})
			}
			s.report(&Error{Path: s.path, Err: err})

		case now := <-fire:
			for _, pr := range s.pairs.expired(now) {
				s.flushDeleted(pr)
			}
		}
	}
}

func (s *subscription) handle(ev fsnotify.Event) {
	path := utils.Canonical(ev.Name)
	if path != s.path && exclude.MatchesUnder(s.path, path, s.excludes) {
		return
	}
	switch {
	case ev.Has(fsnotify.Create):
		s.onCreate(path)
	case ev.Has(fsnotify.Remove):
		s.onRemove(path)
	case ev.Has(fsnotify.Rename):
		s.onRename(path)
	case ev.Has(fsnotify.Write):
		s.send(types.EventModified, path, "", s.isDir(path))
	}
}

func (s *subscription) onCreate(path string) {
	id, isDir, err := statID(path)
	if err != nil {
		// Gone before we could look; the Remove that follows cleans up.
		if pr, ok := s.pairs.takePath(path); ok {
			s.flushDeleted(pr)
		}
		s.send(types.EventCreated, path, "", false)
		return
	}

	if pr, ok := s.pairs.takePath(path); ok {
		if pr.id == id {
			// renamed away and back again
			s.ids.Add(path, identity{id: id, isDir: isDir})
			return
		}
		s.flushDeleted(pr)
	}

	if pr, ok := s.pairs.match(id); ok {
		metrics.RecordRenamePairing("paired")
		s.ids.Add(path, identity{id: id, isDir: isDir})
		if isDir {
			s.forgetTree(pr.path)
			s.growTree(path)
		}
		s.send(types.EventMoved, pr.path, path, isDir)
		return
	}

	s.ids.Add(path, identity{id: id, isDir: isDir})
	if isDir {
		s.growTree(path)
	}
	s.send(types.EventCreated, path, "", isDir)
}

func (s *subscription) onRemove(path string) {
	isDir := s.isDir(path)
	s.ids.Remove(path)
	if isDir {
		s.forgetTree(path)
	}
	s.send(types.EventDeleted, path, "", isDir)
}

func (s *subscription) onRename(path string) {
	ident, ok := s.ids.Peek(path)
	if !ok {
		metrics.RecordRenamePairing("unknown")
		isDir := s.isDir(path)
		if isDir {
			s.forgetTree(path)
		}
		s.send(types.EventDeleted, path, "", isDir)
		return
	}
	s.ids.Remove(path)
	if displaced := s.pairs.park(ident.id, path, ident.isDir, time.Now()); displaced != nil {
		s.flushDeleted(displaced)
	}
}

func (s *subscription) flushDeleted(pr *pendingRename) {
	metrics.RecordRenamePairing("expired")
	if pr.isDir {
		s.forgetTree(pr.path)
	}
	s.send(types.EventDeleted, pr.path, "", pr.isDir)
}

func (s *subscription) send(kind types.EventKind, path, dest string, isDir bool) {
	s.emit(queued{sub: s, ev: types.FsChangeEvent{
		Kind:     kind,
		Path:     path,
		DestPath: dest,
		IsDir:    isDir,
	}})
}

func (s *subscription) isDir(path string) bool {
	if _, ok := s.dirs[path]; ok {
		return true
	}
	if ident, ok := s.ids.Peek(path); ok {
		return ident.isDir
	}
	return false
}

// addTree registers root with the watcher and, when recursive, every
// non-excluded directory below it. Only a failure on root itself is fatal.
func (s *subscription) addTree(root string) error {
	if !s.recursive {
		if err := s.w.Add(root); err != nil {
			return err
		}
		s.dirs[root] = struct{}{}
		s.indexChildren(root)
		return nil
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			s.log.Debug("skipping unreadable path", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		p = utils.Canonical(p)
		if p != s.path && exclude.MatchesUnder(s.path, p, s.excludes) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		s.remember(p)
		if !d.IsDir() {
			return nil
		}
		if err := s.w.Add(p); err != nil {
			if p == root {
				return err
			}
			s.log.Warn("failed to watch directory", zap.String("path", p), zap.Error(err))
			return fs.SkipDir
		}
		s.dirs[p] = struct{}{}
		return nil
	})
}

// growTree extends a recursive subscription to a directory that appeared
// after it started.
func (s *subscription) growTree(dir string) {
	if !s.recursive {
		return
	}
	if err := s.addTree(dir); err != nil {
		metrics.RecordWatchError()
		s.log.Warn("failed to extend watch", zap.String("path", dir), zap.Error(err))
		s.report(&Error{Path: dir, Err: err})
	}
}

// forgetTree drops the watches at and below dir
func (s *subscription) forgetTree(dir string) {
	for d := range s.dirs {
		if d == dir || utils.IsAncestor(dir, d) {
			delete(s.dirs, d)
			if d != s.path {
				_ = s.w.Remove(d)
			}
		}
	}
}

func (s *subscription) indexChildren(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, de := range entries {
		p := filepath.Join(dir, de.Name())
		if !exclude.MatchesUnder(s.path, p, s.excludes) {
			s.remember(p)
		}
	}
}

func (s *subscription) remember(path string) {
	id, isDir, err := statID(path)
	if err != nil {
		return
	}
	s.ids.Add(path, identity{id: id, isDir: isDir})
}
