package watch

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aaricantto/GraphFS/internal/exclude"
	"github.com/aaricantto/GraphFS/internal/metrics"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"go.uber.org/zap"
)

// Session is one client's set of subscriptions. All of them feed a single
// goroutine that assigns the session's sequence numbers, so events leave
// in the order they were queued.
type Session struct {
	id   string
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool

	in     chan queued
	events chan types.FsChangeEvent
	errs   chan error
	seq    atomic.Uint64

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newSession(id string, opts Options, log *zap.Logger) *Session {
	s := &Session{
		id:      id,
		opts:    opts,
		log:     log.With(zap.String("session", id)),
		subs:    make(map[string]*subscription),
		in:      make(chan queued, 64),
		events:  make(chan types.FsChangeEvent, opts.EventBuffer),
		errs:    make(chan error, 16),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Events delivers normalized changes in sequence order. It is closed when
// the session closes.
func (s *Session) Events() <-chan types.FsChangeEvent {
	return s.events
}

// Errors delivers asynchronous backend failures as *Error values
func (s *Session) Errors() <-chan error {
	return s.errs
}

// LastSequence returns the last sequence number assigned
func (s *Session) LastSequence() uint64 {
	return s.seq.Load()
}

// Enable starts watching path and returns its canonical form. Enabling a
// path that is already watched by this session does nothing.
func (s *Session) Enable(path string, recursive bool, excludes []string) (string, error) {
	root := utils.Canonical(path)
	if root == "" {
		return "", fmt.Errorf("%w: path is required", ErrWatchEstablish)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if _, ok := s.subs[root]; ok {
		return root, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWatchEstablish, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrWatchEstablish, root)
	}

	sub, err := newSubscription(root, recursive, exclude.Clean(excludes), s.opts, s.ingest, s.report, s.log)
	if err != nil {
		metrics.RecordWatchError()
		return "", fmt.Errorf("%w: %w", ErrWatchEstablish, err)
	}
	s.log.Info("watch enabled",
		zap.String("path", root),
		zap.Bool("recursive", recursive),
		zap.Int("dirs", len(sub.dirs)),
	)
	s.subs[root] = sub
	sub.start()
	metrics.AddWatches(1)
	return root, nil
}

// Disable stops the subscription for path, or every subscription when
// path is empty. It returns the paths that were stopped.
func (s *Session) Disable(path string) []string {
	s.mu.Lock()
	var victims []*subscription
	if path == "" {
		for _, sub := range s.subs {
			victims = append(victims, sub)
		}
		s.subs = make(map[string]*subscription)
	} else if sub, ok := s.subs[utils.Canonical(path)]; ok {
		victims = append(victims, sub)
		delete(s.subs, sub.path)
	}
	s.mu.Unlock()

	stopped := make([]string, 0, len(victims))
	for _, sub := range victims {
		sub.close()
		stopped = append(stopped, sub.path)
		s.log.Info("watch disabled", zap.String("path", sub.path))
	}
	metrics.AddWatches(-len(victims))
	sort.Strings(stopped)
	return stopped
}

// Subscriptions lists the active watches sorted by path
func (s *Session) Subscriptions() []Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Close stops every subscription and closes Events and Errors
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.Disable("")
		close(s.done)
		<-s.stopped
		s.log.Debug("watch session closed", zap.Uint64("last_seq", s.seq.Load()))
	})
}

func (s *Session) ingest(q queued) {
	select {
	case s.in <- q:
	case <-s.done:
	}
}

func (s *Session) report(err error) {
	select {
	case s.errs <- err:
	default:
		s.log.Warn("dropping watch error", zap.Error(err))
	}
}

func (s *Session) run() {
	defer close(s.stopped)
	defer close(s.errs)
	defer close(s.events)

	for {
		select {
		case <-s.done:
			return
		case q := <-s.in:
			s.deliver(q)
		}
	}
}

// deliver numbers q and pushes it out. The number is consumed even when
// the outbound buffer is full so the client can see what it missed.
func (s *Session) deliver(q queued) {
	seq := s.seq.Add(1)
	if q.gap {
		metrics.RecordEventDropped()
		s.log.Warn("backend overflow, skipping sequence", zap.Uint64("seq", seq))
		return
	}
	ev := q.ev
	ev.Sequence = seq
	ev.WatchRootPath = q.sub.path
	q.sub.lastSeq.Store(seq)

	select {
	case s.events <- ev:
		metrics.RecordFsEvent(string(ev.Kind))
		s.log.Debug("fs event",
			zap.Uint64("seq", seq),
			zap.String("event", string(ev.Kind)),
			zap.String("path", ev.Path),
			zap.String("dest", ev.DestPath),
		)
	default:
		metrics.RecordEventDropped()
		s.log.Warn("event buffer full, dropping event",
			zap.Uint64("seq", seq),
			zap.String("event", string(ev.Kind)),
			zap.String("path", ev.Path),
		)
	}
}
