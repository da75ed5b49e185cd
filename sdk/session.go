package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aaricantto/GraphFS/internal/graph"
	"github.com/aaricantto/GraphFS/internal/lasso"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"go.uber.org/zap"
)

// ErrClosed is returned by a closed Session
var ErrClosed = errors.New("sdk: session closed")

// Session keeps a graph.State in sync with a backend. Every mutation of
// the state runs on one goroutine, in the order it was posted; listing
// requests run on worker goroutines and post their replies back.
type Session struct {
	t     Transport
	state *graph.State
	log   *zap.Logger

	inbox   chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	workers sync.WaitGroup

	mu        sync.Mutex
	listeners []func(graph.View)
	closeOnce sync.Once
	closeErr  error
}

// NewSession starts a session over t and subscribes to its events
func NewSession(t Transport, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		t:       t,
		log:     log,
		inbox:   make(chan func(), 256),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	s.state = graph.NewState(graph.RequesterFunc(s.requestListing), log.Named("graph"))

	events, errs, err := t.Events(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}
	go s.run()
	go s.pump(events, errs)
	return s, nil
}

// ID returns the backend session id
func (s *Session) ID() string {
	return s.t.SessionInfo().SessionID
}

// AddRoot adds a root on the backend and materializes its first level.
// Events that arrive before the root is in the graph cannot be applied, so
// the root is listed again whenever any were seen meanwhile.
func (s *Session) AddRoot(ctx context.Context, path string, excludes []string) (types.RootAdded, error) {
	var before uint64
	if err := s.read(ctx, func(st *graph.State) {
		before = st.LastSequence()
	}); err != nil {
		return types.RootAdded{}, err
	}

	added, err := s.t.AddRoot(ctx, path, excludes)
	if err != nil {
		return added, err
	}
	err = s.exec(ctx, func(st *graph.State) error {
		if err := st.Dispatch(graph.RootAdded{
			Root:     added.Root,
			Name:     added.Name,
			Children: added.Children,
			Excludes: excludes,
		}); err != nil {
			return err
		}
		if st.LastSequence() != before {
			s.requestListing(added.Root)
		}
		return st.Dispatch(graph.WatchAck{Path: added.Root, Enabled: added.Watching})
	})
	return added, err
}

// RemoveRoot drops a root on the backend and from the graph
func (s *Session) RemoveRoot(ctx context.Context, path string) error {
	root, err := s.t.RemoveRoot(ctx, path)
	if err != nil {
		return err
	}
	if root == "" {
		root = utils.Canonical(path)
	}
	return s.exec(ctx, func(st *graph.State) error {
		return st.Dispatch(graph.RootRemoved{Root: root})
	})
}

// Expand opens a folder; its children arrive asynchronously
func (s *Session) Expand(path string) error {
	return s.exec(s.ctx, func(st *graph.State) error { return st.Expand(path) })
}

// Collapse closes a folder and drops its materialized descendants
func (s *Session) Collapse(path string) error {
	return s.exec(s.ctx, func(st *graph.State) error { return st.Collapse(path) })
}

// ToggleSelect flips the selection of a file and reports the new value
func (s *Session) ToggleSelect(path string) (bool, error) {
	var selected bool
	err := s.exec(s.ctx, func(st *graph.State) error {
		var err error
		selected, err = st.ToggleSelect(path)
		return err
	})
	return selected, err
}

// Lasso applies a lasso capture and returns how many operations ran
func (s *Session) Lasso(captured []string) (int, error) {
	var n int
	err := s.exec(s.ctx, func(st *graph.State) error {
		n = lasso.Apply(st, lasso.Resolve(st, captured))
		return nil
	})
	return n, err
}

// Watch enables a watch on a folder already in the graph
func (s *Session) Watch(ctx context.Context, path string, recursive bool) error {
	ack, err := s.t.WatchEnable(ctx, path, recursive, nil)
	if err != nil {
		return err
	}
	return s.exec(ctx, func(st *graph.State) error {
		return st.Dispatch(graph.WatchAck{Path: ack.Path, Enabled: ack.Enabled})
	})
}

// Unwatch disables the watch on path
func (s *Session) Unwatch(ctx context.Context, path string) error {
	ack, err := s.t.WatchDisable(ctx, path)
	if err != nil {
		return err
	}
	return s.exec(ctx, func(st *graph.State) error {
		return st.Dispatch(graph.WatchAck{Path: ack.Path, Enabled: false})
	})
}

// Snapshot returns a copy of the current graph
func (s *Session) Snapshot() (graph.View, error) {
	var v graph.View
	err := s.read(context.Background(), func(st *graph.State) {
		v = st.Snapshot()
	})
	return v, err
}

// Selected returns the selected file paths in selection order
func (s *Session) Selected() ([]string, error) {
	var out []string
	err := s.read(context.Background(), func(st *graph.State) {
		out = st.Selected()
	})
	return out, err
}

// OnChange registers fn to receive a snapshot after every applied change.
// fn runs on the session goroutine and must not call back into the
// Session.
func (s *Session) OnChange(fn func(graph.View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Close stops the session goroutines and ends the backend session
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.stopped
		s.workers.Wait()
		s.closeErr = s.t.Close()
	})
	return s.closeErr
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.inbox:
			fn()
		}
	}
}

// post queues fn for the session goroutine. It refuses once the session
// is closing.
func (s *Session) post(fn func()) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.inbox <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// exec runs fn on the session goroutine and waits for it. Listeners are
// notified after fn returns.
func (s *Session) exec(ctx context.Context, fn func(*graph.State) error) error {
	return s.call(ctx, fn, true)
}

// read runs fn on the session goroutine without notifying listeners
func (s *Session) read(ctx context.Context, fn func(*graph.State)) error {
	return s.call(ctx, func(st *graph.State) error {
		fn(st)
		return nil
	}, false)
}

func (s *Session) call(ctx context.Context, fn func(*graph.State) error, notify bool) error {
	result := make(chan error, 1)
	if !s.post(func() {
		err := fn(s.state)
		if notify {
			s.notify()
		}
		result <- err
	}) {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-s.stopped:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		if s.ctx.Err() != nil {
			return ErrClosed
		}
		return ctx.Err()
	}
}

// deliver dispatches a backend message on the session goroutine
func (s *Session) deliver(msg graph.Message) {
	s.post(func() {
		if err := s.state.Dispatch(msg); err != nil {
			s.log.Debug("message not applied", zap.Error(err))
		}
		s.notify()
	})
}

// requestListing is called by the state on the session goroutine
func (s *Session) requestListing(path string) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		listing, err := s.t.ListDir(s.ctx, path, nil)
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			s.deliver(graph.ListingError{Path: path, Code: ErrorCode(err), Message: err.Error()})
			return
		}
		s.deliver(graph.Listing{Path: path, Children: listing.Children})
	}()
}

// pump forwards pushed events until the stream ends
func (s *Session) pump(events <-chan types.FsChangeEvent, errs <-chan types.ErrorInfo) {
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.deliver(graph.FsEvent{Event: ev})
		case info, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.deliver(graph.Error{Code: info.Code, Message: info.Message, Path: info.Path})
		}
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	listeners := make([]func(graph.View), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	if len(listeners) == 0 {
		return
	}
	v := s.state.Snapshot()
	for _, fn := range listeners {
		fn(v)
	}
}
