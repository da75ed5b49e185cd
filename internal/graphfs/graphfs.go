// Package graphfs is the backend of the file browser: it owns client
// sessions, their roots and watches, and the persisted app state.
package graphfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aaricantto/GraphFS/internal/db"
	"github.com/aaricantto/GraphFS/internal/export"
	"github.com/aaricantto/GraphFS/internal/listing"
	"github.com/aaricantto/GraphFS/internal/metrics"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"github.com/aaricantto/GraphFS/internal/watch"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for an unknown or closed session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("graphfs closed")
)

// GraphFS owns the watch registry, the app-state store and the session table
type GraphFS struct {
	cfg      *types.Config
	store    *db.DB
	registry *watch.Registry
	lister   *listing.Service
	log      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
	started  time.Time
}

// New opens the store at cfg.Store.DBPath and creates the registry. Roots
// left active by a previous run are marked inactive.
func New(cfg *types.Config, log *zap.Logger) (*GraphFS, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	store, err := db.New(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := store.DeactivateAll(); err != nil {
		store.Close()
		return nil, err
	}

	return &GraphFS{
		cfg:      cfg,
		store:    store,
		registry: watch.NewRegistry(watch.OptionsFromConfig(cfg.Watch), log.Named("watch")),
		lister:   listing.NewService(log.Named("listing")),
		log:      log,
		sessions: make(map[string]*session),
		started:  time.Now(),
	}, nil
}

// Config returns the effective configuration
func (g *GraphFS) Config() *types.Config {
	return g.cfg
}

// OpenSession starts a session and returns its id with the persisted app
// state. A configured startup root is added to the new session.
func (g *GraphFS) OpenSession(ctx context.Context) (types.SessionInfo, error) {
	id := uuid.NewString()

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return types.SessionInfo{}, ErrClosed
	}
	ws, err := g.registry.Open(id)
	if err != nil {
		g.mu.Unlock()
		return types.SessionInfo{}, fmt.Errorf("failed to open watch session: %w", err)
	}
	s := newSession(id, ws)
	g.sessions[id] = s
	g.mu.Unlock()

	metrics.AddSessions(1)
	g.log.Info("session opened", zap.String("session", id))

	if g.cfg.StartupRoot != "" {
		if _, err := g.AddRoot(ctx, id, g.cfg.StartupRoot, nil); err != nil {
			g.log.Warn("startup root not added",
				zap.String("session", id),
				zap.String("path", g.cfg.StartupRoot),
				zap.Error(err),
			)
		}
	}

	state, err := g.store.Snapshot()
	if err != nil {
		g.log.Warn("app state unavailable", zap.Error(err))
	}
	return types.SessionInfo{
		SessionID: id,
		Roots:     s.roots.List(),
		State:     state,
	}, nil
}

// CloseSession stops the session's watches and forgets it
func (g *GraphFS) CloseSession(id string) error {
	g.mu.Lock()
	s, ok := g.sessions[id]
	delete(g.sessions, id)
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	g.registry.CloseSession(id)
	for _, root := range s.roots.List() {
		g.releaseRoot(root)
	}
	metrics.AddSessions(-1)
	g.log.Info("session closed", zap.String("session", id))
	return nil
}

// Health reports the open session count after pinging the store
func (g *GraphFS) Health(ctx context.Context) (types.Health, error) {
	g.mu.RLock()
	closed, n := g.closed, len(g.sessions)
	g.mu.RUnlock()
	if closed {
		return types.Health{}, ErrClosed
	}
	if err := g.store.Ping(ctx); err != nil {
		return types.Health{Sessions: n}, err
	}
	return types.Health{
		Sessions: n,
		Store:    g.store.Path(),
		Uptime:   time.Since(g.started).Round(time.Second).String(),
	}, nil
}

// Sessions returns the ids of open sessions
func (g *GraphFS) Sessions() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.sessions))
	for id := range g.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddRoot makes path a root of the session, returns its first listing and
// starts a recursive watch on it. A nil excludes uses the configured
// defaults; the patterns apply to the watch and to later listings under
// the root.
func (g *GraphFS) AddRoot(ctx context.Context, id, path string, excludes []string) (types.RootAdded, error) {
	s, err := g.session(id)
	if err != nil {
		return types.RootAdded{}, err
	}
	if excludes == nil {
		excludes = g.cfg.DefaultExcludes
	}

	root, err := s.roots.Add(path)
	if err != nil {
		return types.RootAdded{}, err
	}

	// The watch starts before the first listing so a change in between
	// shows up in the listing, as an event, or both.
	added := types.RootAdded{Root: root, Name: utils.Base(root)}
	if _, err := s.watch.Enable(root, true, excludes); err != nil {
		g.log.Warn("root added without watch", zap.String("root", root), zap.Error(err))
	} else {
		added.Watching = true
	}

	children, err := g.lister.ListUnder(root, root, excludes)
	if err != nil {
		if added.Watching {
			s.watch.Disable(root)
		}
		s.roots.Remove(root)
		return types.RootAdded{}, err
	}
	s.setExcludes(root, excludes)
	added.Children = children

	if err := g.store.RecordRootAdd(root, added.Name); err != nil {
		g.log.Warn("failed to persist root", zap.String("root", root), zap.Error(err))
	}
	g.log.Info("root added",
		zap.String("session", id),
		zap.String("root", root),
		zap.Int("children", len(children)),
		zap.Bool("watching", added.Watching),
	)
	return added, nil
}

// RemoveRoot drops a root and its watch. Removing an unknown root is not
// an error.
func (g *GraphFS) RemoveRoot(id, path string) (string, error) {
	s, err := g.session(id)
	if err != nil {
		return "", err
	}
	root := utils.Canonical(path)
	if !s.roots.Remove(root) {
		return root, nil
	}
	s.dropExcludes(root)
	s.watch.Disable(root)
	g.releaseRoot(root)
	g.log.Info("root removed", zap.String("session", id), zap.String("root", root))
	return root, nil
}

// ListRoots returns the session's roots sorted by path
func (g *GraphFS) ListRoots(id string) ([]string, error) {
	s, err := g.session(id)
	if err != nil {
		return nil, err
	}
	return s.roots.List(), nil
}

// ListDir returns one level of a directory inside the session's roots.
// A nil excludes uses the patterns given when the root was added.
func (g *GraphFS) ListDir(ctx context.Context, id, path string, excludes []string) (types.Listing, error) {
	s, err := g.session(id)
	if err != nil {
		return types.Listing{}, err
	}
	abs, err := s.roots.Resolve(path)
	if err != nil {
		return types.Listing{}, err
	}
	if excludes == nil {
		if stored, ok := s.excludesFor(abs); ok {
			excludes = stored
		} else {
			excludes = g.cfg.DefaultExcludes
		}
	}

	root, ok := s.roots.RootOf(abs)
	if !ok {
		root = abs
	}
	children, err := g.lister.ListUnder(root, abs, excludes)
	if err != nil {
		return types.Listing{}, err
	}
	if ok {
		if err := g.store.TouchRoot(root); err != nil {
			g.log.Debug("failed to touch root", zap.String("root", root), zap.Error(err))
		}
	}
	return types.Listing{Path: abs, Children: children}, nil
}

// WatchEnable starts a watch on a directory inside the session's roots
func (g *GraphFS) WatchEnable(id, path string, recursive bool, excludes []string) (types.WatchAck, error) {
	s, err := g.session(id)
	if err != nil {
		return types.WatchAck{}, err
	}
	abs, err := s.roots.Resolve(path)
	if err != nil {
		return types.WatchAck{}, err
	}
	if excludes == nil {
		excludes, _ = s.excludesFor(abs)
	}
	watched, err := s.watch.Enable(abs, recursive, excludes)
	if err != nil {
		return types.WatchAck{Path: abs}, err
	}
	return types.WatchAck{Path: watched, Enabled: true}, nil
}

// WatchDisable stops the watch on path, or every watch of the session
// when path is empty.
func (g *GraphFS) WatchDisable(id, path string) (types.WatchAck, error) {
	s, err := g.session(id)
	if err != nil {
		return types.WatchAck{}, err
	}
	if path != "" {
		path = utils.Canonical(path)
	}
	s.watch.Disable(path)
	return types.WatchAck{Path: path, Enabled: false}, nil
}

// Subscriptions lists the session's active watches
func (g *GraphFS) Subscriptions(id string) ([]watch.Subscription, error) {
	s, err := g.session(id)
	if err != nil {
		return nil, err
	}
	return s.watch.Subscriptions(), nil
}

// Events returns the session's change stream and its asynchronous watch
// errors. Both channels close when the session closes.
func (g *GraphFS) Events(id string) (<-chan types.FsChangeEvent, <-chan error, error) {
	s, err := g.session(id)
	if err != nil {
		return nil, nil, err
	}
	return s.watch.Events(), s.watch.Errors(), nil
}

// AppState returns favorites, actives and recents
func (g *GraphFS) AppState() (types.AppState, error) {
	return g.store.Snapshot()
}

// ToggleFavorite flips the favorite flag of a root path
func (g *GraphFS) ToggleFavorite(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("path is required")
	}
	return g.store.ToggleFavorite(utils.Expand(path))
}

// ReadFiles reads files inside the session's roots as text. Each entry
// carries its own error.
func (g *GraphFS) ReadFiles(ctx context.Context, id string, paths []string) ([]types.FileContent, error) {
	s, err := g.session(id)
	if err != nil {
		return nil, err
	}
	results, err := export.ReadFiles(ctx, paths, s.roots.Resolve)
	if err != nil {
		return nil, err
	}
	out := make([]types.FileContent, len(results))
	for i, r := range results {
		out[i] = types.FileContent{
			Path:    r.Path,
			Content: r.Content,
			Error:   export.Message(r.Err),
		}
	}
	return out, nil
}

// ZipFiles writes the files inside the session's roots to w as a zip
// archive and returns how many were included.
func (g *GraphFS) ZipFiles(ctx context.Context, id string, w io.Writer, paths []string) (int, error) {
	s, err := g.session(id)
	if err != nil {
		return 0, err
	}
	return export.ZipFiles(ctx, w, paths, s.roots.Resolve)
}

// Close shuts down every session and the store
func (g *GraphFS) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	n := len(g.sessions)
	g.sessions = make(map[string]*session)
	g.mu.Unlock()

	g.registry.Close()
	metrics.AddSessions(-n)
	if err := g.store.DeactivateAll(); err != nil {
		g.log.Warn("failed to deactivate roots", zap.Error(err))
	}
	return g.store.Close()
}

func (g *GraphFS) session(id string) (*session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, ErrClosed
	}
	s, ok := g.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// releaseRoot marks root inactive once no open session holds it
func (g *GraphFS) releaseRoot(root string) {
	g.mu.RLock()
	for _, s := range g.sessions {
		if s.holds(root) {
			g.mu.RUnlock()
			return
		}
	}
	g.mu.RUnlock()
	if err := g.store.RecordRootRemove(root); err != nil {
		g.log.Warn("failed to persist root removal", zap.String("root", root), zap.Error(err))
	}
}
