package sdk

import (
	"context"

	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/watch"
)

// LocalTransport talks to an in-process backend
type LocalTransport struct {
	fs   *graphfs.GraphFS
	info types.SessionInfo
}

// NewLocalTransport opens a session on fs
func NewLocalTransport(ctx context.Context, fs *graphfs.GraphFS) (*LocalTransport, error) {
	info, err := fs.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	return &LocalTransport{fs: fs, info: info}, nil
}

func (t *LocalTransport) SessionInfo() types.SessionInfo {
	return t.info
}

func (t *LocalTransport) AddRoot(ctx context.Context, path string, excludes []string) (types.RootAdded, error) {
	return t.fs.AddRoot(ctx, t.info.SessionID, path, excludes)
}

func (t *LocalTransport) RemoveRoot(ctx context.Context, path string) (string, error) {
	return t.fs.RemoveRoot(t.info.SessionID, path)
}

func (t *LocalTransport) ListDir(ctx context.Context, path string, excludes []string) (types.Listing, error) {
	return t.fs.ListDir(ctx, t.info.SessionID, path, excludes)
}

func (t *LocalTransport) WatchEnable(ctx context.Context, path string, recursive bool, excludes []string) (types.WatchAck, error) {
	return t.fs.WatchEnable(t.info.SessionID, path, recursive, excludes)
}

func (t *LocalTransport) WatchDisable(ctx context.Context, path string) (types.WatchAck, error) {
	return t.fs.WatchDisable(t.info.SessionID, path)
}

// Events forwards the backend channels, converting watch failures
func (t *LocalTransport) Events(ctx context.Context) (<-chan types.FsChangeEvent, <-chan types.ErrorInfo, error) {
	events, errs, err := t.fs.Events(t.info.SessionID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan types.FsChangeEvent, cap(events))
	infos := make(chan types.ErrorInfo, 16)
	go func() {
		defer close(out)
		defer close(infos)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case werr, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				select {
				case infos <- watch.Info(werr):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, infos, nil
}

// Close ends the backend session
func (t *LocalTransport) Close() error {
	return t.fs.CloseSession(t.info.SessionID)
}
