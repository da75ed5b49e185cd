// Package sdk is the client side of GraphFS: a Session keeps the graph of
// materialized nodes in sync with a backend reached through a Transport.
package sdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaricantto/GraphFS/internal/listing"
	"github.com/aaricantto/GraphFS/internal/types"
)

// Transport carries one client session's requests to a backend and its
// pushed events back
type Transport interface {
	// SessionInfo describes the backend session opened by the transport
	SessionInfo() types.SessionInfo
	AddRoot(ctx context.Context, path string, excludes []string) (types.RootAdded, error)
	RemoveRoot(ctx context.Context, path string) (string, error)
	ListDir(ctx context.Context, path string, excludes []string) (types.Listing, error)
	WatchEnable(ctx context.Context, path string, recursive bool, excludes []string) (types.WatchAck, error)
	WatchDisable(ctx context.Context, path string) (types.WatchAck, error)
	// Events streams pushed changes and watch failures until ctx is done
	// or the session ends. Only one stream per session may be open.
	Events(ctx context.Context) (<-chan types.FsChangeEvent, <-chan types.ErrorInfo, error)
	Close() error
}

// APIError is a failed request as reported by the backend
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graphfs: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("graphfs: %s: %s", e.Code, e.Message)
}

// ErrorCode returns the wire code of a transport error
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return apiErr.Code
	}
	return listing.Code(err)
}
