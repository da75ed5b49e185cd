package types

import (
	"strings"
	"time"
)

// Config represents the complete configuration for GraphFS
type Config struct {
	API             APIConfig     `json:"api"`
	Watch           WatchConfig   `json:"watch"`
	Store           StoreConfig   `json:"store"`
	Logging         LoggingConfig `json:"logging"`
	DefaultExcludes []string      `json:"default_excludes"`
	StartupRoot     string        `json:"startup_root,omitempty"`
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// WatchConfig tunes the watch registry
type WatchConfig struct {
	// RenameWindow bounds how long a Rename(old) waits for its Create(new)
	// before being delivered as a plain delete.
	RenameWindow      Duration `json:"rename_window"`
	EventBuffer       int      `json:"event_buffer"`
	IdentityCacheSize int      `json:"identity_cache_size"`
}

// StoreConfig locates the persisted app state
type StoreConfig struct {
	AppDataDir string `json:"app_data_dir"`
	DBPath     string `json:"db_path"`
}

// LoggingConfig mirrors logging.Config in JSON form
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output,omitempty"`
}

// Duration is a time.Duration that reads and writes as "250ms" in JSON
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// NodeKind is "file" or "folder"
type NodeKind string

// NodeKind constants
const (
	KindFolder NodeKind = "folder"
	KindFile   NodeKind = "file"
)

// Entry is one child returned by a directory listing
type Entry struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Kind NodeKind `json:"type"`
}

// IsFolder reports whether the entry is a directory
func (e Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// EntryLess orders folders before files, then names case-insensitively
// with the exact name as tie-breaker.
func EntryLess(a, b Entry) bool {
	if a.IsFolder() != b.IsFolder() {
		return a.IsFolder()
	}
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	return a.Name < b.Name
}

// EventKind enumerates normalized filesystem changes
type EventKind string

// EventKind constants
const (
	EventCreated  EventKind = "created"
	EventDeleted  EventKind = "deleted"
	EventModified EventKind = "modified"
	EventMoved    EventKind = "moved"
)

// FsChangeEvent is the canonical change notification pushed to a session.
// DestPath is set only for EventMoved.
type FsChangeEvent struct {
	Sequence      uint64    `json:"seq"`
	WatchRootPath string    `json:"watch_path"`
	Kind          EventKind `json:"event"`
	Path          string    `json:"path"`
	DestPath      string    `json:"dest_path,omitempty"`
	IsDir         bool      `json:"is_dir"`
}

// Error codes carried on the wire
const (
	CodeNotFound         = "not_found"
	CodePermissionDenied = "permission_denied"
	CodeOutsideRoot      = "outside_root"
	CodeWatchFailed      = "watch_failed"
	CodeInvalid          = "invalid"
	CodeInternal         = "internal"
)

// ErrorInfo describes a failed request or an asynchronous watch failure
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// APIResponse represents a generic API response
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RootAdded is the reply to add_root; it carries the root's first listing.
// Watching is false when the automatic recursive watch could not be set up.
type RootAdded struct {
	Root     string  `json:"root"`
	Name     string  `json:"name"`
	Children []Entry `json:"children"`
	Watching bool    `json:"watching"`
}

// Listing is the reply to list_dir
type Listing struct {
	Path     string  `json:"path"`
	Children []Entry `json:"children"`
}

// WatchAck acknowledges watch_enable / watch_disable. Path is empty when
// every subscription of the session was disabled.
type WatchAck struct {
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
}

// RootRecord is the persisted view of a root directory
type RootRecord struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Favorite bool      `json:"favorite"`
	Active   bool      `json:"active"`
	AddedAt  time.Time `json:"added_at"`
	LastUsed time.Time `json:"last_used"`
}

// AppState is the snapshot of persisted roots handed to a new session
type AppState struct {
	Favorites  []RootRecord `json:"favorites"`
	Actives    []RootRecord `json:"actives"`
	Recents    []RootRecord `json:"recents"`
	Roots      []RootRecord `json:"roots"`
	AppDataDir string       `json:"appdata_dir"`
}

// Health is the /health payload
type Health struct {
	Sessions int    `json:"sessions"`
	Store    string `json:"store"`
	Uptime   string `json:"uptime"`
}

// SessionInfo is returned when a session is opened
type SessionInfo struct {
	SessionID string   `json:"session_id"`
	Roots     []string `json:"roots"`
	State     AppState `json:"state"`
}

// FileContent is one entry of a read_files reply. Error is set instead
// of Content when the file could not be read.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}
