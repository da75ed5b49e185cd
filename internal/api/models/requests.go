package models

// AddRootRequest represents the request to add a root directory. A
// missing excludes list means the server defaults.
type AddRootRequest struct {
	Path     string   `json:"path"`
	Excludes []string `json:"excludes"`
}

// ListDirRequest represents the request to list one directory level
type ListDirRequest struct {
	Path     string   `json:"path"`
	Excludes []string `json:"excludes"`
}

// WatchRequest represents the request to enable a watch
type WatchRequest struct {
	Path      string   `json:"path"`
	Recursive bool     `json:"recursive"`
	Excludes  []string `json:"excludes"`
}

// FilesRequest represents the request to read or zip files
type FilesRequest struct {
	Paths []string `json:"paths"`
}

// FavoriteRequest represents the request to toggle a favorite
type FavoriteRequest struct {
	Path string `json:"path"`
}

// LogLevelRequest represents the request to change the log level
type LogLevelRequest struct {
	Level string `json:"level"`
}
