package watch

import (
	"errors"
	"fmt"
	"time"

	"github.com/aaricantto/GraphFS/internal/types"
)

var (
	// ErrWatchEstablish is returned when a subscription cannot be started
	ErrWatchEstablish = errors.New("watch could not be established")
	// ErrSessionClosed is returned by operations on a closed session
	ErrSessionClosed = errors.New("watch session closed")
)

// Error is an asynchronous backend failure of one subscription
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options tunes a Registry
type Options struct {
	// RenameWindow bounds how long a rename waits for its second half.
	RenameWindow time.Duration
	// EventBuffer is the capacity of each session's outbound channel.
	EventBuffer int
	// IdentityCacheSize caps the path→identity cache of each subscription.
	IdentityCacheSize int
}

// WithDefaults fills zero fields
func (o Options) WithDefaults() Options {
	if o.RenameWindow <= 0 {
		o.RenameWindow = 250 * time.Millisecond
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 1024
	}
	if o.IdentityCacheSize <= 0 {
		o.IdentityCacheSize = 65536
	}
	return o
}

// OptionsFromConfig converts the watch section of the config file
func OptionsFromConfig(c types.WatchConfig) Options {
	return Options{
		RenameWindow:      c.RenameWindow.Std(),
		EventBuffer:       c.EventBuffer,
		IdentityCacheSize: c.IdentityCacheSize,
	}.WithDefaults()
}

// Subscription describes one enabled watch
type Subscription struct {
	Path         string   `json:"path"`
	Recursive    bool     `json:"recursive"`
	Excludes     []string `json:"excludes,omitempty"`
	LastSequence uint64   `json:"last_seq"`
}

// Info renders an asynchronous watch failure for the wire
func Info(err error) types.ErrorInfo {
	info := types.ErrorInfo{Code: types.CodeWatchFailed, Message: err.Error()}
	var werr *Error
	if errors.As(err, &werr) {
		info.Path = werr.Path
		info.Message = werr.Err.Error()
	}
	return info
}
