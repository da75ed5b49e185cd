package graph

import (
	"fmt"

	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"go.uber.org/zap"
)

// Message is anything the backend can deliver to a State. The set is
// closed; Dispatch handles every variant.
type Message interface {
	isMessage()
}

// RootAdded carries a new root and its first listing
type RootAdded struct {
	Root     string
	Name     string
	Children []types.Entry
	Excludes []string
}

// RootRemoved confirms a root was dropped
type RootRemoved struct {
	Root string
}

// Listing answers a listing request
type Listing struct {
	Path     string
	Children []types.Entry
}

// ListingError reports a listing request that failed
type ListingError struct {
	Path    string
	Code    string
	Message string
}

// FsEvent wraps a pushed filesystem change
type FsEvent struct {
	Event types.FsChangeEvent
}

// WatchAck confirms watch_enable or watch_disable
type WatchAck struct {
	Path    string
	Enabled bool
}

// Error is an asynchronous failure not tied to a pending request
type Error struct {
	Code    string
	Message string
	Path    string
}

func (RootAdded) isMessage()    {}
func (RootRemoved) isMessage()  {}
func (Listing) isMessage()      {}
func (ListingError) isMessage() {}
func (FsEvent) isMessage()      {}
func (WatchAck) isMessage()     {}
func (Error) isMessage()        {}

// Dispatch applies one message. It runs to completion before returning.
func (s *State) Dispatch(msg Message) error {
	switch m := msg.(type) {
	case RootAdded:
		if err := s.AddRoot(m.Root, m.Name, m.Excludes); err != nil {
			return err
		}
		s.ApplyListing(m.Root, m.Children)
	case RootRemoved:
		if _, ok := s.nodes[utils.Canonical(m.Root)]; !ok {
			return nil
		}
		return s.RemoveRoot(m.Root)
	case Listing:
		s.ApplyListing(m.Path, m.Children)
	case ListingError:
		s.ApplyListingError(m.Path, m.Code)
	case FsEvent:
		s.ApplyEvent(m.Event)
	case WatchAck:
		s.SetWatched(m.Path, m.Enabled)
	case Error:
		s.log.Warn("backend error",
			zap.String("code", m.Code),
			zap.String("path", m.Path),
			zap.String("message", m.Message),
		)
		if m.Code == types.CodeWatchFailed {
			s.SetWatched(m.Path, false)
		}
	default:
		return fmt.Errorf("unhandled message %T", msg)
	}
	return nil
}
