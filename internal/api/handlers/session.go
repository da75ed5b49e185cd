package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/logging"
	"github.com/aaricantto/GraphFS/internal/metrics"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/watch"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// keepAliveInterval spaces SSE comment lines on an idle stream
const keepAliveInterval = 15 * time.Second

// SessionHandler handles session lifecycle and the event stream
type SessionHandler struct {
	BaseHandler
	fs *graphfs.GraphFS
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(fs *graphfs.GraphFS) *SessionHandler {
	return &SessionHandler{
		fs: fs,
	}
}

// OpenSession handles the open session endpoint
func (h *SessionHandler) OpenSession(w http.ResponseWriter, req *http.Request) {
	info, err := h.fs.OpenSession(req.Context())
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendJSON(w, http.StatusCreated, types.APIResponse{
		Success: true,
		Message: "Session opened",
		Data:    info,
	})
}

// CloseSession handles the close session endpoint
func (h *SessionHandler) CloseSession(w http.ResponseWriter, req *http.Request) {
	sid := chi.URLParam(req, "sid")
	if err := h.fs.CloseSession(sid); err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Session closed", nil)
}

// Events streams the session's change events as SSE. fs_event frames
// carry a FsChangeEvent and error frames an ErrorInfo. The stream ends
// when the client goes away or the session closes.
func (h *SessionHandler) Events(w http.ResponseWriter, req *http.Request) {
	sid := chi.URLParam(req, "sid")
	events, errs, err := h.fs.Events(sid)
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.sendError(w, http.StatusInternalServerError, types.CodeInternal, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.AddSSEConnections(1)
	defer metrics.AddSSEConnections(-1)
	log := logging.WithContext(req.Context()).With(zap.String("session", sid))
	log.Debug("event stream opened")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := req.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("event stream closed by client")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, "fs_event", ev); err != nil {
				log.Debug("event stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		case werr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err := writeEvent(w, "error", watch.Info(werr)); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
