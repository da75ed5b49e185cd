package handlers

import (
	"net/http"

	"github.com/aaricantto/GraphFS/internal/api/models"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/go-chi/chi/v5"
)

// WatchHandler handles watch subscriptions of a session
type WatchHandler struct {
	BaseHandler
	fs *graphfs.GraphFS
}

// NewWatchHandler creates a new watch handler
func NewWatchHandler(fs *graphfs.GraphFS) *WatchHandler {
	return &WatchHandler{
		fs: fs,
	}
}

// Enable handles the watch enable endpoint
func (h *WatchHandler) Enable(w http.ResponseWriter, req *http.Request) {
	var request models.WatchRequest
	if !h.decode(w, req, &request) {
		return
	}
	if request.Path == "" {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "path is required")
		return
	}

	ack, err := h.fs.WatchEnable(chi.URLParam(req, "sid"), request.Path, request.Recursive, request.Excludes)
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Watch enabled", ack)
}

// Disable handles the watch disable endpoint. Without a path every watch
// of the session stops.
func (h *WatchHandler) Disable(w http.ResponseWriter, req *http.Request) {
	ack, err := h.fs.WatchDisable(chi.URLParam(req, "sid"), req.URL.Query().Get("path"))
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Watch disabled", ack)
}

// List handles the list watches endpoint
func (h *WatchHandler) List(w http.ResponseWriter, req *http.Request) {
	subs, err := h.fs.Subscriptions(chi.URLParam(req, "sid"))
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Watches retrieved successfully", subs)
}
