package handlers

import (
	"net/http"

	"github.com/aaricantto/GraphFS/internal/api/models"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/go-chi/chi/v5"
)

// RootHandler handles roots and directory listings of a session
type RootHandler struct {
	BaseHandler
	fs *graphfs.GraphFS
}

// NewRootHandler creates a new root handler
func NewRootHandler(fs *graphfs.GraphFS) *RootHandler {
	return &RootHandler{
		fs: fs,
	}
}

// AddRoot handles the add root endpoint. The reply carries the root's
// first listing.
func (h *RootHandler) AddRoot(w http.ResponseWriter, req *http.Request) {
	var request models.AddRootRequest
	if !h.decode(w, req, &request) {
		return
	}
	if request.Path == "" {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "path is required")
		return
	}

	added, err := h.fs.AddRoot(req.Context(), chi.URLParam(req, "sid"), request.Path, request.Excludes)
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendJSON(w, http.StatusCreated, types.APIResponse{
		Success: true,
		Message: "Root added",
		Data:    added,
	})
}

// ListRoots handles the list roots endpoint
func (h *RootHandler) ListRoots(w http.ResponseWriter, req *http.Request) {
	roots, err := h.fs.ListRoots(chi.URLParam(req, "sid"))
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Roots retrieved successfully", map[string]any{"roots": roots})
}

// RemoveRoot handles the remove root endpoint
func (h *RootHandler) RemoveRoot(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Query().Get("path")
	if path == "" {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "path query parameter is required")
		return
	}

	root, err := h.fs.RemoveRoot(chi.URLParam(req, "sid"), path)
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Root removed", map[string]any{"root": root})
}

// ListDir handles the list directory endpoint
func (h *RootHandler) ListDir(w http.ResponseWriter, req *http.Request) {
	var request models.ListDirRequest
	if !h.decode(w, req, &request) {
		return
	}
	if request.Path == "" {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "path is required")
		return
	}

	result, err := h.fs.ListDir(req.Context(), chi.URLParam(req, "sid"), request.Path, request.Excludes)
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Directory listed successfully", result)
}
