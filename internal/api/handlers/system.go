package handlers

import (
	"fmt"
	"net/http"

	"github.com/aaricantto/GraphFS/internal/api/models"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/logging"
	"github.com/aaricantto/GraphFS/internal/types"
)

// SystemHandler handles app state and runtime settings
type SystemHandler struct {
	BaseHandler
	fs *graphfs.GraphFS
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(fs *graphfs.GraphFS) *SystemHandler {
	return &SystemHandler{
		fs: fs,
	}
}

// GetState handles the app state endpoint
func (h *SystemHandler) GetState(w http.ResponseWriter, req *http.Request) {
	state, err := h.fs.AppState()
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, types.CodeInternal, fmt.Sprintf("Failed to load app state: %v", err))
		return
	}

	h.sendSuccess(w, "State retrieved successfully", state)
}

// ToggleFavorite handles the toggle favorite endpoint
func (h *SystemHandler) ToggleFavorite(w http.ResponseWriter, req *http.Request) {
	var request models.FavoriteRequest
	if !h.decode(w, req, &request) {
		return
	}
	if request.Path == "" {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "path is required")
		return
	}

	favorite, err := h.fs.ToggleFavorite(request.Path)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, types.CodeInternal, fmt.Sprintf("Failed to toggle favorite: %v", err))
		return
	}

	h.sendSuccess(w, "Favorite updated", map[string]any{
		"path":     request.Path,
		"favorite": favorite,
	})
}

// SetLogLevel handles the log level endpoint
func (h *SystemHandler) SetLogLevel(w http.ResponseWriter, req *http.Request) {
	var request models.LogLevelRequest
	if !h.decode(w, req, &request) {
		return
	}
	if !logging.SetLevel(request.Level) {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, fmt.Sprintf("unknown log level %q", request.Level))
		return
	}

	h.sendSuccess(w, "Log level updated", map[string]any{"level": logging.Level()})
}

// GetConfig handles the get config endpoint
func (h *SystemHandler) GetConfig(w http.ResponseWriter, req *http.Request) {
	h.sendSuccess(w, "Config retrieved successfully", h.fs.Config())
}
