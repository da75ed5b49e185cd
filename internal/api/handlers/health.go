package handlers

import (
	"net/http"

	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/logging"
	"github.com/aaricantto/GraphFS/internal/types"
	"go.uber.org/zap"
)

// HealthHandler reports whether the backend can serve sessions
type HealthHandler struct {
	BaseHandler
	fs *graphfs.GraphFS
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(fs *graphfs.GraphFS) *HealthHandler {
	return &HealthHandler{fs: fs}
}

// HealthCheck answers 200 with the session count, or 503 when the store
// is unreachable or the backend is shutting down.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, req *http.Request) {
	health, err := h.fs.Health(req.Context())
	if err != nil {
		logging.WithContext(req.Context()).Warn("health check failed", zap.Error(err))
		h.sendJSON(w, http.StatusServiceUnavailable, types.APIResponse{
			Success: false,
			Code:    types.CodeInternal,
			Message: "GraphFS is unavailable",
			Data:    health,
		})
		return
	}
	h.sendSuccess(w, "GraphFS is healthy", health)
}
