package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/listing"
	"github.com/aaricantto/GraphFS/internal/logging"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/watch"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for all API handlers
type BaseHandler struct{}

// sendJSON sends a JSON response with the given status code and data
func (h *BaseHandler) sendJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response with the given status code, wire code
// and message
func (h *BaseHandler) sendError(w http.ResponseWriter, statusCode int, code, message string) {
	h.sendJSON(w, statusCode, types.APIResponse{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// sendSuccess sends a success response with the given data
func (h *BaseHandler) sendSuccess(w http.ResponseWriter, message string, data any) {
	h.sendJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// sendFailure maps a backend error onto its status and wire code
func (h *BaseHandler) sendFailure(w http.ResponseWriter, req *http.Request, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(req.Context()).Error("request failed", zap.Error(err))
	}
	h.sendError(w, status, code, err.Error())
}

// decode reads a JSON body into v, answering 400 itself on failure
func (h *BaseHandler) decode(w http.ResponseWriter, req *http.Request, v any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "Invalid request body")
		return false
	}
	return true
}

// StatusFor returns the HTTP status and wire code of a backend error
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, graphfs.ErrSessionNotFound):
		return http.StatusNotFound, types.CodeNotFound
	case errors.Is(err, graphfs.ErrClosed), errors.Is(err, watch.ErrSessionClosed):
		return http.StatusServiceUnavailable, types.CodeInternal
	case errors.Is(err, watch.ErrWatchEstablish):
		return http.StatusUnprocessableEntity, types.CodeWatchFailed
	}
	switch code := listing.Code(err); code {
	case types.CodeNotFound:
		return http.StatusNotFound, code
	case types.CodePermissionDenied, types.CodeOutsideRoot:
		return http.StatusForbidden, code
	default:
		return http.StatusInternalServerError, code
	}
}
