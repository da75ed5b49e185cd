package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aaricantto/GraphFS/internal/api/models"
	"github.com/aaricantto/GraphFS/internal/export"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/go-chi/chi/v5"
)

// FileHandler handles reading and exporting files
type FileHandler struct {
	BaseHandler
	fs *graphfs.GraphFS
}

// NewFileHandler creates a new file handler
func NewFileHandler(fs *graphfs.GraphFS) *FileHandler {
	return &FileHandler{
		fs: fs,
	}
}

// ReadFiles handles the read files endpoint
func (h *FileHandler) ReadFiles(w http.ResponseWriter, req *http.Request) {
	var request models.FilesRequest
	if !h.decode(w, req, &request) {
		return
	}
	if len(request.Paths) == 0 {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "paths are required")
		return
	}

	files, err := h.fs.ReadFiles(req.Context(), chi.URLParam(req, "sid"), request.Paths)
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}

	h.sendSuccess(w, "Files read successfully", map[string]any{"files": files})
}

// ZipFiles handles the zip endpoint. The archive is built in memory so a
// failure can still be reported as JSON.
func (h *FileHandler) ZipFiles(w http.ResponseWriter, req *http.Request) {
	var request models.FilesRequest
	if !h.decode(w, req, &request) {
		return
	}
	if len(request.Paths) == 0 {
		h.sendError(w, http.StatusBadRequest, types.CodeInvalid, "paths are required")
		return
	}

	var buf bytes.Buffer
	n, err := h.fs.ZipFiles(req.Context(), chi.URLParam(req, "sid"), &buf, request.Paths)
	if err != nil {
		h.sendFailure(w, req, err)
		return
	}
	if n == 0 {
		h.sendError(w, http.StatusNotFound, types.CodeNotFound, "No readable files to archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ArchiveName(time.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-File-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
