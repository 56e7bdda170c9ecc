package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// formMemory is how much of a multipart body is buffered in memory before
// spilling to a temp file.
const formMemory = 8 << 20

// loadResponse is the JSON body of a successful load.
type loadResponse struct {
	Load *core.LoadSummary `json:"load"`
}

// handleLoad accepts a save document as the multipart field "file" and
// loads it. The file is streamed into the service; it is never read into
// memory as a whole.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, r, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	summary, err := s.service.Load(withClient(r.Context(), r), header.Filename, file, header.Size)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Table(s.service.View()).Render(r.Context(), w); err != nil {
			logRenderError(r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{Load: summary})
}
