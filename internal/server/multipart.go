package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sells-group/dropaudit/internal/batch"
)

// maxFormMemory bounds how much of a multipart body is held in memory
// before spilling to temp files.
const maxFormMemory = 32 << 20

// allowedExtensions is the upload allow-list. Anything else is rejected
// before normalization runs.
var allowedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".json": true,
	".xlsx": true,
	".xls":  true,
	".pdf":  true,
}

// checkUploads validates file type and size for every part, returning one
// detail line per offending file. An empty slice means the batch is clean.
func (s *Server) checkUploads(headers []*multipart.FileHeader) []string {
	var details []string
	for _, h := range headers {
		ext := strings.ToLower(filepath.Ext(h.Filename))
		if !allowedExtensions[ext] {
			details = append(details, fmt.Sprintf("%s: unsupported file type %q", h.Filename, ext))
			continue
		}
		if h.Size > s.cfg.MaxUploadBytes {
			details = append(details, fmt.Sprintf("%s: exceeds size limit of %d bytes", h.Filename, s.cfg.MaxUploadBytes))
		}
	}
	return details
}

// readBatchFiles loads each part into memory. Read failures are carried on
// the File itself so the batch processor can log and skip them.
func readBatchFiles(headers []*multipart.FileHeader) []batch.File {
	files := make([]batch.File, 0, len(headers))
	for _, h := range headers {
		data, err := readPart(h)
		files = append(files, batch.File{Name: h.Filename, Data: data, Err: err})
	}
	return files
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formFile fetches a single required file field, enforcing the same type
// and size guards as batch uploads. The bool result is false when a 400 has
// already been written.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request, field string) (string, []byte, bool) {
	f, h, err := r.FormFile(field)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "missing_file", fmt.Sprintf("missing required file field %q", field))
		return "", nil, false
	}
	defer f.Close()

	if details := s.checkUploads([]*multipart.FileHeader{h}); len(details) > 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_file", "file rejected", details...)
		return "", nil, false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "unreadable_file", fmt.Sprintf("could not read file %q", h.Filename))
		return "", nil, false
	}
	return h.Filename, data, true
}
