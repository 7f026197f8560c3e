package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/dropaudit/internal/extract"
	"github.com/sells-group/dropaudit/internal/fileparse"
	"github.com/sells-group/dropaudit/internal/model"
)

// maxInvalidDetails caps how many invalid entries an add response carries.
// InvalidCount still reflects the full number.
const maxInvalidDetails = 10

type createCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "request body must be JSON with a name field")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, r, http.StatusBadRequest, "missing_name", "collection name is required")
		return
	}

	coll, err := s.store.CreateCollection(r.Context(), req.Name, strings.TrimSpace(req.Description))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, coll)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	colls, err := s.store.ListCollections(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respond(w, http.StatusOK, colls)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	coll, err := s.store.GetCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respond(w, http.StatusOK, coll)
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCollection(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addAddressesRequest struct {
	Addresses []string `json:"addresses"`
}

func (s *Server) handleAddAddresses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addAddressesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "request body must be JSON with an addresses field")
		return
	}
	if len(req.Addresses) == 0 {
		respondError(w, r, http.StatusBadRequest, "missing_addresses", "at least one address is required")
		return
	}

	if _, err := s.store.GetCollection(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}

	var (
		valid   []string
		invalid []model.ValidationError
	)
	for _, raw := range req.Addresses {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		if !extract.IsValidAddress(addr) {
			invalid = append(invalid, model.ValidationError{
				Address: addr,
				Reason:  "invalid address format",
			})
			continue
		}
		valid = append(valid, strings.ToLower(addr))
	}

	added := 0
	if len(valid) > 0 {
		var err error
		added, err = s.store.AddAddresses(r.Context(), id, valid)
		if err != nil {
			respondStoreError(w, r, err)
			return
		}
	}

	total, err := s.store.CountAddresses(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respond(w, http.StatusOK, buildAddResult(added, len(valid), total, invalid))
}

func (s *Server) handleUploadToCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_form", "could not parse multipart form")
		return
	}
	name, data, ok := s.formFile(w, r, "file")
	if !ok {
		return
	}

	if _, err := s.store.GetCollection(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}

	parsed, err := fileparse.Parse(name, data)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_file",
			fmt.Sprintf("could not parse %q", name))
		return
	}

	addrs := make([]string, 0, len(parsed.Addresses))
	for _, rec := range parsed.Addresses {
		addrs = append(addrs, rec.Address)
	}

	added := 0
	if len(addrs) > 0 {
		added, err = s.store.AddAddresses(r.Context(), id, addrs)
		if err != nil {
			respondStoreError(w, r, err)
			return
		}
	}

	total, err := s.store.CountAddresses(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respond(w, http.StatusOK, buildAddResult(added, len(addrs), total, parsed.Errors))
}

// buildAddResult assembles the add/upload response. total is the
// collection's membership count after the insert, not a batch tally.
func buildAddResult(added, valid, total int, invalid []model.ValidationError) model.AddResult {
	res := model.AddResult{
		Added:        added,
		Skipped:      valid - added,
		InvalidCount: len(invalid),
		Total:        total,
	}
	if len(invalid) > maxInvalidDetails {
		invalid = invalid[:maxInvalidDetails]
	}
	res.Invalid = invalid
	return res
}

func (s *Server) handleRemoveAddress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	addr := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "address")))

	if !extract.IsValidAddress(addr) {
		respondError(w, r, http.StatusBadRequest, "invalid_address",
			fmt.Sprintf("%q is not a valid EVM address", addr))
		return
	}
	if _, err := s.store.GetCollection(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}
	if err := s.store.RemoveAddress(r.Context(), id, addr); err != nil {
		respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	coll, err := s.store.GetCollection(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	addrs, err := s.store.ListAddresses(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	filename := exportFilename(coll.Name)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	for _, addr := range addrs {
		fmt.Fprintln(w, addr)
	}
}

// exportFilename turns a collection name into a safe attachment filename.
func exportFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "collection"
	}
	return out + ".csv"
}
