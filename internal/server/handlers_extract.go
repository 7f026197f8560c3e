package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dropaudit/internal/batch"
	"github.com/sells-group/dropaudit/internal/harvest"
	"github.com/sells-group/dropaudit/internal/store"
)

// extractResponse is the shared envelope for file and tweet extraction.
type extractResponse struct {
	Filename           string   `json:"filename"`
	TotalFound         int      `json:"totalFound"`
	Addresses          []string `json:"addresses"`
	FilesProcessed     int      `json:"filesProcessed"`
	FilesWithAddresses int      `json:"filesWithAddresses"`
	TweetText          string   `json:"tweetText,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_form", "could not parse multipart form")
		return
	}
	headers := r.MultipartForm.File["files"]

	if details := s.checkUploads(headers); len(details) > 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_files", "one or more files were rejected", details...)
		return
	}

	res, err := s.batch.Process(r.Context(), readBatchFiles(headers))
	if err != nil {
		switch {
		case eris.Is(err, batch.ErrNoFiles):
			respondError(w, r, http.StatusBadRequest, "no_files", "at least one file is required")
		case eris.Is(err, batch.ErrTooManyFiles):
			respondError(w, r, http.StatusBadRequest, "too_many_files",
				fmt.Sprintf("at most %d files per request", s.cfg.MaxFiles))
		default:
			respondError(w, r, http.StatusInternalServerError, "internal_error", "extraction failed")
		}
		return
	}

	name := fmt.Sprintf("%d files", len(headers))
	if len(headers) == 1 {
		name = headers[0].Filename
	}
	if res.Addresses == nil {
		res.Addresses = []string{}
	}
	respond(w, http.StatusOK, extractResponse{
		Filename:           name,
		TotalFound:         len(res.Addresses),
		Addresses:          res.Addresses,
		FilesProcessed:     res.FilesProcessed,
		FilesWithAddresses: res.FilesWithAddresses,
	})
}

type extractTweetsRequest struct {
	TweetURL string `json:"tweetUrl"`
}

func (s *Server) handleExtractTweets(w http.ResponseWriter, r *http.Request) {
	var req extractTweetsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "request body must be JSON with a tweetUrl field")
		return
	}
	if strings.TrimSpace(req.TweetURL) == "" {
		respondError(w, r, http.StatusBadRequest, "missing_tweet_url", "tweetUrl is required")
		return
	}
	if _, err := harvest.ParseTweetID(req.TweetURL); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_tweet_url",
			fmt.Sprintf("no tweet id found in %q", req.TweetURL))
		return
	}
	if s.harvester == nil {
		respondError(w, r, http.StatusInternalServerError, "missing_credentials",
			"X API bearer token is not configured")
		return
	}

	res, err := s.harvester.Thread(r.Context(), req.TweetURL)
	if err != nil {
		respondError(w, r, http.StatusBadGateway, "upstream_error", "could not fetch tweet thread")
		return
	}

	withAddresses := 0
	if len(res.Addresses) > 0 {
		withAddresses = 1
	}
	respond(w, http.StatusOK, extractResponse{
		Filename:           req.TweetURL,
		TotalFound:         len(res.Addresses),
		Addresses:          res.Addresses,
		FilesProcessed:     res.PostsProcessed,
		FilesWithAddresses: withAddresses,
		TweetText:          res.RootText,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_form", "could not parse multipart form")
		return
	}
	eligibleName, eligibleData, ok := s.formFile(w, r, "eligible")
	if !ok {
		return
	}
	mintedName, mintedData, ok := s.formFile(w, r, "minted")
	if !ok {
		return
	}

	result, err := s.reconciler.CompareFiles(r.Context(), eligibleName, eligibleData, mintedName, mintedData)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleCompareCollection(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_form", "could not parse multipart form")
		return
	}
	collectionID := strings.TrimSpace(r.FormValue("collectionId"))
	if collectionID == "" {
		respondError(w, r, http.StatusBadRequest, "missing_collection_id", "collectionId is required")
		return
	}
	name, data, ok := s.formFile(w, r, "file")
	if !ok {
		return
	}

	result, err := s.reconciler.CompareCollection(r.Context(), collectionID, name, data)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleListComparisons(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > store.MaxComparisonLimit {
			respondError(w, r, http.StatusBadRequest, "invalid_limit",
				fmt.Sprintf("limit must be an integer in [1, %d]", store.MaxComparisonLimit))
			return
		}
		limit = n
	}

	audits, err := s.store.ListComparisons(r.Context(), limit)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respond(w, http.StatusOK, audits)
}

func (s *Server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	audit, err := s.store.GetComparison(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respond(w, http.StatusOK, audit)
}
