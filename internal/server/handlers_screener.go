package server

import (
	"net/http"
)

type screenBatchRequest struct {
	Addresses []string `json:"addresses"`
	ChainID   int      `json:"chainId"`
}

func (s *Server) handleScreenBatch(w http.ResponseWriter, r *http.Request) {
	var req screenBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "request body must be JSON with an addresses field")
		return
	}

	results, err := s.screener.ScreenBatch(r.Context(), req.Addresses, req.ChainID)
	if err != nil {
		// The screening backends only fail on batch bounds or malformed
		// addresses, both caller mistakes.
		respondError(w, r, http.StatusBadRequest, "invalid_batch", err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleScreenerStatus(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.screener.Status())
}
