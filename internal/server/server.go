// Package server exposes the extraction, reconciliation, collection and
// screening operations over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/dropaudit/internal/batch"
	"github.com/sells-group/dropaudit/internal/config"
	"github.com/sells-group/dropaudit/internal/harvest"
	"github.com/sells-group/dropaudit/internal/reconcile"
	"github.com/sells-group/dropaudit/internal/screener"
	"github.com/sells-group/dropaudit/internal/store"
)

// Server wires the engine's operations to their HTTP routes.
type Server struct {
	store      store.Store
	batch      *batch.Processor
	reconciler *reconcile.Reconciler
	harvester  *harvest.Harvester
	screener   screener.Screener
	cfg        config.ServerConfig
	router     *chi.Mux
}

// New creates a Server. harvester may be nil when no X API bearer token is
// configured; the tweet routes then report a configuration error.
func New(st store.Store, bp *batch.Processor, rc *reconcile.Reconciler, hv *harvest.Harvester, sc screener.Screener, cfg config.ServerConfig) *Server {
	s := &Server{
		store:      st,
		batch:      bp,
		reconciler: rc,
		harvester:  hv,
		screener:   sc,
		cfg:        cfg,
		router:     chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Router returns the configured route tree.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(120 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Post("/extract", s.handleExtract)
	s.router.Post("/extract-tweets", s.handleExtractTweets)

	s.router.Post("/compare", s.handleCompare)
	s.router.Post("/compare-collection", s.handleCompareCollection)
	s.router.Get("/comparisons", s.handleListComparisons)
	s.router.Get("/comparisons/{id}", s.handleGetComparison)

	s.router.Route("/collections", func(r chi.Router) {
		r.Get("/", s.handleListCollections)
		r.Post("/", s.handleCreateCollection)
		r.Get("/{id}", s.handleGetCollection)
		r.Delete("/{id}", s.handleDeleteCollection)
		r.Post("/{id}/addresses", s.handleAddAddresses)
		r.Delete("/{id}/addresses/{address}", s.handleRemoveAddress)
		r.Post("/{id}/upload", s.handleUploadToCollection)
		r.Get("/{id}/download", s.handleDownloadCollection)
	})

	s.router.Route("/wallet-screener", func(r chi.Router) {
		r.Post("/batch", s.handleScreenBatch)
		r.Get("/status", s.handleScreenerStatus)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorBody is the envelope for every non-2xx response. Error is a stable
// machine string, Message is for humans, Details names offending inputs.
type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...string) {
	zap.L().Warn("request failed",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("requestId", middleware.GetReqID(r.Context())),
	)
	respond(w, status, errorBody{Error: code, Message: message, Details: details})
}

// respondStoreError maps persistence sentinels onto HTTP statuses. Anything
// unrecognized is a 500.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case store.IsNotFound(err):
		respondError(w, r, http.StatusNotFound, "not_found", "resource not found")
	case store.IsDuplicateName(err):
		respondError(w, r, http.StatusConflict, "duplicate_name", "a collection with that name already exists")
	default:
		zap.L().Error("store operation failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
