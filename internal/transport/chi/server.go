// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feedrank/feedrank/internal/domain"
	logpkg "github.com/feedrank/feedrank/internal/logger"
	searchuc "github.com/feedrank/feedrank/internal/usecase/search"
)

// Pinger checks a collaborator's liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP handlers for the search API.
type Server struct {
	pipeline *searchuc.Service
	pingers  []Pinger
	logger   *zap.Logger
}

// NewServer creates an HTTP API server. pingers are checked by /health.
func NewServer(pipeline *searchuc.Service, logger *zap.Logger, pingers ...Pinger) *Server {
	return &Server{pipeline: pipeline, pingers: pingers, logger: logger}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/api/search", s.handleSearch)
	r.Post("/api/sync", s.handleSync)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
}

// handleSearch serves GET /api/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := queryFromRequest(r)

	page, err := s.pipeline.Search(r.Context(), q)
	if err != nil {
		logpkg.FromContext(r.Context()).Error("Search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Success:    true,
		Data:       page.Data,
		Pagination: page.Pagination,
	})
}

// handleSync serves POST /api/sync.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	count, err := s.pipeline.Sync(r.Context())
	if err != nil {
		logpkg.FromContext(r.Context()).Error("Sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success:     true,
		Message:     "contents synchronized successfully",
		SyncedCount: count,
	})
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, p := range s.pingers {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// queryFromRequest builds a search query from URL parameters. The primary
// parameter names are keyword/sortBy/perPage; the snake_case and legacy
// "query" aliases are accepted for compatibility. Malformed numbers fall
// back to defaults via Normalize.
func queryFromRequest(r *http.Request) domain.SearchQuery {
	params := r.URL.Query()

	keyword := params.Get("keyword")
	if keyword == "" {
		keyword = params.Get("query")
	}
	sortBy := params.Get("sortBy")
	if sortBy == "" {
		sortBy = params.Get("sort_by")
	}
	perPage := params.Get("perPage")
	if perPage == "" {
		perPage = params.Get("per_page")
	}

	return domain.SearchQuery{
		Keyword: keyword,
		Type:    params.Get("type"),
		SortBy:  domain.SortBy(sortBy),
		Page:    atoiOrZero(params.Get("page")),
		PerPage: atoiOrZero(perPage),
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

type searchResponse struct {
	Success    bool                   `json:"success"`
	Data       []domain.ScoredContent `json:"data"`
	Pagination domain.Pagination      `json:"pagination"`
}

type syncResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	SyncedCount int    `json:"synced_count"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}
