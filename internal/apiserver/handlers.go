// Package apiserver implements the HTTP API that serves issue searches and
// the web client's static files.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cncf/clotributor/internal/cache"
	"github.com/cncf/clotributor/internal/config"
	"github.com/cncf/clotributor/internal/db"
)

// Cache durations, in seconds.
const (
	indexCacheMaxAge  = 300
	defaultAPIMaxAge  = 300
	staticCacheMaxAge = 365 * 24 * 60 * 60
)

// paginationTotalCount is the header that indicates the number of items
// available for pagination purposes.
const paginationTotalCount = "pagination-total-count"

// filtersCacheKey is the key the issues filters document is memoised under.
const filtersCacheKey = "issues-filters"

// DB defines the catalogue operations the API server needs.
type DB interface {
	// GetIssuesFilters returns the available search filters as JSON.
	GetIssuesFilters(ctx context.Context) ([]byte, error)

	// SearchIssues returns the matching issues as JSON plus the total count.
	SearchIssues(ctx context.Context, input *db.SearchIssuesInput) (int64, []byte, error)
}

// Handlers groups the HTTP handlers and their dependencies.
type Handlers struct {
	db           DB
	logger       *zap.Logger
	staticPath   string
	filtersCache *cache.Cache[[]byte]
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, catalogue DB, logger *zap.Logger) *Handlers {
	return &Handlers{
		db:           catalogue,
		logger:       logger,
		staticPath:   cfg.APIServer.StaticPath,
		filtersCache: cache.New[[]byte](defaultAPIMaxAge * time.Second),
	}
}

// Router sets up the HTTP router.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}))
		r.Get("/filters/issues", h.IssuesFilters)
		r.Get("/issues/search", h.SearchIssues)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	fileServer := http.FileServer(http.Dir(h.staticPath))
	r.Get("/static/*", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", staticCacheMaxAge))
		fileServer.ServeHTTP(w, req)
	})
	r.Get("/", h.ServeIndex)
	r.NotFound(h.ServeIndex)

	return r
}

// IssuesFilters returns the filters that can be used when searching issues.
func (h *Handlers) IssuesFilters(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.filtersCache.Get(filtersCacheKey)
	if !ok {
		var err error
		filters, err = h.db.GetIssuesFilters(r.Context())
		if err != nil {
			h.internalError(w, err)
			return
		}
		h.filtersCache.Set(filtersCacheKey, filters)
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", defaultAPIMaxAge))
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(filters)
}

// SearchIssues searches the catalogue for issues matching the query string
// filters provided.
func (h *Handlers) SearchIssues(w http.ResponseWriter, r *http.Request) {
	input, err := ParseSearchIssuesInput(r.URL.RawQuery)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	count, issues, err := h.db.SearchIssues(r.Context(), input)
	if err != nil {
		h.internalError(w, err)
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", defaultAPIMaxAge))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(paginationTotalCount, fmt.Sprintf("%d", count))
	_, _ = w.Write(issues)
}

// ServeIndex serves the web client's shell document.
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", indexCacheMaxAge))
	http.ServeFile(w, r, filepath.Join(h.staticPath, "index.html"))
}

func (h *Handlers) internalError(w http.ResponseWriter, err error) {
	h.logger.Error("internal error", zap.Error(err))
	w.WriteHeader(http.StatusInternalServerError)
}
