package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"webrag/internal/storage"
	"webrag/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Runner      Runner
	ChunkRepo   storage.ChunkStore
	VectorStore vectorstore.VectorStore
	Collection  string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	crawlHandler := NewCrawlHandler(deps.Runner)
	statsHandler := NewStatsHandler(deps.ChunkRepo)
	healthHandler := NewHealthHandler(deps.VectorStore, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/crawl", crawlHandler)
		r.Method(http.MethodGet, "/stats", statsHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
