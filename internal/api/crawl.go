package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"webrag/internal/contextutil"
	"webrag/internal/crawler"
	"webrag/internal/pipeline"
)

// Runner executes an ingestion run for a start URL.
type Runner interface {
	Run(ctx context.Context, startURL string, limits crawler.Limits) (*pipeline.Report, error)
}

// CrawlHandler handles HTTP requests to crawl and index a site.
type CrawlHandler struct {
	runner Runner
}

// NewCrawlHandler creates a new CrawlHandler.
func NewCrawlHandler(runner Runner) *CrawlHandler {
	return &CrawlHandler{runner: runner}
}

// CrawlRequest represents the crawl request body. Depth and PageLimit are
// optional and override the configured crawl limits for this run only.
type CrawlRequest struct {
	// URL is the page the crawl starts from.
	URL       string `json:"url"`
	Depth     *int   `json:"depth,omitempty"`
	PageLimit *int   `json:"page_limit,omitempty"`
}

// CrawlResponse represents the crawl response.
type CrawlResponse struct {
	Report *pipeline.Report `json:"report"`
}

// ServeHTTP runs the pipeline for the requested URL and returns the run
// report. The run is synchronous, so large sites take a while to respond.
func (h *CrawlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid crawl request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be absolute http(s)")
		return
	}
	if req.Depth != nil && *req.Depth < 0 {
		writeError(w, http.StatusBadRequest, "depth must be non-negative")
		return
	}
	if req.PageLimit != nil && *req.PageLimit <= 0 {
		writeError(w, http.StatusBadRequest, "page_limit must be positive")
		return
	}

	report, err := h.runner.Run(ctx, req.URL, crawler.Limits{MaxDepth: req.Depth, PageLimit: req.PageLimit})
	if err != nil {
		logger.ErrorContext(ctx, "crawl run failed", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "crawl failed")
		return
	}

	writeJSON(w, http.StatusOK, CrawlResponse{Report: report})
}

// errorResponse is the JSON body for error replies.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
