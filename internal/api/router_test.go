package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"webrag/internal/crawler"
	"webrag/internal/pipeline"
	"webrag/internal/storage"
	storage_mocks "webrag/internal/storage/mocks"
	vectorstore_mocks "webrag/internal/vectorstore/mocks"
)

// stubRunner returns a canned report or error.
type stubRunner struct {
	report     *pipeline.Report
	err        error
	lastURL    string
	lastLimits crawler.Limits
}

func (s *stubRunner) Run(_ context.Context, startURL string, limits crawler.Limits) (*pipeline.Report, error) {
	s.lastURL = startURL
	s.lastLimits = limits
	return s.report, s.err
}

func newTestRouter(t *testing.T, runner Runner) (http.Handler, *storage_mocks.MockChunkStore, *vectorstore_mocks.MockVectorStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	chunkRepo := storage_mocks.NewMockChunkStore(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	router := NewRouter(&Deps{
		Runner:      runner,
		ChunkRepo:   chunkRepo,
		VectorStore: store,
		Collection:  "webrag",
	})
	return router, chunkRepo, store
}

func TestCrawlEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		runner     *stubRunner
		wantStatus int
	}{
		{
			name:       "valid request",
			body:       `{"url": "https://example.com/docs"}`,
			runner:     &stubRunner{report: &pipeline.Report{PagesCrawled: 3, PagesIndexed: 3}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing url",
			body:       `{}`,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "relative url",
			body:       `{"url": "/docs"}`,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-http scheme",
			body:       `{"url": "ftp://example.com"}`,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"url": `,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative depth",
			body:       `{"url": "https://example.com", "depth": -1}`,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero page limit",
			body:       `{"url": "https://example.com", "page_limit": 0}`,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "pipeline failure",
			body:       `{"url": "https://example.com"}`,
			runner:     &stubRunner{err: errors.New("qdrant unreachable")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _ := newTestRouter(t, tt.runner)

			req := httptest.NewRequest(http.MethodPost, "/api/crawl", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("POST /api/crawl status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var resp CrawlResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Report == nil || resp.Report.PagesIndexed != 3 {
					t.Errorf("response report = %+v, want 3 pages indexed", resp.Report)
				}
			}
		})
	}
}

func TestCrawlEndpoint_ForwardsLimitOverrides(t *testing.T) {
	runner := &stubRunner{report: &pipeline.Report{}}
	router, _, _ := newTestRouter(t, runner)

	body := `{"url": "https://example.com", "depth": 1, "page_limit": 5}`
	req := httptest.NewRequest(http.MethodPost, "/api/crawl", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if runner.lastLimits.MaxDepth == nil || *runner.lastLimits.MaxDepth != 1 {
		t.Errorf("runner depth = %v, want 1", runner.lastLimits.MaxDepth)
	}
	if runner.lastLimits.PageLimit == nil || *runner.lastLimits.PageLimit != 5 {
		t.Errorf("runner page limit = %v, want 5", runner.lastLimits.PageLimit)
	}
}

func TestCrawlEndpoint_OmittedLimitsStayNil(t *testing.T) {
	runner := &stubRunner{report: &pipeline.Report{}}
	router, _, _ := newTestRouter(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/crawl", strings.NewReader(`{"url": "https://example.com"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if runner.lastLimits.MaxDepth != nil || runner.lastLimits.PageLimit != nil {
		t.Errorf("limits = %+v, want both nil so configured values apply", runner.lastLimits)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router, chunkRepo, _ := newTestRouter(t, &stubRunner{})

	chunkRepo.EXPECT().Stats(gomock.Any()).Return(&storage.IndexStats{
		Pages:      2,
		Chunks:     10,
		MinTokens:  50,
		MaxTokens:  250,
		MeanTokens: 180,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/stats status = %d, want 200", rec.Code)
	}

	var stats storage.IndexStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.Pages != 2 || stats.Chunks != 10 {
		t.Errorf("stats = %+v, want 2 pages, 10 chunks", stats)
	}
}

func TestStatsEndpoint_QueryError(t *testing.T) {
	router, chunkRepo, _ := newTestRouter(t, &stubRunner{})

	chunkRepo.EXPECT().Stats(gomock.Any()).Return(nil, errors.New("db closed"))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /api/stats status = %d, want 500", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		countErr   error
		wantStatus int
		wantState  string
	}{
		{
			name:       "vector store reachable",
			countErr:   nil,
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "vector store down",
			countErr:   errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, store := newTestRouter(t, &stubRunner{})
			store.EXPECT().Count(gomock.Any(), "webrag").Return(uint64(0), tt.countErr)

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("GET /api/health status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("health status = %q, want %q", resp.Status, tt.wantState)
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	router, chunkRepo, _ := newTestRouter(t, &stubRunner{})
	chunkRepo.EXPECT().Stats(gomock.Any()).Return(&storage.IndexStats{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header to be set")
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _, _ := newTestRouter(t, &stubRunner{})

	req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
