package api

import (
	"net/http"

	"webrag/internal/contextutil"
	"webrag/internal/storage"
)

// StatsHandler handles HTTP requests for index statistics.
type StatsHandler struct {
	chunkRepo storage.ChunkStore
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(chunkRepo storage.ChunkStore) *StatsHandler {
	return &StatsHandler{chunkRepo: chunkRepo}
}

// ServeHTTP returns aggregate counts over the indexed corpus.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	stats, err := h.chunkRepo.Stats(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query index stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
