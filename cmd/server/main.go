// Command server exposes the ingestion pipeline over HTTP.
package main

import (
	"log"
	"log/slog"
	"net/http"

	"webrag/internal/api"
	"webrag/internal/config"
	"webrag/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	run, db, vectorStore, err := buildPipeline(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	deps := &api.Deps{
		Runner:      run,
		ChunkRepo:   storage.NewChunkRepo(db),
		VectorStore: vectorStore,
		Collection:  cfg.QdrantCollection,
	}
	router := api.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
