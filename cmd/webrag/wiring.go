package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"webrag/internal/chunker"
	"webrag/internal/config"
	"webrag/internal/crawler"
	"webrag/internal/embedder"
	"webrag/internal/pipeline"
	"webrag/internal/storage"
	"webrag/internal/vectorstore"
)

// setupLogging configures the process-wide slog handler.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildPipeline wires the crawler, chunker, stores, and embedder into an
// ingestion pipeline. The returned DB handle must be closed by the caller.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, *sql.DB, error) {
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	counter, err := chunker.NewTiktokenCounter(cfg.TokenizerName())
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	engine, err := chunker.New(counter, chunker.Config{
		Budget:   cfg.ChunkSize,
		Overlap:  cfg.ChunkOverlap,
		Strategy: cfg.ChunkStrategy,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to build chunker: %w", err)
	}
	slog.Info("Chunker ready", "strategy", engine.Strategy(), "budget", cfg.ChunkSize, "overlap", cfg.ChunkOverlap)

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	embed := embedder.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.QdrantVectorSize)

	crawl := crawler.New(crawler.Config{
		MaxDepth:   cfg.MaxDepth,
		PageLimit:  cfg.PageLimit,
		UseSitemap: cfg.UseSitemap,
	})

	p := pipeline.NewPipeline(
		crawl,
		engine,
		storage.NewPageRepo(db),
		storage.NewChunkRepo(db),
		embed,
		vectorStore,
		cfg.QdrantCollection,
		cfg.QdrantVectorSize,
		cfg.EmbedBatchSize,
		cfg.CrawlWorkers,
	)
	return p, db, nil
}
