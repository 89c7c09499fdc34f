// Command webrag crawls a site and indexes its pages into SQLite and Qdrant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"webrag/internal/chunker"
	"webrag/internal/config"
	"webrag/internal/crawler"
)

func main() {
	startURL := flag.String("url", "", "start URL to crawl (required)")
	depth := flag.Int("depth", -1, "max crawl depth (overrides MAX_DEPTH)")
	pageLimit := flag.Int("page-limit", -1, "max pages to fetch (overrides PAGE_LIMIT)")
	strategy := flag.String("strategy", "", "chunking strategy: paragraph, first_section, hierarchical, sentence (overrides CHUNK_STRATEGY)")
	flag.Parse()

	if *startURL == "" {
		fmt.Fprintln(os.Stderr, "usage: webrag -url <start-url> [-depth N] [-page-limit N] [-strategy NAME]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flag overrides
	if *depth >= 0 {
		cfg.MaxDepth = *depth
	}
	if *pageLimit >= 0 {
		cfg.PageLimit = *pageLimit
	}
	if *strategy != "" {
		parsed, err := chunker.ParseStrategy(*strategy)
		if err != nil {
			log.Fatalf("Invalid strategy: %v", err)
		}
		cfg.ChunkStrategy = parsed
	}

	setupLogging(cfg)

	run, db, err := buildPipeline(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	// Flags already adjusted the configured limits, so no per-run overrides.
	report, err := run.Run(context.Background(), *startURL, crawler.Limits{})
	if err != nil {
		log.Fatalf("Crawl failed: %v", err)
	}

	slog.Info("Run finished",
		"pages_crawled", report.PagesCrawled,
		"pages_indexed", report.PagesIndexed,
		"pages_skipped", report.PagesSkipped,
		"pages_failed", report.PagesFailed,
		"chunks", report.ChunksIndexed,
		"oversized_chunks", report.OversizedChunks,
		"token_mean", report.TokenStats.Mean,
		"token_p95", report.TokenStats.P95,
	)

	if report.PagesFailed > 0 {
		os.Exit(1)
	}
}
