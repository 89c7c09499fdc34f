package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"webrag/internal/chunker"
	"webrag/internal/contextutil"
	"webrag/internal/crawler"
	"webrag/internal/embedder"
	"webrag/internal/storage"
	"webrag/internal/vectorstore"
)

// Crawler fetches pages reachable from a start URL, bounded by the given
// per-call limits.
type Crawler interface {
	Crawl(ctx context.Context, startURL string, limits crawler.Limits) ([]crawler.Page, error)
}

// Pipeline orchestrates crawling, chunking, embedding, and storage of web
// pages into SQLite and Qdrant.
type Pipeline struct {
	crawler     Crawler
	engine      *chunker.Engine
	pageRepo    storage.PageStore
	chunkRepo   storage.ChunkStore
	embedder    embedder.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	vectorSize  int
	batchSize   int
	workers     int
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	crawl Crawler,
	engine *chunker.Engine,
	pageRepo storage.PageStore,
	chunkRepo storage.ChunkStore,
	embed embedder.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	vectorSize int,
	batchSize int,
	workers int,
) *Pipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		crawler:     crawl,
		engine:      engine,
		pageRepo:    pageRepo,
		chunkRepo:   chunkRepo,
		embedder:    embed,
		vectorStore: vectorStore,
		collection:  collection,
		vectorSize:  vectorSize,
		batchSize:   batchSize,
		workers:     workers,
	}
}

// Run crawls from startURL and indexes every fetched page. The limits can
// override the crawler's configured depth and page bounds for this run.
// Errors on individual pages are logged but don't stop the run.
func (p *Pipeline) Run(ctx context.Context, startURL string, limits crawler.Limits) (*Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.vectorStore.EnsureCollection(ctx, p.collection, p.vectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	pages, err := p.crawler.Crawl(ctx, startURL, limits)
	if err != nil {
		return nil, fmt.Errorf("failed to crawl %s: %w", startURL, err)
	}

	logger.InfoContext(ctx, "starting indexing", "start_url", startURL, "pages", len(pages))

	report := &Report{PagesCrawled: len(pages)}
	var tokenCounts []int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	results := make([]pageResult, len(pages))

	for i, page := range pages {
		g.Go(func() error {
			res, err := p.processPage(gctx, page)
			if err != nil {
				logger.ErrorContext(gctx, "failed to index page", "url", page.URL, "error", err)
				results[i] = pageResult{failed: true}
				return nil // page errors don't abort the run
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		switch {
		case res.failed:
			report.PagesFailed++
		case res.skipped:
			report.PagesSkipped++
		default:
			report.PagesIndexed++
		}
		report.ChunksIndexed += len(res.tokenCounts)
		report.OversizedChunks += res.oversized
		tokenCounts = append(tokenCounts, res.tokenCounts...)
	}
	report.TokenStats = computeTokenStats(tokenCounts)

	logger.InfoContext(ctx, "indexing completed",
		"pages", report.PagesCrawled,
		"indexed", report.PagesIndexed,
		"skipped", report.PagesSkipped,
		"failed", report.PagesFailed,
		"chunks", report.ChunksIndexed,
	)

	return report, nil
}

// pageResult accumulates per-page outcomes for the run report.
type pageResult struct {
	skipped     bool
	failed      bool
	oversized   int
	tokenCounts []int
}

// processPage indexes a single crawled page.
// It checks if the page has changed (via content hash), chunks it, generates
// embeddings in batches, and stores chunks in both SQLite and Qdrant.
func (p *Pipeline) processPage(ctx context.Context, page crawler.Page) (pageResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	hash := sha256.Sum256([]byte(page.Content))
	hashHex := hex.EncodeToString(hash[:])

	existing, err := p.pageRepo.GetByURL(ctx, page.URL)
	if err != nil && err != storage.ErrNotFound {
		return pageResult{}, fmt.Errorf("failed to check existing page: %w", err)
	}

	// Skip re-indexing if the content hash matches
	if existing != nil && existing.Hash == hashHex {
		logger.DebugContext(ctx, "skipping unchanged page", "url", page.URL, "hash", hashHex)
		return pageResult{skipped: true}, nil
	}

	doc := chunker.Document{
		Text:  page.Content,
		URL:   page.URL,
		Title: page.Title,
		Depth: page.Depth,
	}
	chunks, err := p.engine.Chunk(doc)
	if err != nil {
		return pageResult{}, fmt.Errorf("failed to chunk page: %w", err)
	}

	if len(chunks) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "url", page.URL)
		return pageResult{skipped: true}, nil
	}

	// Generate or reuse page ID
	var pageID string
	if existing != nil {
		pageID = existing.ID
	} else {
		pageID = uuid.New().String()
	}

	pageRecord := &storage.PageRecord{
		ID:    pageID,
		URL:   page.URL,
		Title: page.Title,
		Depth: page.Depth,
		Hash:  hashHex,
	}
	if err := p.pageRepo.Upsert(ctx, pageRecord); err != nil {
		return pageResult{}, fmt.Errorf("failed to upsert page: %w", err)
	}

	// If re-indexing, delete the stale chunks first
	if existing != nil {
		oldChunkIDs, err := p.chunkRepo.ListIDsByPage(ctx, pageID)
		if err != nil {
			return pageResult{}, fmt.Errorf("failed to list old chunk IDs: %w", err)
		}

		if len(oldChunkIDs) > 0 {
			if err := p.vectorStore.Delete(ctx, p.collection, oldChunkIDs); err != nil {
				logger.WarnContext(ctx, "failed to delete old chunks from Qdrant", "error", err, "count", len(oldChunkIDs))
				// Continue anyway - the new points use fresh IDs
			}

			if err := p.chunkRepo.DeleteByPage(ctx, pageID); err != nil {
				return pageResult{}, fmt.Errorf("failed to delete old chunks from SQLite: %w", err)
			}
		}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := p.embedBatched(ctx, texts)
	if err != nil {
		return pageResult{}, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	res := pageResult{tokenCounts: make([]int, 0, len(chunks))}
	points := make([]vectorstore.Point, len(chunks))

	for i, chunk := range chunks {
		if chunk.Oversized {
			res.oversized++
			logger.WarnContext(ctx, "oversized chunk emitted verbatim",
				"url", page.URL, "chunk_index", chunk.Index, "tokens", chunk.TokenCount)
		}
		res.tokenCounts = append(res.tokenCounts, chunk.TokenCount)

		chunkID := uuid.New().String()

		record := &storage.ChunkRecord{
			ID:          chunkID,
			PageID:      pageID,
			ChunkIndex:  chunk.Index,
			HeadingPath: chunker.JoinHeadingPath(chunk.HeadingPath),
			TokenCount:  chunk.TokenCount,
			Text:        chunk.Text,
		}
		if err := p.chunkRepo.Insert(ctx, record); err != nil {
			return pageResult{}, fmt.Errorf("failed to insert chunk: %w", err)
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"page_id":      pageID,
				"url":          page.URL,
				"title":        page.Title,
				"depth":        page.Depth,
				"heading_path": chunker.JoinHeadingPath(chunk.HeadingPath),
				"chunk_index":  chunk.Index,
				"token_count":  chunk.TokenCount,
			},
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return pageResult{}, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	logger.InfoContext(ctx, "indexed page", "url", page.URL, "chunks", len(chunks), "title", page.Title)
	return res, nil
}

// embedBatched embeds texts in batches of at most batchSize, preserving order.
func (p *Pipeline) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batch, err := p.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
