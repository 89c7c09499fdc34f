package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks webrag/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk into the database.
	// The chunk.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// DeleteByPage deletes all chunks for a given page ID.
	DeleteByPage(ctx context.Context, pageID string) error
	// ListIDsByPage returns all chunk IDs for a given page, ordered by chunk_index.
	ListIDsByPage(ctx context.Context, pageID string) ([]string, error)
	// Stats aggregates page and chunk counts with token statistics.
	Stats(ctx context.Context) (*IndexStats, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk into the database.
// The chunk.ID must be set (UUID) before calling this method.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chunks (id, page_id, chunk_index, heading_path, token_count, text) VALUES (?, ?, ?, ?, ?, ?)",
		chunk.ID, chunk.PageID, chunk.ChunkIndex, chunk.HeadingPath, chunk.TokenCount, chunk.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// DeleteByPage deletes all chunks for a given page ID.
// Used when re-indexing a page to remove old chunks before inserting new ones.
func (r *ChunkRepo) DeleteByPage(ctx context.Context, pageID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE page_id = ?", pageID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by page: %w", err)
	}
	return nil
}

// ListIDsByPage returns all chunk IDs for a given page, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
// Used to get Qdrant point IDs for deletion before re-indexing.
func (r *ChunkRepo) ListIDsByPage(ctx context.Context, pageID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE page_id = ? ORDER BY chunk_index",
		pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// Stats aggregates page and chunk counts with token statistics.
// Returns zero-valued stats for an empty index (not an error).
func (r *ChunkRepo) Stats(ctx context.Context) (*IndexStats, error) {
	var stats IndexStats
	var minTokens, maxTokens sql.NullInt64
	var meanTokens sql.NullFloat64

	err := r.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM pages),
			COUNT(*),
			MIN(token_count),
			MAX(token_count),
			AVG(token_count)
		 FROM chunks`,
	).Scan(&stats.Pages, &stats.Chunks, &minTokens, &maxTokens, &meanTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to query index stats: %w", err)
	}

	if minTokens.Valid {
		stats.MinTokens = int(minTokens.Int64)
	}
	if maxTokens.Valid {
		stats.MaxTokens = int(maxTokens.Int64)
	}
	if meanTokens.Valid {
		stats.MeanTokens = meanTokens.Float64
	}

	return &stats, nil
}
