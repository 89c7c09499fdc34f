package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_page_store.go -package=mocks webrag/internal/storage PageStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// PageStore defines the interface for page storage operations.
type PageStore interface {
	// GetByURL gets a page by its URL.
	// Returns nil and ErrNotFound if not found.
	GetByURL(ctx context.Context, url string) (*PageRecord, error)
	// Upsert inserts a new page or updates an existing one keyed by URL.
	Upsert(ctx context.Context, page *PageRecord) error
}

// PageRepo provides methods for page operations.
// It implements the PageStore interface.
type PageRepo struct {
	db *sql.DB
}

// NewPageRepo creates a new PageRepo.
func NewPageRepo(db *sql.DB) *PageRepo {
	return &PageRepo{db: db}
}

// GetByURL gets a page by its URL.
// Returns nil and ErrNotFound if not found.
func (r *PageRepo) GetByURL(ctx context.Context, url string) (*PageRecord, error) {
	var page PageRecord
	var fetchedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, url, title, depth, hash, fetched_at FROM pages WHERE url = ?",
		url,
	).Scan(&page.ID, &page.URL, &page.Title, &page.Depth, &page.Hash, &fetchedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}

	// Parse fetched_at DATETIME string
	page.FetchedAt, err = time.Parse("2006-01-02 15:04:05", fetchedAtStr)
	if err != nil {
		// Try alternative format (SQLite might use different format)
		page.FetchedAt, err = time.Parse(time.RFC3339, fetchedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fetched_at timestamp: %w", err)
		}
	}

	return &page, nil
}

// Upsert inserts a new page or updates an existing one.
// If the page doesn't exist (by URL), generates a new UUID.
// If it exists, updates title, depth, hash, and fetched_at while preserving the ID.
func (r *PageRepo) Upsert(ctx context.Context, page *PageRecord) error {
	// Check if page exists to determine if we need to generate UUID
	existing, err := r.GetByURL(ctx, page.URL)
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("failed to check existing page: %w", err)
	}

	// Generate UUID for new pages only
	if existing == nil && page.ID == "" {
		page.ID = uuid.New().String()
	} else if existing != nil {
		// Preserve existing ID
		page.ID = existing.ID
	}

	// Use SQLite INSERT ... ON CONFLICT syntax for upsert
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pages (id, url, title, depth, hash, fetched_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (url) DO UPDATE SET
		 title = excluded.title, depth = excluded.depth, hash = excluded.hash, fetched_at = CURRENT_TIMESTAMP`,
		page.ID, page.URL, page.Title, page.Depth, page.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	return nil
}
