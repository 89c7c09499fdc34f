package storage

import "time"

// PageRecord represents an indexed web page in the database.
type PageRecord struct {
	ID        string // UUID
	URL       string // Normalized page URL, unique
	Title     string // Extracted <title> or first heading
	Depth     int    // Link distance from the crawl start URL
	Hash      string // SHA256 hex string of extracted page text
	FetchedAt time.Time
}

// ChunkRecord represents a chunk of page text, indexed for vector search.
type ChunkRecord struct {
	ID          string // UUID (same as Qdrant point ID)
	PageID      string // UUID (foreign key to pages.id)
	ChunkIndex  int    // Index within page (starts at 0)
	HeadingPath string // Format: "Guide > Setup > Linux"
	TokenCount  int    // Tokens counted at chunking time
	Text        string // Chunk text content
}

// IndexStats aggregates counts over the indexed corpus.
type IndexStats struct {
	Pages      int     `json:"pages"`
	Chunks     int     `json:"chunks"`
	MinTokens  int     `json:"min_tokens"`
	MaxTokens  int     `json:"max_tokens"`
	MeanTokens float64 `json:"mean_tokens"`
}
