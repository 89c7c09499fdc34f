package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"webrag/internal/chunker"
)

// Config holds all configuration for the application.
type Config struct {
	// Chunking
	ChunkSize     int
	ChunkOverlap  int
	ChunkStrategy chunker.Strategy
	// TokenizerEncoding overrides the encoding derived from EmbeddingModel.
	// Empty means the model name selects the vocabulary.
	TokenizerEncoding string

	// Embeddings
	EmbeddingBaseURL string
	EmbeddingModel   string
	EmbeddingAPIKey  string
	EmbedBatchSize   int

	// Crawling
	MaxDepth     int
	PageLimit    int
	UseSitemap   bool
	CrawlWorkers int

	// Storage
	DBPath           string
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	// Server
	APIPort   string
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		TokenizerEncoding: getEnv("TOKENIZER_ENCODING", ""),
		EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", "dummy-key"),
		DBPath:            getEnv("DB_PATH", "./data/webrag.db"),
		QdrantURL:         getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:  getEnv("QDRANT_COLLECTION", "webrag"),
		APIPort:           getEnv("API_PORT", "9000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
	}

	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 250); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 10); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}

	strategy, err := chunker.ParseStrategy(getEnv("CHUNK_STRATEGY", ""))
	if err != nil {
		return nil, fmt.Errorf("CHUNK_STRATEGY: %w", err)
	}
	cfg.ChunkStrategy = strategy

	if cfg.MaxDepth, err = getEnvInt("MAX_DEPTH", 2); err != nil {
		return nil, err
	}
	if cfg.PageLimit, err = getEnvInt("PAGE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.CrawlWorkers, err = getEnvInt("CRAWL_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.EmbedBatchSize, err = getEnvInt("EMBED_BATCH_SIZE", 32); err != nil {
		return nil, err
	}
	if cfg.UseSitemap, err = getEnvBool("USE_SITEMAP", true); err != nil {
		return nil, err
	}

	// The vector size must match the output dimension of the embeddings model.
	// If it changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	// Create ./data directory if it doesn't exist (for future DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// TokenizerName returns the identifier used to resolve the token encoding:
// the explicit TOKENIZER_ENCODING override when set, otherwise the embedding
// model name.
func (c *Config) TokenizerName() string {
	if c.TokenizerEncoding != "" {
		return c.TokenizerEncoding
	}
	return c.EmbeddingModel
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

// getEnvBool gets a boolean environment variable or returns a default value.
func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return b, nil
}
