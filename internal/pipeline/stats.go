package pipeline

import (
	"math"
	"sort"
)

// Report summarizes a single pipeline run.
type Report struct {
	// PagesCrawled is the total number of pages the crawler returned.
	PagesCrawled int `json:"pages_crawled"`
	// PagesIndexed is the number of pages chunked, embedded, and stored.
	PagesIndexed int `json:"pages_indexed"`
	// PagesSkipped is the number of pages skipped (unchanged hash or no content).
	PagesSkipped int `json:"pages_skipped"`
	// PagesFailed is the number of pages that errored during processing.
	PagesFailed int `json:"pages_failed"`
	// ChunksIndexed is the total number of chunks stored during this run.
	ChunksIndexed int `json:"chunks_indexed"`
	// OversizedChunks is the number of chunks emitted above the token budget.
	OversizedChunks int `json:"oversized_chunks"`
	// TokenStats contains statistics over the token counts of indexed chunks.
	TokenStats TokenStats `json:"token_stats"`
}

// TokenStats contains statistics about token counts in chunks.
type TokenStats struct {
	// Min is the minimum token count across all chunks.
	Min int `json:"min"`
	// Max is the maximum token count across all chunks.
	Max int `json:"max"`
	// Mean is the mean token count across all chunks.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile token count.
	P95 int `json:"p95"`
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) TokenStats {
	if len(tokenCounts) == 0 {
		return TokenStats{}
	}

	// Sort for percentile calculation
	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return TokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
