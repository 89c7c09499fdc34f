package chunker

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownStrategy is returned at construction time for an unrecognized strategy name.
	ErrUnknownStrategy = errors.New("unknown chunking strategy")
	// ErrInvalidBudget is returned when the token budget is not positive.
	ErrInvalidBudget = errors.New("token budget must be positive")
	// ErrInvalidOverlap is returned when the overlap is negative or not smaller than the budget.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than the token budget")
	// ErrTokenizer is returned when the configured tokenizer cannot be loaded.
	ErrTokenizer = errors.New("tokenizer unavailable")
)

// Document is the raw input to the chunking engine: page text (Markdown or plain
// text) plus source metadata carried through unchanged into every resulting chunk.
type Document struct {
	Text  string
	URL   string
	Title string
	Depth int
}

// Unit is a contiguous span of a document at one granularity (section, paragraph
// or sentence). Units are produced fresh per call and never mutated afterwards.
type Unit struct {
	Text        string
	HeadingPath []string // ancestor heading texts, outermost first; empty for preamble
}

// Chunk is the engine's output: bounded text ready for embedding.
// Chunks are ordered; the sequence defines overlap adjacency.
type Chunk struct {
	Text        string
	Index       int
	TokenCount  int
	HeadingPath []string
	// Oversized marks a single irreducible unit that alone exceeds the token
	// budget and was emitted verbatim. A warning condition, not an error.
	Oversized bool

	// Source metadata inherited from the document.
	URL   string
	Title string
	Depth int
}

// JoinHeadingPath renders a heading path as a single string for storage and
// vector metadata, e.g. "Introduction > What is Machine Learning?".
func JoinHeadingPath(path []string) string {
	return strings.Join(path, " > ")
}
