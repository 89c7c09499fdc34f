package chunker

import (
	"fmt"
	"strings"
)

// Strategy names a splitter/merge composition. The set is closed and
// validated at engine construction so that a misconfigured name surfaces
// before any document is processed.
type Strategy string

const (
	// StrategyParagraph packs paragraphs in document order, falling back to
	// sentence splitting only for paragraphs that alone exceed the budget.
	StrategyParagraph Strategy = "paragraph"
	// StrategyFirstSection packs only the first section's paragraphs and
	// discards the rest of the document.
	StrategyFirstSection Strategy = "first_section"
	// StrategyHierarchical merges consecutive sections that share a top-level
	// heading ancestor into one unit before packing.
	StrategyHierarchical Strategy = "hierarchical"
	// StrategySentence packs at sentence granularity directly.
	StrategySentence Strategy = "sentence"
)

// ParseStrategy validates a strategy name. An empty name selects the default
// paragraph strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return StrategyParagraph, nil
	case StrategyParagraph, StrategyFirstSection, StrategyHierarchical, StrategySentence:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Config holds the engine's chunking parameters.
type Config struct {
	Budget   int      // maximum tokens per chunk
	Overlap  int      // tokens repeated from the previous chunk; must be < Budget
	Strategy Strategy // empty selects StrategyParagraph
}

// Engine splits documents into token-bounded chunks. It holds no per-document
// state, so a single engine may chunk independent documents concurrently.
type Engine struct {
	counter  TokenCounter
	budget   int
	overlap  int
	strategy Strategy
}

// New validates the configuration and builds an engine. All configuration
// problems are reported here, never mid-pipeline.
func New(counter TokenCounter, cfg Config) (*Engine, error) {
	if counter == nil {
		return nil, fmt.Errorf("%w: token counter is required", ErrTokenizer)
	}
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBudget, cfg.Budget)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Budget {
		return nil, fmt.Errorf("%w: overlap %d, budget %d", ErrInvalidOverlap, cfg.Overlap, cfg.Budget)
	}
	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		return nil, err
	}
	return &Engine{
		counter:  counter,
		budget:   cfg.Budget,
		overlap:  cfg.Overlap,
		strategy: strategy,
	}, nil
}

// Strategy returns the engine's configured strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Chunk splits a document into ordered, token-bounded chunks with overlap
// between neighbors. An empty document yields no chunks. Chunks flagged
// Oversized carry a single irreducible unit whose token count exceeds the
// budget; callers should surface those as warnings.
func (e *Engine) Chunk(doc Document) ([]Chunk, error) {
	sections := SplitSections(doc.Text)
	if len(sections) == 0 {
		return nil, nil
	}

	a := &assembler{counter: e.counter, budget: e.budget, overlap: e.overlap}

	var chunks []Chunk
	switch e.strategy {
	case StrategyFirstSection:
		chunks = a.pack([][]Unit{SplitParagraphs(sections[0])}, granParagraph)

	case StrategyHierarchical:
		merged := mergeSections(sections)
		groups := make([][]Unit, len(merged))
		for i, m := range merged {
			groups[i] = []Unit{m}
		}
		chunks = a.pack(groups, granSection)

	case StrategySentence:
		groups := make([][]Unit, 0, len(sections))
		for _, s := range sections {
			var units []Unit
			for _, p := range SplitParagraphs(s) {
				units = append(units, SplitSentences(p)...)
			}
			groups = append(groups, units)
		}
		chunks = a.pack(groups, granSentence)

	default: // StrategyParagraph
		groups := make([][]Unit, 0, len(sections))
		for _, s := range sections {
			groups = append(groups, SplitParagraphs(s))
		}
		chunks = a.pack(groups, granParagraph)
	}

	for i := range chunks {
		chunks[i].URL = doc.URL
		chunks[i].Title = doc.Title
		chunks[i].Depth = doc.Depth
	}
	return chunks, nil
}

// mergeSections merges consecutive sections that share the same top-level
// heading ancestor into a single unit tagged with that shared ancestor.
// Preamble units (empty path) never merge.
func mergeSections(sections []Unit) []Unit {
	var out []Unit
	for _, s := range sections {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if len(last.HeadingPath) > 0 && len(s.HeadingPath) > 0 &&
				last.HeadingPath[0] == s.HeadingPath[0] {
				last.Text = joinSpans(last.Text, s.Text)
				last.HeadingPath = last.HeadingPath[:1]
				continue
			}
		}
		path := append([]string(nil), s.HeadingPath...)
		out = append(out, Unit{Text: s.Text, HeadingPath: path})
	}
	return out
}
