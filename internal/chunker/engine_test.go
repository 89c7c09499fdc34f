package chunker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// wordCounter is a deterministic test tokenizer: one token per whitespace-
// separated word. It keeps budget arithmetic exact without network access to
// BPE vocabularies.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func (wordCounter) Tail(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) <= n {
		return text
	}
	return strings.Join(fields[len(fields)-n:], " ")
}

// words produces a paragraph of n distinct words tagged for traceability.
func words(tag string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", tag, i)
	}
	return strings.Join(parts, " ")
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := New(wordCounter{}, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return engine
}

func TestNew_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		counter TokenCounter
		cfg     Config
		wantErr error
	}{
		{"nil counter", nil, Config{Budget: 250, Overlap: 10}, ErrTokenizer},
		{"zero budget", wordCounter{}, Config{Budget: 0}, ErrInvalidBudget},
		{"negative budget", wordCounter{}, Config{Budget: -5}, ErrInvalidBudget},
		{"negative overlap", wordCounter{}, Config{Budget: 100, Overlap: -1}, ErrInvalidOverlap},
		{"overlap equals budget", wordCounter{}, Config{Budget: 100, Overlap: 100}, ErrInvalidOverlap},
		{"unknown strategy", wordCounter{}, Config{Budget: 100, Overlap: 10, Strategy: "semantic"}, ErrUnknownStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.counter, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	engine, err := New(wordCounter{}, Config{Budget: 100, Overlap: 10})
	if err != nil {
		t.Fatalf("New() with empty strategy: %v", err)
	}
	if engine.Strategy() != StrategyParagraph {
		t.Errorf("default strategy = %q, want %q", engine.Strategy(), StrategyParagraph)
	}
}

func TestEngine_Chunk_EmptyDocument(t *testing.T) {
	engine := newTestEngine(t, Config{Budget: 250, Overlap: 10})
	chunks, err := engine.Chunk(Document{Text: ""})
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("empty document produced %d chunks, want 0", len(chunks))
	}
}

func TestEngine_Chunk_SingleSmallDocument(t *testing.T) {
	engine := newTestEngine(t, Config{Budget: 250, Overlap: 10})
	doc := Document{Text: "A short document well under the budget.", URL: "https://example.com/a", Depth: 1, Title: "A"}

	chunks, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Index != 0 || c.Oversized {
		t.Errorf("unexpected chunk shape: %+v", c)
	}
	if c.URL != doc.URL || c.Depth != doc.Depth || c.Title != doc.Title {
		t.Errorf("source metadata not carried through: %+v", c)
	}
	if c.TokenCount != (wordCounter{}).Count(doc.Text) {
		t.Errorf("TokenCount = %d, want %d", c.TokenCount, (wordCounter{}).Count(doc.Text))
	}
}

// Mirrors the three-paragraph packing scenario: 80+90 word paragraphs fill
// chunk one, the 200 word paragraph lands in chunk two behind a 10 token
// overlap window.
func TestEngine_Chunk_ParagraphPackingWithOverlap(t *testing.T) {
	p1 := words("alpha", 80)
	p2 := words("beta", 90)
	p3 := words("gamma", 200)
	doc := Document{Text: p1 + "\n\n" + p2 + "\n\n" + p3}

	engine := newTestEngine(t, Config{Budget: 250, Overlap: 10, Strategy: StrategyParagraph})
	chunks, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if chunks[0].TokenCount != 170 {
		t.Errorf("chunk 0 tokens = %d, want 170 (80+90)", chunks[0].TokenCount)
	}
	if chunks[1].TokenCount != 210 {
		t.Errorf("chunk 1 tokens = %d, want 210 (10 overlap + 200)", chunks[1].TokenCount)
	}

	overlap := (wordCounter{}).Tail(chunks[0].Text, 10)
	if !strings.HasPrefix(chunks[1].Text, overlap) {
		t.Errorf("chunk 1 does not begin with chunk 0's trailing 10 tokens:\nwant prefix %q\ngot %q", overlap, chunks[1].Text[:80])
	}

	for i, c := range chunks {
		if c.TokenCount > 250 {
			t.Errorf("chunk %d exceeds budget: %d", i, c.TokenCount)
		}
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestEngine_Chunk_FirstSectionOnly(t *testing.T) {
	doc := Document{Text: strings.Join([]string{
		"# One", words("one", 20),
		"# Two", words("two", 20),
		"# Three", words("three", 20),
	}, "\n\n")}

	engine := newTestEngine(t, Config{Budget: 250, Overlap: 10, Strategy: StrategyFirstSection})
	chunks, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	for _, c := range chunks {
		if strings.Contains(c.Text, "two0") || strings.Contains(c.Text, "three0") {
			t.Errorf("chunk leaked content from a later section: %q", c.Text)
		}
		if !reflect.DeepEqual(c.HeadingPath, []string{"One"}) {
			t.Errorf("chunk path = %v, want [One]", c.HeadingPath)
		}
	}
}

func TestEngine_Chunk_HierarchicalMergesSharedAncestor(t *testing.T) {
	doc := Document{Text: strings.Join([]string{
		"# Guide", words("guide", 10),
		"## Install", words("install", 10),
		"## Configure", words("configure", 10),
	}, "\n\n")}

	cfg := Config{Budget: 250, Overlap: 0}

	cfg.Strategy = StrategyParagraph
	paragraphChunks, err := newTestEngine(t, cfg).Chunk(doc)
	if err != nil {
		t.Fatalf("paragraph Chunk() error = %v", err)
	}

	cfg.Strategy = StrategyHierarchical
	hierarchicalChunks, err := newTestEngine(t, cfg).Chunk(doc)
	if err != nil {
		t.Fatalf("hierarchical Chunk() error = %v", err)
	}

	// All three sections share the "Guide" ancestor: merged they fit a single
	// chunk, while per-section paragraph packing closes a chunk per section.
	if len(hierarchicalChunks) >= len(paragraphChunks) {
		t.Errorf("hierarchical produced %d chunks, paragraph %d; expected a reduction",
			len(hierarchicalChunks), len(paragraphChunks))
	}
	if len(hierarchicalChunks) != 1 {
		t.Errorf("hierarchical chunks = %d, want 1", len(hierarchicalChunks))
	}
	if got := hierarchicalChunks[0].HeadingPath; !reflect.DeepEqual(got, []string{"Guide"}) {
		t.Errorf("merged chunk path = %v, want [Guide]", got)
	}
	for _, tag := range []string{"guide0", "install0", "configure0"} {
		if !strings.Contains(hierarchicalChunks[0].Text, tag) {
			t.Errorf("merged chunk missing %q", tag)
		}
	}
}

func TestEngine_Chunk_SentenceStrategy(t *testing.T) {
	doc := Document{Text: "One two three. Four five six. Seven eight nine. Ten eleven twelve."}

	engine := newTestEngine(t, Config{Budget: 7, Overlap: 0, Strategy: StrategySentence})
	chunks, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (two 3-word sentences per 7 token chunk): %#v", len(chunks), chunks)
	}
	for i, c := range chunks {
		if c.TokenCount > 7 {
			t.Errorf("chunk %d exceeds budget: %d", i, c.TokenCount)
		}
	}
}

func TestEngine_Chunk_OversizedSentenceEmittedVerbatim(t *testing.T) {
	long := words("Long", 40) // one sentence, no terminal punctuation inside
	doc := Document{Text: "Short lead. " + long + " trailing end."}

	engine := newTestEngine(t, Config{Budget: 20, Overlap: 0, Strategy: StrategyParagraph})
	chunks, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}

	var oversized []Chunk
	for _, c := range chunks {
		if c.Oversized {
			oversized = append(oversized, c)
		} else if c.TokenCount > 20 {
			t.Errorf("non-oversized chunk exceeds budget: %d tokens", c.TokenCount)
		}
	}
	if len(oversized) != 1 {
		t.Fatalf("got %d oversized chunks, want 1: %#v", len(oversized), chunks)
	}
	if !strings.Contains(oversized[0].Text, "Long0") || !strings.Contains(oversized[0].Text, "Long39") {
		t.Errorf("oversized sentence was truncated: %q", oversized[0].Text)
	}
}

// A headingless document under the hierarchical strategy is one section that
// is also one paragraph. Refinement must fall through paragraph splitting to
// sentence splitting before flagging anything oversized.
func TestEngine_Chunk_SingleParagraphSectionRefinesToSentences(t *testing.T) {
	sentences := make([]string, 10)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Word%da word%db word%dc word%dd.", i, i, i, i)
	}
	doc := Document{Text: strings.Join(sentences, " ")}

	engine := newTestEngine(t, Config{Budget: 10, Overlap: 0, Strategy: StrategyHierarchical})
	chunks, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	// Two 4-word sentences per chunk (8 tokens plus none for the joiner).
	if len(chunks) != 5 {
		t.Fatalf("got %d chunks, want 5: %#v", len(chunks), chunks)
	}
	for i, c := range chunks {
		if c.Oversized {
			t.Errorf("chunk %d flagged oversized (%d tokens) though sentences fit the budget", i, c.TokenCount)
		}
		if c.TokenCount > 10 {
			t.Errorf("chunk %d exceeds budget: %d tokens", i, c.TokenCount)
		}
	}
}

func TestEngine_Chunk_NoContentLoss(t *testing.T) {
	doc := Document{Text: strings.Join([]string{
		"Preamble words here.",
		"# Alpha", words("pa", 30), words("pb", 30),
		"## Beta", words("pc", 30),
		"# Gamma", words("pd", 30) + ". " + words("pe", 30) + ".",
	}, "\n\n")}

	for _, strategy := range []Strategy{StrategyParagraph, StrategyHierarchical, StrategySentence} {
		t.Run(string(strategy), func(t *testing.T) {
			engine := newTestEngine(t, Config{Budget: 40, Overlap: 5, Strategy: strategy})
			chunks, err := engine.Chunk(doc)
			if err != nil {
				t.Fatalf("Chunk() error = %v", err)
			}

			var all strings.Builder
			for _, c := range chunks {
				all.WriteString(c.Text)
				all.WriteString(" ")
			}
			combined := all.String()

			// Every source word must appear in some chunk: concatenated chunk
			// text is a superset of the document text.
			for _, word := range strings.Fields(doc.Text) {
				if !strings.Contains(combined, word) {
					t.Fatalf("word %q missing from chunk output", word)
				}
			}
		})
	}
}

func TestEngine_Chunk_Idempotent(t *testing.T) {
	doc := Document{Text: strings.Join([]string{
		"# Top", words("xa", 60), words("xb", 60),
		"## Sub", words("xc", 60),
	}, "\n\n")}

	engine := newTestEngine(t, Config{Budget: 80, Overlap: 8})
	first, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	second, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("re-chunking identical input produced a different sequence")
	}
}

func TestEngine_Chunk_OverlapAdjacency(t *testing.T) {
	doc := Document{Text: words("ya", 100) + "\n\n" + words("yb", 100) + "\n\n" + words("yc", 100)}

	engine := newTestEngine(t, Config{Budget: 120, Overlap: 15})
	chunks, err := engine.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("need at least 2 chunks for adjacency check, got %d", len(chunks))
	}

	counter := wordCounter{}
	for i := 1; i < len(chunks); i++ {
		tail := counter.Tail(chunks[i-1].Text, 15)
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Errorf("chunk %d does not start with chunk %d's trailing tokens", i, i-1)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"paragraph", StrategyParagraph, false},
		{"first_section", StrategyFirstSection, false},
		{"HIERARCHICAL", StrategyHierarchical, false},
		{" sentence ", StrategySentence, false},
		{"", StrategyParagraph, false},
		{"topic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
