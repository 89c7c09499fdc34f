package chunker

import "strings"

// granularity orders the refinement chain used for oversized units:
// a section re-splits into paragraphs, a paragraph into sentences, and a
// sentence is irreducible.
type granularity int

const (
	granSection granularity = iota
	granParagraph
	granSentence
)

// refine re-splits an oversized unit at the next finer granularity. It
// returns nil when the unit is already at sentence granularity.
func refine(u Unit, g granularity) ([]Unit, granularity) {
	switch g {
	case granSection:
		return SplitParagraphs(u), granParagraph
	case granParagraph:
		return SplitSentences(u), granSentence
	}
	return nil, g
}

// assembler greedily packs ordered units into token-bounded chunks. A fresh
// assembler is created per document, so the engine itself stays stateless.
type assembler struct {
	counter TokenCounter
	budget  int
	overlap int

	chunks []Chunk
	acc    string   // accumulator text; may start with the overlap seed
	path   []string // heading path of the first unit in the accumulator
	units  int      // units appended to the accumulator (seed excluded)
}

// pack runs the greedy packing loop. Each group corresponds to one section
// (or merged section): the accumulator is force-closed at group boundaries so
// a chunk never spans sections, while the overlap window still carries across
// the boundary into the next group's first chunk.
func (a *assembler) pack(groups [][]Unit, gran granularity) []Chunk {
	for _, units := range groups {
		a.packGroup(units, gran)
		a.flush(false)
	}
	return a.chunks
}

// packGroup packs one group's units into the accumulator.
func (a *assembler) packGroup(units []Unit, gran granularity) {
	type queued struct {
		unit Unit
		gran granularity
	}
	queue := make([]queued, len(units))
	for i, u := range units {
		queue[i] = queued{unit: u, gran: gran}
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		u := item.unit

		if a.counter.Count(u.Text) > a.budget {
			// A no-op split (a section that is a single paragraph, a
			// paragraph that is a single sentence) escalates straight to the
			// next granularity; only the full chain deems a unit irreducible.
			sub, next := refine(u, item.gran)
			for len(sub) == 1 && sub[0].Text == u.Text {
				sub, next = refine(sub[0], next)
			}
			if len(sub) > 0 {
				requeued := make([]queued, 0, len(sub)+len(queue))
				for _, s := range sub {
					requeued = append(requeued, queued{unit: s, gran: next})
				}
				queue = append(requeued, queue...)
				continue
			}
			// Irreducible: even a single sentence exceeds the budget. Emit it
			// verbatim as its own chunk, flagged rather than rejected.
			a.flush(false)
			a.acc = joinSpans(a.acc, u.Text)
			a.path = u.HeadingPath
			a.units = 1
			a.flush(true)
			continue
		}

		a.append(u)
	}
}

// append adds a unit to the accumulator, closing the current chunk first when
// the unit no longer fits. The unit is guaranteed to fit an empty accumulator.
func (a *assembler) append(u Unit) {
	candidate := joinSpans(a.acc, u.Text)
	if a.counter.Count(candidate) <= a.budget {
		a.acc = candidate
		if a.units == 0 {
			a.path = u.HeadingPath
		}
		a.units++
		return
	}

	if a.units == 0 {
		// Only the overlap seed is present and seed+unit would overflow.
		// The budget wins over continuity: drop the seed for this boundary.
		a.acc = u.Text
		a.path = u.HeadingPath
		a.units = 1
		return
	}

	a.flush(false)
	a.append(u)
}

// flush closes the accumulator as a completed chunk and seeds the next one
// with the overlap window (the trailing overlap tokens, decoded to text).
// The overlap is recomputed fresh at every boundary, never accumulated.
// An accumulator holding only a leftover overlap seed is discarded, not
// emitted: the seed belongs to the previous chunk already.
func (a *assembler) flush(oversized bool) {
	text := strings.TrimSpace(a.acc)
	hadUnits := a.units > 0
	path := a.path
	a.acc = ""
	a.path = nil
	a.units = 0

	if !hadUnits || text == "" {
		return
	}

	a.chunks = append(a.chunks, Chunk{
		Text:        text,
		Index:       len(a.chunks),
		TokenCount:  a.counter.Count(text),
		HeadingPath: path,
		Oversized:   oversized,
	})

	if a.overlap > 0 {
		a.acc = a.counter.Tail(text, a.overlap)
	}
}

func joinSpans(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n\n" + b
}
