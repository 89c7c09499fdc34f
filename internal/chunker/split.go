package chunker

import (
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// maxSectionLevel is the deepest heading level that starts a new section.
// Deeper headings stay inside their parent section's text.
const maxSectionLevel = 3

// SplitSections splits Markdown text into one unit per heading-delimited
// section. Heading positions come from the goldmark AST rather than a line
// scan so that '#' lines inside fenced code blocks never split; the section
// text itself is sliced verbatim from the source. Content before the first
// heading becomes a unit with an empty heading path. Empty input yields nil.
func SplitSections(text string) []Unit {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	src := []byte(text)

	type mark struct {
		offset int
		level  int
		title  string
	}
	var marks []mark

	doc := goldmark.New().Parser().Parse(gtext.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > maxSectionLevel || h.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		start := h.Lines().At(0).Start
		// Lines() starts at the heading text; back up to the line start so the
		// '#' marker stays part of the section slice.
		for start > 0 && src[start-1] != '\n' {
			start--
		}
		marks = append(marks, mark{offset: start, level: h.Level, title: headingText(h, src)})
		return ast.WalkContinue, nil
	})

	if len(marks) == 0 {
		return []Unit{{Text: strings.TrimSpace(text)}}
	}

	var units []Unit
	if preamble := strings.TrimSpace(string(src[:marks[0].offset])); preamble != "" {
		units = append(units, Unit{Text: preamble})
	}

	// Stack of (level, title) tracking the heading hierarchy, as in a document
	// outline: a new heading pops everything at its level or deeper.
	type frame struct {
		level int
		title string
	}
	var stack []frame

	for i, m := range marks {
		end := len(src)
		if i+1 < len(marks) {
			end = marks[i+1].offset
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= m.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, frame{level: m.level, title: m.title})

		path := make([]string, len(stack))
		for j, f := range stack {
			path[j] = f.title
		}

		body := strings.TrimSpace(string(src[m.offset:end]))
		if body == "" {
			continue
		}
		units = append(units, Unit{Text: body, HeadingPath: path})
	}
	return units
}

// SplitParagraphs splits a section's text on blank-line boundaries. Every
// paragraph inherits the section's heading path. Whitespace-only paragraphs
// are dropped.
func SplitParagraphs(section Unit) []Unit {
	var units []Unit
	for _, p := range strings.Split(section.Text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		units = append(units, Unit{Text: p, HeadingPath: section.HeadingPath})
	}
	return units
}

// SplitSentences splits a paragraph on sentence-terminal punctuation followed
// by whitespace and a capital letter, digit or opening quote. A paragraph
// without any such boundary is returned as a single sentence unit.
func SplitSentences(paragraph Unit) []Unit {
	runes := []rune(paragraph.Text)
	var units []Unit
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if !isSentenceTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && isClosingMark(runes[j]) {
			j++
		}
		if j >= len(runes) || !unicode.IsSpace(runes[j]) {
			continue
		}
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k >= len(runes) || !startsSentence(runes[k]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:j])); s != "" {
			units = append(units, Unit{Text: s, HeadingPath: paragraph.HeadingPath})
		}
		start = k
		i = k - 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		units = append(units, Unit{Text: rest, HeadingPath: paragraph.HeadingPath})
	}
	if len(units) == 0 {
		return []Unit{paragraph}
	}
	return units
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosingMark(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '“' || r == '(' || r == '«'
}

// headingText collects the plain text of a heading node.
func headingText(n ast.Node, src []byte) string {
	var buf strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(src))
		case *ast.String:
			buf.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
