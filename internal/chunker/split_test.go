package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSections(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCount int
		check     func(t *testing.T, units []Unit)
	}{
		{
			name:      "empty input",
			text:      "",
			wantCount: 0,
		},
		{
			name:      "whitespace only",
			text:      "  \n\n\t\n",
			wantCount: 0,
		},
		{
			name:      "no headings yields single section with empty path",
			text:      "Just a plain paragraph.\n\nAnd another one.",
			wantCount: 1,
			check: func(t *testing.T, units []Unit) {
				if len(units[0].HeadingPath) != 0 {
					t.Errorf("expected empty heading path, got %v", units[0].HeadingPath)
				}
				if !strings.Contains(units[0].Text, "plain paragraph") {
					t.Errorf("section text missing content: %q", units[0].Text)
				}
			},
		},
		{
			name:      "preamble before first heading has empty path",
			text:      "Intro text before any heading.\n\n# First\n\nBody.",
			wantCount: 2,
			check: func(t *testing.T, units []Unit) {
				if len(units[0].HeadingPath) != 0 {
					t.Errorf("preamble path = %v, want empty", units[0].HeadingPath)
				}
				if got := units[1].HeadingPath; !reflect.DeepEqual(got, []string{"First"}) {
					t.Errorf("section path = %v, want [First]", got)
				}
			},
		},
		{
			name: "nested headings build ancestor paths",
			text: "# Guide\n\nTop content.\n\n## Setup\n\nSetup content.\n\n### Linux\n\nLinux content.\n\n## Usage\n\nUsage content.",
			wantCount: 4,
			check: func(t *testing.T, units []Unit) {
				wantPaths := [][]string{
					{"Guide"},
					{"Guide", "Setup"},
					{"Guide", "Setup", "Linux"},
					{"Guide", "Usage"},
				}
				for i, want := range wantPaths {
					if !reflect.DeepEqual(units[i].HeadingPath, want) {
						t.Errorf("unit %d path = %v, want %v", i, units[i].HeadingPath, want)
					}
				}
			},
		},
		{
			name:      "h4 does not start a new section",
			text:      "# Top\n\nContent.\n\n#### Deep\n\nStill in Top.",
			wantCount: 1,
			check: func(t *testing.T, units []Unit) {
				if !strings.Contains(units[0].Text, "Still in Top") {
					t.Errorf("h4 content escaped its section: %q", units[0].Text)
				}
			},
		},
		{
			name:      "hash inside fenced code block does not split",
			text:      "# Top\n\nBefore code.\n\n```\n# not a heading\n```\n\nAfter code.",
			wantCount: 1,
			check: func(t *testing.T, units []Unit) {
				if !strings.Contains(units[0].Text, "After code") {
					t.Errorf("code fence split the section: %q", units[0].Text)
				}
			},
		},
		{
			name:      "section text keeps the heading marker verbatim",
			text:      "# Title\n\nBody text.",
			wantCount: 1,
			check: func(t *testing.T, units []Unit) {
				if !strings.HasPrefix(units[0].Text, "# Title") {
					t.Errorf("section text = %q, want verbatim heading line", units[0].Text)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := SplitSections(tt.text)
			if len(units) != tt.wantCount {
				t.Fatalf("SplitSections() returned %d units, want %d: %#v", len(units), tt.wantCount, units)
			}
			if tt.check != nil {
				tt.check(t, units)
			}
		})
	}
}

func TestSplitParagraphs(t *testing.T) {
	section := Unit{
		Text:        "# Title\n\nFirst paragraph.\n\n\n\nSecond paragraph.\n\n   \n\nThird.",
		HeadingPath: []string{"Title"},
	}

	units := SplitParagraphs(section)
	if len(units) != 4 {
		t.Fatalf("SplitParagraphs() returned %d units, want 4: %#v", len(units), units)
	}
	for i, u := range units {
		if !reflect.DeepEqual(u.HeadingPath, section.HeadingPath) {
			t.Errorf("unit %d did not inherit heading path: %v", i, u.HeadingPath)
		}
		if strings.TrimSpace(u.Text) == "" {
			t.Errorf("unit %d is blank", i)
		}
	}

	if units := SplitParagraphs(Unit{Text: "   \n\n \n"}); len(units) != 0 {
		t.Errorf("blank section produced %d units, want 0", len(units))
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "splits on terminal punctuation before capitals",
			text: "First sentence here. Second one follows! Third asks? Yes.",
			want: []string{"First sentence here.", "Second one follows!", "Third asks?", "Yes."},
		},
		{
			name: "no terminal punctuation yields whole paragraph",
			text: "a paragraph with no terminator at all",
			want: []string{"a paragraph with no terminator at all"},
		},
		{
			name: "decimal points do not split",
			text: "Pi is roughly 3.14 in most uses. Next sentence.",
			want: []string{"Pi is roughly 3.14 in most uses.", "Next sentence."},
		},
		{
			name: "lowercase continuation does not split",
			text: "See ch. iv for details. Then stop.",
			want: []string{"See ch. iv for details.", "Then stop."},
		},
		{
			name: "closing quote stays with its sentence",
			text: `He said "stop." Then he left.`,
			want: []string{`He said "stop."`, "Then he left."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := SplitSentences(Unit{Text: tt.text, HeadingPath: []string{"H"}})
			got := make([]string, len(units))
			for i, u := range units {
				got[i] = u.Text
				if len(u.HeadingPath) != 1 || u.HeadingPath[0] != "H" {
					t.Errorf("unit %d lost heading path: %v", i, u.HeadingPath)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
