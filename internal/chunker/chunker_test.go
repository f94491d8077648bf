package chunker

import (
	"strings"
	"testing"
)

func TestParagraphs_SplitsOnBlankLines(t *testing.T) {
	long := strings.Repeat("word ", 12)
	text := long + "\n\n   \n" + "too short here\n \n" + long

	got := Paragraphs(text, DefaultConfig())
	if len(got) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(got), got)
	}
	for i, p := range got {
		if WordCount(p) != 12 {
			t.Errorf("paragraph %d: expected 12 words, got %d", i, WordCount(p))
		}
	}
}

func TestParagraphs_SingleLineIsOneParagraph(t *testing.T) {
	text := strings.Repeat("alpha beta gamma. ", 10)
	got := Paragraphs(text, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(got))
	}
}

func TestSentences(t *testing.T) {
	text := "Accuracy rose to 3.5 percent over the baseline. Short one! Is this the last real sentence here?"
	got := Sentences(text, 5)
	want := []string{
		"Accuracy rose to 3.5 percent over the baseline",
		"Is this the last real sentence here",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSentenceGroups_FlushAtChunkWords(t *testing.T) {
	// Each sentence has 10 words; three make a group, the fourth is left over.
	sentence := "one two three four five six seven eight nine ten. "
	text := strings.Repeat(sentence, 4)

	got := SentenceGroups(text, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	if WordCount(got[0]) != 30 {
		t.Errorf("expected 30 words, got %d", WordCount(got[0]))
	}
	if strings.Count(got[0], ".") != 3 {
		t.Errorf("expected each sentence to keep its period, got %q", got[0])
	}
}

func TestSentenceGroups_KeepsTerminalMarks(t *testing.T) {
	text := "Did the new model beat every earlier baseline we tried? " +
		"It did so on eleven of the twelve public benchmark sets! " +
		"The remaining set was too small to draw any firm conclusion from"

	got := SentenceGroups(text, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d: %q", len(got), got)
	}
	want := "Did the new model beat every earlier baseline we tried? " +
		"It did so on eleven of the twelve public benchmark sets! " +
		"The remaining set was too small to draw any firm conclusion from"
	if got[0] != want {
		t.Errorf("expected %q, got %q", want, got[0])
	}
}

func TestSentenceGroups_Empty(t *testing.T) {
	if got := SentenceGroups("", DefaultConfig()); len(got) != 0 {
		t.Errorf("expected no groups, got %d", len(got))
	}
}

func TestDefaultConfigFallback(t *testing.T) {
	// Zero-value config should be replaced with defaults.
	got := Paragraphs(strings.Repeat("word ", 9), Config{})
	if len(got) != 0 {
		t.Errorf("expected 9-word paragraph to be dropped with defaults, got %d", len(got))
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{" one  two\nthree\t", 3},
	}
	for _, tt := range tests {
		if got := WordCount(tt.text); got != tt.want {
			t.Errorf("WordCount(%q): expected %d, got %d", tt.text, tt.want, got)
		}
	}
}
