package spacetraveling

import (
	"strings"
	"testing"

	"github.com/eringen/spacetraveling/richtext"
)

func sectionWithWords(n int) ContentSection {
	return ContentSection{
		Heading: "Heading words are not counted",
		Body:    richtext.RichText{{Type: richtext.Paragraph, Text: strings.TrimSpace(strings.Repeat("word ", n))}},
	}
}

func TestReadingTimeEmpty(t *testing.T) {
	if got := ReadingTimeMinutes(nil); got != 0 {
		t.Errorf("ReadingTimeMinutes(nil) = %d, want 0", got)
	}
	if got := ReadingTimeMinutes([]ContentSection{{Heading: "only a heading"}}); got != 0 {
		t.Errorf("heading-only = %d, want 0", got)
	}
}

func TestReadingTimeRoundsUp(t *testing.T) {
	cases := []struct {
		words int
		want  int
	}{
		{1, 1},
		{200, 1},
		{201, 2},
		{400, 2},
		{401, 3},
	}
	for _, tc := range cases {
		if got := ReadingTimeMinutes([]ContentSection{sectionWithWords(tc.words)}); got != tc.want {
			t.Errorf("%d words = %d min, want %d", tc.words, got, tc.want)
		}
	}
}

func TestReadingTimeCountsEverySection(t *testing.T) {
	sections := []ContentSection{sectionWithWords(150), sectionWithWords(51)}
	if got := ReadingTimeMinutes(sections); got != 2 {
		t.Errorf("ReadingTimeMinutes = %d, want 2", got)
	}
}

func TestReadingTimeJoinsBlocksWithoutMergingWords(t *testing.T) {
	body := richtext.RichText{
		{Type: richtext.Paragraph, Text: strings.TrimSpace(strings.Repeat("a ", 100))},
		{Type: richtext.Paragraph, Text: strings.TrimSpace(strings.Repeat("b ", 101))},
	}
	if got := ReadingTimeMinutes([]ContentSection{{Body: body}}); got != 2 {
		t.Errorf("ReadingTimeMinutes = %d, want 2", got)
	}
}

func TestReadingTimeStripsPunctuationArtifact(t *testing.T) {
	// " ., " collapses so the artifact is not counted as a word.
	text := strings.TrimSpace(strings.Repeat("word ", 200)) + " .,"
	body := richtext.RichText{{Type: richtext.Paragraph, Text: text}}
	if got := ReadingTimeMinutes([]ContentSection{{Body: body}}); got != 1 {
		t.Errorf("ReadingTimeMinutes = %d, want 1", got)
	}
}
