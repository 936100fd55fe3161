package spacetraveling

import (
	"math"
	"strings"

	"github.com/eringen/spacetraveling/richtext"
)

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// ReadingTimeMinutes estimates how long the post body takes to read: all body
// text across every section, ".," artifacts removed, words split on
// whitespace, rounded up to whole minutes. An empty body reads in 0 minutes.
func ReadingTimeMinutes(sections []ContentSection) int {
	bodies := make([]string, 0, len(sections))
	for _, s := range sections {
		if text := richtext.AsText(s.Body, " "); text != "" {
			bodies = append(bodies, text)
		}
	}
	text := strings.ReplaceAll(strings.Join(bodies, " "), ".,", "")
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) / WordsPerMinute))
}
