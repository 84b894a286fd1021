// Package subtitles turns synthesized audio into word-aligned captions and
// renders them as ASS subtitle tracks in several visual styles.
package subtitles

import "errors"

// Visual styles a track can be rendered in.
const (
	StyleKaraoke     = "karaoke"
	StyleProgressive = "progressive"
	StyleSimple      = "simple"
)

// ErrGenerationFailed reports that no caption track could be produced.
var ErrGenerationFailed = errors.New("subtitle generation failed")

// Word is a single transcribed word with its aligned timing in seconds.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Unit is one caption: a group of words shown together.
type Unit struct {
	Words []Word
	Start float64
	End   float64
}

// Track is an ordered sequence of caption units tagged with a style.
// Fallback marks a track fabricated from the script without word alignment.
type Track struct {
	Style    string
	Units    []Unit
	Fallback bool
}

// Duration returns the end time of the last caption in seconds.
func (t Track) Duration() float64 {
	if len(t.Units) == 0 {
		return 0
	}
	return t.Units[len(t.Units)-1].End
}

// WordCount sums words across all units.
func (t Track) WordCount() int {
	n := 0
	for _, u := range t.Units {
		n += len(u.Words)
	}
	return n
}
