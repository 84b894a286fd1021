package subtitles

import (
	"fmt"
	"os"
	"strings"

	"github.com/LaChance971123/NewAutoContent/config"
)

// groupIntoUnits batches words into caption units, splitting on sentence
// punctuation or when a line reaches maxWords. Periods inside numbers like
// "4.5" do not end a sentence.
func groupIntoUnits(words []Word, maxWords int) []Unit {
	if maxWords <= 0 {
		maxWords = config.SubtitleMaxWordsLine
	}
	var units []Unit
	current := Unit{}
	for i, w := range words {
		if len(current.Words) == 0 {
			current.Start = w.Start
		}
		current.Words = append(current.Words, w)
		current.End = w.End

		if endsSentence(w.Text) || len(current.Words) >= maxWords || i == len(words)-1 {
			units = append(units, current)
			current = Unit{}
		}
	}
	return units
}

func endsSentence(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
		return true
	}
	if !strings.HasSuffix(trimmed, ".") {
		return false
	}
	if len(trimmed) < 2 {
		return true
	}
	prev := trimmed[len(trimmed)-2]
	return prev < '0' || prev > '9'
}

// WriteASS renders the track to an ASS subtitle file sized for the target
// resolution.
func WriteASS(track Track, width, height int, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrGenerationFailed, outPath, err)
	}
	defer f.Close()

	marginV := height * 2 / 5

	fmt.Fprintln(f, "[Script Info]")
	fmt.Fprintln(f, "Title: AutoContent")
	fmt.Fprintln(f, "ScriptType: v4.00+")
	fmt.Fprintf(f, "PlayResX: %d\n", width)
	fmt.Fprintf(f, "PlayResY: %d\n", height)
	fmt.Fprintln(f, "")
	fmt.Fprintln(f, "[V4+ Styles]")
	fmt.Fprintln(f, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding")
	fmt.Fprintf(f, "Style: Default,Arial,%d,&H00FFFFFF,&H0000FFFF,&H00000000,&H00000000,-1,0,0,0,100,100,0,0,1,3,0,2,40,40,%d,1\n", config.SubtitleFontSize, marginV)
	fmt.Fprintln(f, "")
	fmt.Fprintln(f, "[Events]")
	fmt.Fprintln(f, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text")

	for _, unit := range track.Units {
		switch track.Style {
		case StyleKaraoke:
			writeKaraokeDialogue(f, unit)
		case StyleProgressive:
			writeProgressiveDialogues(f, unit)
		default:
			writeSimpleDialogue(f, unit)
		}
	}
	return nil
}

// writeKaraokeDialogue emits one event per caption with \k durations so each
// word highlights in turn as it is spoken.
func writeKaraokeDialogue(f *os.File, unit Unit) {
	var b strings.Builder
	for i, w := range unit.Words {
		end := unit.End
		if i < len(unit.Words)-1 {
			end = unit.Words[i+1].Start
		}
		centis := int((end - w.Start) * 100)
		if centis < 1 {
			centis = 1
		}
		fmt.Fprintf(&b, "{\\k%d}%s", centis, w.Text)
		if i < len(unit.Words)-1 {
			b.WriteByte(' ')
		}
	}
	fmt.Fprintf(f, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
		formatASSTime(unit.Start), formatASSTime(unit.End), b.String())
}

// writeProgressiveDialogues reveals the caption cumulatively, one event per
// word, each showing every word spoken so far.
func writeProgressiveDialogues(f *os.File, unit Unit) {
	for i := range unit.Words {
		start := unit.Words[i].Start
		end := unit.End
		if i < len(unit.Words)-1 {
			end = unit.Words[i+1].Start
		}
		shown := make([]string, 0, i+1)
		for j := 0; j <= i; j++ {
			shown = append(shown, unit.Words[j].Text)
		}
		fmt.Fprintf(f, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(start), formatASSTime(end), strings.Join(shown, " "))
	}
}

// writeSimpleDialogue shows the whole caption for its full span.
func writeSimpleDialogue(f *os.File, unit Unit) {
	words := make([]string, 0, len(unit.Words))
	for _, w := range unit.Words {
		words = append(words, w.Text)
	}
	fmt.Fprintf(f, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
		formatASSTime(unit.Start), formatASSTime(unit.End), strings.Join(words, " "))
}

// formatASSTime renders seconds as H:MM:SS.CC.
func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := int(seconds) / 3600
	mins := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	centis := int((seconds - float64(int(seconds))) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", hrs, mins, secs, centis)
}
